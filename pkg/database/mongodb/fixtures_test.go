package mongodb

import (
	"time"
)

// TestEntity is the common fixture: string id stored as ObjectID.
type TestEntity struct {
	MongoEntity `bson:",inline"`
	MyVar       int    `bson:"my_var" validate:"gte=0"`
	Name        string `bson:"name,omitempty"`
}

// ObjectIDTestEntity keeps a native ObjectID identifier.
type ObjectIDTestEntity struct {
	ObjectIDEntity `bson:",inline"`
	MyVar          int `bson:"my_var"`
}

// TestEntityFromInterface implements Entity without embedding a base type.
type TestEntityFromInterface struct {
	Id          string    `bson:"_id,omitempty"`
	CreatedDate time.Time `bson:"created_date"`
	UpdatedDate time.Time `bson:"updated_date"`
	SomeContent string    `bson:"some_content"`
}

func (e *TestEntityFromInterface) GetID() string              { return e.Id }
func (e *TestEntityFromInterface) SetID(id string)            { e.Id = id }
func (e *TestEntityFromInterface) GetCreatedDate() time.Time  { return e.CreatedDate }
func (e *TestEntityFromInterface) SetCreatedDate(t time.Time) { e.CreatedDate = t }
func (e *TestEntityFromInterface) GetUpdatedDate() time.Time  { return e.UpdatedDate }
func (e *TestEntityFromInterface) SetUpdatedDate(t time.Time) { e.UpdatedDate = t }
func (e *TestEntityFromInterface) IsTransient() bool          { return e.Id == "" }

// FixedClassWithID is a hand written base shared through embedding.
type FixedClassWithID struct {
	Id          string    `bson:"_id,omitempty"`
	CreatedDate time.Time `bson:"created_date"`
	UpdatedDate time.Time `bson:"updated_date"`
}

func (e *FixedClassWithID) GetID() string              { return e.Id }
func (e *FixedClassWithID) SetID(id string)            { e.Id = id }
func (e *FixedClassWithID) GetCreatedDate() time.Time  { return e.CreatedDate }
func (e *FixedClassWithID) SetCreatedDate(t time.Time) { e.CreatedDate = t }
func (e *FixedClassWithID) GetUpdatedDate() time.Time  { return e.UpdatedDate }
func (e *FixedClassWithID) SetUpdatedDate(t time.Time) { e.UpdatedDate = t }
func (e *FixedClassWithID) IsTransient() bool          { return e.Id == "" }

type TestEntitySubInterface struct {
	FixedClassWithID `bson:",inline"`
	Label            string `bson:"label"`
}

// IntIDEntity has an identifier type the repository cannot generate.
type IntIDEntity struct {
	Base[int] `bson:",inline"`
	Note      string `bson:"note"`
}

// SequenceEntity uses generated int64 identifiers.
type SequenceEntity struct {
	Base[int64] `bson:",inline"`
	Note        string `bson:"note"`
}

type counterGenerator struct{ next int64 }

func (g *counterGenerator) Generate() int64 {
	g.next++
	return g.next
}
