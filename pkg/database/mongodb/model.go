package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base contains the identifier and timestamps shared by all entities.
// Embed it with `bson:",inline"`.
type Base[ID comparable] struct {
	ID          ID        `bson:"_id,omitempty" json:"id,omitempty"`
	CreatedDate time.Time `bson:"created_date" json:"created_date"`
	UpdatedDate time.Time `bson:"updated_date" json:"updated_date"`
}

// GetID returns the ID.
func (b *Base[ID]) GetID() ID {
	return b.ID
}

// SetID sets the ID.
func (b *Base[ID]) SetID(id ID) {
	b.ID = id
}

// GetCreatedDate returns the creation time.
func (b *Base[ID]) GetCreatedDate() time.Time {
	return b.CreatedDate
}

// SetCreatedDate sets the creation time.
func (b *Base[ID]) SetCreatedDate(t time.Time) {
	b.CreatedDate = t
}

// GetUpdatedDate returns the last update time.
func (b *Base[ID]) GetUpdatedDate() time.Time {
	return b.UpdatedDate
}

// SetUpdatedDate sets the last update time.
func (b *Base[ID]) SetUpdatedDate(t time.Time) {
	b.UpdatedDate = t
}

// IsTransient reports whether ID still holds its zero value.
func (b *Base[ID]) IsTransient() bool {
	var zero ID
	return b.ID == zero
}

// MongoEntity is an entity with a string identifier stored as an ObjectID.
type MongoEntity struct {
	Base[string] `bson:",inline"`
}

// EntityMapping stores the string identifier as an ObjectID.
func (MongoEntity) EntityMapping() Mapping {
	return ObjectIDMapping()
}

// ObjectIDEntity is an entity whose identifier is a native ObjectID.
type ObjectIDEntity struct {
	Base[primitive.ObjectID] `bson:",inline"`
}

// EntityMapping keeps the ObjectID identifier as is.
func (ObjectIDEntity) EntityMapping() Mapping {
	return PassthroughMapping()
}
