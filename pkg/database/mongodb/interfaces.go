package mongodb

import (
	"time"
)

// Entity is the contract every stored document type must satisfy.
type Entity[ID comparable] interface {
	GetID() ID
	SetID(ID)
	GetCreatedDate() time.Time
	SetCreatedDate(time.Time)
	GetUpdatedDate() time.Time
	SetUpdatedDate(time.Time)
	// IsTransient reports whether the entity has never been persisted.
	IsTransient() bool
}

// EntityPtr constrains PT to be *T implementing Entity.
type EntityPtr[T any, ID comparable] interface {
	*T
	Entity[ID]
}

// MappingProvider is implemented by entities that carry their own
// identifier mapping.
type MappingProvider interface {
	EntityMapping() Mapping
}
