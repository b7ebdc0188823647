package mongodb

import (
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDRepresentation describes how an identifier is written to the database.
type IDRepresentation int

const (
	// IDPassthrough stores the identifier with its own BSON type.
	IDPassthrough IDRepresentation = iota
	// IDObjectID stores a string identifier as an ObjectID and reads it back as hex.
	IDObjectID
)

func (r IDRepresentation) String() string {
	switch r {
	case IDPassthrough:
		return "passthrough"
	case IDObjectID:
		return "objectid"
	}
	return fmt.Sprintf("IDRepresentation(%d)", int(r))
}

// Mapping is the per-repository encoding convention for an entity type.
type Mapping struct {
	ID IDRepresentation
	// IgnoreExtraElements drops stored fields the entity does not declare.
	// When false, such fields fail decoding with ErrUnknownField.
	IgnoreExtraElements bool
}

// ObjectIDMapping stores a string identifier as an ObjectID and tolerates
// unknown fields.
func ObjectIDMapping() Mapping {
	return Mapping{ID: IDObjectID, IgnoreExtraElements: true}
}

// PassthroughMapping leaves the identifier untouched and tolerates unknown fields.
func PassthroughMapping() Mapping {
	return Mapping{ID: IDPassthrough, IgnoreExtraElements: true}
}

// StringIDConvention is the convention for entities that only implement
// Entity[string]: string identifiers travel as ObjectIDs, unknown fields
// are ignored.
func StringIDConvention() Mapping {
	return Mapping{ID: IDObjectID, IgnoreExtraElements: true}
}

var objectIDType = reflect.TypeOf(primitive.ObjectID{})

// validate checks that the mapping can be applied to identifiers of idType.
func (m Mapping) validate(idType reflect.Type) error {
	switch m.ID {
	case IDPassthrough:
		return nil
	case IDObjectID:
		if idType == objectIDType || idType.Kind() == reflect.String {
			return nil
		}
		return fmt.Errorf("%w: %s cannot be stored as an ObjectID", ErrInvalidMapping, idType)
	}
	return fmt.Errorf("%w: unknown id representation %s", ErrInvalidMapping, m.ID)
}

// MappingRegistry records mappings per entity type plus an optional default
// convention applied to every other type.
//
// Registrations must happen before the repositories that should observe
// them are constructed; a repository snapshots its mapping at construction.
type MappingRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Mapping
	def    *Mapping
}

// NewMappingRegistry creates an empty registry.
func NewMappingRegistry() *MappingRegistry {
	return &MappingRegistry{byType: make(map[reflect.Type]Mapping)}
}

// Register records m for type t. Registering the same mapping twice is a
// no-op; registering a different one returns ErrMappingConflict.
func (r *MappingRegistry) Register(t reflect.Type, m Mapping) error {
	t = derefType(t)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[t]; ok {
		if existing == m {
			return nil
		}
		return fmt.Errorf("%w: %s already registered as %+v", ErrMappingConflict, t, existing)
	}
	r.byType[t] = m
	return nil
}

// SetDefault records the convention used for types without their own entry.
func (r *MappingRegistry) SetDefault(m Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.def != nil {
		if *r.def == m {
			return nil
		}
		return fmt.Errorf("%w: default convention already registered as %+v", ErrMappingConflict, *r.def)
	}
	r.def = &m
	return nil
}

// Lookup returns the mapping for t, falling back to the default convention.
func (r *MappingRegistry) Lookup(t reflect.Type) (Mapping, bool) {
	if m, ok := r.entry(t); ok {
		return m, true
	}
	return r.convention()
}

func (r *MappingRegistry) entry(t reflect.Type) (Mapping, bool) {
	t = derefType(t)

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byType[t]
	return m, ok
}

func (r *MappingRegistry) convention() (Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == nil {
		return Mapping{}, false
	}
	return *r.def, true
}

// RegisterObjectIDMapper registers ObjectIDMapping for T.
func RegisterObjectIDMapper[T any](r *MappingRegistry) error {
	return r.Register(typeOf[T](), ObjectIDMapping())
}

// RegisterPassthroughMapper registers PassthroughMapping for T.
func RegisterPassthroughMapper[T any](r *MappingRegistry) error {
	return r.Register(typeOf[T](), PassthroughMapping())
}

// RegisterStringIDConvention installs StringIDConvention as the default.
// Like any default, it only applies to types whose identifiers it can store;
// entities with other identifier types keep their own mapping.
func RegisterStringIDConvention(r *MappingRegistry) error {
	return r.SetDefault(StringIDConvention())
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
