package mongodb

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// codec converts between entities and the documents stored for them,
// applying the identifier mapping of the repository.
type codec[T any, PT EntityPtr[T, ID], ID comparable] struct {
	mapping   Mapping
	fields    *fieldMap
	idType    reflect.Type
	generator IDGenerator[ID]
}

func newCodec[T any, PT EntityPtr[T, ID], ID comparable](m Mapping) (*codec[T, PT, ID], error) {
	idType := typeOf[ID]()
	if err := m.validate(idType); err != nil {
		return nil, err
	}
	return &codec[T, PT, ID]{
		mapping: m,
		fields:  defaultFieldMapper.fieldsOf(typeOf[T]()),
		idType:  idType,
	}, nil
}

// encode renders entity as an ordered document with its identifier in wire form.
func (c *codec[T, PT, ID]) encode(entity PT) (bson.D, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, err
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	for i := range doc {
		if doc[i].Key != idKey {
			continue
		}
		v, err := c.toWire(doc[i].Value)
		if err != nil {
			return nil, err
		}
		doc[i].Value = v
	}
	return doc, nil
}

// decode turns a stored document into an entity.
func (c *codec[T, PT, ID]) decode(raw bson.Raw) (*T, error) {
	if !c.mapping.IgnoreExtraElements {
		elems, err := raw.Elements()
		if err != nil {
			return nil, err
		}
		for _, e := range elems {
			if !c.fields.knows(e.Key()) {
				return nil, fmt.Errorf("%w: stored field %q is not declared by %s", ErrUnknownField, e.Key(), TypeName[T]())
			}
		}
	}

	// String identifiers stored as ObjectIDs decode to their hex form.
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// idValue returns id in the form used on the wire.
func (c *codec[T, PT, ID]) idValue(id ID) (any, error) {
	return c.toWire(id)
}

// idFilter selects the document with the given identifier.
func (c *codec[T, PT, ID]) idFilter(id ID) (bson.D, error) {
	v, err := c.idValue(id)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: idKey, Value: v}}, nil
}

// toWire converts one identifier value according to the mapping.
func (c *codec[T, PT, ID]) toWire(v any) (any, error) {
	if c.mapping.ID != IDObjectID {
		return v, nil
	}
	if _, ok := v.(primitive.ObjectID); ok {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return v, nil
	}
	oid, err := primitive.ObjectIDFromHex(rv.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an ObjectID: %v", ErrInvalidID, rv.String(), err)
	}
	return oid, nil
}

// assignID gives a transient entity a fresh identifier.
// A configured generator wins; otherwise ObjectID identifiers get a new
// ObjectID and string identifiers its hex form.
func (c *codec[T, PT, ID]) assignID(entity PT) error {
	if c.generator != nil {
		id := c.generator.Generate()
		var zero ID
		if id == zero {
			return fmt.Errorf("%w: generator returned the zero value", ErrIDGeneration)
		}
		entity.SetID(id)
		return nil
	}

	var id ID
	rv := reflect.ValueOf(&id).Elem()

	switch {
	case c.idType == objectIDType:
		rv.Set(reflect.ValueOf(primitive.NewObjectID()))
	case c.idType.Kind() == reflect.String:
		rv.SetString(primitive.NewObjectID().Hex())
	default:
		return fmt.Errorf("%w: %s identifiers must be set before saving", ErrIDGeneration, c.idType)
	}

	entity.SetID(id)
	return nil
}

// key resolves an entity field name to its BSON key.
func (c *codec[T, PT, ID]) key(name string) (string, error) {
	return c.fields.resolve(name)
}

// timestampKey finds the stored key of a timestamp by Go field name, then by
// its conventional key.
func (c *codec[T, PT, ID]) timestampKey(name, fallback string) (string, error) {
	if key, err := c.fields.resolve(name); err == nil {
		return key, nil
	}
	return c.fields.resolve(fallback)
}
