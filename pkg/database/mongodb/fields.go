package mongodb

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const idKey = "_id"

// fieldMap translates Go field names and BSON keys of an entity type to the
// BSON keys stored at the top level of its documents.
type fieldMap struct {
	keys  map[string]string
	known map[string]struct{}
}

// resolve returns the BSON key for name. Dotted paths are resolved on their
// first segment only; the remainder addresses nested documents verbatim.
func (fm *fieldMap) resolve(name string) (string, error) {
	head, rest, nested := strings.Cut(name, ".")
	key, ok := fm.keys[head]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if nested {
		return key + "." + rest, nil
	}
	return key, nil
}

// knows reports whether key is a top-level BSON key of the entity.
func (fm *fieldMap) knows(key string) bool {
	_, ok := fm.known[key]
	return ok
}

type fieldMapper struct {
	cache sync.Map
}

var defaultFieldMapper = &fieldMapper{}

// fieldsOf loads or creates the fieldMap for t.
func (m *fieldMapper) fieldsOf(t reflect.Type) *fieldMap {
	t = derefType(t)
	if v, ok := m.cache.Load(t); ok {
		return v.(*fieldMap)
	}

	fm := &fieldMap{
		keys:  make(map[string]string),
		known: make(map[string]struct{}),
	}
	m.analyze(t, fm)
	v, _ := m.cache.LoadOrStore(t, fm)
	return v.(*fieldMap)
}

// analyze scans the struct, descending into inlined structs.
func (m *fieldMapper) analyze(t reflect.Type, fm *fieldMap) {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key, inline, skip := parseBSONTag(field)
		if skip {
			continue
		}

		if inline {
			m.analyze(field.Type, fm)
			continue
		}

		fm.add(key, key)
		fm.add(field.Name, key)
		fm.known[key] = struct{}{}
	}
}

// add keeps the first mapping seen for name, so outer fields shadow inlined ones.
func (fm *fieldMap) add(name, key string) {
	if _, exists := fm.keys[name]; !exists {
		fm.keys[name] = key
	}
}

// parseBSONTag mirrors the driver's default struct tag rules.
func parseBSONTag(field reflect.StructField) (key string, inline, skip bool) {
	tag, ok := field.Tag.Lookup("bson")
	if !ok && !strings.Contains(string(field.Tag), ":") {
		tag = string(field.Tag)
	}
	if tag == "-" {
		return "", false, true
	}

	parts := strings.Split(tag, ",")
	key = parts[0]
	for _, opt := range parts[1:] {
		if opt == "inline" {
			inline = true
		}
	}
	if key == "" {
		key = strings.ToLower(field.Name)
	}
	return key, inline, false
}
