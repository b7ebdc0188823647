package mongodb

import (
	"reflect"
	"strings"
)

// DefaultConnection is used when no connection string is configured.
const DefaultConnection = "mongodb://localhost"

const databaseSuffix = "DB"

// ResolveConnection returns explicit, or DefaultConnection when it is blank.
func ResolveConnection(explicit string) string {
	if strings.TrimSpace(explicit) == "" {
		return DefaultConnection
	}
	return explicit
}

// ResolveDatabaseName returns explicit, or "{typeName}DB" when it is blank.
func ResolveDatabaseName(explicit, typeName string) string {
	if strings.TrimSpace(explicit) == "" {
		return typeName + databaseSuffix
	}
	return explicit
}

// ResolveCollectionName returns explicit, or typeName when it is blank.
func ResolveCollectionName(explicit, typeName string) string {
	if strings.TrimSpace(explicit) == "" {
		return typeName
	}
	return explicit
}

// TypeName returns the bare Go type name of T.
// Pointers are dereferenced and generic type arguments dropped.
func TypeName[T any]() string {
	return typeNameOf(typeOf[T]())
}

func typeNameOf(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
