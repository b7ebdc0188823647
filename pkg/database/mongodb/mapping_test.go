package mongodb

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMappingRegistry_Register(t *testing.T) {
	r := NewMappingRegistry()

	require.NoError(t, RegisterObjectIDMapper[TestEntity](r))
	// identical registration is tolerated
	require.NoError(t, RegisterObjectIDMapper[*TestEntity](r))

	err := RegisterPassthroughMapper[TestEntity](r)
	assert.ErrorIs(t, err, ErrMappingConflict)

	m, ok := r.Lookup(reflect.TypeOf(TestEntity{}))
	require.True(t, ok)
	assert.Equal(t, ObjectIDMapping(), m)
}

func TestMappingRegistry_Default(t *testing.T) {
	r := NewMappingRegistry()

	_, ok := r.Lookup(reflect.TypeOf(TestEntitySubInterface{}))
	assert.False(t, ok)

	require.NoError(t, RegisterStringIDConvention(r))
	require.NoError(t, RegisterStringIDConvention(r))

	m, ok := r.Lookup(reflect.TypeOf(&TestEntitySubInterface{}))
	require.True(t, ok)
	assert.Equal(t, StringIDConvention(), m)

	err := r.SetDefault(Mapping{ID: IDPassthrough})
	assert.ErrorIs(t, err, ErrMappingConflict)
}

func TestMappingRegistry_TypeEntryWinsOverDefault(t *testing.T) {
	r := NewMappingRegistry()
	require.NoError(t, RegisterStringIDConvention(r))
	require.NoError(t, RegisterPassthroughMapper[ObjectIDTestEntity](r))

	m, ok := r.Lookup(reflect.TypeOf(ObjectIDTestEntity{}))
	require.True(t, ok)
	assert.Equal(t, PassthroughMapping(), m)
}

func TestMapping_Validate(t *testing.T) {
	type userID string

	tests := []struct {
		name    string
		mapping Mapping
		idType  reflect.Type
		wantErr bool
	}{
		{name: "passthrough_int", mapping: PassthroughMapping(), idType: reflect.TypeOf(0)},
		{name: "objectid_string", mapping: ObjectIDMapping(), idType: reflect.TypeOf("")},
		{name: "objectid_named_string", mapping: ObjectIDMapping(), idType: reflect.TypeOf(userID(""))},
		{name: "objectid_objectid", mapping: ObjectIDMapping(), idType: reflect.TypeOf(primitive.ObjectID{})},
		{name: "objectid_int", mapping: ObjectIDMapping(), idType: reflect.TypeOf(0), wantErr: true},
		{name: "unknown_representation", mapping: Mapping{ID: IDRepresentation(9)}, idType: reflect.TypeOf(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.validate(tt.idType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMapping)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIDRepresentation_String(t *testing.T) {
	assert.Equal(t, "passthrough", IDPassthrough.String())
	assert.Equal(t, "objectid", IDObjectID.String())
	assert.Equal(t, "IDRepresentation(7)", IDRepresentation(7).String())
}
