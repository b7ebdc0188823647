package mongodb

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedStruct struct {
	Plain    string
	Renamed  string `bson:"renamed_key"`
	Skipped  string `bson:"-"`
	Empty    int    `bson:",omitempty"`
	hidden   string
	Embedded inner `bson:",inline"`
}

type inner struct {
	Plain string `bson:"inner_plain"`
	Deep  int    `bson:"deep"`
}

func TestFieldMapper_TagRules(t *testing.T) {
	fm := (&fieldMapper{}).fieldsOf(reflect.TypeOf(taggedStruct{}))

	tests := []struct {
		name string
		want string
	}{
		{name: "Plain", want: "plain"},
		{name: "plain", want: "plain"},
		{name: "Renamed", want: "renamed_key"},
		{name: "renamed_key", want: "renamed_key"},
		{name: "Empty", want: "empty"},
		{name: "Deep", want: "deep"},
		{name: "deep", want: "deep"},
		{name: "inner_plain", want: "inner_plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := fm.resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}

	for _, name := range []string{"Skipped", "skipped", "hidden", "Embedded"} {
		_, err := fm.resolve(name)
		assert.ErrorIs(t, err, ErrUnknownField, name)
	}
}

func TestFieldMapper_OuterShadowsInlined(t *testing.T) {
	fm := (&fieldMapper{}).fieldsOf(reflect.TypeOf(taggedStruct{}))

	// taggedStruct.Plain is seen before inner.Plain
	key, err := fm.resolve("Plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", key)
}

func TestFieldMapper_EntityFields(t *testing.T) {
	fm := defaultFieldMapper.fieldsOf(reflect.TypeOf(&TestEntity{}))

	for name, want := range map[string]string{
		"ID":           "_id",
		"_id":          "_id",
		"CreatedDate":  "created_date",
		"updated_date": "updated_date",
		"MyVar":        "my_var",
		"Name":         "name",
	} {
		key, err := fm.resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, key, name)
	}

	assert.True(t, fm.knows("my_var"))
	assert.False(t, fm.knows("MyVar"))
	assert.False(t, fm.knows("extra"))
}

func TestFieldMapper_DottedPath(t *testing.T) {
	fm := defaultFieldMapper.fieldsOf(reflect.TypeOf(TestEntity{}))

	key, err := fm.resolve("Name.first")
	require.NoError(t, err)
	assert.Equal(t, "name.first", key)

	_, err = fm.resolve("Missing.first")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFieldMapper_Cached(t *testing.T) {
	m := &fieldMapper{}
	a := m.fieldsOf(reflect.TypeOf(TestEntity{}))
	b := m.fieldsOf(reflect.TypeOf(&TestEntity{}))
	assert.Same(t, a, b)
}
