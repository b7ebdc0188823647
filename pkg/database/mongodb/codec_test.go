package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestCodec_EncodeObjectIDMapping(t *testing.T) {
	c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
	require.NoError(t, err)

	oid := primitive.NewObjectID()
	e := &TestEntity{MyVar: 3}
	e.ID = oid.Hex()
	e.CreatedDate = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	doc, err := c.encode(e)
	require.NoError(t, err)

	assert.Equal(t, "_id", doc[0].Key)
	assert.Equal(t, oid, doc[0].Value)

	v, ok := lookup(doc, "my_var")
	require.True(t, ok)
	assert.EqualValues(t, 3, v)

	_, ok = lookup(doc, "name")
	assert.False(t, ok, "omitempty field must not be written")
}

func TestCodec_EncodeTransientOmitsID(t *testing.T) {
	c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
	require.NoError(t, err)

	doc, err := c.encode(&TestEntity{})
	require.NoError(t, err)

	_, ok := lookup(doc, "_id")
	assert.False(t, ok)
}

func TestCodec_EncodeInvalidHex(t *testing.T) {
	c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
	require.NoError(t, err)

	e := &TestEntity{}
	e.ID = "not-an-object-id"
	_, err = c.encode(e)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCodec_EncodePassthrough(t *testing.T) {
	c, err := newCodec[TestEntityFromInterface, *TestEntityFromInterface, string](PassthroughMapping())
	require.NoError(t, err)

	doc, err := c.encode(&TestEntityFromInterface{Id: "custom-key", SomeContent: "x"})
	require.NoError(t, err)
	assert.Equal(t, "custom-key", doc[0].Value)
}

func TestCodec_Decode(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2024, 5, 6, 7, 8, 9, 123e6, time.UTC)
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: oid},
		{Key: "created_date", Value: created},
		{Key: "updated_date", Value: created},
		{Key: "my_var", Value: 7},
		{Key: "legacy", Value: true},
	})
	require.NoError(t, err)

	t.Run("tolerant", func(t *testing.T) {
		c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
		require.NoError(t, err)

		got, err := c.decode(raw)
		require.NoError(t, err)
		assert.Equal(t, oid.Hex(), got.ID)
		assert.Equal(t, 7, got.MyVar)
		assert.True(t, created.Equal(got.CreatedDate))
	})

	t.Run("strict", func(t *testing.T) {
		c, err := newCodec[TestEntity, *TestEntity, string](Mapping{ID: IDObjectID})
		require.NoError(t, err)

		_, err = c.decode(raw)
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestCodec_AssignID(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
		require.NoError(t, err)

		e := &TestEntity{}
		require.NoError(t, c.assignID(e))
		assert.True(t, primitive.IsValidObjectID(e.ID))
		assert.False(t, e.IsTransient())
	})

	t.Run("objectid", func(t *testing.T) {
		c, err := newCodec[ObjectIDTestEntity, *ObjectIDTestEntity, primitive.ObjectID](PassthroughMapping())
		require.NoError(t, err)

		e := &ObjectIDTestEntity{}
		require.NoError(t, c.assignID(e))
		assert.False(t, e.ID.IsZero())
	})

	t.Run("int", func(t *testing.T) {
		c, err := newCodec[IntIDEntity, *IntIDEntity, int](PassthroughMapping())
		require.NoError(t, err)

		e := &IntIDEntity{}
		assert.ErrorIs(t, c.assignID(e), ErrIDGeneration)
		assert.True(t, e.IsTransient())
	})
}

func TestNewCodec_RejectsObjectIDForInt(t *testing.T) {
	_, err := newCodec[IntIDEntity, *IntIDEntity, int](ObjectIDMapping())
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestCodec_IDFilter(t *testing.T) {
	c, err := newCodec[TestEntity, *TestEntity, string](ObjectIDMapping())
	require.NoError(t, err)

	oid := primitive.NewObjectID()
	f, err := c.idFilter(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, f)

	_, err = c.idFilter("zzz")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCodec_AssignIDWithGenerator(t *testing.T) {
	c, err := newCodec[SequenceEntity, *SequenceEntity, int64](PassthroughMapping())
	require.NoError(t, err)
	c.generator = &counterGenerator{}

	e := &SequenceEntity{}
	require.NoError(t, c.assignID(e))
	assert.Equal(t, int64(1), e.ID)

	c.generator = &counterGenerator{next: -1}
	assert.ErrorIs(t, c.assignID(&SequenceEntity{}), ErrIDGeneration)
}
