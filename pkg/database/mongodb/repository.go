package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/huynhanx03/go-mongorepo/pkg/database"
	"github.com/huynhanx03/go-mongorepo/pkg/metrics"
	"github.com/huynhanx03/go-mongorepo/pkg/timer"
)

// Repository implements database.Repository for one MongoDB collection.
// It holds no state besides the collection handle and is safe for
// concurrent use.
type Repository[T any, PT EntityPtr[T, ID], ID comparable] struct {
	col        *mongo.Collection
	client     *mongo.Client // set when the repository opened the client itself
	codec      *codec[T, PT, ID]
	createdKey string
	updatedKey string

	logger   *zap.Logger
	clock    timer.Clock
	metrics  *metrics.Collectors
	validate *validator.Validate
	listener ChangeListener
}

// NewRepository binds a repository to a collection of client.
// Blank database and collection names default to "{TypeName}DB" and "{TypeName}".
func NewRepository[T any, PT EntityPtr[T, ID], ID comparable](client *mongo.Client, opts ...Option) (*Repository[T, PT, ID], error) {
	cfg := newConfig(opts)
	typeName := TypeName[T]()
	col := client.
		Database(ResolveDatabaseName(cfg.database, typeName)).
		Collection(ResolveCollectionName(cfg.collection, typeName))
	return newRepository[T, PT, ID](col, cfg)
}

// NewFromCollection wraps an existing collection handle.
func NewFromCollection[T any, PT EntityPtr[T, ID], ID comparable](col *mongo.Collection, opts ...Option) (*Repository[T, PT, ID], error) {
	return newRepository[T, PT, ID](col, newConfig(opts))
}

// NewFromURL opens a client for url and binds a repository to it.
// The server is not contacted until the first operation.
func NewFromURL[T any, PT EntityPtr[T, ID], ID comparable](ctx context.Context, url, dbName, collectionName string, opts ...Option) (*Repository[T, PT, ID], error) {
	client, err := Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithDatabase(dbName), WithCollection(collectionName)}, opts...)
	return ownClient[T, PT, ID](ctx, client, opts)
}

func ownClient[T any, PT EntityPtr[T, ID], ID comparable](ctx context.Context, client *mongo.Client, opts []Option) (*Repository[T, PT, ID], error) {
	repo, err := NewRepository[T, PT, ID](client, opts...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	repo.client = client
	return repo, nil
}

func newRepository[T any, PT EntityPtr[T, ID], ID comparable](col *mongo.Collection, cfg *config) (*Repository[T, PT, ID], error) {
	var _ database.Repository[T, ID, Filter] = (*Repository[T, PT, ID])(nil)

	c, err := newCodec[T, PT, ID](resolveMapping[T](cfg, typeOf[ID]()))
	if err != nil {
		return nil, err
	}
	if cfg.generator != nil {
		gen, ok := cfg.generator.(IDGenerator[ID])
		if !ok {
			return nil, fmt.Errorf("%w: %T does not generate %s identifiers", ErrIDGeneration, cfg.generator, c.idType)
		}
		c.generator = gen
	}
	createdKey, err := c.timestampKey("CreatedDate", "created_date")
	if err != nil {
		return nil, err
	}
	updatedKey, err := c.timestampKey("UpdatedDate", "updated_date")
	if err != nil {
		return nil, err
	}

	return &Repository[T, PT, ID]{
		col:        col,
		codec:      c,
		createdKey: createdKey,
		updatedKey: updatedKey,
		logger:     cfg.logger.With(zap.String("collection", col.Name())),
		clock:      cfg.clock,
		metrics:    cfg.metrics,
		validate:   cfg.validate,
		listener:   cfg.listener,
	}, nil
}

// CollectionName returns the bound collection name.
func (r *Repository[T, PT, ID]) CollectionName() string {
	return r.col.Name()
}

// DatabaseName returns the bound database name.
func (r *Repository[T, PT, ID]) DatabaseName() string {
	return r.col.Database().Name()
}

// Collection returns the underlying driver collection.
func (r *Repository[T, PT, ID]) Collection() *mongo.Collection {
	return r.col
}

// Indexes returns the index view of the collection.
func (r *Repository[T, PT, ID]) Indexes() mongo.IndexView {
	return r.col.Indexes()
}

// Mapping returns the identifier mapping in effect.
func (r *Repository[T, PT, ID]) Mapping() Mapping {
	return r.codec.mapping
}

// Close disconnects the client if the repository opened it.
func (r *Repository[T, PT, ID]) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnectFailed, err)
	}
	return nil
}

// AsQueryable returns a query over the whole collection.
func (r *Repository[T, PT, ID]) AsQueryable() *Query[T] {
	return &Query[T]{
		col:    r.col,
		fields: r.codec.fields,
		toWire: r.codec.toWire,
		decode: r.codec.decode,
	}
}

// Get returns the document with the given identifier, or nil when absent.
func (r *Repository[T, PT, ID]) Get(ctx context.Context, id ID) (result *T, err error) {
	defer r.observe(OpGet, time.Now(), &err)

	filter, err := r.codec.idFilter(id)
	if err != nil {
		return nil, r.wrap(err, OpGet)
	}
	result, err = r.AsQueryable().Where(Raw(filter)).First(ctx)
	return result, r.wrap(err, OpGet)
}

// FirstOrDefault returns one document matching filter, or nil when none does.
// Without a sort the choice among several matches is up to the server.
func (r *Repository[T, PT, ID]) FirstOrDefault(ctx context.Context, filter Filter) (result *T, err error) {
	defer r.observe(OpFirstOrDefault, time.Now(), &err)

	result, err = r.AsQueryable().Where(filter).First(ctx)
	return result, r.wrap(err, OpFirstOrDefault)
}

// FindAll returns every document matching filter, in no particular order.
func (r *Repository[T, PT, ID]) FindAll(ctx context.Context, filter Filter) (results []*T, err error) {
	defer r.observe(OpFindAll, time.Now(), &err)

	results, err = r.AsQueryable().Where(filter).All(ctx)
	return results, r.wrap(err, OpFindAll)
}

// Count returns the number of documents matching filter.
func (r *Repository[T, PT, ID]) Count(ctx context.Context, filter Filter) (n int64, err error) {
	defer r.observe(OpCount, time.Now(), &err)

	n, err = r.AsQueryable().Where(filter).Count(ctx)
	return n, r.wrap(err, OpCount)
}

// Save inserts a transient entity or replaces a persisted one.
//
// A transient entity receives an identifier and both timestamps. A persisted
// entity only gets a new UpdatedDate and is written with upsert semantics,
// so an unknown identifier creates the document.
func (r *Repository[T, PT, ID]) Save(ctx context.Context, entity *T) (id ID, err error) {
	op := OpReplace
	if PT(entity).IsTransient() {
		op = OpInsert
	}
	defer r.observe(op, time.Now(), &err)

	if err := r.check(ctx, entity); err != nil {
		return id, err
	}
	if err := r.save(ctx, entity); err != nil {
		return id, r.wrap(err, op)
	}

	e := PT(entity)
	r.emit(ctx, op, 1, e.GetID())
	return e.GetID(), nil
}

func (r *Repository[T, PT, ID]) save(ctx context.Context, entity *T) error {
	e := PT(entity)
	now := r.now()

	if e.IsTransient() {
		if err := r.codec.assignID(e); err != nil {
			return err
		}
		e.SetCreatedDate(now)
		e.SetUpdatedDate(now)

		doc, err := r.codec.encode(e)
		if err != nil {
			return err
		}
		_, err = r.col.InsertOne(ctx, doc)
		return err
	}

	if e.GetCreatedDate().IsZero() {
		e.SetCreatedDate(now)
	}
	e.SetUpdatedDate(stamp(now, e.GetUpdatedDate()))

	doc, err := r.codec.encode(e)
	if err != nil {
		return err
	}
	filter, err := r.codec.idFilter(e.GetID())
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

// UpdateField atomically sets field to value on the document matching filter
// and returns the document after the change, or nil when nothing matches.
func (r *Repository[T, PT, ID]) UpdateField(ctx context.Context, filter Filter, field string, value any) (result *T, err error) {
	defer r.observe(OpUpdateField, time.Now(), &err)

	key, err := r.codec.key(field)
	if err != nil {
		return nil, err
	}
	if key == idKey || key == r.createdKey {
		return nil, fmt.Errorf("%w: %s", ErrImmutableField, field)
	}

	q := r.AsQueryable().Where(filter)
	f, err := q.Filter()
	if err != nil {
		return nil, err
	}

	set := bson.D{{Key: key, Value: value}}
	if key != r.updatedKey {
		set = append(set, bson.E{Key: r.updatedKey, Value: r.now()})
	}
	update := bson.D{{Key: "$set", Value: set}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	raw, err := r.col.FindOneAndUpdate(ctx, f, update, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, r.wrap(err, OpUpdateField)
	}

	result, err = r.codec.decode(raw)
	if err != nil {
		return nil, r.wrap(err, OpUpdateField)
	}
	r.emit(ctx, OpUpdateField, 1, PT(result).GetID())
	return result, nil
}

// Update replaces the stored document with entity while keeping CreatedDate
// and every field named in fieldsToPreserve at their stored values.
//
// When no document with the entity's identifier exists the entity is saved
// and returned as is. The read and the replace are separate operations;
// concurrent writes to fields outside fieldsToPreserve may be lost.
//
// Names in fieldsToPreserve that the entity does not declare fail with
// ErrUnknownField before anything is written. A declared field missing
// from the stored document is left out of the replacement.
func (r *Repository[T, PT, ID]) Update(ctx context.Context, entity *T, fieldsToPreserve ...string) (result *T, err error) {
	defer r.observe(OpUpdate, time.Now(), &err)

	keys := make([]string, 0, len(fieldsToPreserve)+1)
	keys = append(keys, r.createdKey)
	for _, field := range fieldsToPreserve {
		key, err := r.codec.key(field)
		if err != nil {
			return nil, err
		}
		// nested paths preserve their whole top-level field
		key, _, _ = strings.Cut(key, ".")
		if key == idKey {
			return nil, fmt.Errorf("%w: %s", ErrImmutableField, field)
		}
		keys = append(keys, key)
	}

	if err := r.check(ctx, entity); err != nil {
		return nil, err
	}

	e := PT(entity)
	var prev bson.Raw
	if !e.IsTransient() {
		filter, err := r.codec.idFilter(e.GetID())
		if err != nil {
			return nil, err
		}
		prev, err = r.col.FindOne(ctx, filter).Raw()
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.wrap(err, OpUpdate)
		}
	}

	if prev == nil {
		op := OpInsert
		if !e.IsTransient() {
			op = OpReplace
		}
		if err := r.save(ctx, entity); err != nil {
			return nil, r.wrap(err, OpUpdate)
		}
		r.emit(ctx, op, 1, e.GetID())
		return entity, nil
	}

	last := e.GetUpdatedDate()
	if v, err := prev.LookupErr(r.updatedKey); err == nil {
		if stored, ok := v.TimeOK(); ok && stored.After(last) {
			last = stored
		}
	}
	e.SetUpdatedDate(stamp(r.now(), last))
	doc, err := r.codec.encode(e)
	if err != nil {
		return nil, r.wrap(err, OpUpdate)
	}
	for _, key := range keys {
		doc = copyElement(doc, prev, key)
	}

	filter, err := r.codec.idFilter(e.GetID())
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	raw, err := r.col.FindOneAndReplace(ctx, filter, doc, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		// deleted between the read and the replace
		return nil, nil
	}
	if err != nil {
		return nil, r.wrap(err, OpUpdate)
	}

	result, err = r.codec.decode(raw)
	if err != nil {
		return nil, r.wrap(err, OpUpdate)
	}
	r.emit(ctx, OpUpdate, 1, e.GetID())
	return result, nil
}

// copyElement sets key in doc to its value in src, or drops it when src lacks it.
func copyElement(doc bson.D, src bson.Raw, key string) bson.D {
	value, err := src.LookupErr(key)

	for i := range doc {
		if doc[i].Key != key {
			continue
		}
		if err != nil {
			return append(doc[:i:i], doc[i+1:]...)
		}
		doc[i].Value = value
		return doc
	}
	if err != nil {
		return doc
	}
	return append(doc, bson.E{Key: key, Value: value})
}

// Delete removes the document with the given identifier. Deleting a missing
// document is not an error.
func (r *Repository[T, PT, ID]) Delete(ctx context.Context, id ID) (err error) {
	defer r.observe(OpDelete, time.Now(), &err)

	filter, err := r.codec.idFilter(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return r.wrap(err, OpDelete)
	}
	if res.DeletedCount > 0 {
		r.emit(ctx, OpDelete, res.DeletedCount, id)
	}
	return nil
}

// DeleteBulk removes every document matching filter and reports how many were removed.
func (r *Repository[T, PT, ID]) DeleteBulk(ctx context.Context, filter Filter) (n int64, err error) {
	defer r.observe(OpDeleteBulk, time.Now(), &err)

	f, err := r.AsQueryable().Where(filter).Filter()
	if err != nil {
		return 0, err
	}
	res, err := r.col.DeleteMany(ctx, f)
	if err != nil {
		return 0, r.wrap(err, OpDeleteBulk)
	}
	if res.DeletedCount > 0 {
		r.emit(ctx, OpDeleteBulk, res.DeletedCount)
	}
	return res.DeletedCount, nil
}

// BulkInsert stamps and inserts entities as one batch.
//
// Batches are ordered by default: the first failure stops the remaining
// inserts. Entries written before a failure stay written. Failed entries are
// listed by BulkFailures.
func (r *Repository[T, PT, ID]) BulkInsert(ctx context.Context, entities []*T, opts ...database.BulkOption) (err error) {
	if len(entities) == 0 {
		return nil
	}
	defer r.observe(OpBulkInsert, time.Now(), &err)

	if err := r.check(ctx, entities...); err != nil {
		return err
	}

	now := r.now()
	docs := make([]any, 0, len(entities))
	ids := make([]ID, 0, len(entities))
	for _, entity := range entities {
		e := PT(entity)
		if e.IsTransient() {
			if err := r.codec.assignID(e); err != nil {
				return err
			}
		}
		e.SetCreatedDate(now)
		e.SetUpdatedDate(now)

		doc, err := r.codec.encode(e)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		ids = append(ids, e.GetID())
	}

	bulk := database.ApplyBulkOptions(opts...)
	res, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(bulk.Ordered))
	if err != nil {
		return r.wrap(err, OpBulkInsert)
	}
	r.emit(ctx, OpBulkInsert, int64(len(res.InsertedIDs)), ids...)
	return nil
}

// BulkUpsert writes every entity in one unordered batch: transient entities
// are inserted, persisted ones replaced by identifier with upsert semantics.
// A failing entry does not prevent the others from being applied.
func (r *Repository[T, PT, ID]) BulkUpsert(ctx context.Context, entities []*T) (err error) {
	if len(entities) == 0 {
		return nil
	}
	defer r.observe(OpBulkUpsert, time.Now(), &err)

	if err := r.check(ctx, entities...); err != nil {
		return err
	}

	now := r.now()
	models := make([]mongo.WriteModel, 0, len(entities))
	ids := make([]ID, 0, len(entities))
	for _, entity := range entities {
		e := PT(entity)
		if e.IsTransient() {
			if err := r.codec.assignID(e); err != nil {
				return err
			}
			e.SetCreatedDate(now)
			e.SetUpdatedDate(now)

			doc, err := r.codec.encode(e)
			if err != nil {
				return err
			}
			models = append(models, mongo.NewInsertOneModel().SetDocument(doc))
			ids = append(ids, e.GetID())
			continue
		}

		if e.GetCreatedDate().IsZero() {
			e.SetCreatedDate(now)
		}
		e.SetUpdatedDate(stamp(now, e.GetUpdatedDate()))

		doc, err := r.codec.encode(e)
		if err != nil {
			return err
		}
		filter, err := r.codec.idFilter(e.GetID())
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(doc).SetUpsert(true))
		ids = append(ids, e.GetID())
	}

	res, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return r.wrap(err, OpBulkUpsert)
	}
	r.emit(ctx, OpBulkUpsert, res.InsertedCount+res.ModifiedCount+res.UpsertedCount, ids...)
	return nil
}

// DropCollection removes the collection and all of its documents.
// Intended for test teardown.
func (r *Repository[T, PT, ID]) DropCollection(ctx context.Context) (err error) {
	defer r.observe(OpDrop, time.Now(), &err)

	if err := r.col.Drop(ctx); err != nil {
		return r.wrap(err, OpDrop)
	}
	r.emit(ctx, OpDrop, 0)
	return nil
}

// now returns the stamping time truncated to the precision BSON stores.
func (r *Repository[T, PT, ID]) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

// stamp returns now, or the first millisecond after last when the clock has
// not moved past it. UpdatedDate of a persisted entity always increases.
func stamp(now, last time.Time) time.Time {
	if now.After(last) {
		return now
	}
	return last.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
}

// check validates entities when a validator is configured.
func (r *Repository[T, PT, ID]) check(ctx context.Context, entities ...*T) error {
	if r.validate == nil {
		return nil
	}
	for i, entity := range entities {
		if err := r.validate.StructCtx(ctx, entity); err != nil {
			return fmt.Errorf("%w: entity %d: %w", ErrValidation, i, err)
		}
	}
	return nil
}

func (r *Repository[T, PT, ID]) wrap(err error, op Operation) error {
	return errors.Wrapf(err, "mongodb: %s %s", op, r.col.Name())
}

func (r *Repository[T, PT, ID]) observe(op Operation, start time.Time, errp *error) {
	elapsed := time.Since(start)
	err := *errp

	r.metrics.Observe(r.col.Name(), string(op), elapsed, err)
	if err != nil {
		r.logger.Warn("repository operation failed",
			zap.String("operation", string(op)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("repository operation",
		zap.String("operation", string(op)),
		zap.Duration("duration", elapsed),
	)
}

func (r *Repository[T, PT, ID]) emit(ctx context.Context, op Operation, count int64, ids ...ID) {
	if r.listener == nil {
		return
	}
	event := ChangeEvent{
		Database:   r.DatabaseName(),
		Collection: r.col.Name(),
		Operation:  op,
		Count:      count,
		Time:       r.now(),
	}
	for _, id := range ids {
		event.IDs = append(event.IDs, fmt.Sprint(id))
	}
	r.listener.OnChange(ctx, event)
}
