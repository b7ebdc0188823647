package mongodb

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/huynhanx03/go-mongorepo/pkg/metrics"
	"github.com/huynhanx03/go-mongorepo/pkg/timer"
)

type config struct {
	database   string
	collection string
	mapping    *Mapping
	registry   *MappingRegistry
	logger     *zap.Logger
	clock      timer.Clock
	metrics    *metrics.Collectors
	validate   *validator.Validate
	listener   ChangeListener
	generator  any
}

// Option configures a Repository.
type Option func(*config)

// WithDatabase sets the database name. Blank means "{TypeName}DB".
func WithDatabase(name string) Option {
	return func(c *config) { c.database = name }
}

// WithCollection sets the collection name. Blank means "{TypeName}".
func WithCollection(name string) Option {
	return func(c *config) { c.collection = name }
}

// WithMapping fixes the identifier mapping, ignoring any registry.
func WithMapping(m Mapping) Option {
	return func(c *config) { c.mapping = &m }
}

// WithMappingRegistry resolves the identifier mapping from r.
func WithMappingRegistry(r *MappingRegistry) Option {
	return func(c *config) { c.registry = r }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock sets the clock used to stamp CreatedDate and UpdatedDate.
func WithClock(clock timer.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithMetrics records every operation in m.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *config) { c.metrics = m }
}

// WithValidator validates entities with v before they are written.
func WithValidator(v *validator.Validate) Option {
	return func(c *config) { c.validate = v }
}

// WithChangeListener notifies l after successful writes.
func WithChangeListener(l ChangeListener) Option {
	return func(c *config) { c.listener = l }
}

// IDGenerator produces identifiers for transient entities.
type IDGenerator[ID comparable] interface {
	Generate() ID
}

// WithIDGenerator assigns identifiers to transient entities with g instead of
// the built-in ObjectID generation. It is the only way to have identifiers
// other than strings and ObjectIDs generated; g must produce the repository's
// identifier type.
func WithIDGenerator[ID comparable](g IDGenerator[ID]) Option {
	return func(c *config) { c.generator = g }
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = timer.System()
	}
	return c
}

// resolveMapping picks the mapping for T: explicit option, registry entry,
// registry default, entity provided, passthrough. The registry default is
// skipped when it cannot store identifiers of idType.
func resolveMapping[T any](c *config, idType reflect.Type) Mapping {
	if c.mapping != nil {
		return *c.mapping
	}
	if c.registry != nil {
		if m, ok := c.registry.entry(typeOf[T]()); ok {
			return m
		}
		if m, ok := c.registry.convention(); ok && m.validate(idType) == nil {
			return m
		}
	}
	var zero T
	if mp, ok := any(&zero).(MappingProvider); ok {
		return mp.EntityMapping()
	}
	return PassthroughMapping()
}
