package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/huynhanx03/go-mongorepo/pkg/settings"
	"github.com/huynhanx03/go-mongorepo/pkg/utils"
)

// Connect creates a client for url without contacting the server.
// A blank url means DefaultConnection.
func Connect(ctx context.Context, url string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(ResolveConnection(url)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return client, nil
}

// NewClient creates a client from configuration and checks that the server answers.
func NewClient(ctx context.Context, cfg *settings.MongoDB) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if err := Ping(ctx, client, cfg); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// Ping checks that the primary is reachable within the configured timeout.
func Ping(ctx context.Context, client *mongo.Client, cfg *settings.MongoDB) error {
	if cfg != nil && cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, utils.ToDuration(cfg.Timeout))
		defer cancel()
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrPingFailed, err)
	}
	return nil
}

func clientOptions(cfg *settings.MongoDB) *options.ClientOptions {
	opts := options.Client().ApplyURI(ResolveConnection(cfg.URI()))

	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(utils.ToDuration(int(cfg.MaxConnIdleTime)))
	}
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(utils.ToDuration(cfg.Timeout))
		opts.SetServerSelectionTimeout(utils.ToDuration(cfg.Timeout))
	}
	return opts
}

// NewFromSettings connects with cfg and binds a repository to the configured
// database and collection. The repository owns the client; Close releases it.
func NewFromSettings[T any, PT EntityPtr[T, ID], ID comparable](ctx context.Context, cfg *settings.MongoDB, opts ...Option) (*Repository[T, PT, ID], error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithDatabase(cfg.Database), WithCollection(cfg.Collection)}, opts...)
	return ownClient[T, PT, ID](ctx, client, opts)
}
