// Package mongodb dials the notification store.
//
// The store is required at startup: when the retry budget is exhausted the
// caller is expected to treat the error as fatal.
package mongodb

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/igronus/notify/internal/config"
)

// Connect establishes a MongoDB connection and verifies it with a ping,
// retrying per the given strategy. It returns the configured database handle.
func Connect(ctx context.Context, cfg config.Mongo, strategy retry.Strategy) (*mongo.Client, *mongo.Database, error) {
	var client *mongo.Client

	err := retry.Do(func() error {
		c, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URI).
				SetConnectTimeout(cfg.Timeout),
		)
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		if err := c.Ping(pingCtx, nil); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}

		client = c
		return nil
	}, strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}
