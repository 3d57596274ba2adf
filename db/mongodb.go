// Package db persists conversations, history and adventure records in
// MongoDB.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Connect opens a client, verifies it with a ping and returns a store over
// database. Close the client with Disconnect.
func Connect(ctx context.Context, uri, database string, log *zap.Logger) (*mongo.Client, *Store, error) {
	if uri == "" {
		return nil, nil, errors.New("MONGODB_URI is not set")
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("Connected to MongoDB", zap.String("database", database))
	return client, NewStore(client.Database(database)), nil
}

// Disconnect closes client, waiting at most connectTimeout.
func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
