// server/internal/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sistema-bup-api-server/config"
	"sistema-bup-api-server/internal/auth"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/store"
)

const connectTimeout = 10 * time.Second

// Connect opens a client for cfg.URI and pings it before returning.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(cfg.DBName), nil
}

// indexSpec is one index to create on a named collection.
type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func indexSpecs() []indexSpec {
	specs := make([]indexSpec, 0, len(models.AllAnalysisKinds)+1)
	for _, kind := range models.AllAnalysisKinds {
		specs = append(specs, indexSpec{
			collection: kind.Collection(),
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: store.ParentField, Value: 1}, {Key: models.CreatedAtField, Value: -1}},
				Options: options.Index().SetName("parent_created"),
			},
		})
	}
	specs = append(specs, indexSpec{
		collection: auth.UsersCollection,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	})
	return specs
}

// EnsureIndexes creates the latest-version lookup index on every analysis
// collection and the unique email index on users. Existing indexes are kept.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range indexSpecs() {
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.collection, err)
		}
	}
	return nil
}
