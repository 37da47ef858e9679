// server/internal/database/watcher.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"sistema-bup-api-server/internal/flexible"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/socket"
	"sistema-bup-api-server/internal/store"
)

// Notifier receives analysis change events.
type Notifier interface {
	Publish(ev socket.Event)
}

// WatchAnalyses follows the change streams of the four analysis collections
// and forwards every change it can attribute to a project. It blocks until ctx
// is done or a stream fails. Change streams need a replica set.
func WatchAnalyses(ctx context.Context, db *mongo.Database, notifier Notifier, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "watcher").Logger()
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range models.AllAnalysisKinds {
		kind := kind
		g.Go(func() error {
			return watchCollection(ctx, db.Collection(kind.Collection()), kind, notifier, logger)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func watchCollection(ctx context.Context, coll *mongo.Collection, kind models.AnalysisKind, notifier Notifier, logger zerolog.Logger) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return fmt.Errorf("watch %s: %w", coll.Name(), err)
	}
	defer cs.Close(context.Background())

	logger.Info().Str("collection", coll.Name()).Msg("watching analysis changes")
	for cs.Next(ctx) {
		var raw bson.M
		if err := cs.Decode(&raw); err != nil {
			logger.Warn().Err(err).Str("collection", coll.Name()).Msg("undecodable change event")
			continue
		}
		ev, ok := ParseChangeEvent(kind, raw)
		if !ok {
			continue
		}
		notifier.Publish(ev)
	}
	if err := cs.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch %s: %w", coll.Name(), err)
	}
	return ctx.Err()
}

// ParseChangeEvent turns a raw change stream event into a project event. Events
// without a full document (deletes) carry no parent link and are dropped.
func ParseChangeEvent(kind models.AnalysisKind, raw bson.M) (socket.Event, bool) {
	op, _ := raw["operationType"].(string)
	doc, ok := store.Normalize(raw["fullDocument"]).(map[string]any)
	if !ok {
		return socket.Event{}, false
	}
	parent, _ := doc[store.ParentField].(string)
	projectID := parent[strings.LastIndex(parent, "/")+1:]
	if projectID == "" {
		return socket.Event{}, false
	}
	ev := socket.Event{ProjectID: projectID, Kind: string(kind), Operation: op}
	// Versions without a versao attribute are named by their document id.
	if v, ok := flexible.String(doc["versao"]); ok && v != "" {
		ev.Version = v
	} else if id, ok := doc["_id"].(string); ok {
		ev.Version = id
	}
	return ev, true
}
