package mongodb

import (
	"context"
	"fmt"
	"log"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config locates the collection runs are written to.
type Config struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Store is an Archiver that writes one document per run.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to the server. The collection defaults to "runs".
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("mongodb: uri and database are required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "runs"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	log.Printf("[Mongo] connected to %s/%s\n", cfg.Database, cfg.Collection)
	return &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}, nil
}

// Close disconnects from the server.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Archive implements archive.Archiver.
func (s *Store) Archive(ctx context.Context, rec archive.Record) error {
	if _, err := s.coll.InsertOne(ctx, runToBSON(rec)); err != nil {
		return fmt.Errorf("mongodb: insert run %v: %w", rec.PID, err)
	}
	return nil
}

// runToBSON keys the document by run PID.
func runToBSON(rec archive.Record) bson.D {
	doc := rec.Document()
	return bson.D{
		{Key: "_id", Value: doc.PID},
		{Key: "name", Value: doc.Name},
		{Key: "created_at", Value: doc.CreatedAt},
		{Key: "solar_gen_mw", Value: doc.SolarGenMW},
		{Key: "grid_import_mw", Value: doc.GridImportMW},
		{Key: "buses", Value: doc.Buses},
		{Key: "lines", Value: doc.Lines},
	}
}
