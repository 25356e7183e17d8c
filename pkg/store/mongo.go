package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/geom"
)

const (
	DefaultMongoDatabase   = "dotstim"
	DefaultMongoCollection = "stimuli"
)

// MongoOption configures a MongoStore.
type MongoOption func(*mongoConfig)

type mongoConfig struct {
	database   string
	collection string
	timeout    time.Duration
}

// WithDatabase sets the database name (default "dotstim").
func WithDatabase(name string) MongoOption {
	return func(c *mongoConfig) { c.database = name }
}

// WithCollection sets the collection name (default "stimuli").
func WithCollection(name string) MongoOption {
	return func(c *mongoConfig) { c.collection = name }
}

// MongoStore keeps records in a MongoDB collection keyed by record ID.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoRecord is the stored document shape; the UUID is kept as its string
// form so records stay readable in the shell.
type mongoRecord struct {
	ID             string       `bson:"_id"`
	CreatedAt      time.Time    `bson:"created_at"`
	Index          int          `bson:"index"`
	Seed           int64        `bson:"seed"`
	Path           string       `bson:"path,omitempty"`
	Params         dots.Params  `bson:"params"`
	Width          int          `bson:"width"`
	Height         int          `bson:"height"`
	Centers        []geom.Point `bson:"centers"`
	Radii          []float64    `bson:"radii"`
	HullArea       float64      `bson:"hull_area"`
	TargetHullArea float64      `bson:"target_hull_area"`
	Attempts       int          `bson:"attempts"`
}

// NewMongoStore connects to uri and pings the primary.
func NewMongoStore(ctx context.Context, uri string, opts ...MongoOption) (*MongoStore, error) {
	cfg := mongoConfig{
		database:   DefaultMongoDatabase,
		collection: DefaultMongoCollection,
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(cfg.timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.database).Collection(cfg.collection),
	}, nil
}

// Put inserts r.
func (s *MongoStore) Put(ctx context.Context, r Record) error {
	if _, err := s.coll.InsertOne(ctx, toMongo(r)); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get finds the record with id.
func (s *MongoStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find record: %w", err)
	}
	return fromMongo(doc)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Seeds are stored as int64 because BSON has no unsigned 64-bit type; the
// bit pattern round-trips.
func toMongo(r Record) mongoRecord {
	return mongoRecord{
		ID:             r.ID.String(),
		CreatedAt:      r.CreatedAt,
		Index:          r.Index,
		Seed:           int64(r.Seed),
		Path:           r.Path,
		Params:         r.Params,
		Width:          r.Width,
		Height:         r.Height,
		Centers:        r.Centers,
		Radii:          r.Radii,
		HullArea:       r.HullArea,
		TargetHullArea: r.TargetHullArea,
		Attempts:       r.Attempts,
	}
}

func fromMongo(d mongoRecord) (Record, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Record{}, fmt.Errorf("record id %q: %w", d.ID, err)
	}
	return Record{
		ID:             id,
		CreatedAt:      d.CreatedAt,
		Index:          d.Index,
		Seed:           uint64(d.Seed),
		Path:           d.Path,
		Params:         d.Params,
		Width:          d.Width,
		Height:         d.Height,
		Centers:        d.Centers,
		Radii:          d.Radii,
		HullArea:       d.HullArea,
		TargetHullArea: d.TargetHullArea,
		Attempts:       d.Attempts,
	}, nil
}

var _ Store = (*MongoStore)(nil)
