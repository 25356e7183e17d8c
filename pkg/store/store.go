// Package store persists stimulus records: one record per generated image,
// holding the parameters and the exact dot geometry that produced it.
//
// Two backends implement [Store]:
//   - [JSONLStore]: an append-only JSON-lines manifest next to the images
//   - [MongoStore]: a MongoDB collection for shared experiment databases
//
// [Open] picks the backend from a location string:
//
//	st, err := store.Open(ctx, "out/manifest.jsonl")
//	st, err := store.Open(ctx, "mongodb://localhost:27017")
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/geom"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record describes one generated stimulus.
type Record struct {
	ID             uuid.UUID    `json:"id"`
	CreatedAt      time.Time    `json:"created_at"`
	Index          int          `json:"index"`
	Seed           uint64       `json:"seed"`
	Path           string       `json:"path,omitempty"`
	Params         dots.Params  `json:"params"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Centers        []geom.Point `json:"centers"`
	Radii          []float64    `json:"radii"`
	HullArea       float64      `json:"hull_area"`
	TargetHullArea float64      `json:"target_hull_area"`
	Attempts       int          `json:"attempts"`
}

// NewRecord builds a record for a generated layout with a fresh ID.
func NewRecord(index int, path string, p dots.Params, l dots.Layout) Record {
	return Record{
		ID:             uuid.New(),
		CreatedAt:      time.Now().UTC(),
		Index:          index,
		Seed:           l.Seed,
		Path:           path,
		Params:         p,
		Width:          l.Width,
		Height:         l.Height,
		Centers:        l.Centers,
		Radii:          l.Radii,
		HullArea:       l.HullArea,
		TargetHullArea: l.TargetHullArea,
		Attempts:       l.Attempts,
	}
}

// Store is the interface for record backends. Implementations must be safe
// for concurrent use by batch workers.
type Store interface {
	// Put stores a record.
	Put(ctx context.Context, r Record) error

	// Get returns the record with id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Record, error)

	// Close flushes and releases the backend.
	Close() error
}

// Open returns a MongoStore for mongodb:// and mongodb+srv:// locations and a
// JSONLStore for anything else, treated as a file path.
func Open(ctx context.Context, location string) (Store, error) {
	if strings.HasPrefix(location, "mongodb://") || strings.HasPrefix(location, "mongodb+srv://") {
		ms, err := NewMongoStore(ctx, location)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	js, err := NewJSONLStore(location)
	if err != nil {
		return nil, err
	}
	return js, nil
}
