package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// JSONLStore appends one JSON object per line to a manifest file.
type JSONLStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewJSONLStore opens path for appending, creating it and its directory if
// needed.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return &JSONLStore{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the manifest path.
func (s *JSONLStore) Path() string { return s.path }

// Put appends r and flushes, so a crash loses at most the record in flight.
func (s *JSONLStore) Put(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return os.ErrClosed
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return s.w.Flush()
}

// Get scans the manifest for id.
func (s *JSONLStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *Record
	err := ReadJSONL(s.path, func(r Record) bool {
		if r.ID == id {
			found = &r
			return false
		}
		return true
	})
	if err != nil {
		return Record{}, err
	}
	if found == nil {
		return Record{}, ErrNotFound
	}
	return *found, nil
}

// Close flushes and closes the manifest.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

// ReadJSONL calls fn for every record in the manifest at path until fn
// returns false.
func ReadJSONL(path string, fn func(Record) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("manifest line %d: %w", line, err)
		}
		if !fn(r) {
			return nil
		}
	}
	return sc.Err()
}

var _ Store = (*JSONLStore)(nil)
