// Package storage keeps finished bench runs in a bbolt file so they can be
// listed and compared later.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/wesleyorama2/chatload/internal/bench"
)

const (
	BucketRuns = "runs"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one stored scenario result.
type Run struct {
	ID      string                `json:"id"`
	SavedAt time.Time             `json:"savedAt"`
	Result  *bench.ScenarioResult `json:"result"`
}

// Store is a run history file.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens or creates the history file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores result and returns its run ID. A result without an ID gets a
// time-ordered one, which is also written back to result.ID.
func (s *Store) Save(result *bench.ScenarioResult) (string, error) {
	if result == nil {
		return "", errors.New("nil result")
	}
	if result.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate run id: %w", err)
		}
		result.ID = id.String()
	}

	run := Run{ID: result.ID, SavedAt: time.Now().UTC(), Result: result}
	data, err := json.Marshal(run)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).Put([]byte(run.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// List returns stored runs, newest first. A positive limit caps the count.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*Run, error) {
	var run Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(BucketRuns)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).Delete([]byte(id))
	})
}
