package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
	"paperrag/internal/domain"
)

var bucketRuns = []byte("runs")

// Catalog keeps the history of ingestion runs in a bolt database. It is
// bookkeeping only: the index and metadata pair remain the sole source of
// truth for retrieval, and clearing them does not rewrite history here.
type Catalog struct {
	db *bbolt.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores one completed ingestion run.
func (c *Catalog) Record(run domain.IngestRun) error {
	if run.ID == "" {
		return fmt.Errorf("ingest run has no id")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put([]byte(run.ID), data)
	})
}

// List returns all recorded runs, newest first.
func (c *Catalog) List() ([]domain.IngestRun, error) {
	var runs []domain.IngestRun
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run domain.IngestRun
			if err := json.Unmarshal(v, &run); err != nil {
				return nil // Skip corrupted entries
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Latest returns the most recent run, if any.
func (c *Catalog) Latest() (domain.IngestRun, bool, error) {
	runs, err := c.List()
	if err != nil || len(runs) == 0 {
		return domain.IngestRun{}, false, err
	}
	return runs[0], true, nil
}
