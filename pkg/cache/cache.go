package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

var (
	bucketSnapshots = []byte("snapshots")
)

// Snapshot is the last committed serialized document for a deployment, as
// written after a successful save.
type Snapshot struct {
	Deployment string    `json:"deployment"`
	Namespace  string    `json:"namespace"`
	Data       string    `json:"data"`
	StoredAt   time.Time `json:"storedAt"`
}

// Cache is a BoltDB-backed local cache of committed remote configurations.
// Read-only commands use it to show the last known topology without cluster
// access; it is never a source of truth.
type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache database in dataDir.
func Open(dataDir string) (*Cache, error) {
	dbPath := filepath.Join(dataDir, "hnetctl-cache.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSnapshots, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}

// Store records the serialized document for a deployment, stamped now.
func (c *Cache) Store(deployment, namespace, serialized string) error {
	snapshot := &Snapshot{
		Deployment: deployment,
		Namespace:  namespace,
		Data:       serialized,
		StoredAt:   time.Now().UTC(),
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		return b.Put([]byte(deployment), data)
	})
}

// Get returns the snapshot for a deployment, failing with ErrNotFound when
// none has been stored.
func (c *Cache) Get(deployment string) (*Snapshot, error) {
	var snapshot Snapshot
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data := b.Get([]byte(deployment))
		if data == nil {
			return errdefs.NotFoundf("cached snapshot for deployment %q", deployment)
		}
		return json.Unmarshal(data, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns every stored snapshot.
func (c *Cache) List() ([]*Snapshot, error) {
	var snapshots []*Snapshot
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.ForEach(func(k, v []byte) error {
			var snapshot Snapshot
			if err := json.Unmarshal(v, &snapshot); err != nil {
				return err
			}
			snapshots = append(snapshots, &snapshot)
			return nil
		})
	})
	return snapshots, err
}

// Delete removes the snapshot for a deployment, if present.
func (c *Cache) Delete(deployment string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.Delete([]byte(deployment))
	})
}
