package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"fintrack/internal/store"
)

// Bucket names.
const (
	BucketSnapshots = "snapshots"
	BucketHistory   = "snapshot_history"
)

var currentKey = []byte("current")

// Bolt stores the snapshot in a bbolt database. Previous snapshots are kept
// in a history bucket keyed by sequence number.
type Bolt struct {
	db      *bolt.DB
	history int
}

func NewBolt(dbPath string) (*Bolt, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets.
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketSnapshots, BucketHistory} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Bolt{db: db, history: DefaultHistory}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Load(_ context.Context) (*store.Snapshot, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketSnapshots)).Get(currentKey)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNoSnapshot
	}
	return Decode(data)
}

func (b *Bolt) Save(ctx context.Context, snap store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		snaps := tx.Bucket([]byte(BucketSnapshots))
		hist := tx.Bucket([]byte(BucketHistory))

		if prev := snaps.Get(currentKey); prev != nil {
			seq, err := hist.NextSequence()
			if err != nil {
				return err
			}
			if err := hist.Put(itob(int64(seq)), append([]byte(nil), prev...)); err != nil {
				return fmt.Errorf("archive snapshot: %w", err)
			}
		}
		if err := snaps.Put(currentKey, data); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		return trimBucket(hist, b.history)
	})
}

// HistoryLen reports how many archived snapshots are kept.
func (b *Bolt) HistoryLen() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = countKeys(tx.Bucket([]byte(BucketHistory)))
		return nil
	})
	return n, err
}

// trimBucket deletes the oldest keys until at most keep remain.
func trimBucket(bk *bolt.Bucket, keep int) error {
	n := countKeys(bk)
	if n <= keep {
		return nil
	}
	var stale [][]byte
	c := bk.Cursor()
	for k, _ := c.First(); k != nil && len(stale) < n-keep; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := bk.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func countKeys(bk *bolt.Bucket) int {
	n := 0
	c := bk.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

// itob returns an 8-byte big endian representation of v.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
