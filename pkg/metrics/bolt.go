package metrics

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DimProductID is the dimension BoltStore buckets records by.
const DimProductID = "product_id"

const defaultBucket = "_unscoped"

// BoltStore persists records in a bbolt database, one bucket
// per product, keyed by an increasing sequence so that
// iteration returns records in write order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func bucketFor(r Record) []byte {
	if id := r.Dimensions[DimProductID]; id != "" {
		return []byte(id)
	}
	return []byte(defaultBucket)
}

func (s *BoltStore) Write(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, r := range records {
			b, err := tx.CreateBucketIfNotExists(bucketFor(r))
			if err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Records returns every record stored for productID in write
// order. An unknown product yields no records.
func (s *BoltStore) Records(productID string) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(productID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf(
					"failed to decode record %x: %w", k, err,
				)
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Products returns the product ids that have stored records.
func (s *BoltStore) Products() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			out = append(out, string(name))
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
