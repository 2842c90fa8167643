package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/provider"
	bolt "go.etcd.io/bbolt"
)

var bucketData = []byte("data")

var _ provider.DataStore = (*DataStore)(nil)

// DataStore is the bbolt-backed payload store: keys are
// "<recordID>\x00<dataCID>" so more than one write to the same record
// can reference distinct payload CIDs without colliding.
type DataStore struct {
	db *bolt.DB
}

func NewDataStore(dataDir string) (*DataStore, error) {
	db, err := openDB(filepath.Join(dataDir, "data.db"), bucketData)
	if err != nil {
		return nil, err
	}
	return &DataStore{db: db}, nil
}

func (s *DataStore) Close() error { return s.db.Close() }

func dataKey(recordID string, dataCID cid.CID) []byte {
	return []byte(recordID + "\x00" + cid.String(dataCID))
}

func (s *DataStore) Put(ctx context.Context, owner, recordID string, dataCID cid.CID, data []byte) (cid.CID, int64, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketData, owner, true)
		if err != nil {
			return fmt.Errorf("storage: data put: %w", err)
		}
		return b.Put(dataKey(recordID, dataCID), data)
	})
	if err != nil {
		return cid.Undef, 0, err
	}
	return dataCID, int64(len(data)), nil
}

func (s *DataStore) Get(ctx context.Context, owner, recordID string, dataCID cid.CID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketData, owner, false)
		if err != nil || b == nil {
			return err
		}
		if v := b.Get(dataKey(recordID, dataCID)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: data get: %w", err)
	}
	return out, nil
}

func (s *DataStore) Delete(ctx context.Context, owner, recordID string, dataCID cid.CID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketData, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete(dataKey(recordID, dataCID))
	})
}

func (s *DataStore) Purge(ctx context.Context, owner string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketData)
		if rb.Bucket([]byte(owner)) == nil {
			return nil
		}
		return rb.DeleteBucket([]byte(owner))
	})
}
