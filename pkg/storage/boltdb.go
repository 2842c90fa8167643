package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/provider"
	bolt "go.etcd.io/bbolt"
)

var bucketBlocks = []byte("blocks")

var _ provider.BlockStore = (*BlockStore)(nil)

// BlockStore is the bbolt-backed content-addressed block store. Keys are
// the raw CID bytes; values are the block's bytes unmodified.
type BlockStore struct {
	db *bolt.DB
}

// NewBlockStore opens (creating if needed) the block store database
// under dataDir.
func NewBlockStore(dataDir string) (*BlockStore, error) {
	db, err := openDB(filepath.Join(dataDir, "blocks.db"), bucketBlocks)
	if err != nil {
		return nil, err
	}
	return &BlockStore{db: db}, nil
}

func (s *BlockStore) Close() error { return s.db.Close() }

func (s *BlockStore) Put(ctx context.Context, owner string, c cid.CID, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketBlocks, owner, true)
		if err != nil {
			return fmt.Errorf("storage: blocks put: %w", err)
		}
		return b.Put(c.Bytes(), data)
	})
}

func (s *BlockStore) Get(ctx context.Context, owner string, c cid.CID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketBlocks, owner, false)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		if v := b.Get(c.Bytes()); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: blocks get: %w", err)
	}
	return out, nil
}

func (s *BlockStore) Delete(ctx context.Context, owner string, c cid.CID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketBlocks, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete(c.Bytes())
	})
}

func (s *BlockStore) Purge(ctx context.Context, owner string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketBlocks)
		if rb.Bucket([]byte(owner)) == nil {
			return nil
		}
		return rb.DeleteBucket([]byte(owner))
	})
}
