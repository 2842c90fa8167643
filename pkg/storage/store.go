package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ownerBucket returns (creating if needed) the nested bucket scoping a
// store's keys to a single owner DID.
func ownerBucket(tx *bolt.Tx, root []byte, owner string, create bool) (*bolt.Bucket, error) {
	rb := tx.Bucket(root)
	if rb == nil {
		return nil, fmt.Errorf("storage: root bucket %s missing", root)
	}
	if create {
		return rb.CreateBucketIfNotExists([]byte(owner))
	}
	return rb.Bucket([]byte(owner)), nil
}

func openDB(path string, root []byte) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(root)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init bucket %s: %w", root, err)
	}
	return db, nil
}
