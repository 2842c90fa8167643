package index

import (
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"
)

// keySeparator joins an indexed value to its message CID inside a bolt
// key so a bucket scan naturally yields (value, cid) in lexical order.
const keySeparator = "\x00"

// Store is a bbolt-backed secondary index: one top-level bucket per
// owner, one nested bucket per indexed field, keys of
// "<value>\x00<messageCID>".
type Store struct {
	db *bolt.DB
}

var rootBucket = []byte("index")

// Open opens (creating if needed) the bolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("index: init root bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func ownerFieldBucket(tx *bolt.Tx, owner, field string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket(rootBucket)
	ownerBucket, err := bucketFor(root, []byte(owner), create)
	if err != nil || ownerBucket == nil {
		return nil, err
	}
	return bucketFor(ownerBucket, []byte(field), create)
}

func bucketFor(parent *bolt.Bucket, name []byte, create bool) (*bolt.Bucket, error) {
	if create {
		return parent.CreateBucketIfNotExists(name)
	}
	return parent.Bucket(name), nil
}

// Put records that messageCID has the given value for field, under owner.
func (s *Store) Put(owner, field, value, messageCID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerFieldBucket(tx, owner, field, true)
		if err != nil {
			return fmt.Errorf("index: put %s/%s: %w", owner, field, err)
		}
		key := []byte(value + keySeparator + messageCID)
		return b.Put(key, nil)
	})
}

// Delete removes the (value, messageCID) entry for field, under owner.
func (s *Store) Delete(owner, field, value, messageCID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerFieldBucket(tx, owner, field, false)
		if err != nil {
			return fmt.Errorf("index: delete %s/%s: %w", owner, field, err)
		}
		if b == nil {
			return nil
		}
		key := []byte(value + keySeparator + messageCID)
		return b.Delete(key)
	})
}

// Entry is one (value, messageCID) pair returned by a scan, kept
// together so callers can sort or tie-break on either component.
type Entry struct {
	Value      string
	MessageCID string
}

// Equals returns every messageCID indexed under field with exactly value.
func (s *Store) Equals(owner, field, value string) ([]Entry, error) {
	return s.scan(owner, field, func(v string) bool { return v == value })
}

// Prefix returns every messageCID indexed under field whose value has
// the given prefix (tag starts-with, context-id subtree).
func (s *Store) Prefix(owner, field, prefix string) ([]Entry, error) {
	return s.scan(owner, field, func(v string) bool { return strings.HasPrefix(v, prefix) })
}

// Bounds describes an open/closed range over lexicographically
// comparable values.
type Bounds struct {
	GTE, GT, LTE, LT string
}

func (b Bounds) matches(v string) bool {
	if b.GTE != "" && v < b.GTE {
		return false
	}
	if b.GT != "" && v <= b.GT {
		return false
	}
	if b.LTE != "" && v > b.LTE {
		return false
	}
	if b.LT != "" && v >= b.LT {
		return false
	}
	return true
}

// Range returns every messageCID indexed under field within bounds.
func (s *Store) Range(owner, field string, bounds Bounds) ([]Entry, error) {
	return s.scan(owner, field, bounds.matches)
}

// All returns every (value, messageCID) pair indexed under field,
// sorted ascending by (value, messageCID) — the order a driving-index
// scan over the whole field yields.
func (s *Store) All(owner, field string) ([]Entry, error) {
	return s.scan(owner, field, func(string) bool { return true })
}

func (s *Store) scan(owner, field string, match func(value string) bool) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := ownerFieldBucket(tx, owner, field, false)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			value, cid, ok := splitKey(string(k))
			if !ok || !match(value) {
				return nil
			}
			out = append(out, Entry{Value: value, MessageCID: cid})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("index: scan %s/%s: %w", owner, field, err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].MessageCID < out[j].MessageCID
	})
	return out, nil
}

func splitKey(key string) (value, messageCID string, ok bool) {
	idx := strings.LastIndex(key, keySeparator)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(keySeparator):], true
}
