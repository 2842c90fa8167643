package events

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// Log is the bbolt-backed provider.EventLog. Entries are keyed by a
// zero-padded monotonic sequence number per owner bucket, so a bucket
// cursor walk yields entries in append order.
type Log struct {
	db *bolt.DB
}

func NewLog(dataDir string) (*Log, error) {
	db, err := openDB(filepath.Join(dataDir, "events.db"), bucketEvents)
	if err != nil {
		return nil, err
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error { return l.db.Close() }

func openDB(path string, root []byte) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("events: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(root)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("events: init bucket %s: %w", root, err)
	}
	return db, nil
}

type logRecord struct {
	Seq   uint64      `json:"seq"`
	Entry types.Entry `json:"entry"`
}

func (l *Log) Append(ctx context.Context, owner string, entry types.Entry) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, owner, true)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("events: next sequence: %w", err)
		}
		data, err := json.Marshal(logRecord{Seq: seq, Entry: entry})
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// Events returns entries appended after cursor, in append order. A nil
// cursor returns the full log.
func (l *Log) Events(ctx context.Context, owner string, cursor *types.Cursor) ([]types.Entry, *types.Cursor, error) {
	var out []types.Entry
	var lastKey []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, owner, false)
		if err != nil || b == nil {
			return err
		}
		c := b.Cursor()
		started := cursor == nil
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec logRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if !started {
				if rec.Entry.MessageCID == cursor.MessageCID {
					started = true
				}
				continue
			}
			out = append(out, rec.Entry)
			lastKey = append([]byte(nil), k...)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("events: events: %w", err)
	}
	var next *types.Cursor
	if len(out) > 0 {
		next = &types.Cursor{MessageCID: out[len(out)-1].MessageCID, Value: string(lastKey)}
	}
	return out, next, nil
}

// Query returns the log entries for owner matching filter, in append
// order, cut to the first page.Limit entries when Limit is set. It
// returns no cursor, so entries past the limit cannot be paged to, and
// page.Cursor is not read. Unlike MessageStore.Query this always full-scans: the event
// log has no secondary indexes, since MessagesFilter's fields are few
// and the log itself is the append-only source of truth.
func (l *Log) Query(ctx context.Context, owner string, filter types.MessagesFilter, page types.Pagination) ([]types.Entry, *types.Cursor, error) {
	var out []types.Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec logRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if matchesMessagesFilter(rec.Entry, filter) {
				out = append(out, rec.Entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("events: query: %w", err)
	}
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil, nil
}

func (l *Log) Delete(ctx context.Context, owner string, messageCID string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, owner, false)
		if err != nil || b == nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec logRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if rec.Entry.MessageCID == messageCID {
				return b.Delete(k)
			}
		}
		return nil
	})
}

func (l *Log) Purge(ctx context.Context, owner string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketEvents)
		return root.DeleteBucket([]byte(owner))
	})
}

func ownerBucket(tx *bolt.Tx, owner string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketEvents)
	if create {
		return root.CreateBucketIfNotExists([]byte(owner))
	}
	return root.Bucket([]byte(owner)), nil
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}

func matchesMessagesFilter(e types.Entry, f types.MessagesFilter) bool {
	if f.Interface != "" && e.Message.Descriptor.Interface != f.Interface {
		return false
	}
	if f.Method != "" && e.Message.Descriptor.Method != f.Method {
		return false
	}
	if f.Author != "" && e.Author != f.Author {
		return false
	}
	if f.Protocol != "" && e.Indexes["protocol"] != f.Protocol {
		return false
	}
	if f.MessageTimestamp != nil {
		v := index.PadTime(e.Message.Descriptor.MessageTimestamp)
		if !rangeMatches(v, f.MessageTimestamp) {
			return false
		}
	}
	return true
}

func rangeMatches(v string, r *types.RangeFilter) bool {
	if r.GTE != "" && v < r.GTE {
		return false
	}
	if r.GT != "" && v <= r.GT {
		return false
	}
	if r.LTE != "" && v > r.LTE {
		return false
	}
	if r.LT != "" && v >= r.LT {
		return false
	}
	return true
}

var _ provider.EventLog = (*Log)(nil)
