package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketMessages = []byte("messages")

var _ provider.MessageStore = (*MessageStore)(nil)

// MessageStore is the bbolt-backed message store: entries keyed by
// message CID, with a pkg/index.Store kept in step for filtered
// queries.
type MessageStore struct {
	db  *bolt.DB
	idx *index.Store
}

// NewMessageStore opens the message store and its companion index
// store under dataDir.
func NewMessageStore(dataDir string) (*MessageStore, error) {
	db, err := openDB(filepath.Join(dataDir, "messages.db"), bucketMessages)
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(filepath.Join(dataDir, "index.db"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MessageStore{db: db, idx: idx}, nil
}

func (s *MessageStore) Close() error {
	err1 := s.db.Close()
	err2 := s.idx.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Put is last-writer-wins on entry.MessageCID: any existing entry (and
// its index rows) at that CID is replaced.
func (s *MessageStore) Put(ctx context.Context, owner string, entry types.Entry) error {
	if existing, _ := s.Get(ctx, owner, entry.MessageCID); existing != nil {
		for field, value := range existing.Indexes {
			_ = s.idx.Delete(owner, field, value, entry.MessageCID)
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("storage: messages marshal: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketMessages, owner, true)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.MessageCID), data)
	})
	if err != nil {
		return fmt.Errorf("storage: messages put: %w", err)
	}

	for field, value := range entry.Indexes {
		if err := s.idx.Put(owner, field, value, entry.MessageCID); err != nil {
			return fmt.Errorf("storage: messages index: %w", err)
		}
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, owner string, messageCID string) (*types.Entry, error) {
	var entry *types.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketMessages, owner, false)
		if err != nil || b == nil {
			return err
		}
		v := b.Get([]byte(messageCID))
		if v == nil {
			return nil
		}
		var e types.Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("storage: messages unmarshal %s: %w", messageCID, err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *MessageStore) Delete(ctx context.Context, owner string, messageCID string) error {
	existing, err := s.Get(ctx, owner, messageCID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	for field, value := range existing.Indexes {
		if err := s.idx.Delete(owner, field, value, messageCID); err != nil {
			return fmt.Errorf("storage: messages deindex: %w", err)
		}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketMessages, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete([]byte(messageCID))
	})
}

func (s *MessageStore) Purge(ctx context.Context, owner string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketMessages)
		if rb.Bucket([]byte(owner)) == nil {
			return nil
		}
		return rb.DeleteBucket([]byte(owner))
	})
}

// Query combines an index-store driven candidate scan with a
// post-filter pass, returning entries sorted by sort.Field (falling
// back to message CID) with a stable message_cid tie-break, and an
// opaque cursor when more results remain beyond page.Limit.
func (s *MessageStore) Query(ctx context.Context, owner string, filter types.RecordsFilter, sortField types.SortField, page types.Pagination) ([]types.Entry, *types.Cursor, error) {
	candidateCIDs, err := s.candidates(owner, filter)
	if err != nil {
		return nil, nil, err
	}

	type scored struct {
		entry types.Entry
		sort  string
	}
	var matched []scored
	for _, messageCID := range candidateCIDs {
		entry, err := s.Get(ctx, owner, messageCID)
		if err != nil {
			return nil, nil, err
		}
		if entry == nil || !index.Matches(entry.Indexes, filter) {
			continue
		}
		sortValue := entry.Indexes[sortField.Field]
		matched = append(matched, scored{entry: *entry, sort: sortValue})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].sort != matched[j].sort {
			if sortField.Ascending {
				return matched[i].sort < matched[j].sort
			}
			return matched[i].sort > matched[j].sort
		}
		return matched[i].entry.MessageCID < matched[j].entry.MessageCID
	})

	start := 0
	if page.Cursor != nil {
		for i, m := range matched {
			if m.sort == page.Cursor.Value && m.entry.MessageCID == page.Cursor.MessageCID {
				start = i + 1
				break
			}
		}
	}

	limit := page.Limit
	if limit <= 0 {
		limit = len(matched)
	}

	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	var out []types.Entry
	for _, m := range matched[start:end] {
		out = append(out, m.entry)
	}

	var next *types.Cursor
	if end < len(matched) {
		last := matched[end-1]
		next = &types.Cursor{MessageCID: last.entry.MessageCID, Value: last.sort}
	}
	return out, next, nil
}

// candidates returns the set of message CIDs the driving index narrows
// the scan to, or every message CID for owner when no filter clause
// names an indexed field.
func (s *MessageStore) candidates(owner string, filter types.RecordsFilter) ([]string, error) {
	plan := index.Choose(filter)
	if !plan.ok {
		return s.allMessageCIDs(owner)
	}

	var entries []index.Entry
	var err error
	switch plan.Kind {
	case index.PlanExact:
		entries, err = s.idx.Equals(owner, plan.Field, plan.Value)
	case index.PlanPrefix:
		entries, err = s.idx.Prefix(owner, plan.Field, plan.Value)
	case index.PlanRange:
		entries, err = s.idx.Range(owner, plan.Field, plan.Bounds)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: messages query candidates: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.MessageCID] {
			seen[e.MessageCID] = true
			out = append(out, e.MessageCID)
		}
	}
	return out, nil
}

func (s *MessageStore) allMessageCIDs(owner string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketMessages, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: messages scan: %w", err)
	}
	return out, nil
}
