/*
Package memory provides an in-memory pkg/provider.Provider for tests: a
full-scan MessageStore/EventLog in place of pkg/storage's bbolt-and-index
pair, plus trivial map-backed Block/Data/Task stores. It implements the
same interfaces pkg/dwn dispatches against, so package tests can exercise
the authorization kernel, protocol engine, and records lifecycle without
touching disk.
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/google/uuid"
)

// BlockStore is a map-backed provider.BlockStore.
type BlockStore struct {
	mu     sync.RWMutex
	blocks map[string]map[string][]byte // owner -> cid string -> bytes
}

func NewBlockStore() *BlockStore {
	return &BlockStore{blocks: make(map[string]map[string][]byte)}
}

func (s *BlockStore) Put(ctx context.Context, owner string, c cid.CID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocks[owner] == nil {
		s.blocks[owner] = make(map[string][]byte)
	}
	s.blocks[owner][cid.String(c)] = append([]byte(nil), data...)
	return nil
}

func (s *BlockStore) Get(ctx context.Context, owner string, c cid.CID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks[owner][cid.String(c)], nil
}

func (s *BlockStore) Delete(ctx context.Context, owner string, c cid.CID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks[owner], cid.String(c))
	return nil
}

func (s *BlockStore) Purge(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, owner)
	return nil
}

// MessageStore is a map-backed provider.MessageStore doing a full scan
// plus post-filter on every query, since an in-memory test store has no
// need of a driving index.
type MessageStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]types.Entry // owner -> message CID -> entry
}

func NewMessageStore() *MessageStore {
	return &MessageStore{entries: make(map[string]map[string]types.Entry)}
}

func (s *MessageStore) Put(ctx context.Context, owner string, entry types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[owner] == nil {
		s.entries[owner] = make(map[string]types.Entry)
	}
	s.entries[owner][entry.MessageCID] = entry
	return nil
}

func (s *MessageStore) Get(ctx context.Context, owner string, messageCID string) (*types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[owner][messageCID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MessageStore) Delete(ctx context.Context, owner string, messageCID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries[owner], messageCID)
	return nil
}

func (s *MessageStore) Purge(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, owner)
	return nil
}

func (s *MessageStore) Query(ctx context.Context, owner string, filter types.RecordsFilter, sortField types.SortField, page types.Pagination) ([]types.Entry, *types.Cursor, error) {
	s.mu.RLock()
	var matched []types.Entry
	for _, e := range s.entries[owner] {
		if index.Matches(e.Indexes, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		vi, vj := matched[i].Indexes[sortField.Field], matched[j].Indexes[sortField.Field]
		if vi != vj {
			if sortField.Ascending {
				return vi < vj
			}
			return vi > vj
		}
		return matched[i].MessageCID < matched[j].MessageCID
	})

	start := 0
	if page.Cursor != nil {
		for i, m := range matched {
			if m.MessageCID == page.Cursor.MessageCID {
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

	out := matched[start:end]
	var next *types.Cursor
	if end < len(matched) {
		last := matched[end-1]
		next = &types.Cursor{MessageCID: last.MessageCID, Value: last.Indexes[sortField.Field]}
	}
	return out, next, nil
}

// DataStore is a map-backed provider.DataStore.
type DataStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // owner -> "recordID\x00cid" -> bytes
}

func NewDataStore() *DataStore {
	return &DataStore{data: make(map[string]map[string][]byte)}
}

func dataKey(recordID string, c cid.CID) string {
	return recordID + "\x00" + cid.String(c)
}

func (s *DataStore) Put(ctx context.Context, owner, recordID string, dataCID cid.CID, data []byte) (cid.CID, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[owner] == nil {
		s.data[owner] = make(map[string][]byte)
	}
	s.data[owner][dataKey(recordID, dataCID)] = append([]byte(nil), data...)
	return dataCID, int64(len(data)), nil
}

func (s *DataStore) Get(ctx context.Context, owner, recordID string, dataCID cid.CID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[owner][dataKey(recordID, dataCID)], nil
}

func (s *DataStore) Delete(ctx context.Context, owner, recordID string, dataCID cid.CID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[owner], dataKey(recordID, dataCID))
	return nil
}

func (s *DataStore) Purge(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, owner)
	return nil
}

// EventLog is a map-backed provider.EventLog, ordered by append time.
type EventLog struct {
	mu      sync.RWMutex
	entries map[string][]types.Entry
}

func NewEventLog() *EventLog {
	return &EventLog{entries: make(map[string][]types.Entry)}
}

func (s *EventLog) Append(ctx context.Context, owner string, entry types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[owner] = append(s.entries[owner], entry)
	return nil
}

func (s *EventLog) Events(ctx context.Context, owner string, cursor *types.Cursor) ([]types.Entry, *types.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.entries[owner]
	start := 0
	if cursor != nil {
		for i, e := range all {
			if e.MessageCID == cursor.MessageCID {
				start = i + 1
				break
			}
		}
	}
	return append([]types.Entry(nil), all[start:]...), nil, nil
}

func (s *EventLog) Query(ctx context.Context, owner string, filter types.MessagesFilter, page types.Pagination) ([]types.Entry, *types.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Entry
	for _, e := range s.entries[owner] {
		if matchesMessagesFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil, nil
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
	return true
}

func (s *EventLog) Delete(ctx context.Context, owner string, messageCID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries[owner]
	for i, e := range entries {
		if e.MessageCID == messageCID {
			s.entries[owner] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *EventLog) Purge(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, owner)
	return nil
}

// EventStream is a channel-fanout provider.EventStream, following the
// broker shape in pkg/events but scoped to the in-memory test provider
// (pkg/events.Broker is the production implementation wired into
// pkg/storage-backed nodes).
type EventStream struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

func NewEventStream() *EventStream {
	return &EventStream{subs: make(map[string][]*subscription)}
}

type subscription struct {
	ch     chan types.Entry
	filter types.MessagesFilter
}

func (s *subscription) Events() <-chan types.Entry { return s.ch }
func (s *subscription) Close()                     {}

func (s *EventStream) Subscribe(ctx context.Context, owner string, filter types.MessagesFilter) (provider.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscription{ch: make(chan types.Entry, 16), filter: filter}
	s.subs[owner] = append(s.subs[owner], sub)
	return sub, nil
}

func (s *EventStream) Emit(ctx context.Context, owner string, entry types.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[owner] {
		if matchesMessagesFilter(entry, sub.filter) {
			select {
			case sub.ch <- entry:
			default:
			}
		}
	}
}

// TaskStore is a map-backed provider.TaskStore.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]map[string]provider.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]map[string]provider.Task)}
}

func (s *TaskStore) Register(ctx context.Context, owner string, kind string, payload []byte, timeout time.Duration) (provider.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	task := provider.Task{ID: uuid.NewString(), Owner: owner, Kind: kind, Payload: payload, LeaseUntil: now.Add(timeout), CreatedAt: now}
	if s.tasks[owner] == nil {
		s.tasks[owner] = make(map[string]provider.Task)
	}
	s.tasks[owner][task.ID] = task
	return task, nil
}

func (s *TaskStore) Grab(ctx context.Context, owner string, n int, timeout time.Duration) ([]provider.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var grabbed []provider.Task
	for id, task := range s.tasks[owner] {
		if len(grabbed) >= n {
			break
		}
		if task.LeaseUntil.After(now) {
			continue
		}
		task.LeaseUntil = now.Add(timeout)
		s.tasks[owner][id] = task
		grabbed = append(grabbed, task)
	}
	return grabbed, nil
}

// Sweep is Grab without an owner filter, scanning every owner's tasks.
func (s *TaskStore) Sweep(ctx context.Context, n int, timeout time.Duration) ([]provider.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var grabbed []provider.Task
	for owner, tasks := range s.tasks {
		for id, task := range tasks {
			if len(grabbed) >= n {
				return grabbed, nil
			}
			if task.LeaseUntil.After(now) {
				continue
			}
			task.LeaseUntil = now.Add(timeout)
			s.tasks[owner][id] = task
			grabbed = append(grabbed, task)
		}
	}
	return grabbed, nil
}

func (s *TaskStore) Extend(ctx context.Context, owner string, id string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[owner][id]
	if !ok {
		return fmt.Errorf("memory: task %s not found", id)
	}
	task.LeaseUntil = time.Now().UTC().Add(timeout)
	s.tasks[owner][id] = task
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, owner string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks[owner], id)
	return nil
}

var (
	_ provider.BlockStore   = (*BlockStore)(nil)
	_ provider.MessageStore = (*MessageStore)(nil)
	_ provider.DataStore    = (*DataStore)(nil)
	_ provider.EventLog     = (*EventLog)(nil)
	_ provider.EventStream  = (*EventStream)(nil)
	_ provider.TaskStore    = (*TaskStore)(nil)
	_ provider.Subscription = (*subscription)(nil)
)

// New builds a fully in-memory Provider, suitable for tests. DIDs and
// Keys are left nil; callers that need authorization wire
// pkg/security's dev implementations in directly.
func New() *provider.Provider {
	return &provider.Provider{
		Blocks:   NewBlockStore(),
		Messages: NewMessageStore(),
		Data:     NewDataStore(),
		Events:   NewEventLog(),
		Stream:   NewEventStream(),
		Tasks:    NewTaskStore(),
	}
}
