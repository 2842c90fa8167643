package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/dwn/pkg/provider"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketTasks = []byte("tasks")

// TaskStore is the bbolt-backed resumable lease queue. It generalizes
// the teacher's in-memory TokenManager (pkg/manager/token.go) to a
// durable, lease-renewable task record so a crash mid-delete leaves a
// task a recovery sweep can re-grab.
type TaskStore struct {
	db *bolt.DB
}

func NewTaskStore(dataDir string) (*TaskStore, error) {
	db, err := openDB(filepath.Join(dataDir, "tasks.db"), bucketTasks)
	if err != nil {
		return nil, err
	}
	return &TaskStore{db: db}, nil
}

func (s *TaskStore) Close() error { return s.db.Close() }

func (s *TaskStore) Register(ctx context.Context, owner string, kind string, payload []byte, timeout time.Duration) (provider.Task, error) {
	now := time.Now().UTC()
	task := provider.Task{
		ID:         uuid.NewString(),
		Owner:      owner,
		Kind:       kind,
		Payload:    payload,
		LeaseUntil: now.Add(timeout),
		CreatedAt:  now,
	}
	if err := s.save(owner, task); err != nil {
		return provider.Task{}, fmt.Errorf("storage: tasks register: %w", err)
	}
	return task, nil
}

// Grab leases up to n tasks for owner whose lease has expired,
// extending their lease atomically so a concurrent Grab cannot pick up
// the same task.
func (s *TaskStore) Grab(ctx context.Context, owner string, n int, timeout time.Duration) ([]provider.Task, error) {
	var grabbed []provider.Task
	now := time.Now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketTasks, owner, true)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil && len(grabbed) < n; k, v = c.Next() {
			var task provider.Task
			if err := json.Unmarshal(v, &task); err != nil {
				continue
			}
			if task.LeaseUntil.After(now) {
				continue
			}
			task.LeaseUntil = now.Add(timeout)
			data, err := json.Marshal(task)
			if err != nil {
				return err
			}
			if err := b.Put(k, data); err != nil {
				return err
			}
			grabbed = append(grabbed, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: tasks grab: %w", err)
	}
	return grabbed, nil
}

// Sweep is Grab without an owner filter, walking every owner bucket
// under tasks.db. A recovery sweep at startup has no single owner to
// scope a query to: a crash can leave an interrupted prune task behind
// for any owner the node ever served.
func (s *TaskStore) Sweep(ctx context.Context, n int, timeout time.Duration) ([]provider.Task, error) {
	var grabbed []provider.Task
	now := time.Now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketTasks)
		if root == nil {
			return nil
		}
		rc := root.Cursor()
		for ownerKey, v := rc.First(); ownerKey != nil && len(grabbed) < n; ownerKey, v = rc.Next() {
			if v != nil {
				continue // not a nested (owner) bucket
			}
			ob := root.Bucket(ownerKey)
			if ob == nil {
				continue
			}
			oc := ob.Cursor()
			for k, tv := oc.First(); k != nil && len(grabbed) < n; k, tv = oc.Next() {
				var task provider.Task
				if err := json.Unmarshal(tv, &task); err != nil {
					continue
				}
				if task.LeaseUntil.After(now) {
					continue
				}
				task.LeaseUntil = now.Add(timeout)
				data, err := json.Marshal(task)
				if err != nil {
					return err
				}
				if err := ob.Put(k, data); err != nil {
					return err
				}
				grabbed = append(grabbed, task)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: tasks sweep: %w", err)
	}
	return grabbed, nil
}

func (s *TaskStore) Extend(ctx context.Context, owner string, id string, timeout time.Duration) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketTasks, owner, false)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("storage: tasks extend: owner %s has no tasks", owner)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("storage: tasks extend: task %s not found", id)
		}
		var task provider.Task
		if err := json.Unmarshal(v, &task); err != nil {
			return err
		}
		task.LeaseUntil = time.Now().UTC().Add(timeout)
		data, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *TaskStore) Delete(ctx context.Context, owner string, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketTasks, owner, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

func (s *TaskStore) save(owner string, task provider.Task) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := ownerBucket(tx, bucketTasks, owner, true)
		if err != nil {
			return err
		}
		data, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return b.Put([]byte(task.ID), data)
	})
}

var _ provider.TaskStore = (*TaskStore)(nil)
