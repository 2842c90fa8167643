package storage

import (
	"context"
	"testing"

	"github.com/cuemby/dwn/pkg/cid"
)

func TestBlockStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBlockStore(dir)
	if err != nil {
		t.Fatalf("NewBlockStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	owner := "did:example:alice"
	data := []byte("hello block")
	c := cid.OfBytes(data)

	if err := s.Put(ctx, owner, c, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, owner, c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("got %q, want %q", got, data)
	}

	if err := s.Delete(ctx, owner, c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Get(ctx, owner, c)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %v", got)
	}
}

func TestBlockStoreOwnerIsolation(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBlockStore(dir)
	if err != nil {
		t.Fatalf("NewBlockStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	data := []byte("shared bytes")
	c := cid.OfBytes(data)

	if err := s.Put(ctx, "did:example:alice", c, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "did:example:bob", c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected bob to not see alice's block")
	}
}

func TestBlockStorePurge(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBlockStore(dir)
	if err != nil {
		t.Fatalf("NewBlockStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	owner := "did:example:alice"
	data := []byte("purge me")
	c := cid.OfBytes(data)
	if err := s.Put(ctx, owner, c, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Purge(ctx, owner); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	got, err := s.Get(ctx, owner, c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no blocks after purge")
	}
}
