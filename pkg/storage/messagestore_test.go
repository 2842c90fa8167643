package storage

import (
	"context"
	"testing"

	"github.com/cuemby/dwn/pkg/types"
)

func newTestMessageStore(t *testing.T) *MessageStore {
	t.Helper()
	s, err := NewMessageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMessageStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entryWithSchema(cidStr, author, schema string) types.Entry {
	return types.Entry{
		MessageCID: cidStr,
		Author:     author,
		Indexes: map[string]string{
			"author": author,
			"schema": schema,
		},
	}
}

func TestMessageStorePutGet(t *testing.T) {
	s := newTestMessageStore(t)
	ctx := context.Background()
	owner := "did:example:alice"
	entry := entryWithSchema("cid1", "did:example:alice", "https://example.com/schema")

	if err := s.Put(ctx, owner, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, owner, "cid1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.MessageCID != "cid1" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestMessageStoreQueryBySchema(t *testing.T) {
	s := newTestMessageStore(t)
	ctx := context.Background()
	owner := "did:example:alice"

	s.Put(ctx, owner, entryWithSchema("cid1", "did:example:alice", "https://example.com/a"))
	s.Put(ctx, owner, entryWithSchema("cid2", "did:example:alice", "https://example.com/b"))

	results, cursor, err := s.Query(ctx, owner, types.RecordsFilter{Schema: "https://example.com/a"}, types.SortField{}, types.Pagination{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].MessageCID != "cid1" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if cursor != nil {
		t.Fatalf("expected no next cursor, got %+v", cursor)
	}
}

func TestMessageStoreDeleteRemovesFromIndex(t *testing.T) {
	s := newTestMessageStore(t)
	ctx := context.Background()
	owner := "did:example:alice"
	s.Put(ctx, owner, entryWithSchema("cid1", "did:example:alice", "https://example.com/a"))

	if err := s.Delete(ctx, owner, "cid1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	results, _, err := s.Query(ctx, owner, types.RecordsFilter{Schema: "https://example.com/a"}, types.SortField{}, types.Pagination{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after delete, got %+v", results)
	}
}

func TestMessageStoreQueryPagination(t *testing.T) {
	s := newTestMessageStore(t)
	ctx := context.Background()
	owner := "did:example:alice"

	for _, c := range []string{"cid1", "cid2", "cid3"} {
		s.Put(ctx, owner, entryWithSchema(c, "did:example:alice", "https://example.com/shared"))
	}

	page1, cursor1, err := s.Query(ctx, owner, types.RecordsFilter{Schema: "https://example.com/shared"}, types.SortField{Field: "author", Ascending: true}, types.Pagination{Limit: 2})
	if err != nil {
		t.Fatalf("Query page1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 results in page1, got %d", len(page1))
	}
	if cursor1 == nil {
		t.Fatalf("expected a cursor for the remaining result")
	}

	page2, cursor2, err := s.Query(ctx, owner, types.RecordsFilter{Schema: "https://example.com/shared"}, types.SortField{Field: "author", Ascending: true}, types.Pagination{Limit: 2, Cursor: cursor1})
	if err != nil {
		t.Fatalf("Query page2: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("expected 1 result in page2, got %d", len(page2))
	}
	if cursor2 != nil {
		t.Fatalf("expected no further cursor, got %+v", cursor2)
	}
}
