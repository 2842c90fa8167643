package records

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/types"
)

func deleteMessage(recordID string, prune bool, ts time.Time) types.Message {
	return types.Message{
		Descriptor:   types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodDelete, MessageTimestamp: ts},
		RecordsDelete: &types.Delete{RecordID: recordID, Prune: prune},
	}
}

func TestDeleteRejectsUnknownRecord(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)

	msg := deleteMessage("no-such-record", false, time.Now().UTC())
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)

	_, err := Delete(context.Background(), owner, msg, p)
	if !dwnerr.Is(err, dwnerr.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestDeleteSoftDeleteRetainsInitial(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	payload := []byte("hello")
	d, w := newWriteDescriptor(t, owner, payload, ts)
	writeMsg := buildMessage(d, w)
	writeMsg.Authorization = &types.Authorization{}
	sign(t, kr, writeMsg.Authorization, writeMsg)
	if _, err := Write(context.Background(), owner, writeMsg, bytes.NewReader(payload), config.Default(), p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	delMsg := deleteMessage(w.RecordID, false, ts.Add(time.Second))
	delMsg.Authorization = &types.Authorization{}
	sign(t, kr, delMsg.Authorization, delMsg)

	entry, err := Delete(context.Background(), owner, delMsg, p)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if entry.Message.Descriptor.Method != types.MethodDelete {
		t.Fatalf("expected a delete entry")
	}

	cur, err := loadCurrent(context.Background(), owner, w.RecordID, p)
	if err != nil {
		t.Fatalf("loadCurrent: %v", err)
	}
	if cur.initial == nil || !cur.initial.Archived {
		t.Fatalf("expected the initial write to remain, archived")
	}
	if cur.latest == nil || cur.latest.Message.Descriptor.Method != types.MethodDelete {
		t.Fatalf("expected the latest entry to be the delete marker")
	}
}

func TestDeleteRejectsRedeleteWithoutPrune(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	payload := []byte("hello")
	d, w := newWriteDescriptor(t, owner, payload, ts)
	writeMsg := buildMessage(d, w)
	writeMsg.Authorization = &types.Authorization{}
	sign(t, kr, writeMsg.Authorization, writeMsg)
	if _, err := Write(context.Background(), owner, writeMsg, bytes.NewReader(payload), config.Default(), p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	delMsg := deleteMessage(w.RecordID, false, ts.Add(time.Second))
	delMsg.Authorization = &types.Authorization{}
	sign(t, kr, delMsg.Authorization, delMsg)
	if _, err := Delete(context.Background(), owner, delMsg, p); err != nil {
		t.Fatalf("first Delete: %v", err)
	}

	redelMsg := deleteMessage(w.RecordID, false, ts.Add(2*time.Second))
	redelMsg.Authorization = &types.Authorization{}
	sign(t, kr, redelMsg.Authorization, redelMsg)

	_, err := Delete(context.Background(), owner, redelMsg, p)
	if !dwnerr.Is(err, dwnerr.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestDeleteRejectsStaleTimestamp(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	payload := []byte("hello")
	d, w := newWriteDescriptor(t, owner, payload, ts)
	writeMsg := buildMessage(d, w)
	writeMsg.Authorization = &types.Authorization{}
	sign(t, kr, writeMsg.Authorization, writeMsg)
	if _, err := Write(context.Background(), owner, writeMsg, bytes.NewReader(payload), config.Default(), p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	staleDel := deleteMessage(w.RecordID, false, ts.Add(-time.Second))
	staleDel.Authorization = &types.Authorization{}
	sign(t, kr, staleDel.Authorization, staleDel)

	_, err := Delete(context.Background(), owner, staleDel, p)
	if !dwnerr.Is(err, dwnerr.Conflict) {
		t.Fatalf("got %v, want Conflict", err)
	}
}

func TestDeletePruneRemovesDescendantsAndData(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	rootPayload := []byte("root")
	rootDescriptor, rootWrite := newWriteDescriptor(t, owner, rootPayload, ts)
	rootWrite.Protocol = "https://example.com/protocol/thread"
	rootWrite.ProtocolPath = "thread"
	rootWrite.ContextID = rootWrite.RecordID
	rootMsg := buildMessage(rootDescriptor, rootWrite)
	rootMsg.Authorization = &types.Authorization{}
	sign(t, kr, rootMsg.Authorization, rootMsg)
	if _, err := Write(context.Background(), owner, rootMsg, bytes.NewReader(rootPayload), config.Default(), p); err != nil {
		t.Fatalf("root Write: %v", err)
	}

	childPayload := []byte("child payload well past the inline threshold is irrelevant here")
	childDescriptor, childWrite := newWriteDescriptor(t, owner, childPayload, ts.Add(time.Second))
	childWrite.Protocol = rootWrite.Protocol
	childWrite.ProtocolPath = "thread/message"
	childWrite.ParentID = rootWrite.RecordID
	childWrite.ContextID = rootWrite.ContextID + "/" + childWrite.RecordID
	childMsg := buildMessage(childDescriptor, childWrite)
	childMsg.Authorization = &types.Authorization{}
	sign(t, kr, childMsg.Authorization, childMsg)

	cfg := config.Default()
	cfg.InlineDataThreshold = 4
	if _, err := Write(context.Background(), owner, childMsg, bytes.NewReader(childPayload), cfg, p); err != nil {
		t.Fatalf("child Write: %v", err)
	}

	delMsg := deleteMessage(rootWrite.RecordID, true, ts.Add(2*time.Second))
	delMsg.Authorization = &types.Authorization{}
	sign(t, kr, delMsg.Authorization, delMsg)

	if _, err := Delete(context.Background(), owner, delMsg, p); err != nil {
		t.Fatalf("Delete with prune: %v", err)
	}

	cur, err := loadCurrent(context.Background(), owner, rootWrite.RecordID, p)
	if err != nil {
		t.Fatalf("loadCurrent root: %v", err)
	}
	if cur.initial == nil || !cur.initial.Archived {
		t.Fatalf("expected root's initial write to remain, archived")
	}
	if cur.latest == nil || cur.latest.Message.Descriptor.Method != types.MethodDelete {
		t.Fatalf("expected root's latest entry to be the delete marker")
	}

	childCur, err := loadCurrent(context.Background(), owner, childWrite.RecordID, p)
	if err != nil {
		t.Fatalf("loadCurrent child: %v", err)
	}
	if childCur.initial != nil || childCur.latest != nil {
		t.Fatalf("expected the child record to be fully purged")
	}

	stored, err := p.Data.Get(context.Background(), owner, childWrite.RecordID, cid.OfBytes(childPayload))
	if err != nil {
		t.Fatalf("Data.Get: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected the child's data block to be purged")
	}

	redelMsg := deleteMessage(rootWrite.RecordID, true, ts.Add(3*time.Second))
	redelMsg.Authorization = &types.Authorization{}
	sign(t, kr, redelMsg.Authorization, redelMsg)
	_, err = Delete(context.Background(), owner, redelMsg, p)
	if !dwnerr.Is(err, dwnerr.NotFound) {
		t.Fatalf("got %v, want NotFound re-pruning an already-pruned record", err)
	}
}
