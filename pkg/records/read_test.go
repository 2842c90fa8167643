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

func readMessage(recordID string) types.Message {
	return types.Message{
		Descriptor:  types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodRead, MessageTimestamp: time.Now().UTC()},
		RecordsRead: &types.RecordsRead{Filter: types.RecordsFilter{RecordID: recordID}},
	}
}

func TestReadReturnsInlineData(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)

	payload := []byte("hello world")
	d, w := newWriteDescriptor(t, owner, payload, time.Now().UTC())
	writeMsg := buildMessage(d, w)
	writeMsg.Authorization = &types.Authorization{}
	sign(t, kr, writeMsg.Authorization, writeMsg)
	if _, err := Write(context.Background(), owner, writeMsg, bytes.NewReader(payload), config.Default(), p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	readMsg := readMessage(w.RecordID)
	readMsg.Authorization = &types.Authorization{}
	sign(t, kr, readMsg.Authorization, readMsg)

	result, err := Read(context.Background(), owner, readMsg, p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(result.Data, payload) {
		t.Fatalf("got data %q, want %q", result.Data, payload)
	}
	if result.Initial != nil {
		t.Fatalf("expected no separate initial write for an unmodified record")
	}
}

func TestReadStreamsOutOfLineData(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)

	cfg := config.Default()
	cfg.InlineDataThreshold = 4
	payload := []byte("this payload exceeds the inline threshold")
	d, w := newWriteDescriptor(t, owner, payload, time.Now().UTC())
	writeMsg := buildMessage(d, w)
	writeMsg.Authorization = &types.Authorization{}
	sign(t, kr, writeMsg.Authorization, writeMsg)
	if _, err := Write(context.Background(), owner, writeMsg, bytes.NewReader(payload), cfg, p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	readMsg := readMessage(w.RecordID)
	readMsg.Authorization = &types.Authorization{}
	sign(t, kr, readMsg.Authorization, readMsg)

	result, err := Read(context.Background(), owner, readMsg, p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(result.Data, payload) {
		t.Fatalf("got data %q, want %q", result.Data, payload)
	}
}

func TestReadAttachesInitialForUpdatedRecord(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	payloadV1 := []byte("v1")
	d, w := newWriteDescriptor(t, owner, payloadV1, ts)
	msg := buildMessage(d, w)
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	if _, err := Write(context.Background(), owner, msg, bytes.NewReader(payloadV1), config.Default(), p); err != nil {
		t.Fatalf("initial Write: %v", err)
	}

	payloadV2 := []byte("v2-longer-payload")
	updateV2 := *w
	updateV2.DataCID = cid.String(cid.OfBytes(payloadV2))
	updateV2.DataSize = int64(len(payloadV2))
	descriptorV2 := types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodWrite, MessageTimestamp: ts.Add(time.Second)}
	msgV2 := buildMessage(descriptorV2, &updateV2)
	msgV2.Authorization = &types.Authorization{}
	sign(t, kr, msgV2.Authorization, msgV2)
	if _, err := Write(context.Background(), owner, msgV2, bytes.NewReader(payloadV2), config.Default(), p); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	readMsg := readMessage(w.RecordID)
	readMsg.Authorization = &types.Authorization{}
	sign(t, kr, readMsg.Authorization, readMsg)

	result, err := Read(context.Background(), owner, readMsg, p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(result.Data, payloadV2) {
		t.Fatalf("got data %q, want %q", result.Data, payloadV2)
	}
	if result.Initial == nil || result.Initial.Message.RecordsWrite.DataCID != w.DataCID {
		t.Fatalf("expected the archived initial write to be attached")
	}
}

func TestReadReturnsNotFoundForDeletedRecord(t *testing.T) {
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
		t.Fatalf("Delete: %v", err)
	}

	readMsg := readMessage(w.RecordID)
	readMsg.Authorization = &types.Authorization{}
	sign(t, kr, readMsg.Authorization, readMsg)

	_, err := Read(context.Background(), owner, readMsg, p)
	if !dwnerr.Is(err, dwnerr.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
	initial := DeletedRecordInitial(err)
	if initial == nil || initial.Message.RecordsWrite.RecordID != w.RecordID {
		t.Fatalf("expected the initial write to be recoverable from the error")
	}
}

func TestReadRejectsUnknownRecord(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)

	readMsg := readMessage("no-such-record")
	readMsg.Authorization = &types.Authorization{}
	sign(t, kr, readMsg.Authorization, readMsg)

	_, err := Read(context.Background(), owner, readMsg, p)
	if !dwnerr.Is(err, dwnerr.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
}
