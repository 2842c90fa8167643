package protocols

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/types"
)

func TestQueryOwnerSeesPublishedAndUnpublished(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	published := simpleDefinition("https://example.com/protocol/thread", true)
	unpublished := simpleDefinition("https://example.com/protocol/draft", false)
	if _, err := Configure(context.Background(), owner, configureMessage(t, kr, published, ts), p); err != nil {
		t.Fatalf("configure published: %v", err)
	}
	if _, err := Configure(context.Background(), owner, configureMessage(t, kr, unpublished, ts.Add(time.Second)), p); err != nil {
		t.Fatalf("configure unpublished: %v", err)
	}

	entries, err := Query(context.Background(), owner, queryMessage(t, kr, "", ts.Add(2*time.Second)), p)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestQueryFiltersByProtocol(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)
	ts := time.Now().UTC()

	thread := simpleDefinition("https://example.com/protocol/thread", true)
	draft := simpleDefinition("https://example.com/protocol/draft", true)
	if _, err := Configure(context.Background(), owner, configureMessage(t, kr, thread, ts), p); err != nil {
		t.Fatalf("configure thread: %v", err)
	}
	if _, err := Configure(context.Background(), owner, configureMessage(t, kr, draft, ts.Add(time.Second)), p); err != nil {
		t.Fatalf("configure draft: %v", err)
	}

	entries, err := Query(context.Background(), owner, queryMessage(t, kr, "https://example.com/protocol/draft", ts.Add(2*time.Second)), p)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Message.ProtocolsConfigure.Definition.ProtocolURI != "https://example.com/protocol/draft" {
		t.Fatalf("expected exactly the draft definition, got %d entries", len(entries))
	}
}

func TestQueryNonOwnerSeesOnlyPublished(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	alice := "did:example:alice"
	ownerKR := newActor(t, resolver, owner)
	aliceKR := newActor(t, resolver, alice)
	ts := time.Now().UTC()

	published := simpleDefinition("https://example.com/protocol/thread", true)
	unpublished := simpleDefinition("https://example.com/protocol/draft", false)
	if _, err := Configure(context.Background(), owner, configureMessage(t, ownerKR, published, ts), p); err != nil {
		t.Fatalf("configure published: %v", err)
	}
	if _, err := Configure(context.Background(), owner, configureMessage(t, ownerKR, unpublished, ts.Add(time.Second)), p); err != nil {
		t.Fatalf("configure unpublished: %v", err)
	}

	grant := types.GrantData{
		Scope:       types.Scope{Interface: types.ScopeProtocols, Method: types.MethodQuery},
		DateExpires: ts.Add(time.Hour),
	}
	grantBytes, err := json.Marshal(grant)
	if err != nil {
		t.Fatalf("marshal grant: %v", err)
	}
	grantID := "grant-protocols-query"
	grantWrite := &types.Write{
		RecordID:    grantID,
		Recipient:   alice,
		DataCID:     "bafy-grant",
		DataSize:    int64(len(grantBytes)),
		DataFormat:  "application/json",
		EncodedData: base64.RawURLEncoding.EncodeToString(grantBytes),
		DateCreated: ts.Add(-time.Minute),
	}
	grantEntry := types.Entry{
		MessageCID: "grant-message-protocols-query",
		Author:     owner,
		Message: types.Message{
			Descriptor:   types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodWrite},
			RecordsWrite: grantWrite,
		},
		Indexes: map[string]string{"record_id": grantID},
	}
	if err := p.Messages.Put(context.Background(), owner, grantEntry); err != nil {
		t.Fatalf("put grant: %v", err)
	}

	msg := queryMessage(t, aliceKR, "", ts.Add(2*time.Second))
	msg.Authorization.PermissionGrantID = grantID
	sign(t, aliceKR, msg.Authorization, msg)

	entries, err := Query(context.Background(), owner, msg, p)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Message.ProtocolsConfigure.Definition.ProtocolURI != "https://example.com/protocol/thread" {
		t.Fatalf("expected only the published definition visible to a non-owner, got %d entries", len(entries))
	}
}

func TestQueryRejectsNonQueryMessage(t *testing.T) {
	p, resolver := testNode(t)
	owner := "did:example:owner"
	kr := newActor(t, resolver, owner)

	msg := configureMessage(t, kr, simpleDefinition("https://example.com/protocol/thread", true), time.Now().UTC())
	_, err := Query(context.Background(), owner, msg, p)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest", err)
	}
}
