package messages

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/provider/memory"
	"github.com/cuemby/dwn/pkg/security"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

func testNode(t *testing.T) (provider.Provider, *security.DidResolver) {
	t.Helper()
	p := memory.New()
	resolver := security.NewDidResolver()
	var pp provider.Provider = *p
	pp.DIDs = resolver
	return pp, resolver
}

func newActor(t *testing.T, resolver *security.DidResolver, did string) *security.Keyring {
	t.Helper()
	kr, err := security.NewKeyring(did)
	if err != nil {
		t.Fatalf("new keyring for %s: %v", did, err)
	}
	resolver.RegisterKeyring(did, kr)
	return kr
}

type jwsHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

func sign(t *testing.T, kr *security.Keyring, authz *types.Authorization, msg types.Message) {
	t.Helper()
	descriptorCID, err := auth.DescriptorCID(msg)
	if err != nil {
		t.Fatalf("descriptor cid: %v", err)
	}
	claims := types.AuthorizationPayload{
		DescriptorCID:     cid.String(descriptorCID),
		PermissionGrantID: authz.PermissionGrantID,
		ProtocolRole:      authz.ProtocolRole,
		DelegatedGrantID:  authz.DelegatedGrantID,
		AttestationCID:    authz.AttestationCID,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	header := jwsHeader{Alg: string(kr.Algorithm()), Kid: kr.VerificationMethod()}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	protected := jwt.EncodeSegment(headerJSON)
	signingInput := protected + "." + jwt.EncodeSegment(payload)
	raw, err := kr.Sign(context.Background(), []byte(signingInput))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	authz.Signature = types.JWS{Protected: protected, Signature: jwt.EncodeSegment(raw)}
}

// putWrite stores a RecordsWrite entry directly into both the message
// store and the event log, as pkg/records.Write would after persisting,
// so messages tests can exercise the log without routing every fixture
// through the full write pipeline.
func putWrite(t *testing.T, p provider.Provider, owner, author, messageCID, recordID string, w *types.Write, ts time.Time) types.Entry {
	t.Helper()
	entry := types.Entry{
		MessageCID: messageCID,
		Author:     author,
		Message: types.Message{
			Descriptor:   types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodWrite, MessageTimestamp: ts},
			RecordsWrite: w,
		},
		Indexes: map[string]string{
			"record_id":    recordID,
			"author":       author,
			"date_created": index.PadTime(ts),
		},
	}
	if err := p.Messages.Put(context.Background(), owner, entry); err != nil {
		t.Fatalf("put message: %v", err)
	}
	if err := p.Events.Append(context.Background(), owner, entry); err != nil {
		t.Fatalf("append event: %v", err)
	}
	p.Stream.Emit(context.Background(), owner, entry)
	return entry
}

func queryMessage(t *testing.T, kr *security.Keyring, filter types.MessagesFilter, ts time.Time) types.Message {
	t.Helper()
	msg := types.Message{
		Descriptor:    types.Descriptor{Interface: types.InterfaceMessages, Method: types.MethodQuery, MessageTimestamp: ts},
		MessagesQuery: &types.MessagesQuery{Filter: filter},
	}
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	return msg
}

func readMessage(t *testing.T, kr *security.Keyring, messageCID string, ts time.Time) types.Message {
	t.Helper()
	msg := types.Message{
		Descriptor:   types.Descriptor{Interface: types.InterfaceMessages, Method: types.MethodRead, MessageTimestamp: ts},
		MessagesRead: &types.MessagesRead{MessageCID: messageCID},
	}
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	return msg
}

func subscribeMessage(t *testing.T, kr *security.Keyring, filter types.MessagesFilter, ts time.Time) types.Message {
	t.Helper()
	msg := types.Message{
		Descriptor:        types.Descriptor{Interface: types.InterfaceMessages, Method: types.MethodSubscribe, MessageTimestamp: ts},
		MessagesSubscribe: &types.MessagesSubscribe{Filter: filter},
	}
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	return msg
}
