package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/provider/memory"
	"github.com/cuemby/dwn/pkg/security"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

func base64RawURL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func testServer(t *testing.T) (*Server, *security.DidResolver) {
	t.Helper()
	p := memory.New()
	resolver := security.NewDidResolver()
	var pp provider.Provider = *p
	pp.DIDs = resolver
	return NewServer(config.Default(), pp), resolver
}

func signMessage(t *testing.T, kr *security.Keyring, msg *types.Message) {
	t.Helper()
	msg.Authorization = &types.Authorization{}
	descriptorCID, err := auth.DescriptorCID(*msg)
	if err != nil {
		t.Fatalf("descriptor cid: %v", err)
	}
	claims := types.AuthorizationPayload{DescriptorCID: cid.String(descriptorCID)}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	header := struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}{Alg: string(kr.Algorithm()), Kid: kr.VerificationMethod()}
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
	msg.Authorization.Signature = types.JWS{Protected: protected, Signature: jwt.EncodeSegment(raw)}
}

func TestServeHTTPWritesAndReturnsAccepted(t *testing.T) {
	srv, resolver := testServer(t)
	owner := "did:example:owner"
	kr, err := security.NewKeyring(owner)
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	resolver.RegisterKeyring(owner, kr)

	payload := []byte("hello world")
	dataCID := cid.OfBytes(payload)
	ts := time.Now().UTC()
	descriptor := types.Descriptor{Interface: types.InterfaceRecords, Method: types.MethodWrite, MessageTimestamp: ts}
	recordID, err := cid.EntryID(descriptor, owner)
	if err != nil {
		t.Fatalf("entry id: %v", err)
	}
	write := &types.Write{
		RecordID:   cid.String(recordID),
		DataCID:    cid.String(dataCID),
		DataSize:   int64(len(payload)),
		DataFormat: "text/plain",
		DateCreated: ts,
	}
	msg := types.Message{Descriptor: descriptor, RecordsWrite: write}
	signMessage(t, kr, &msg)

	body, err := json.Marshal(envelope{
		Owner:   owner,
		Message: msg,
		Data:    base64RawURL(payload),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/dwn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != 202 {
		t.Fatalf("got status %d, want 202, body=%s", rec.Code, rec.Body.String())
	}

	var reply types.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.Status.Code != 202 {
		t.Fatalf("got reply status %d, want 202", reply.Status.Code)
	}
}

func TestServeHTTPRejectsUnknownRoute(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestServeHTTPRejectsMalformedBody(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/dwn", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}
