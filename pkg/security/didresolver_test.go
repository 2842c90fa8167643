package security

import (
	"context"
	"testing"

	"github.com/cuemby/dwn/pkg/provider"
)

func TestDidResolverRegisterResolve(t *testing.T) {
	r := NewDidResolver()
	doc := &provider.DidDocument{ID: "did:example:alice"}
	r.Register(doc)

	got, err := r.Resolve(context.Background(), "did:example:alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != doc {
		t.Fatalf("expected the registered document back")
	}
}

func TestDidResolverResolveUnregisteredFails(t *testing.T) {
	r := NewDidResolver()
	if _, err := r.Resolve(context.Background(), "did:example:ghost"); err == nil {
		t.Fatalf("expected an error for an unregistered did")
	}
}

func TestDidResolverRegisterKeyring(t *testing.T) {
	r := NewDidResolver()
	kr, err := NewKeyring("did:example:alice")
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	r.RegisterKeyring("did:example:alice", kr)

	doc, err := r.Resolve(context.Background(), "did:example:alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(doc.VerificationMethods) != 1 {
		t.Fatalf("expected one verification method, got %d", len(doc.VerificationMethods))
	}
	if doc.VerificationMethods[0].ID != kr.VerificationMethod() {
		t.Fatalf("got verification method id %q", doc.VerificationMethods[0].ID)
	}
}
