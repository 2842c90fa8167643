package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/dwn/pkg/provider"
)

// DidResolver is a registry-based provider.DidResolver: documents are
// registered explicitly rather than resolved from a network method.
// Production DID resolution is an external collaborator (§6); this is
// the resolver a local node and its tests register owner/author
// documents against directly.
type DidResolver struct {
	mu   sync.RWMutex
	docs map[string]*provider.DidDocument
}

func NewDidResolver() *DidResolver {
	return &DidResolver{docs: make(map[string]*provider.DidDocument)}
}

// Register stores doc so a later Resolve(doc.ID) succeeds.
func (r *DidResolver) Register(doc *provider.DidDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
}

// RegisterKeyring is a convenience for the common case: build a
// DidDocument from a Keyring's own verification method and public key.
func (r *DidResolver) RegisterKeyring(did string, kr *Keyring) {
	r.Register(&provider.DidDocument{
		ID: did,
		VerificationMethods: []provider.VerificationMethod{{
			ID:        kr.VerificationMethod(),
			Type:      string(kr.Algorithm()),
			PublicKey: kr.PublicKey(),
		}},
	})
}

func (r *DidResolver) Resolve(ctx context.Context, didURL string) (*provider.DidDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[didURL]
	if !ok {
		return nil, fmt.Errorf("security: did %s not registered", didURL)
	}
	return doc, nil
}

var _ provider.DidResolver = (*DidResolver)(nil)
