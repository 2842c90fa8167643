package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/dwn/pkg/provider"
)

// KeyStore hands out a lazily-generated Keyring per controller DID,
// generating a new key pair the first time a controller is asked for
// and reusing it afterward.
type KeyStore struct {
	mu       sync.Mutex
	keyrings map[string]*Keyring
}

func NewKeyStore() *KeyStore {
	return &KeyStore{keyrings: make(map[string]*Keyring)}
}

func (s *KeyStore) Keyring(ctx context.Context, controller string) (provider.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kr, ok := s.keyrings[controller]; ok {
		return kr, nil
	}
	kr, err := NewKeyring(controller)
	if err != nil {
		return nil, fmt.Errorf("security: keystore: %w", err)
	}
	s.keyrings[controller] = kr
	return kr, nil
}

var _ provider.KeyStore = (*KeyStore)(nil)
