package security

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/cuemby/dwn/pkg/provider"
)

// Keyring is an Ed25519-signing, X25519-ECDH key pair for a single
// controller DID.
type Keyring struct {
	controller string
	signing    ed25519.PrivateKey
	agreement  *ecdh.PrivateKey
}

// NewKeyring generates a fresh signing and agreement key pair for
// controller.
func NewKeyring(controller string) (*Keyring, error) {
	_, signing, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("security: generate signing key: %w", err)
	}
	agreement, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("security: generate agreement key: %w", err)
	}
	return &Keyring{controller: controller, signing: signing, agreement: agreement}, nil
}

func (k *Keyring) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return ed25519.Sign(k.signing, data), nil
}

func (k *Keyring) PublicKey() []byte {
	return append([]byte(nil), k.signing.Public().(ed25519.PublicKey)...)
}

func (k *Keyring) Algorithm() provider.Algorithm { return provider.AlgorithmEdDSA }

func (k *Keyring) VerificationMethod() string {
	return k.controller + "#key-1"
}

// ECDHEncrypt generates an ephemeral X25519 key pair, derives a shared
// secret with peerPublicKey, and seals plaintext under it with
// AES-256-GCM.
func (k *Keyring) ECDHEncrypt(ctx context.Context, peerPublicKey, plaintext []byte) ([]byte, []byte, error) {
	peer, err := ecdh.X25519().NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("security: invalid peer public key: %w", err)
	}
	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("security: generate ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("security: ecdh: %w", err)
	}
	c, err := NewCipher(deriveSymmetricKey(shared))
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, ephemeral.PublicKey().Bytes(), nil
}

// ECDHDecrypt derives the shared secret between this keyring's
// agreement key and the sender's ephemeral public key, then opens
// ciphertext.
func (k *Keyring) ECDHDecrypt(ctx context.Context, ephemeralPublicKey, ciphertext []byte) ([]byte, error) {
	ephemeral, err := ecdh.X25519().NewPublicKey(ephemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("security: invalid ephemeral public key: %w", err)
	}
	shared, err := k.agreement.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("security: ecdh: %w", err)
	}
	c, err := NewCipher(deriveSymmetricKey(shared))
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ciphertext)
}

// AgreementPublicKey exposes this keyring's X25519 public key, the
// value a peer needs as ECDHEncrypt's peerPublicKey argument.
func (k *Keyring) AgreementPublicKey() []byte {
	return k.agreement.PublicKey().Bytes()
}

// deriveSymmetricKey turns a raw X25519 shared secret into a 32-byte
// AES-256 key via SHA-256, the same construction NewCipherFromPassphrase
// uses to turn a passphrase into a key.
func deriveSymmetricKey(shared []byte) []byte {
	sum := sha256.Sum256(shared)
	return sum[:]
}

var _ provider.Keyring = (*Keyring)(nil)
