package security

import (
	"context"
	"crypto/ed25519"
	"testing"
)

func TestKeyringSignVerify(t *testing.T) {
	kr, err := NewKeyring("did:example:alice")
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	data := []byte("descriptor bytes")
	sig, err := kr.Sign(context.Background(), data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !ed25519.Verify(kr.PublicKey(), data, sig) {
		t.Fatalf("signature did not verify against the keyring's public key")
	}
	if kr.Algorithm() != "EdDSA" {
		t.Fatalf("got algorithm %q, want EdDSA", kr.Algorithm())
	}
	if kr.VerificationMethod() != "did:example:alice#key-1" {
		t.Fatalf("got verification method %q", kr.VerificationMethod())
	}
}

func TestKeyringECDHRoundTrip(t *testing.T) {
	alice, err := NewKeyring("did:example:alice")
	if err != nil {
		t.Fatalf("NewKeyring alice: %v", err)
	}
	bob, err := NewKeyring("did:example:bob")
	if err != nil {
		t.Fatalf("NewKeyring bob: %v", err)
	}

	plaintext := []byte("a message for bob")
	ciphertext, ephemeral, err := alice.ECDHEncrypt(context.Background(), bob.AgreementPublicKey(), plaintext)
	if err != nil {
		t.Fatalf("ECDHEncrypt: %v", err)
	}

	got, err := bob.ECDHDecrypt(context.Background(), ephemeral, ciphertext)
	if err != nil {
		t.Fatalf("ECDHDecrypt: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestKeyringECDHWrongRecipientFails(t *testing.T) {
	alice, _ := NewKeyring("did:example:alice")
	bob, _ := NewKeyring("did:example:bob")
	eve, _ := NewKeyring("did:example:eve")

	ciphertext, ephemeral, err := alice.ECDHEncrypt(context.Background(), bob.AgreementPublicKey(), []byte("secret"))
	if err != nil {
		t.Fatalf("ECDHEncrypt: %v", err)
	}
	if _, err := eve.ECDHDecrypt(context.Background(), ephemeral, ciphertext); err == nil {
		t.Fatalf("expected decrypt by a non-recipient keyring to fail")
	}
}
