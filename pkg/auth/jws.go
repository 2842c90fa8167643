package auth

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

// jwsHeader is the protected header of a compact detached JWS: just
// enough to pick a signing method and a candidate verification key.
type jwsHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// verifyJWS reconstructs the detached payload from payload, checks sig
// against it using the verification method named by sig's protected
// header, and returns the DID that header claims as signer. The kid is
// only a hint for which key to try; what makes the result trustworthy
// is that Verify succeeds against the resolved document's key material.
func verifyJWS(ctx context.Context, sig types.JWS, payload []byte, resolver provider.DidResolver) (signerDID string, err error) {
	headerJSON, err := jwt.DecodeSegment(sig.Protected)
	if err != nil {
		return "", dwnerr.Unauthorizedf("auth: decode jws header: %v", err)
	}
	var header jwsHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", dwnerr.Unauthorizedf("auth: parse jws header: %v", err)
	}
	if header.Kid == "" {
		return "", dwnerr.Unauthorizedf("auth: jws header missing kid")
	}
	did, _, ok := strings.Cut(header.Kid, "#")
	if !ok {
		return "", dwnerr.Unauthorizedf("auth: jws kid %q is not a DID URL", header.Kid)
	}

	doc, err := resolver.Resolve(ctx, did)
	if err != nil {
		return "", dwnerr.Unauthorizedf("auth: resolve %s: %v", did, err)
	}
	vm := findVerificationMethod(doc, header.Kid)
	if vm == nil {
		return "", dwnerr.Unauthorizedf("auth: %s has no verification method %s", did, header.Kid)
	}

	method, key, err := signingMethodFor(header.Alg, vm)
	if err != nil {
		return "", dwnerr.Unauthorizedf("auth: %v", err)
	}

	payloadB64 := jwt.EncodeSegment(payload)
	signingInput := sig.Protected + "." + payloadB64
	if err := method.Verify(signingInput, sig.Signature, key); err != nil {
		return "", dwnerr.Unauthorizedf("auth: signature verification failed for %s: %v", did, err)
	}
	return did, nil
}

func findVerificationMethod(doc *provider.DidDocument, kid string) *provider.VerificationMethod {
	for i := range doc.VerificationMethods {
		if doc.VerificationMethods[i].ID == kid {
			return &doc.VerificationMethods[i]
		}
	}
	return nil
}

func signingMethodFor(alg string, vm *provider.VerificationMethod) (jwt.SigningMethod, interface{}, error) {
	switch alg {
	case "EdDSA":
		if len(vm.PublicKey) != ed25519.PublicKeySize {
			return nil, nil, fmt.Errorf("verification method %s is not an EdDSA key", vm.ID)
		}
		return jwt.SigningMethodEdDSA, ed25519.PublicKey(vm.PublicKey), nil
	default:
		return nil, nil, fmt.Errorf("unsupported jws algorithm %q", alg)
	}
}

// signingPayload builds the canonical JSON bytes a JWS in authz must
// sign over: the claims it makes, plus the descriptor CID recomputed
// from msg's current descriptor. Recomputing rather than trusting a
// transmitted value is what makes step 3 (descriptor CID match) fall
// out of step 1 (signature verify) instead of needing its own check.
func signingPayload(authz *types.Authorization, descriptorCID string) ([]byte, error) {
	payload := types.AuthorizationPayload{
		DescriptorCID:     descriptorCID,
		PermissionGrantID: authz.PermissionGrantID,
		ProtocolRole:      authz.ProtocolRole,
		DelegatedGrantID:  authz.DelegatedGrantID,
		AttestationCID:    authz.AttestationCID,
	}
	return json.Marshal(payload)
}
