package dwn

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
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
