package protocols

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/provider/memory"
	"github.com/cuemby/dwn/pkg/security"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

// testNode wires a memory.Provider with a DidResolver, the minimum a
// Protocols message needs to run through the authorization kernel.
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

// sign builds a real detached-JWS authorization for msg, owned by kr.
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

// configureMessage builds a ProtocolsConfigure message for def, timestamped
// ts and signed by kr as author.
func configureMessage(t *testing.T, kr *security.Keyring, def types.ProtocolDefinition, ts time.Time) types.Message {
	t.Helper()
	msg := types.Message{
		Descriptor: types.Descriptor{
			Interface:        types.InterfaceProtocols,
			Method:           types.MethodConfigure,
			MessageTimestamp: ts,
		},
		ProtocolsConfigure: &types.ProtocolConfigure{Definition: def},
	}
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	return msg
}

// queryMessage builds a ProtocolsQuery message for protocolURI (empty
// matches every installed definition).
func queryMessage(t *testing.T, kr *security.Keyring, protocolURI string, ts time.Time) types.Message {
	t.Helper()
	msg := types.Message{
		Descriptor: types.Descriptor{
			Interface:        types.InterfaceProtocols,
			Method:           types.MethodQuery,
			MessageTimestamp: ts,
		},
		ProtocolsQuery: &types.ProtocolsQuery{Filter: types.ProtocolsFilter{Protocol: protocolURI}},
	}
	msg.Authorization = &types.Authorization{}
	sign(t, kr, msg.Authorization, msg)
	return msg
}

// simpleDefinition returns a minimal, valid protocol definition whose
// single "thread" type lets anyone create, query and read it.
func simpleDefinition(protocolURI string, published bool) types.ProtocolDefinition {
	return types.ProtocolDefinition{
		ProtocolURI: protocolURI,
		Published:   published,
		Types: map[string]types.TypeDef{
			"thread": {DataFormats: []string{"application/json"}},
		},
		Structure: map[string]types.RuleSet{
			"thread": {
				Actions: []types.ActionRule{
					{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate, types.ActionQuery, types.ActionRead}},
				},
			},
		},
	}
}
