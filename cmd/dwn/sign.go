package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/golang-jwt/jwt/v4"
)

// jwsHeader is the detached-JWS protected header: algorithm plus the
// verification method identifying which of the signer's keys was used.
type jwsHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// signMessage builds msg.Authorization by signing msg's descriptor CID
// with kr, the way an owner's own client signs a message it submits to
// its own node.
func signMessage(ctx context.Context, kr provider.Keyring, msg *types.Message) error {
	msg.Authorization = &types.Authorization{}
	descriptorCID, err := auth.DescriptorCID(*msg)
	if err != nil {
		return fmt.Errorf("descriptor cid: %w", err)
	}
	claims := types.AuthorizationPayload{DescriptorCID: cid.String(descriptorCID)}
	payload, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}
	header := jwsHeader{Alg: string(kr.Algorithm()), Kid: kr.VerificationMethod()}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	protected := jwt.EncodeSegment(headerJSON)
	signingInput := protected + "." + jwt.EncodeSegment(payload)
	raw, err := kr.Sign(ctx, []byte(signingInput))
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	msg.Authorization.Signature = types.JWS{Protected: protected, Signature: jwt.EncodeSegment(raw)}
	return nil
}
