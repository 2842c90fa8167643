package auth

import (
	"context"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/protocol"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// Kernel runs every non-owner message through the seven-step
// authorization pipeline before a records, protocols or messages
// handler sees it. A Kernel is safe to reuse across requests; its only
// mutable state is the lazily-filled schema cache.
type Kernel struct {
	schemas *schemaCache
}

// NewKernel builds a Kernel with an empty schema cache.
func NewKernel() *Kernel {
	return &Kernel{schemas: newSchemaCache()}
}

// Authorize runs msg through the pipeline for the node identified by
// owner and returns the message's resolved author DID. A message whose
// resolved author is owner (directly, or via a verified owner
// co-signature) skips steps 4-7: the owner is implicitly authorized
// for every interface on their own node.
func (k *Kernel) Authorize(ctx context.Context, owner string, msg types.Message, p provider.Provider) (string, error) {
	authz := msg.Authorization
	if authz == nil {
		return "", dwnerr.Unauthorizedf("auth: message carries no authorization")
	}

	descriptorCID, err := DescriptorCID(msg)
	if err != nil {
		return "", dwnerr.Unexpectedf("auth: compute descriptor cid: %v", err)
	}
	payload, err := signingPayload(authz, cid.String(descriptorCID))
	if err != nil {
		return "", dwnerr.Unexpectedf("auth: build signing payload: %v", err)
	}

	// Step 1: JWS verify. The descriptor CID folded into payload above
	// is recomputed from msg as it stands now, so a successful verify
	// also discharges step 3.
	author, err := verifyJWS(ctx, authz.Signature, payload, p.DIDs)
	if err != nil {
		return "", err
	}

	ownerAuthorized := author == owner
	if authz.OwnerSignature != nil {
		ownerSigner, err := verifyJWS(ctx, *authz.OwnerSignature, payload, p.DIDs)
		if err != nil {
			return "", err
		}
		if ownerSigner != owner {
			return "", dwnerr.Unauthorizedf("auth: owner_signature is not signed by %s", owner)
		}
		ownerAuthorized = true
	}

	// Step 2: schema validate.
	if err := k.schemas.validate(msg); err != nil {
		return "", err
	}

	if ownerAuthorized {
		return author, nil
	}

	havePermissionBasis := false

	// Step 4: grant path.
	if authz.PermissionGrantID != "" {
		if _, err := verifyGrantPath(ctx, owner, author, authz.PermissionGrantID, msg, p); err != nil {
			return "", err
		}
		havePermissionBasis = true
	}

	// Step 5: delegated-grant path.
	if authz.DelegatedGrantID != "" {
		if _, err := verifyDelegatedGrantPath(ctx, owner, author, authz.DelegatedGrantID, authz.AuthorDelegatedGrant, msg, p); err != nil {
			return "", err
		}
		havePermissionBasis = true
	}

	// Step 6: protocol role path.
	if authz.ProtocolRole != "" {
		if err := verifyProtocolRolePath(ctx, owner, author, authz.ProtocolRole, msg, p); err != nil {
			return "", err
		}
		havePermissionBasis = true
	}

	// Step 7: rule evaluation. Only protocol-governed records carry a
	// RuleSet to evaluate against; a flat-space request (or a
	// Messages/Protocols request with no protocol in scope) has no
	// rule engine to consult, so it stands or falls on whether steps
	// 4-6 already established a permission basis. A RecordsDelete
	// carries no protocol field of its own (its wire shape is just
	// record_id/prune), so its governing protocol, if any, is read off
	// the record's initial write instead.
	protocolURI := messageProtocol(msg)
	if protocolURI == "" && msg.RecordsDelete != nil {
		initial, err := findRecordWrite(ctx, owner, msg.RecordsDelete.RecordID, p)
		if err != nil {
			return "", err
		}
		if initial != nil {
			protocolURI = initial.Message.RecordsWrite.Protocol
		}
	}
	if protocolURI == "" {
		if !havePermissionBasis {
			return "", dwnerr.Forbiddenf("auth: %s has no grant, delegation or role authorizing this request", author)
		}
		return author, nil
	}

	chain, err := buildProtocolChain(ctx, owner, protocolURI, msg, p)
	if err != nil {
		return "", err
	}
	allowed, reason := protocol.Evaluate(chain, msg, author)
	if !allowed {
		return "", dwnerr.Forbiddenf("auth: %s", reason)
	}
	return author, nil
}
