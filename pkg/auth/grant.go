package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// grantContext is what verifying a grant (or a chain of delegated
// grants) establishes: the scope it confers, narrowed by every
// delegation link walked to reach it.
type grantContext struct {
	scope types.Scope
}

// verifyGrantPath resolves and verifies the grant named by grantID
// against owner and author, per spec.md step 4.
func verifyGrantPath(ctx context.Context, owner, author, grantID string, msg types.Message, p provider.Provider) (*grantContext, error) {
	entry, err := fetchGrantEntry(ctx, owner, grantID, p)
	if err != nil {
		return nil, err
	}
	write := entry.Message.RecordsWrite
	if write == nil {
		return nil, dwnerr.Unauthorizedf("auth: grant %s is not a RecordsWrite", grantID)
	}
	grant, err := decodeGrantData(write)
	if err != nil {
		return nil, dwnerr.Unauthorizedf("auth: grant %s: %v", grantID, err)
	}
	if entry.Author != owner {
		return nil, dwnerr.Unauthorizedf("auth: grant %s was not issued by this node's owner", grantID)
	}
	if write.Recipient != author {
		return nil, dwnerr.Unauthorizedf("auth: grant %s was not issued to %s", grantID, author)
	}
	if err := verifyGrantWindowAndRevocation(ctx, owner, grantID, write, grant, p); err != nil {
		return nil, err
	}
	if err := scopeMatchesMessage(grant.Scope, msg); err != nil {
		return nil, err
	}
	if err := limitedToMatchesMessage(grant.Scope.LimitedTo, msg); err != nil {
		return nil, err
	}
	return &grantContext{scope: grant.Scope}, nil
}

// verifyDelegatedGrantPath verifies the embedded delegated grant and
// confirms signerDID (the author of the outer message, established by
// step 1) is its grantee, per spec.md step 5.
func verifyDelegatedGrantPath(ctx context.Context, owner, signerDID, delegatedGrantID string, write *types.Write, msg types.Message, p provider.Provider) (*grantContext, error) {
	if write == nil {
		return nil, dwnerr.Unauthorizedf("auth: delegated_grant_id set but author_delegated_grant is missing")
	}
	if write.RecordID != delegatedGrantID {
		return nil, dwnerr.Unauthorizedf("auth: author_delegated_grant record_id does not match delegated_grant_id")
	}
	grant, err := decodeGrantData(write)
	if err != nil {
		return nil, dwnerr.Unauthorizedf("auth: delegated grant %s: %v", delegatedGrantID, err)
	}
	if !grant.Delegated {
		return nil, dwnerr.Unauthorizedf("auth: grant %s does not permit delegation", delegatedGrantID)
	}
	if write.Recipient != signerDID {
		return nil, dwnerr.Unauthorizedf("auth: delegated grant %s was not issued to %s", delegatedGrantID, signerDID)
	}
	if err := verifyGrantWindowAndRevocation(ctx, owner, delegatedGrantID, write, grant, p); err != nil {
		return nil, err
	}
	if err := scopeMatchesMessage(grant.Scope, msg); err != nil {
		return nil, err
	}
	if err := limitedToMatchesMessage(grant.Scope.LimitedTo, msg); err != nil {
		return nil, err
	}
	return &grantContext{scope: grant.Scope}, nil
}

func fetchGrantEntry(ctx context.Context, owner, grantID string, p provider.Provider) (*types.Entry, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{RecordID: grantID}, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Unauthorizedf("auth: fetch grant %s: %v", grantID, err)
	}
	for i := range entries {
		if entries[i].Message.Descriptor.Method == types.MethodWrite {
			return &entries[i], nil
		}
	}
	return nil, dwnerr.Unauthorizedf("auth: grant %s not found", grantID)
}

func decodeGrantData(write *types.Write) (*types.GrantData, error) {
	if write.EncodedData == "" {
		return nil, fmt.Errorf("grant record has no inline data")
	}
	raw, err := base64.RawURLEncoding.DecodeString(write.EncodedData)
	if err != nil {
		return nil, fmt.Errorf("decode encoded_data: %w", err)
	}
	var grant types.GrantData
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, fmt.Errorf("decode grant data: %w", err)
	}
	return &grant, nil
}

func verifyGrantWindowAndRevocation(ctx context.Context, owner, grantID string, write *types.Write, grant *types.GrantData, p provider.Provider) error {
	now := time.Now().UTC()
	if now.Before(write.DateCreated) || now.After(grant.DateExpires) {
		return dwnerr.Unauthorizedf("auth: grant %s is outside its validity window", grantID)
	}
	revoked, err := grantIsRevoked(ctx, owner, grantID, p)
	if err != nil {
		return err
	}
	if revoked {
		return dwnerr.Unauthorizedf("auth: grant %s has been revoked", grantID)
	}
	return nil
}

// grantIsRevoked looks for a RecordsWrite tagged grantId=grantID: the
// revocation record convention this node uses, reusing the generic
// tag index rather than inventing a dedicated one.
func grantIsRevoked(ctx context.Context, owner, grantID string, p provider.Provider) (bool, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{Tag: map[string]string{"grantId": grantID}}, types.SortField{}, types.Pagination{})
	if err != nil {
		return false, dwnerr.Unauthorizedf("auth: check revocation for %s: %v", grantID, err)
	}
	return len(entries) > 0, nil
}

func scopeMatchesMessage(scope types.Scope, msg types.Message) error {
	if string(scope.Interface) != string(msg.Descriptor.Interface) {
		return dwnerr.Forbiddenf("auth: grant scope interface %s does not match %s", scope.Interface, msg.Descriptor.Interface)
	}
	if scope.Method != "" && scope.Method != msg.Descriptor.Method {
		return dwnerr.Forbiddenf("auth: grant scope method %s does not match %s", scope.Method, msg.Descriptor.Method)
	}
	if scope.Protocol != "" && scope.Protocol != messageProtocol(msg) {
		return dwnerr.Forbiddenf("auth: grant scope protocol %s does not match message", scope.Protocol)
	}
	return nil
}

func limitedToMatchesMessage(limit *types.ScopeLimit, msg types.Message) error {
	if limit == nil {
		return nil
	}
	contextID, protocolPath := messageContext(msg)
	if limit.ContextID != "" && !hasContextPrefix(contextID, limit.ContextID) {
		return dwnerr.Forbiddenf("auth: grant is limited to context %s", limit.ContextID)
	}
	if limit.ProtocolPath != "" && limit.ProtocolPath != protocolPath {
		return dwnerr.Forbiddenf("auth: grant is limited to protocol path %s", limit.ProtocolPath)
	}
	return nil
}

func hasContextPrefix(contextID, prefix string) bool {
	return contextID == prefix || (len(contextID) > len(prefix) && contextID[:len(prefix)+1] == prefix+"/")
}

// messageProtocol extracts the protocol URI a message concerns, when it
// has one.
func messageProtocol(msg types.Message) string {
	switch {
	case msg.RecordsWrite != nil:
		return msg.RecordsWrite.Protocol
	case msg.RecordsQuery != nil:
		return msg.RecordsQuery.Filter.Protocol
	case msg.RecordsRead != nil:
		return msg.RecordsRead.Filter.Protocol
	case msg.RecordsSubscribe != nil:
		return msg.RecordsSubscribe.Filter.Protocol
	case msg.ProtocolsConfigure != nil:
		return msg.ProtocolsConfigure.Definition.ProtocolURI
	case msg.ProtocolsQuery != nil:
		return msg.ProtocolsQuery.Filter.Protocol
	case msg.MessagesQuery != nil:
		return msg.MessagesQuery.Filter.Protocol
	case msg.MessagesSubscribe != nil:
		return msg.MessagesSubscribe.Filter.Protocol
	default:
		return ""
	}
}

// messageContext extracts the context_id and protocol_path a message
// concerns, for limited_to matching.
func messageContext(msg types.Message) (contextID, protocolPath string) {
	switch {
	case msg.RecordsWrite != nil:
		return msg.RecordsWrite.ContextID, msg.RecordsWrite.ProtocolPath
	case msg.RecordsQuery != nil:
		return msg.RecordsQuery.Filter.ContextID, msg.RecordsQuery.Filter.ProtocolPath
	case msg.RecordsRead != nil:
		return msg.RecordsRead.Filter.ContextID, msg.RecordsRead.Filter.ProtocolPath
	case msg.RecordsSubscribe != nil:
		return msg.RecordsSubscribe.Filter.ContextID, msg.RecordsSubscribe.Filter.ProtocolPath
	default:
		return "", ""
	}
}
