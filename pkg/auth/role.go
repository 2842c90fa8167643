package auth

import (
	"context"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// verifyProtocolRolePath locates a live role record at protocolRole
// whose recipient is author and, for a context role, whose context_id
// prefixes the target message's context_id. Per spec.md step 6,
// missing is Forbidden rather than Unauthorized: the signature was
// fine, the actor just doesn't hold the role it claims.
func verifyProtocolRolePath(ctx context.Context, owner, author, protocolRole string, msg types.Message, p provider.Provider) error {
	targetContext, _ := messageContext(msg)

	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{
		ProtocolPath: protocolRole,
		Recipient:    author,
	}, types.SortField{}, types.Pagination{})
	if err != nil {
		return dwnerr.Forbiddenf("auth: locate role %s: %v", protocolRole, err)
	}
	for _, e := range entries {
		// e.Archived marks the retained initial write of a record that
		// has since been updated or deleted (I4); the record's current
		// state is always its one non-archived entry. A deleted role
		// record's delete marker carries the same protocol_path/recipient
		// indexes as the archived initial write it retired (see
		// records.persistDelete), so without this check a revoked role
		// would still match here through its own archived initial write.
		if e.Archived {
			continue
		}
		if e.Message.Descriptor.Method != types.MethodWrite || e.Message.RecordsWrite == nil {
			continue
		}
		write := e.Message.RecordsWrite
		if write.ContextID == "" || hasContextPrefix(targetContext, write.ContextID) || hasContextPrefix(write.ContextID, targetContext) {
			return nil
		}
	}
	return dwnerr.Forbiddenf("auth: %s holds no live role %s for this context", author, protocolRole)
}
