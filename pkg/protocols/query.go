package protocols

import (
	"context"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// Query lists the installed protocol definitions matching filter. A
// non-owner requester only ever sees definitions whose
// definition.published is true; the owner sees every installed
// definition regardless.
func Query(ctx context.Context, owner string, msg types.Message, p provider.Provider) ([]types.Entry, error) {
	if msg.Descriptor.Interface != types.InterfaceProtocols || msg.Descriptor.Method != types.MethodQuery || msg.ProtocolsQuery == nil {
		return nil, dwnerr.BadRequestf("protocols: not a ProtocolsQuery message")
	}

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	filter := types.RecordsFilter{Protocol: msg.ProtocolsQuery.Filter.Protocol}
	entries, _, err := p.Messages.Query(ctx, owner, filter, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Unexpectedf("protocols: query: %v", err)
	}

	var out []types.Entry
	for _, e := range entries {
		if e.Message.Descriptor.Method != types.MethodConfigure || e.Message.ProtocolsConfigure == nil {
			continue
		}
		if author != owner && !e.Message.ProtocolsConfigure.Definition.Published {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
