package auth

import (
	"context"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// buildProtocolChain assembles the chain pkg/protocol.Evaluate walks:
// the installing ProtocolsConfigure entry first, then msg's ancestor
// RecordsWrite entries from the protocol root down to its immediate
// parent, found by following parent_id.
func buildProtocolChain(ctx context.Context, owner, protocolURI string, msg types.Message, p provider.Provider) ([]types.Entry, error) {
	configure, err := findProtocolConfigure(ctx, owner, protocolURI, p)
	if err != nil {
		return nil, err
	}

	var ancestors []types.Entry
	parentID := parentIDOf(msg)
	for parentID != "" {
		parent, err := findRecordWrite(ctx, owner, parentID, p)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		ancestors = append(ancestors, *parent)
		parentID = parent.Message.RecordsWrite.ParentID
	}
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}

	chain := make([]types.Entry, 0, len(ancestors)+2)
	chain = append(chain, *configure)
	chain = append(chain, ancestors...)

	if recordID := targetRecordID(msg); recordID != "" {
		if current, err := findRecordWrite(ctx, owner, recordID, p); err != nil {
			return nil, err
		} else if current != nil {
			chain = append(chain, *current)
		}
	}
	return chain, nil
}

func targetRecordID(msg types.Message) string {
	switch {
	case msg.RecordsWrite != nil:
		return msg.RecordsWrite.RecordID
	case msg.RecordsDelete != nil:
		return msg.RecordsDelete.RecordID
	default:
		return ""
	}
}

func findProtocolConfigure(ctx context.Context, owner, protocolURI string, p provider.Provider) (*types.Entry, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{Protocol: protocolURI}, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Forbiddenf("auth: locate protocol %s: %v", protocolURI, err)
	}
	for i := range entries {
		d := entries[i].Message.Descriptor
		if d.Interface == types.InterfaceProtocols && d.Method == types.MethodConfigure {
			return &entries[i], nil
		}
	}
	return nil, dwnerr.Forbiddenf("auth: protocol %s is not installed", protocolURI)
}

func findRecordWrite(ctx context.Context, owner, recordID string, p provider.Provider) (*types.Entry, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{RecordID: recordID}, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Forbiddenf("auth: locate record %s: %v", recordID, err)
	}
	for i := range entries {
		if entries[i].Message.Descriptor.Method == types.MethodWrite && entries[i].Message.RecordsWrite != nil {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func parentIDOf(msg types.Message) string {
	if msg.RecordsWrite != nil {
		return msg.RecordsWrite.ParentID
	}
	return ""
}
