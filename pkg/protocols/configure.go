package protocols

import (
	"context"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/metrics"
	"github.com/cuemby/dwn/pkg/protocol"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// kernel is this package's shared authorization pipeline, mirroring
// pkg/records' own package-level Kernel instance.
var kernel = auth.NewKernel()

// Configure installs or updates a protocol definition: normalizes its
// URIs, structurally validates its rule-set tree, and replaces any
// installed definition for the same protocol under I6's latest-wins
// rule (later message_timestamp wins; a tie breaks to the larger CID).
func Configure(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*types.Entry, error) {
	if msg.Descriptor.Interface != types.InterfaceProtocols || msg.Descriptor.Method != types.MethodConfigure || msg.ProtocolsConfigure == nil {
		return nil, dwnerr.BadRequestf("protocols: not a ProtocolsConfigure message")
	}
	def := &msg.ProtocolsConfigure.Definition

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeURL(def.ProtocolURI)
	if err != nil {
		return nil, err
	}
	def.ProtocolURI = normalized
	for name, t := range def.Types {
		if t.Schema == "" {
			continue
		}
		normalizedSchema, err := normalizeURL(t.Schema)
		if err != nil {
			return nil, err
		}
		t.Schema = normalizedSchema
		def.Types[name] = t
	}

	if err := protocol.ValidateDefinition(*def); err != nil {
		return nil, err
	}

	descriptorCID, err := auth.DescriptorCID(msg)
	if err != nil {
		return nil, dwnerr.Unexpectedf("protocols: compute descriptor cid: %v", err)
	}
	messageCID := cid.String(descriptorCID)

	existing, err := existingConfigures(ctx, owner, def.ProtocolURI, p)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if !olderLoses(msg, messageCID, e) {
			return nil, dwnerr.Conflictf("protocols: a newer or equal-priority definition for %s already exists", def.ProtocolURI)
		}
	}

	entry := types.Entry{
		MessageCID: messageCID,
		Author:     author,
		Message:    msg,
		Indexes: map[string]string{
			"method":   string(types.MethodConfigure),
			"author":   author,
			"protocol": def.ProtocolURI,
		},
	}
	if err := p.Messages.Put(ctx, owner, entry); err != nil {
		return nil, dwnerr.Unexpectedf("protocols: persist: %v", err)
	}
	for _, e := range existing {
		if err := p.Messages.Delete(ctx, owner, e.MessageCID); err != nil {
			return nil, dwnerr.Unexpectedf("protocols: purge superseded definition: %v", err)
		}
	}

	if err := p.Events.Append(ctx, owner, entry); err != nil {
		return nil, dwnerr.Unexpectedf("protocols: append event: %v", err)
	}
	p.Stream.Emit(ctx, owner, entry)
	metrics.ProtocolsConfiguredTotal.Inc()

	return &entry, nil
}

// existingConfigures returns every installed ProtocolsConfigure entry
// for protocolURI, typically zero or one but tolerated as more while a
// racing pair of installs is settling.
func existingConfigures(ctx context.Context, owner, protocolURI string, p provider.Provider) ([]types.Entry, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{Protocol: protocolURI}, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Unexpectedf("protocols: query existing: %v", err)
	}
	var out []types.Entry
	for _, e := range entries {
		if e.Message.Descriptor.Method == types.MethodConfigure && e.Message.ProtocolsConfigure != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// olderLoses reports whether existing is superseded by a candidate
// message timestamped candidateTS with CID candidateCID, under I6:
// later message_timestamp wins; a tie is broken by the larger CID.
func olderLoses(candidate types.Message, candidateCID string, existing types.Entry) bool {
	ct := candidate.Descriptor.MessageTimestamp
	et := existing.Message.Descriptor.MessageTimestamp
	if !ct.Equal(et) {
		return ct.After(et)
	}
	return candidateCID > existing.MessageCID
}
