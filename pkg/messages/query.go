package messages

import (
	"context"
	"encoding/base64"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// kernel is this package's shared authorization pipeline, mirroring the
// package-level instances pkg/records and pkg/protocols each keep.
var kernel = auth.NewKernel()

// QueryResult is a page of event-log entries plus the cursor the event
// log returned with it. pkg/events.Log and pkg/provider/memory's log
// both return a nil cursor, including for a page cut at its limit.
type QueryResult struct {
	Entries []types.Entry
	Cursor  *types.Cursor
}

// Query lists event-log entries matching msg's filter. §4.7 requires a
// non-owner to present a grant whose scope matches the filter's
// protocol when one is set; that requirement is enforced by the shared
// kernel exactly as it is for a protocol-constrained RecordsQuery or
// ProtocolsQuery, so this handler does no visibility filtering of its
// own beyond what the kernel already authorized.
func Query(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*QueryResult, error) {
	if msg.Descriptor.Interface != types.InterfaceMessages || msg.Descriptor.Method != types.MethodQuery || msg.MessagesQuery == nil {
		return nil, dwnerr.BadRequestf("messages: not a MessagesQuery message")
	}

	if _, err := kernel.Authorize(ctx, owner, msg, p); err != nil {
		return nil, err
	}

	q := msg.MessagesQuery
	entries, cursor, err := p.Events.Query(ctx, owner, q.Filter, q.Pagination)
	if err != nil {
		return nil, dwnerr.Unexpectedf("messages: query: %v", err)
	}
	return &QueryResult{Entries: entries, Cursor: cursor}, nil
}

// ReadResult is a single fetched message plus its data payload, when it
// is a write carrying one.
type ReadResult struct {
	Entry *types.Entry
	Data  []byte
}

// Read fetches the single message named by msg.MessagesRead.MessageCID.
// When that message is a write with an out-of-line payload, its data is
// streamed in alongside the entry.
func Read(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*ReadResult, error) {
	if msg.Descriptor.Interface != types.InterfaceMessages || msg.Descriptor.Method != types.MethodRead || msg.MessagesRead == nil {
		return nil, dwnerr.BadRequestf("messages: not a MessagesRead message")
	}

	if _, err := kernel.Authorize(ctx, owner, msg, p); err != nil {
		return nil, err
	}

	entry, err := p.Messages.Get(ctx, owner, msg.MessagesRead.MessageCID)
	if err != nil {
		return nil, dwnerr.Unexpectedf("messages: get: %v", err)
	}
	if entry == nil {
		return nil, dwnerr.NotFoundf("messages: no message %s", msg.MessagesRead.MessageCID)
	}

	result := &ReadResult{Entry: entry}
	w := entry.Message.RecordsWrite
	if w == nil {
		return result, nil
	}
	switch {
	case w.EncodedData != "":
		data, err := base64.RawURLEncoding.DecodeString(w.EncodedData)
		if err != nil {
			return nil, dwnerr.Unexpectedf("messages: decode encoded_data: %v", err)
		}
		result.Data = data
	case w.DataCID != "":
		c, err := cid.Parse(w.DataCID)
		if err != nil {
			return nil, dwnerr.Unexpectedf("messages: parse data_cid: %v", err)
		}
		data, err := p.Data.Get(ctx, owner, w.RecordID, c)
		if err != nil {
			return nil, dwnerr.Unexpectedf("messages: fetch data: %v", err)
		}
		result.Data = data
	}
	return result, nil
}

// Subscribe opens a live feed of event-log entries matching msg's
// filter, unfiltered further beyond what the stream itself already
// matches on (interface/method/author/protocol/message_timestamp,
// mirroring pkg/events' own matchesMessagesFilter) since the log has no
// finer-grained shape than a RecordsFilter's record-level fields for
// this handler to re-check client-side.
func Subscribe(ctx context.Context, owner string, msg types.Message, p provider.Provider) (provider.Subscription, error) {
	if msg.Descriptor.Interface != types.InterfaceMessages || msg.Descriptor.Method != types.MethodSubscribe || msg.MessagesSubscribe == nil {
		return nil, dwnerr.BadRequestf("messages: not a MessagesSubscribe message")
	}

	if _, err := kernel.Authorize(ctx, owner, msg, p); err != nil {
		return nil, err
	}

	return p.Stream.Subscribe(ctx, owner, msg.MessagesSubscribe.Filter)
}
