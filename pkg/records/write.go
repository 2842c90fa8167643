package records

import (
	"context"
	"encoding/base64"
	"io"
	"time"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/metrics"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// kernel is the package's shared authorization pipeline. A single
// Kernel is safe for concurrent use; its schema cache is the only
// reason to keep one instance per package rather than one per call.
var kernel = auth.NewKernel()

// Write applies a RecordsWrite message: authorizes it, enforces the
// immutability (I2), context-id (I3), data-integrity (I5) and
// ordering (I6/I7) invariants against whatever is already stored for
// its record_id, stores the payload inline or in the data store per
// cfg's threshold, and persists the resulting entry, retiring any
// version it supersedes.
func Write(ctx context.Context, owner string, msg types.Message, dataStream io.Reader, cfg config.Config, p provider.Provider) (*types.Entry, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecordsWriteDuration)

	if msg.Descriptor.Interface != types.InterfaceRecords || msg.Descriptor.Method != types.MethodWrite || msg.RecordsWrite == nil {
		return nil, dwnerr.BadRequestf("records: not a RecordsWrite message")
	}
	write := msg.RecordsWrite

	cur, err := loadCurrent(ctx, owner, write.RecordID, p)
	if err != nil {
		return nil, err
	}

	if cur.initial == nil {
		if err := checkInitialShape(msg.Descriptor, write); err != nil {
			return nil, err
		}
	} else {
		if err := checkImmutability(write, cur.initial.Message.RecordsWrite); err != nil {
			return nil, err
		}
	}

	if err := checkContextID(write, cur, ctx, owner, p); err != nil {
		return nil, err
	}

	payload, err := resolvePayload(ctx, owner, write, dataStream, cur, p)
	if err != nil {
		return nil, err
	}
	if err := checkDataIntegrity(write, payload); err != nil {
		return nil, err
	}

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	if cur.initial == nil {
		if err := checkEntryID(msg.Descriptor, write.RecordID, author); err != nil {
			return nil, err
		}
	}

	descriptorCID, err := auth.DescriptorCID(msg)
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: compute descriptor cid: %v", err)
	}
	messageCID := cid.String(descriptorCID)

	if !newerWins(msg, messageCID, cur.latest) {
		if msg.Descriptor.MessageTimestamp.Equal(latestTimestamp(cur.latest)) {
			return nil, dwnerr.Conflictf("records: an update with a larger CID already exists")
		}
		return nil, dwnerr.Conflictf("records: a more recent update exists")
	}

	if err := storePayload(ctx, owner, write, payload, cfg, p); err != nil {
		return nil, err
	}

	entry := types.Entry{
		MessageCID: messageCID,
		Author:     author,
		Message:    msg,
	}
	entry.Indexes = index.Fields(entry)

	if err := persistWrite(ctx, owner, entry, cur, p); err != nil {
		return nil, err
	}

	if err := p.Events.Append(ctx, owner, entry); err != nil {
		return nil, dwnerr.Unexpectedf("records: append event: %v", err)
	}
	p.Stream.Emit(ctx, owner, entry)

	return &entry, nil
}

// checkInitialShape enforces the initial-write shape rule:
// message_timestamp = date_created. The record_id rule (I1) is checked
// separately by checkEntryID once the author is known.
func checkInitialShape(d types.Descriptor, w *types.Write) error {
	if !d.MessageTimestamp.Equal(w.DateCreated) {
		return dwnerr.BadRequestf("records: initial write requires message_timestamp = date_created")
	}
	return nil
}

// checkEntryID enforces I1: an initial write's record_id must equal
// cid.EntryID(descriptor, author).
func checkEntryID(d types.Descriptor, recordID, author string) error {
	want, err := cid.EntryID(d, author)
	if err != nil {
		return dwnerr.Unexpectedf("records: compute entry id: %v", err)
	}
	if recordID != cid.String(want) {
		return dwnerr.BadRequestf("records: record_id does not match cid(descriptor, author)")
	}
	return nil
}

// checkImmutability enforces I2: record_id, date_created, schema,
// protocol and recipient are fixed at the initial write.
func checkImmutability(w, initial *types.Write) error {
	switch {
	case w.RecordID != initial.RecordID:
		return dwnerr.BadRequestf("records: record_id is immutable")
	case !w.DateCreated.Equal(initial.DateCreated):
		return dwnerr.BadRequestf("records: date_created is immutable")
	case w.Schema != initial.Schema:
		return dwnerr.BadRequestf("records: schema is immutable")
	case w.Protocol != initial.Protocol:
		return dwnerr.BadRequestf("records: protocol is immutable")
	case w.Recipient != initial.Recipient:
		return dwnerr.BadRequestf("records: recipient is immutable")
	case w.Protocol != "" && w.DataFormat != initial.DataFormat:
		return dwnerr.BadRequestf("records: data_format is immutable for protocol records")
	}
	return nil
}

// checkContextID enforces I3: a protocol record's context_id is its
// parent's context_id with its own record_id appended; a root protocol
// record's context_id is its own record_id. Non-protocol writes carry
// no context_id.
func checkContextID(w *types.Write, cur current, ctx context.Context, owner string, p provider.Provider) error {
	if w.Protocol == "" {
		if w.ContextID != "" {
			return dwnerr.BadRequestf("records: non-protocol records must not set context_id")
		}
		return nil
	}
	if w.ParentID == "" {
		if w.ContextID != w.RecordID {
			return dwnerr.BadRequestf("records: root protocol record context_id must equal record_id")
		}
		return nil
	}
	parent, err := loadCurrent(ctx, owner, w.ParentID, p)
	if err != nil {
		return err
	}
	parentW := parentWrite(parent)
	if parentW == nil {
		return dwnerr.BadRequestf("records: parent %s not found", w.ParentID)
	}
	want := parentW.ContextID + "/" + w.RecordID
	if w.ContextID != want {
		return dwnerr.BadRequestf("records: context_id must be %s", want)
	}
	return nil
}

func parentWrite(c current) *types.Write {
	if c.latest != nil && c.latest.Message.RecordsWrite != nil {
		return c.latest.Message.RecordsWrite
	}
	if c.initial != nil {
		return c.initial.Message.RecordsWrite
	}
	return nil
}

// resolvePayload reads dataStream when present, or inherits the bytes
// of an earlier write of this record_id sharing the same data_cid when
// absent.
func resolvePayload(ctx context.Context, owner string, w *types.Write, dataStream io.Reader, cur current, p provider.Provider) ([]byte, error) {
	if dataStream != nil {
		b, err := io.ReadAll(dataStream)
		if err != nil {
			return nil, dwnerr.BadRequestf("records: read data stream: %v", err)
		}
		return b, nil
	}
	if prior := parentWrite(cur); prior != nil && prior.DataCID == w.DataCID {
		if prior.EncodedData != "" {
			return decodeInline(prior.EncodedData)
		}
		c, err := cid.Parse(prior.DataCID)
		if err != nil {
			return nil, dwnerr.BadRequestf("records: parse inherited data_cid: %v", err)
		}
		b, err := p.Data.Get(ctx, owner, w.RecordID, c)
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: fetch inherited payload: %v", err)
		}
		return b, nil
	}
	return nil, dwnerr.BadRequestf("records: data CID does not match")
}

func checkDataIntegrity(w *types.Write, payload []byte) error {
	if int64(len(payload)) != w.DataSize {
		return dwnerr.BadRequestf("records: data size does not match")
	}
	c := cid.OfBytes(payload)
	if cid.String(c) != w.DataCID {
		return dwnerr.BadRequestf("records: data CID does not match")
	}
	return nil
}

// storePayload places payload inline in encoded_data when it is at or
// below cfg.InlineDataThreshold, or in the data store otherwise,
// clearing the field not used so a write never carries both.
func storePayload(ctx context.Context, owner string, w *types.Write, payload []byte, cfg config.Config, p provider.Provider) error {
	if len(payload) <= cfg.InlineDataThreshold {
		w.EncodedData = encodeInline(payload)
		return nil
	}
	w.EncodedData = ""
	c, err := cid.Parse(w.DataCID)
	if err != nil {
		return dwnerr.BadRequestf("records: parse data_cid: %v", err)
	}
	if _, _, err := p.Data.Put(ctx, owner, w.RecordID, c, payload); err != nil {
		return dwnerr.Unexpectedf("records: store payload: %v", err)
	}
	return nil
}

// persistWrite applies the at-most-two retention rule (I4): a brand
// new record is stored once; an update retires the previous latest
// (purging it unless it was also the initial write, in which case it
// is retained archived with its payload cleared) and stores the new
// entry as latest.
func persistWrite(ctx context.Context, owner string, entry types.Entry, cur current, p provider.Provider) error {
	if cur.latest == nil {
		return p.Messages.Put(ctx, owner, entry)
	}

	if cur.initial != nil && cur.latest.MessageCID == cur.initial.MessageCID {
		archived := *cur.initial
		archived.Archived = true
		if archived.Message.RecordsWrite != nil {
			archived.Message.RecordsWrite.EncodedData = ""
		}
		archived.Indexes = index.Fields(archived)
		if err := p.Messages.Put(ctx, owner, archived); err != nil {
			return dwnerr.Unexpectedf("records: archive initial write: %v", err)
		}
	} else {
		if err := p.Messages.Delete(ctx, owner, cur.latest.MessageCID); err != nil {
			return dwnerr.Unexpectedf("records: purge superseded write: %v", err)
		}
	}
	return p.Messages.Put(ctx, owner, entry)
}

func latestTimestamp(e *types.Entry) time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Message.Descriptor.MessageTimestamp
}

func encodeInline(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeInline(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: decode inline data: %v", err)
	}
	return b, nil
}
