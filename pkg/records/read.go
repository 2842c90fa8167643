package records

import (
	"context"
	"errors"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// ReadResult is what Read hands back: the matched entry, its data
// payload (nil when the record carries none), and, for a non-initial
// latest write, the archived initial write kept alongside it for audit.
// A deleted record yields no ReadResult: its initial write travels in
// the NotFound error instead (see DeletedRecordInitial).
type ReadResult struct {
	Entry   *types.Entry
	Initial *types.Entry
	Data    []byte
}

// Read returns the single non-archived entry matching filter. More
// than one match is a shape the planner's own invariants forbid, so it
// is reported as BadRequest rather than picked from arbitrarily. A
// match that is itself a Delete is reported as NotFound, with the
// record's initial write attached so the caller can still audit what
// used to be there.
func Read(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*ReadResult, error) {
	if msg.Descriptor.Interface != types.InterfaceRecords || msg.Descriptor.Method != types.MethodRead || msg.RecordsRead == nil {
		return nil, dwnerr.BadRequestf("records: not a RecordsRead message")
	}

	if _, err := kernel.Authorize(ctx, owner, msg, p); err != nil {
		return nil, err
	}

	entries, _, err := p.Messages.Query(ctx, owner, msg.RecordsRead.Filter, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: query: %v", err)
	}

	var latest, initial *types.Entry
	for i := range entries {
		e := entries[i]
		if e.Archived {
			init := e
			initial = &init
			continue
		}
		if latest != nil {
			return nil, dwnerr.BadRequestf("records: multiple messages exist for this filter")
		}
		lat := e
		latest = &lat
	}
	if latest == nil && initial != nil {
		latest = initial
	}
	if latest == nil {
		return nil, dwnerr.NotFoundf("records: no record matches this filter")
	}

	if latest.Message.Descriptor.Method == types.MethodDelete {
		cause := deletedRecord{initial: initial}
		return nil, dwnerr.Wrap(dwnerr.NotFound, "records: record was deleted", cause)
	}

	result := &ReadResult{Entry: latest}
	if initial != nil && initial.MessageCID != latest.MessageCID {
		result.Initial = initial
	}

	w := latest.Message.RecordsWrite
	if w == nil {
		return result, nil
	}
	switch {
	case w.EncodedData != "":
		data, err := decodeInline(w.EncodedData)
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: decode encoded_data: %v", err)
		}
		result.Data = data
	case w.DataCID != "":
		c, err := cid.Parse(w.DataCID)
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: parse data_cid: %v", err)
		}
		data, err := p.Data.Get(ctx, owner, w.RecordID, c)
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: fetch data: %v", err)
		}
		if data == nil {
			return nil, dwnerr.NotFoundf("records: no data found for %s", w.RecordID)
		}
		result.Data = data
	default:
		return nil, dwnerr.NotFoundf("records: no data found for %s", w.RecordID)
	}
	return result, nil
}

// deletedRecord is the cause wrapped into Read's NotFound error for a
// record whose latest entry is a delete marker, carrying the initial
// write so DeletedRecordInitial can surface it for audit.
type deletedRecord struct {
	initial *types.Entry
}

func (e deletedRecord) Error() string {
	if e.initial == nil {
		return "record was deleted"
	}
	return "record was deleted: initial write " + e.initial.MessageCID + " retained"
}

// DeletedRecordInitial extracts the archived initial write from a
// NotFound error Read returned for a deleted record, if any.
func DeletedRecordInitial(err error) *types.Entry {
	var dwnErr *dwnerr.Error
	if !errors.As(err, &dwnErr) {
		return nil
	}
	if dr, ok := dwnErr.Cause.(deletedRecord); ok {
		return dr.initial
	}
	return nil
}
