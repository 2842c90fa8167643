package records

import (
	"context"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// current is the pair of stored entries that matter for a record_id:
// its initial write (always retained, per I4) and its latest write or
// delete (nil when the record doesn't exist yet).
type current struct {
	initial *types.Entry
	latest  *types.Entry
}

// loadCurrent fetches every stored entry for recordID and classifies
// them into initial/latest. More than one entry besides the initial
// write would violate I4 and is reported as BadRequest rather than
// silently picked from.
func loadCurrent(ctx context.Context, owner, recordID string, p provider.Provider) (current, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{RecordID: recordID}, types.SortField{}, types.Pagination{})
	if err != nil {
		return current{}, dwnerr.Unexpectedf("records: query record %s: %v", recordID, err)
	}

	var c current
	var latestCount int
	for i := range entries {
		e := entries[i]
		if e.Archived {
			init := e
			c.initial = &init
			continue
		}
		latestCount++
		lat := e
		c.latest = &lat
	}
	if latestCount > 1 {
		return current{}, dwnerr.BadRequestf("records: %s has more than one latest entry, I4 violated", recordID)
	}
	// A record with only one stored entry (no update yet) is both its
	// own initial write and its own latest.
	if c.initial == nil && c.latest != nil && !c.latest.Archived {
		init := *c.latest
		c.initial = &init
	}
	return c, nil
}

// newerWins reports whether candidate supersedes existing under I6:
// later message_timestamp wins; a tie is broken by the larger CID.
func newerWins(candidate types.Message, candidateCID string, existing *types.Entry) bool {
	if existing == nil {
		return true
	}
	ct := candidate.Descriptor.MessageTimestamp
	et := existing.Message.Descriptor.MessageTimestamp
	if !ct.Equal(et) {
		return ct.After(et)
	}
	return candidateCID > existing.MessageCID
}
