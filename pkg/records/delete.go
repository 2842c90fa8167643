package records

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cuemby/dwn/pkg/auth"
	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/metrics"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

const (
	pruneTaskKind    = "records.prune"
	pruneTaskTimeout = 2 * time.Minute
)

// pruneTaskPayload is what a prune task's Payload carries: enough to
// resume the purge from scratch, since purgeRecord is idempotent
// (every step is a delete-if-present).
type pruneTaskPayload struct {
	RecordID string `json:"recordId"`
}

// Delete applies a RecordsDelete message: locates the record's current
// latest, enforces I7 (a delete's timestamp may not precede it),
// authorizes, persists the delete marker retaining only the initial
// write alongside it (I4), and when prune is set purges the record's
// descendants as a resumable task so a crash mid-purge is recoverable.
func Delete(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*types.Entry, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecordsDeleteDuration)

	if msg.Descriptor.Interface != types.InterfaceRecords || msg.Descriptor.Method != types.MethodDelete || msg.RecordsDelete == nil {
		return nil, dwnerr.BadRequestf("records: not a RecordsDelete message")
	}
	del := msg.RecordsDelete

	cur, err := loadCurrent(ctx, owner, del.RecordID, p)
	if err != nil {
		return nil, err
	}
	if cur.initial == nil {
		return nil, dwnerr.NotFoundf("records: %s not found", del.RecordID)
	}

	if cur.latest.Message.Descriptor.Method == types.MethodDelete {
		existing := cur.latest.Message.RecordsDelete
		switch {
		case existing != nil && existing.Prune:
			return nil, dwnerr.NotFoundf("records: %s is already pruned", del.RecordID)
		case !del.Prune:
			return nil, dwnerr.NotFoundf("records: %s is already deleted", del.RecordID)
		}
	}

	if msg.Descriptor.MessageTimestamp.Before(latestTimestamp(cur.latest)) {
		return nil, dwnerr.Conflictf("records: delete timestamp precedes the latest version")
	}

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	descriptorCID, err := auth.DescriptorCID(msg)
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: compute descriptor cid: %v", err)
	}

	entry := types.Entry{
		MessageCID: cid.String(descriptorCID),
		Author:     author,
		Message:    msg,
	}
	entry.Indexes = index.Fields(*cur.initial)
	entry.Indexes["method"] = string(types.MethodDelete)
	entry.Indexes["initial"] = "false"
	entry.Indexes["record_id"] = del.RecordID

	if err := persistDelete(ctx, owner, entry, cur, p); err != nil {
		return nil, err
	}
	if err := purgeLatestPayload(ctx, owner, cur, p); err != nil {
		return nil, err
	}

	if err := p.Events.Append(ctx, owner, entry); err != nil {
		return nil, dwnerr.Unexpectedf("records: append event: %v", err)
	}
	p.Stream.Emit(ctx, owner, entry)

	if del.Prune {
		payload, err := json.Marshal(pruneTaskPayload{RecordID: del.RecordID})
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: marshal prune task: %v", err)
		}
		task, err := p.Tasks.Register(ctx, owner, pruneTaskKind, payload, pruneTaskTimeout)
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: register prune task: %v", err)
		}
		if err := prune(ctx, owner, del.RecordID, p); err != nil {
			return nil, err
		}
		if err := p.Tasks.Delete(ctx, owner, task.ID); err != nil {
			return nil, dwnerr.Unexpectedf("records: complete prune task: %v", err)
		}
	}

	return &entry, nil
}

// persistDelete retires whatever the record's non-initial latest was
// (a prior update, or a prior soft delete being re-deleted with prune)
// and stores the new delete marker, leaving at most the initial write
// plus this entry (I4). When the latest is the initial write itself,
// that write is re-stored archived instead.
func persistDelete(ctx context.Context, owner string, entry types.Entry, cur current, p provider.Provider) error {
	if cur.latest.MessageCID != cur.initial.MessageCID {
		if err := p.Messages.Delete(ctx, owner, cur.latest.MessageCID); err != nil {
			return dwnerr.Unexpectedf("records: purge superseded entry: %v", err)
		}
	} else {
		archived := *cur.initial
		archived.Archived = true
		archived.Indexes = index.Fields(archived)
		if err := p.Messages.Put(ctx, owner, archived); err != nil {
			return dwnerr.Unexpectedf("records: archive initial write: %v", err)
		}
	}
	return p.Messages.Put(ctx, owner, entry)
}

// purgeLatestPayload removes the pre-delete latest write's data-store
// block, unless it was inline or is still referenced by the retained
// initial write (the same record's own first version, or a prior
// delete marker carrying no payload at all).
func purgeLatestPayload(ctx context.Context, owner string, cur current, p provider.Provider) error {
	w := cur.latest.Message.RecordsWrite
	if w == nil || w.EncodedData != "" || w.DataCID == "" {
		return nil
	}
	if initial := cur.initial.Message.RecordsWrite; initial != nil && initial.DataCID == w.DataCID {
		return nil
	}
	c, err := cid.Parse(w.DataCID)
	if err != nil {
		return dwnerr.Unexpectedf("records: parse data_cid: %v", err)
	}
	if err := p.Data.Delete(ctx, owner, w.RecordID, c); err != nil {
		return dwnerr.Unexpectedf("records: purge payload: %v", err)
	}
	return nil
}

// prune walks rootRecordID's immediate and transitive children (by
// parent_id) and removes each one entirely: its message entries, its
// data blocks, and its event-log entries. rootRecordID's own initial
// write and delete marker are left in place; only descendants and the
// pre-delete latest's own payload (handled by purgeLatestPayload) are
// removed.
func prune(ctx context.Context, owner, rootRecordID string, p provider.Provider) error {
	children, err := childRecordIDs(ctx, owner, rootRecordID, p)
	if err != nil {
		return err
	}
	for _, childID := range children {
		if err := purgeRecord(ctx, owner, childID, p); err != nil {
			return err
		}
	}
	return nil
}

// childRecordIDs returns the distinct record_ids of every entry whose
// parent_id is parentID.
func childRecordIDs(ctx context.Context, owner, parentID string, p provider.Provider) ([]string, error) {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{ParentID: parentID}, types.SortField{}, types.Pagination{})
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: query children of %s: %v", parentID, err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		id := recordIDOf(e)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// purgeRecord removes recordID and all of its descendants: every
// stored message entry, every distinct data block they reference, and
// every event-log entry. It recurses into children before removing its
// own entries, so a crash mid-walk always leaves a still-reachable
// subtree rather than an orphaned one.
func purgeRecord(ctx context.Context, owner, recordID string, p provider.Provider) error {
	entries, _, err := p.Messages.Query(ctx, owner, types.RecordsFilter{RecordID: recordID}, types.SortField{}, types.Pagination{})
	if err != nil {
		return dwnerr.Unexpectedf("records: query %s: %v", recordID, err)
	}

	children, err := childRecordIDs(ctx, owner, recordID, p)
	if err != nil {
		return err
	}
	for _, childID := range children {
		if err := purgeRecord(ctx, owner, childID, p); err != nil {
			return err
		}
	}

	purgedData := make(map[string]bool)
	for _, e := range entries {
		if w := e.Message.RecordsWrite; w != nil && w.EncodedData == "" && w.DataCID != "" && !purgedData[w.DataCID] {
			c, err := cid.Parse(w.DataCID)
			if err != nil {
				return dwnerr.Unexpectedf("records: parse data_cid: %v", err)
			}
			if err := p.Data.Delete(ctx, owner, recordID, c); err != nil {
				return dwnerr.Unexpectedf("records: purge payload for %s: %v", recordID, err)
			}
			purgedData[w.DataCID] = true
		}
		if err := p.Messages.Delete(ctx, owner, e.MessageCID); err != nil {
			return dwnerr.Unexpectedf("records: purge message for %s: %v", recordID, err)
		}
	}

	if err := purgeEvents(ctx, owner, recordID, p); err != nil {
		return err
	}
	metrics.RecordsPrunedTotal.Inc()
	return nil
}

// purgeEvents removes every event-log entry concerning recordID. The
// event log has no record_id index of its own, so this walks the log
// the same way a subscriber replaying it would.
func purgeEvents(ctx context.Context, owner, recordID string, p provider.Provider) error {
	var cursor *types.Cursor
	var toDelete []string
	for {
		events, next, err := p.Events.Events(ctx, owner, cursor)
		if err != nil {
			return dwnerr.Unexpectedf("records: scan events for %s: %v", recordID, err)
		}
		for _, e := range events {
			if recordIDOf(e) == recordID {
				toDelete = append(toDelete, e.MessageCID)
			}
		}
		if next == nil {
			break
		}
		cursor = next
	}
	for _, messageCID := range toDelete {
		if err := p.Events.Delete(ctx, owner, messageCID); err != nil {
			return dwnerr.Unexpectedf("records: delete event %s: %v", messageCID, err)
		}
	}
	return nil
}

func recordIDOf(e types.Entry) string {
	switch {
	case e.Message.RecordsWrite != nil:
		return e.Message.RecordsWrite.RecordID
	case e.Message.RecordsDelete != nil:
		return e.Message.RecordsDelete.RecordID
	default:
		return ""
	}
}
