package records

import (
	"context"
	"sort"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/index"
	"github.com/cuemby/dwn/pkg/metrics"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// QueryResult is a page of matching, non-archived entries plus the
// cursor to resume from, nil once the result set is exhausted.
type QueryResult struct {
	Entries []types.Entry
	Cursor  *types.Cursor
}

// Query applies filter against owner's records, honoring Sort and
// Pagination. A non-owner requester never sees the raw filter as
// given: it is rewritten into the union of published records, the
// requester's own unpublished records, records addressed to the
// requester, and, when the requester's authorization carries a live
// protocol role, an unrestricted clause scoped to that role.
func Query(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*QueryResult, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RecordsQueryDuration)

	if msg.Descriptor.Interface != types.InterfaceRecords || msg.Descriptor.Method != types.MethodQuery || msg.RecordsQuery == nil {
		return nil, dwnerr.BadRequestf("records: not a RecordsQuery message")
	}

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	q := msg.RecordsQuery
	filters := effectiveFilters(owner, author, msg, q.Filter)

	seen := make(map[string]types.Entry)
	for _, f := range filters {
		entries, _, err := p.Messages.Query(ctx, owner, f, types.SortField{}, types.Pagination{})
		if err != nil {
			return nil, dwnerr.Unexpectedf("records: query: %v", err)
		}
		for _, e := range entries {
			if e.Archived {
				continue
			}
			seen[e.MessageCID] = e
		}
	}

	matched := make([]types.Entry, 0, len(seen))
	for _, e := range seen {
		matched = append(matched, e)
	}
	sortEntries(matched, q.Sort)

	return paginate(matched, q.Sort, q.Pagination), nil
}

// effectiveFilters returns the set of RecordsFilter clauses Query must
// union over. The owner sees exactly what they asked for; anyone else
// is scoped to what spec.md §4.5.4 allows them to see.
func effectiveFilters(owner, author string, msg types.Message, base types.RecordsFilter) []types.RecordsFilter {
	if author == owner {
		return []types.RecordsFilter{base}
	}

	published := true
	publishedOnly := base
	publishedOnly.Published = &published

	notPublished := false
	ownAuthored := base
	ownAuthored.Author = author
	ownAuthored.Published = &notPublished

	addressedToMe := base
	addressedToMe.Recipient = author
	addressedToMe.Published = &notPublished

	filters := []types.RecordsFilter{publishedOnly, ownAuthored, addressedToMe}

	if msg.Authorization != nil && msg.Authorization.ProtocolRole != "" {
		unrestricted := base
		filters = append(filters, unrestricted)
	}
	return filters
}

func sortEntries(entries []types.Entry, sortField types.SortField) {
	field := sortField.Field
	if field == "" {
		field = "date_created"
	}
	sort.Slice(entries, func(i, j int) bool {
		vi, vj := index.Fields(entries[i])[field], index.Fields(entries[j])[field]
		if vi != vj {
			if sortField.Ascending {
				return vi < vj
			}
			return vi > vj
		}
		return entries[i].MessageCID < entries[j].MessageCID
	})
}

func paginate(entries []types.Entry, sortField types.SortField, page types.Pagination) *QueryResult {
	start := 0
	if page.Cursor != nil {
		for i, e := range entries {
			if e.MessageCID == page.Cursor.MessageCID {
				start = i + 1
				break
			}
		}
	}
	limit := page.Limit
	if limit <= 0 {
		limit = len(entries)
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	if start > len(entries) {
		start = len(entries)
	}

	out := entries[start:end]
	var next *types.Cursor
	if end < len(entries) {
		last := entries[end-1]
		field := sortField.Field
		if field == "" {
			field = "date_created"
		}
		next = &types.Cursor{MessageCID: last.MessageCID, Value: index.Fields(last)[field]}
	}
	return &QueryResult{Entries: out, Cursor: next}
}

// Subscribe opens a live, cancellable feed of future entries matching
// filter. The underlying EventStream matches only on MessagesFilter
// fields and is asked for every Records entry, so each one it forwards is re-checked
// here against the full RecordsFilter (and the same non-owner
// visibility rules Query applies) before being handed to the caller.
func Subscribe(ctx context.Context, owner string, msg types.Message, p provider.Provider) (provider.Subscription, error) {
	if msg.Descriptor.Interface != types.InterfaceRecords || msg.Descriptor.Method != types.MethodSubscribe || msg.RecordsSubscribe == nil {
		return nil, dwnerr.BadRequestf("records: not a RecordsSubscribe message")
	}

	author, err := kernel.Authorize(ctx, owner, msg, p)
	if err != nil {
		return nil, err
	}

	filter := msg.RecordsSubscribe.Filter
	upstream, err := p.Stream.Subscribe(ctx, owner, types.MessagesFilter{Interface: types.InterfaceRecords})
	if err != nil {
		return nil, dwnerr.Unexpectedf("records: subscribe: %v", err)
	}

	hasRole := msg.Authorization != nil && msg.Authorization.ProtocolRole != ""
	sub := &recordSubscription{upstream: upstream, ch: make(chan types.Entry, 16)}
	go sub.pump(ctx, owner, author, filter, hasRole)
	return sub, nil
}

type recordSubscription struct {
	upstream provider.Subscription
	ch       chan types.Entry
}

func (s *recordSubscription) Events() <-chan types.Entry { return s.ch }

func (s *recordSubscription) Close() {
	s.upstream.Close()
}

// pump re-filters every upstream entry against the caller's own
// RecordsFilter and, for a non-owner subscriber without a protocol
// role, the same published/author/recipient visibility rule Query
// enforces. It exits cleanly once the context is cancelled or the
// upstream channel closes.
func (s *recordSubscription) pump(ctx context.Context, owner, author string, filter types.RecordsFilter, hasRole bool) {
	defer close(s.ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.upstream.Events():
			if !ok {
				return
			}
			if e.Archived {
				continue
			}
			fields := index.Fields(e)
			if !index.Matches(fields, filter) {
				continue
			}
			if author != owner && !hasRole && !visibleToNonOwner(fields, author) {
				continue
			}
			select {
			case s.ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func visibleToNonOwner(fields map[string]string, author string) bool {
	if fields["published"] == "true" {
		return true
	}
	return fields["author"] == author || fields["recipient"] == author
}
