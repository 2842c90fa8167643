package index

import "github.com/cuemby/dwn/pkg/types"

// FieldPriority is the fixed order the query planner tries when
// choosing a single driving index for a RecordsFilter: first match
// wins, every other clause is applied as a post-filter pass.
var FieldPriority = []string{
	"record_id",
	"attester",
	"parent_id",
	"recipient",
	"context_id",
	"protocol_path",
	"schema",
	"protocol",
	"data_cid",
	"data_size",
	"date_published",
	"date_created",
	"date_updated",
	"data_format",
	"published",
	"author",
	// tag fields are dynamic ("tag.<name>") and tried last, after every
	// named field above; with several tag clauses, whichever one map
	// iteration yields first drives the scan.
}

// Plan is the driving index chosen for a filter, plus whether the match
// on that field should be exact, a prefix, or a range.
type Plan struct {
	Field string
	Kind  PlanKind
	Value string // for Exact/Prefix
	Bounds Bounds // for Range
	ok    bool
}

// PlanKind distinguishes how the driving field should be matched.
type PlanKind int

const (
	PlanNone PlanKind = iota
	PlanExact
	PlanPrefix
	PlanRange
)

// Choose picks the driving index for filter, returning ok=false when no
// clause in the priority list is present (the caller must fall back to
// a full scan of the message store).
func Choose(filter types.RecordsFilter) Plan {
	if filter.RecordID != "" {
		return Plan{Field: "record_id", Kind: PlanExact, Value: filter.RecordID, ok: true}
	}
	if filter.Attester != "" {
		return Plan{Field: "attester", Kind: PlanExact, Value: filter.Attester, ok: true}
	}
	if filter.ParentID != "" {
		return Plan{Field: "parent_id", Kind: PlanExact, Value: filter.ParentID, ok: true}
	}
	if filter.Recipient != "" {
		return Plan{Field: "recipient", Kind: PlanExact, Value: filter.Recipient, ok: true}
	}
	if filter.ContextID != "" {
		return Plan{Field: "context_id", Kind: PlanPrefix, Value: filter.ContextID, ok: true}
	}
	if filter.ProtocolPath != "" {
		return Plan{Field: "protocol_path", Kind: PlanExact, Value: filter.ProtocolPath, ok: true}
	}
	if filter.Schema != "" {
		return Plan{Field: "schema", Kind: PlanExact, Value: filter.Schema, ok: true}
	}
	if filter.Protocol != "" {
		return Plan{Field: "protocol", Kind: PlanExact, Value: filter.Protocol, ok: true}
	}
	if filter.DataCID != "" {
		return Plan{Field: "data_cid", Kind: PlanExact, Value: filter.DataCID, ok: true}
	}
	if filter.DataSize != nil {
		return Plan{Field: "data_size", Kind: PlanRange, Bounds: rangeFromFilter(*filter.DataSize), ok: true}
	}
	if filter.DatePublished != nil {
		return Plan{Field: "date_published", Kind: PlanRange, Bounds: rangeFromFilter(*filter.DatePublished), ok: true}
	}
	if filter.DateCreated != nil {
		return Plan{Field: "date_created", Kind: PlanRange, Bounds: rangeFromFilter(*filter.DateCreated), ok: true}
	}
	if filter.DateUpdated != nil {
		return Plan{Field: "date_updated", Kind: PlanRange, Bounds: rangeFromFilter(*filter.DateUpdated), ok: true}
	}
	if filter.DataFormat != "" {
		return Plan{Field: "data_format", Kind: PlanExact, Value: filter.DataFormat, ok: true}
	}
	if filter.Published != nil {
		v := "false"
		if *filter.Published {
			v = "true"
		}
		return Plan{Field: "published", Kind: PlanExact, Value: v, ok: true}
	}
	if filter.Author != "" {
		return Plan{Field: "author", Kind: PlanExact, Value: filter.Author, ok: true}
	}
	for name, value := range filter.Tag {
		return Plan{Field: "tag." + name, Kind: PlanPrefix, Value: value, ok: true}
	}
	return Plan{ok: false}
}

func rangeFromFilter(r types.RangeFilter) Bounds {
	return Bounds{GTE: r.GTE, GT: r.GT, LTE: r.LTE, LT: r.LT}
}

// Matches reports whether the field values in idx (as produced by
// Fields) satisfy every clause in filter, including the driving one —
// the full predicate, used both for the post-filter pass over a
// candidate set and for a full scan when Choose returns ok=false.
func Matches(idx map[string]string, filter types.RecordsFilter) bool {
	if filter.RecordID != "" && idx["record_id"] != filter.RecordID {
		return false
	}
	if filter.Attester != "" && idx["attester"] != filter.Attester {
		return false
	}
	if filter.ParentID != "" && idx["parent_id"] != filter.ParentID {
		return false
	}
	if filter.Recipient != "" && idx["recipient"] != filter.Recipient {
		return false
	}
	if filter.ContextID != "" && !hasPrefix(idx["context_id"], filter.ContextID) {
		return false
	}
	if filter.ProtocolPath != "" && idx["protocol_path"] != filter.ProtocolPath {
		return false
	}
	if filter.Schema != "" && idx["schema"] != filter.Schema {
		return false
	}
	if filter.Protocol != "" && idx["protocol"] != filter.Protocol {
		return false
	}
	if filter.DataCID != "" && idx["data_cid"] != filter.DataCID {
		return false
	}
	if filter.DataSize != nil && !rangeFromFilter(*filter.DataSize).matches(idx["data_size"]) {
		return false
	}
	if filter.DatePublished != nil && !rangeFromFilter(*filter.DatePublished).matches(idx["date_published"]) {
		return false
	}
	if filter.DateCreated != nil && !rangeFromFilter(*filter.DateCreated).matches(idx["date_created"]) {
		return false
	}
	if filter.DateUpdated != nil && !rangeFromFilter(*filter.DateUpdated).matches(idx["date_updated"]) {
		return false
	}
	if filter.DataFormat != "" && idx["data_format"] != filter.DataFormat {
		return false
	}
	if filter.Published != nil {
		want := "false"
		if *filter.Published {
			want = "true"
		}
		if idx["published"] != want {
			return false
		}
	}
	if filter.Author != "" && idx["author"] != filter.Author {
		return false
	}
	for name, value := range filter.Tag {
		if !hasPrefix(idx["tag."+name], value) {
			return false
		}
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}
