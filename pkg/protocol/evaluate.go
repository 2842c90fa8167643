package protocol

import (
	"fmt"
	"strings"

	"github.com/cuemby/dwn/pkg/types"
)

// Evaluate decides whether actorDID is granted the action msg resolves
// to, under the protocol installed by chain[0] (a ProtocolsConfigure
// entry). chain[1:] are msg's ancestor RecordsWrite entries from the
// protocol root down to its immediate parent; if msg updates or
// deletes a record that already exists, its current version is the
// last element.
func Evaluate(chain []types.Entry, msg types.Message, actorDID string) (allowed bool, reason string) {
	if len(chain) == 0 || chain[0].Message.ProtocolsConfigure == nil {
		return false, "no protocol installed for this record"
	}
	def := chain[0].Message.ProtocolsConfigure.Definition

	action, current, ancestors := classifyAction(msg, chain[1:], actorDID)

	protocolPath, ok := targetProtocolPath(msg)
	if !ok && current != nil && current.Message.RecordsWrite != nil {
		protocolPath, ok = current.Message.RecordsWrite.ProtocolPath, current.Message.RecordsWrite.ProtocolPath != ""
	}
	if !ok {
		return false, "message carries no protocol path to evaluate"
	}
	ruleSet, ok := lookupRuleSet(def, protocolPath)
	if !ok {
		return false, fmt.Sprintf("no rule set defined for protocol path %s", protocolPath)
	}

	for _, ar := range ruleSet.Actions {
		if !grants(ar, action) {
			continue
		}
		if ar.Who != "" && actorSatisfiesWho(ar, msg, actorDID, current, ancestors) {
			return true, ""
		}
		if ar.Role != "" && msg.Authorization != nil && msg.Authorization.ProtocolRole == ar.Role {
			// The kernel's protocol-role path (step 6) already confirmed
			// actorDID holds a live role record before rule evaluation
			// (step 7) runs; here we only check the rule names that role.
			return true, ""
		}
	}
	return false, fmt.Sprintf("no rule at %s grants %s to %s", protocolPath, action, actorDID)
}

func grants(ar types.ActionRule, action types.Action) bool {
	for _, a := range ar.Can {
		if a == action {
			return true
		}
	}
	return false
}

// targetRecordID extracts the record_id a message acts on, for both
// writes (which name it directly) and deletes.
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

// targetProtocolPath extracts the protocol path a message concerns.
func targetProtocolPath(msg types.Message) (string, bool) {
	switch {
	case msg.RecordsWrite != nil:
		return msg.RecordsWrite.ProtocolPath, msg.RecordsWrite.ProtocolPath != ""
	case msg.RecordsDelete != nil:
		// RecordsDelete carries no protocol_path of its own; the caller
		// is expected to resolve it against the initial write before
		// calling Evaluate, same as the read/query/subscribe filters.
		return "", false
	case msg.RecordsRead != nil:
		return msg.RecordsRead.Filter.ProtocolPath, msg.RecordsRead.Filter.ProtocolPath != ""
	case msg.RecordsQuery != nil:
		return msg.RecordsQuery.Filter.ProtocolPath, msg.RecordsQuery.Filter.ProtocolPath != ""
	case msg.RecordsSubscribe != nil:
		return msg.RecordsSubscribe.Filter.ProtocolPath, msg.RecordsSubscribe.Filter.ProtocolPath != ""
	default:
		return "", false
	}
}

// lookupRuleSet walks def.Structure by protocolPath's slash-separated
// segments, the first naming a top-level type and the rest naming
// Nested children.
func lookupRuleSet(def types.ProtocolDefinition, protocolPath string) (types.RuleSet, bool) {
	segments := strings.Split(protocolPath, "/")
	rs, ok := def.Structure[segments[0]]
	if !ok {
		return types.RuleSet{}, false
	}
	for _, seg := range segments[1:] {
		child, ok := rs.Nested[seg]
		if !ok {
			return types.RuleSet{}, false
		}
		rs = child
	}
	return rs, true
}

// classifyAction resolves msg's descriptor method into the precise
// Action a rule set grants, splitting ancestors from the record's own
// current version (appended last by the caller) when one is present.
func classifyAction(msg types.Message, rest []types.Entry, actorDID string) (action types.Action, current *types.Entry, ancestors []types.Entry) {
	recordID := targetRecordID(msg)
	if n := len(rest); n > 0 && recordID != "" && rest[n-1].Message.RecordsWrite != nil &&
		rest[n-1].Message.RecordsWrite.RecordID == recordID {
		current = &rest[n-1]
		ancestors = rest[:n-1]
	} else {
		ancestors = rest
	}

	switch msg.Descriptor.Method {
	case types.MethodWrite:
		switch {
		case current == nil:
			action = types.ActionCreate
		case current.Author == actorDID:
			action = types.ActionUpdate
		default:
			action = types.ActionCoUpdate
		}
	case types.MethodDelete:
		prune := msg.RecordsDelete != nil && msg.RecordsDelete.Prune
		switch {
		case current == nil:
			action = types.ActionDelete
		case current.Author == actorDID:
			if prune {
				action = types.ActionPrune
			} else {
				action = types.ActionDelete
			}
		case prune:
			action = types.ActionCoPrune
		default:
			action = types.ActionCoDelete
		}
	case types.MethodRead:
		action = types.ActionRead
	case types.MethodQuery:
		action = types.ActionQuery
	case types.MethodSubscribe:
		action = types.ActionSubscribe
	}
	return action, current, ancestors
}

// actorSatisfiesWho checks a who clause, resolved against ar.Of (an
// ancestor's type name) when set, or the record being acted on
// otherwise.
func actorSatisfiesWho(ar types.ActionRule, msg types.Message, actorDID string, current *types.Entry, ancestors []types.Entry) bool {
	target := referencedEntry(ar.Of, current, ancestors)
	switch ar.Who {
	case types.WhoAnyone:
		return true
	case types.WhoAuthor:
		if target == nil {
			return true
		}
		return target.Author == actorDID
	case types.WhoRecipient:
		if target != nil && target.Message.RecordsWrite != nil {
			return target.Message.RecordsWrite.Recipient == actorDID
		}
		return msg.RecordsWrite != nil && msg.RecordsWrite.Recipient == actorDID
	default:
		return false
	}
}

func referencedEntry(of string, current *types.Entry, ancestors []types.Entry) *types.Entry {
	if of == "" {
		return current
	}
	for i := range ancestors {
		w := ancestors[i].Message.RecordsWrite
		if w == nil {
			continue
		}
		segments := strings.Split(w.ProtocolPath, "/")
		if segments[len(segments)-1] == of {
			return &ancestors[i]
		}
	}
	return nil
}
