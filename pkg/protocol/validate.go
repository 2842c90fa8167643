package protocol

import (
	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/types"
)

// stackEntry pairs a rule-set node with the path that reaches it and
// its depth, so ValidateDefinition can walk the tree with an explicit
// stack instead of recursing: a definition nested past the depth limit
// fails with a bounds error rather than blowing the goroutine stack.
type stackEntry struct {
	path  string
	depth int
	node  types.RuleSet
}

// ValidateDefinition checks def's shape: the rule-set tree nests no
// deeper than config.DefaultProtocolDepthLimit, every nested rule-set's
// key names a type def declares (I8), every size constraint has
// min <= max, and every action rule obeys spec.md's actor/role
// constraints (below).
func ValidateDefinition(def types.ProtocolDefinition) error {
	if def.ProtocolURI == "" {
		return dwnerr.BadRequestf("protocol: definition has no protocol uri")
	}

	// Role paths are collected over the whole tree before any rule set
	// is checked, since a role clause may name a $role node declared in
	// a different branch than the one granting it. Paths here are the
	// same full, slash-joined protocol paths lookupRuleSet resolves
	// (e.g. "thread/participant"), not the path-per-top-level-type the
	// original source's role_paths resets to empty at.
	roles := collectRolePaths(def)

	stack := make([]stackEntry, 0, len(def.Structure))
	for name, rs := range def.Structure {
		stack = append(stack, stackEntry{path: name, depth: 1, node: rs})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > config.DefaultProtocolDepthLimit {
			return dwnerr.BadRequestf("protocol: rule-set tree exceeds depth %d at %s", config.DefaultProtocolDepthLimit, top.path)
		}
		if err := validateRuleSet(top.path, top.node, roles); err != nil {
			return err
		}
		for name, child := range top.node.Nested {
			if _, ok := def.Types[name]; !ok {
				return dwnerr.BadRequestf("protocol: %s: rule set %q is not declared as an allowed type", top.path, name)
			}
			stack = append(stack, stackEntry{path: top.path + "/" + name, depth: top.depth + 1, node: child})
		}
	}
	return nil
}

// collectRolePaths walks def's full rule-set tree and returns the set
// of protocol paths at which $role is set. An ActionRule.Role must name
// one of these: the role a record holds is read off a live record at
// that path (auth.verifyProtocolRolePath), not off the rule set the
// action rule itself appears in.
func collectRolePaths(def types.ProtocolDefinition) map[string]bool {
	roles := make(map[string]bool)
	stack := make([]stackEntry, 0, len(def.Structure))
	for name, rs := range def.Structure {
		stack = append(stack, stackEntry{path: name, node: rs})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node.Role {
			roles[top.path] = true
		}
		for name, child := range top.node.Nested {
			stack = append(stack, stackEntry{path: top.path + "/" + name, node: child})
		}
	}
	return roles
}

func validateRuleSet(path string, rs types.RuleSet, roles map[string]bool) error {
	if rs.Size != nil && rs.Size.Min != nil && rs.Size.Max != nil && *rs.Size.Min > *rs.Size.Max {
		return dwnerr.BadRequestf("protocol: %s: size.min exceeds size.max", path)
	}
	for i, ar := range rs.Actions {
		if err := validateActionRule(path, ar, roles); err != nil {
			return err
		}
		// No two action rules in the same rule set may govern the same
		// actor: same (who, of) pair, or same role. Each rule is only
		// compared against the ones after it, so a pair is reported once.
		for _, other := range rs.Actions[i+1:] {
			if ar.Who != "" {
				if ar.Who == other.Who && ar.Of == other.Of {
					return dwnerr.BadRequestf("protocol: %s: more than one action rule for who=%s of=%q within a rule set", path, ar.Who, ar.Of)
				}
			} else if ar.Role == other.Role {
				return dwnerr.BadRequestf("protocol: %s: more than one action rule for role %s within a rule set", path, ar.Role)
			}
		}
	}
	return nil
}

func validateActionRule(path string, ar types.ActionRule, roles map[string]bool) error {
	if len(ar.Can) == 0 {
		return dwnerr.BadRequestf("protocol: %s: action rule grants no actions", path)
	}
	if ar.Who == "" && ar.Role == "" {
		return dwnerr.BadRequestf("protocol: %s: action rule names neither who nor role", path)
	}
	switch ar.Who {
	case "", types.WhoAnyone, types.WhoAuthor, types.WhoRecipient:
	default:
		return dwnerr.BadRequestf("protocol: %s: unknown who %q", path, ar.Who)
	}
	for _, action := range ar.Can {
		switch action {
		case types.ActionCreate, types.ActionUpdate, types.ActionDelete, types.ActionRead,
			types.ActionQuery, types.ActionSubscribe, types.ActionCoUpdate, types.ActionCoDelete,
			types.ActionCoPrune, types.ActionPrune:
		default:
			return dwnerr.BadRequestf("protocol: %s: unknown action %q", path, action)
		}
	}

	switch {
	case ar.Who == types.WhoAnyone && ar.Of != "":
		return dwnerr.BadRequestf("protocol: %s: `of` must not be set when who is \"anyone\"", path)
	case ar.Who == types.WhoAuthor && ar.Of == "":
		return dwnerr.BadRequestf("protocol: %s: `of` must be set when who is \"author\"", path)
	case ar.Who == types.WhoRecipient && ar.Of == "":
		// A recipient rule with no `of` has nothing of its own to check
		// the recipient against, so it may only grant the co-* actions
		// that are themselves checked against an ancestor's recipient.
		for _, action := range ar.Can {
			if action != types.ActionCoUpdate && action != types.ActionCoDelete && action != types.ActionCoPrune {
				return dwnerr.BadRequestf("protocol: %s: a recipient action rule with no `of` may only grant co-update, co-delete or co-prune", path)
			}
		}
	}

	if grantsAction(ar.Can, types.ActionUpdate) && !grantsAction(ar.Can, types.ActionCreate) {
		return dwnerr.BadRequestf("protocol: %s: action rule grants update without create", path)
	}
	if grantsAction(ar.Can, types.ActionDelete) && !grantsAction(ar.Can, types.ActionCreate) {
		return dwnerr.BadRequestf("protocol: %s: action rule grants delete without create", path)
	}

	if ar.Role != "" {
		if !roles[ar.Role] {
			return dwnerr.BadRequestf("protocol: %s: role %s is not declared as a $role rule set", path, ar.Role)
		}
		for _, want := range []types.Action{types.ActionRead, types.ActionQuery, types.ActionSubscribe} {
			if !grantsAction(ar.Can, want) {
				return dwnerr.BadRequestf("protocol: %s: role %s must grant read, query and subscribe", path, ar.Role)
			}
		}
	}
	return nil
}

func grantsAction(can []types.Action, want types.Action) bool {
	for _, a := range can {
		if a == want {
			return true
		}
	}
	return false
}
