package types

import "encoding/json"

// ProtocolConfigure installs or updates a protocol definition.
type ProtocolConfigure struct {
	Definition ProtocolDefinition `json:"definition"`
}

// ProtocolDefinition is the full protocol document: its type registry
// and the RuleSet tree governing every protocol-path in the protocol.
type ProtocolDefinition struct {
	ProtocolURI string                `json:"protocol"`
	Published   bool                  `json:"published"`
	Types       map[string]TypeDef    `json:"types"`
	Structure   map[string]RuleSet    `json:"structure"`
}

// TypeDef constrains the records a protocol's records may contain.
type TypeDef struct {
	Schema      string   `json:"schema,omitempty"`
	DataFormats []string `json:"dataFormats,omitempty"`
}

// RuleSet governs one node of the protocol-path tree: which actions are
// permitted on records at this path, and the nested RuleSets for child
// types.
type RuleSet struct {
	Actions    []ActionRule          `json:"$actions,omitempty"`
	Role       bool                  `json:"$role,omitempty"`
	Size       *SizeConstraint       `json:"$size,omitempty"`
	Tags       *TagConstraint        `json:"$tags,omitempty"`
	Encryption *EncryptionConstraint `json:"$encryption,omitempty"`
	Nested     map[string]RuleSet    `json:"-"`
}

// UnmarshalJSON splits a rule-set object's reserved $-prefixed keys
// ($actions, $role, $size, $tags, $encryption) from its remaining
// keys, each of which names a nested child type and unmarshals into
// Nested.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["$actions"]; ok {
		if err := json.Unmarshal(v, &rs.Actions); err != nil {
			return err
		}
		delete(raw, "$actions")
	}
	if v, ok := raw["$role"]; ok {
		if err := json.Unmarshal(v, &rs.Role); err != nil {
			return err
		}
		delete(raw, "$role")
	}
	if v, ok := raw["$size"]; ok {
		rs.Size = &SizeConstraint{}
		if err := json.Unmarshal(v, rs.Size); err != nil {
			return err
		}
		delete(raw, "$size")
	}
	if v, ok := raw["$tags"]; ok {
		rs.Tags = &TagConstraint{}
		if err := json.Unmarshal(v, rs.Tags); err != nil {
			return err
		}
		delete(raw, "$tags")
	}
	if v, ok := raw["$encryption"]; ok {
		rs.Encryption = &EncryptionConstraint{}
		if err := json.Unmarshal(v, rs.Encryption); err != nil {
			return err
		}
		delete(raw, "$encryption")
	}
	if len(raw) == 0 {
		return nil
	}
	rs.Nested = make(map[string]RuleSet, len(raw))
	for name, v := range raw {
		var child RuleSet
		if err := json.Unmarshal(v, &child); err != nil {
			return err
		}
		rs.Nested[name] = child
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON: reserved fields go out
// under their $-prefixed keys, Nested's entries go out under their own
// type names.
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(rs.Nested)+5)
	if len(rs.Actions) > 0 {
		b, err := json.Marshal(rs.Actions)
		if err != nil {
			return nil, err
		}
		out["$actions"] = b
	}
	if rs.Role {
		out["$role"] = json.RawMessage("true")
	}
	if rs.Size != nil {
		b, err := json.Marshal(rs.Size)
		if err != nil {
			return nil, err
		}
		out["$size"] = b
	}
	if rs.Tags != nil {
		b, err := json.Marshal(rs.Tags)
		if err != nil {
			return nil, err
		}
		out["$tags"] = b
	}
	if rs.Encryption != nil {
		b, err := json.Marshal(rs.Encryption)
		if err != nil {
			return nil, err
		}
		out["$encryption"] = b
	}
	for name, child := range rs.Nested {
		b, err := json.Marshal(child)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return json.Marshal(out)
}

// SizeConstraint bounds a record's data_size at this protocol path.
type SizeConstraint struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// TagConstraint constrains the tags a record at this protocol path may
// carry.
type TagConstraint struct {
	Required       []string                  `json:"required,omitempty"`
	AllowUndefined bool                      `json:"$allowUndefinedTags,omitempty"`
	PerTagSchema   map[string]map[string]any `json:"-"`
}

// EncryptionConstraint names the key a record at this protocol path is
// expected to be encrypted under, for the crypto extension.
type EncryptionConstraint struct {
	RootKeyID string `json:"rootKeyId"`
	PublicJWK map[string]any `json:"publicJwk"`
}

// Action enumerates the operations an ActionRule can grant.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionRead     Action = "read"
	ActionQuery    Action = "query"
	ActionSubscribe Action = "subscribe"
	ActionCoUpdate Action = "co-update"
	ActionCoDelete Action = "co-delete"
	ActionCoPrune  Action = "co-prune"
	ActionPrune    Action = "prune"
)

// Who names the actor class an ActionRule's "who" clause selects.
type Who string

const (
	WhoAnyone    Who = "anyone"
	WhoAuthor    Who = "author"
	WhoRecipient Who = "recipient"
)

// ActionRule grants Can to the actor selected by Who (directly) or Role
// (anyone holding a live role record at the named protocol path), for
// records at the protocol path named by Of — empty Of means the rule's
// own node.
type ActionRule struct {
	Who  Who      `json:"who,omitempty"`
	Of   string   `json:"of,omitempty"`
	Role string   `json:"role,omitempty"`
	Can  []Action `json:"can"`
}

// ProtocolsQuery selects installed protocol definitions.
type ProtocolsQuery struct {
	Filter ProtocolsFilter `json:"filter"`
}

// ProtocolsFilter selects protocol definitions by URI.
type ProtocolsFilter struct {
	Protocol string `json:"protocol,omitempty"`
}
