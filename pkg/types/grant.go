package types

import "time"

// GrantData is the EncodedData payload of a published RecordsWrite that
// acts as a permission grant.
type GrantData struct {
	Scope       Scope      `json:"scope"`
	Conditions  *Condition `json:"conditions,omitempty"`
	Delegated   bool       `json:"delegated,omitempty"`
	DateExpires time.Time  `json:"dateExpires"`
	Description string     `json:"description,omitempty"`
}

// Condition further restricts how a grant may be exercised.
type Condition struct {
	Publication string `json:"publication,omitempty"` // "required", "prohibited"
}

// ScopeInterface names which of the three interfaces a Scope governs.
type ScopeInterface string

const (
	ScopeRecords   ScopeInterface = "Records"
	ScopeMessages  ScopeInterface = "Messages"
	ScopeProtocols ScopeInterface = "Protocols"
)

// Scope is the permission a Grant confers. Exactly the fields relevant
// to Interface are populated.
type Scope struct {
	Interface ScopeInterface `json:"interface"`
	Method    Method         `json:"method"`
	Protocol  string         `json:"protocol,omitempty"`

	// LimitedTo narrows a Records scope to a context/protocol-path
	// subtree; empty means the whole protocol.
	LimitedTo *ScopeLimit `json:"limitedTo,omitempty"`
}

// ScopeLimit narrows a Records scope.
type ScopeLimit struct {
	ContextID    string `json:"contextId,omitempty"`
	ProtocolPath string `json:"protocolPath,omitempty"`
}

// RevocationData is the EncodedData payload of a RecordsWrite that
// revokes a previously issued grant.
type RevocationData struct {
	GrantID     string `json:"grantId"`
	Description string `json:"description,omitempty"`
}

// RequestData is the EncodedData payload of a RecordsWrite requesting a
// grant be issued.
type RequestData struct {
	Scope       Scope  `json:"scope"`
	Description string `json:"description,omitempty"`
}
