package provider

import (
	"context"
	"time"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/types"
)

// BlockStore holds content-addressed raw byte blocks, namespaced by
// owner.
type BlockStore interface {
	Put(ctx context.Context, owner string, c cid.CID, data []byte) error
	Get(ctx context.Context, owner string, c cid.CID) ([]byte, error)
	Delete(ctx context.Context, owner string, c cid.CID) error
	Purge(ctx context.Context, owner string) error
}

// MessageStore holds message entries and answers indexed queries over
// them. Put is last-writer-wins on the entry's message CID.
type MessageStore interface {
	Put(ctx context.Context, owner string, entry types.Entry) error
	Get(ctx context.Context, owner string, messageCID string) (*types.Entry, error)
	Query(ctx context.Context, owner string, filter types.RecordsFilter, sort types.SortField, page types.Pagination) ([]types.Entry, *types.Cursor, error)
	Delete(ctx context.Context, owner string, messageCID string) error
	Purge(ctx context.Context, owner string) error
}

// DataStore holds a record's payload bytes, addressed by (owner,
// record_id, data_cid) rather than message CID, since the same payload
// CID may be referenced by more than one write to a record.
type DataStore interface {
	Put(ctx context.Context, owner, recordID string, dataCID cid.CID, data []byte) (cid.CID, int64, error)
	Get(ctx context.Context, owner, recordID string, dataCID cid.CID) ([]byte, error)
	Delete(ctx context.Context, owner, recordID string, dataCID cid.CID) error
	Purge(ctx context.Context, owner string) error
}

// EventLog is the durable, append-only record of every accepted
// message, in append order.
type EventLog interface {
	Append(ctx context.Context, owner string, entry types.Entry) error
	Events(ctx context.Context, owner string, cursor *types.Cursor) ([]types.Entry, *types.Cursor, error)
	Query(ctx context.Context, owner string, filter types.MessagesFilter, page types.Pagination) ([]types.Entry, *types.Cursor, error)
	Delete(ctx context.Context, owner string, messageCID string) error
	Purge(ctx context.Context, owner string) error
}

// EventStream is the live pub/sub complement to EventLog: Subscribe
// yields entries appended strictly after the subscription point.
type EventStream interface {
	Subscribe(ctx context.Context, owner string, filter types.MessagesFilter) (Subscription, error)
	Emit(ctx context.Context, owner string, entry types.Entry)
}

// Subscription is a live feed of entries matching the filter it was
// created with. Close unsubscribes and releases the channel.
type Subscription interface {
	Events() <-chan types.Entry
	Close()
}

// Task is a unit of resumable work (presently: delete-with-prune).
type Task struct {
	ID        string
	Owner     string
	Kind      string
	Payload   []byte
	LeaseUntil time.Time
	CreatedAt time.Time
}

// TaskStore is the resumable lease-based queue backing crash-safe
// delete-with-prune.
type TaskStore interface {
	Register(ctx context.Context, owner string, kind string, payload []byte, timeout time.Duration) (Task, error)
	Grab(ctx context.Context, owner string, n int, timeout time.Duration) ([]Task, error)
	Extend(ctx context.Context, owner string, id string, timeout time.Duration) error
	Delete(ctx context.Context, owner string, id string) error
	// Sweep is Grab without an owner filter: it leases up to n
	// expired-lease tasks across every owner, for a startup recovery
	// sweep that has no single owner to scope its query to.
	Sweep(ctx context.Context, n int, timeout time.Duration) ([]Task, error)
}

// DidDocument is the minimal subset of a resolved DID document the
// authorization kernel consults: the verification methods available
// for signature checking.
type DidDocument struct {
	ID                 string
	VerificationMethods []VerificationMethod
}

// VerificationMethod names a public key usable to verify a signature
// from its controller.
type VerificationMethod struct {
	ID        string
	Type      string
	PublicKey []byte
}

// DidResolver resolves a DID URL to its document.
type DidResolver interface {
	Resolve(ctx context.Context, didURL string) (*DidDocument, error)
}

// Algorithm names a signature algorithm a Keyring signs with.
type Algorithm string

const (
	AlgorithmEdDSA Algorithm = "EdDSA"
	AlgorithmES256K Algorithm = "ES256K"
)

// Keyring signs and, for the crypto extension, performs ECDH key
// agreement on behalf of a single controller DID.
type Keyring interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
	PublicKey() []byte
	Algorithm() Algorithm
	VerificationMethod() string

	// ECDH support for the record-encryption extension.
	ECDHEncrypt(ctx context.Context, peerPublicKey, plaintext []byte) (ciphertext, ephemeralPublicKey []byte, err error)
	ECDHDecrypt(ctx context.Context, ephemeralPublicKey, ciphertext []byte) ([]byte, error)
}

// KeyStore hands out the Keyring for a given controller DID.
type KeyStore interface {
	Keyring(ctx context.Context, controller string) (Keyring, error)
}

// Provider aggregates every capability a handle() call needs.
type Provider struct {
	Blocks   BlockStore
	Messages MessageStore
	Data     DataStore
	Events   EventLog
	Stream   EventStream
	Tasks    TaskStore
	DIDs     DidResolver
	Keys     KeyStore
}
