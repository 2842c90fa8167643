package dwn

import "github.com/cuemby/dwn/pkg/dwnerr"

// Status is a Reply's outcome: an HTTP-shaped code plus an optional
// human-readable detail, per spec.md §6.
type Status struct {
	Code   int
	Detail string
}

// Reply is what Handle returns for a successfully processed message.
// Body's concrete type depends on the dispatched interface/method: a
// *types.Entry for Write/Delete/Configure, a *records.ReadResult/*messages.ReadResult
// for Read, a *records.QueryResult/*messages.QueryResult/[]types.Entry for
// Query, or a provider.Subscription for Subscribe.
type Reply struct {
	Status Status
	Body   any
}

// StatusCode maps a dwnerr.Kind to the HTTP-shaped status code spec.md
// §6 assigns it, for a caller (cmd/dwn, or pkg/transport) that
// needs to render Handle's error into the wire status space.
func StatusCode(err error) int {
	switch dwnerr.KindOf(err) {
	case dwnerr.Unauthorized:
		return 401
	case dwnerr.Forbidden:
		return 403
	case dwnerr.BadRequest:
		return 400
	case dwnerr.NotFound:
		return 404
	case dwnerr.Conflict:
		return 409
	default:
		return 500
	}
}
