/*
Package dwnerr defines the node's error taxonomy.

Every error that can cross an interface boundary (provider, auth kernel,
protocol engine, records lifecycle) is classified into one of six kinds.
Callers at the edge (cmd/dwn, and pkg/transport through dwn.StatusCode)
map a kind to a status code; internal callers use Is(err, kind) or
KindOf(err) to decide whether to surface an error to the user or log and
fail closed. The package has no sentinel error values: a kind is read
off the wrapped *Error.

No pack example carries a dedicated error-classification library, so this
package is hand-rolled on top of the standard errors/fmt wrapping idiom
rather than adapted from a third-party dependency.
*/
package dwnerr
