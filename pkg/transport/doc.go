/*
Package transport exposes a node's provider.Provider over HTTP, the
way the teacher's cmd/warren/main.go exposes its manager over a
handful of stdlib net/http endpoints (/health, /ready, /metrics)
alongside its gRPC API. There is no gRPC surface here: spec.md §6
fixes the wire format as JSON, so a single stdlib net/http handler
decoding/encoding with encoding/json is the whole transport — no
framework earns its keep over one route.
*/
package transport
