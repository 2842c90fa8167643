/*
Package types defines the core data structures of a decentralized web
node: the Descriptor/Message envelope, Authorization, the Records and
Protocols entities, Grants, and the Cursor used for paginated queries.

All wire-facing fields use camelCase JSON tags. Timestamps are plain
time.Time fields in Go's default JSON encoding: RFC 3339 with as many
fractional-second digits as the value carries (up to nanoseconds); they
are not truncated to microseconds. Binary fields (JWS signatures,
inline data) are base64url, unpadded.
*/
package types
