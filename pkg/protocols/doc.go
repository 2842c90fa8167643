/*
Package protocols implements the Protocols interface's message
handlers: Configure installs or updates a protocol definition, Query
lists the definitions installed on a node.

Rule-set structural validation and per-message authorization decisions
live in pkg/protocol and pkg/auth respectively; this package owns only
the definition lifecycle itself — URL normalization, latest-wins
replacement, and visibility for non-owner queries.
*/
package protocols
