/*
Package messages implements the Messages interface's thin read path over
the event log: Query pages matching entries, Read fetches one message by
CID (streaming its payload when the message is an out-of-line write),
and Subscribe opens a live feed. Every handler runs its message through
the same authorization kernel pkg/records and pkg/protocols use; a
non-owner request is authorized only via a permission grant or protocol
role, since the log carries no per-entry owner/recipient visibility
rule of its own to rewrite a filter against.
*/
package messages
