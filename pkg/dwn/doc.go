/*
Package dwn is the node's single entry point: Handle dispatches a
Message on its descriptor's (interface, method) pair to the matching
pkg/records, pkg/protocols or pkg/messages handler and shapes the result
into a Reply. Every handler already runs its message through the
authorization kernel itself; this package's only job is routing and
status-code assignment, mirroring the validate-then-dispatch shape
pkg/manager.Manager.Apply uses for cluster commands.
*/
package dwn
