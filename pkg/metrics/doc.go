/*
Package metrics provides Prometheus metrics collection and exposition for a
DWN node.

Metrics are registered as package-level collectors in init(), following the
same pattern as the rest of this module's ambient infrastructure: no runtime
registration, MustRegister panics on a duplicate name, and callers reach for
the exported vars directly rather than going through a lookup.

# Categories

Message metrics are labelled by interface and method
(dwn_messages_total, dwn_message_handle_duration_seconds). Authorization
metrics cover the authorization pipeline, with failures labelled by step.
Records/Protocols metrics cover the write/query/delete paths, pruning,
protocol installs and rule-set evaluation. Store metrics are point-in-time
sizes: message count and data bytes per owner, block count for the whole
node. Task and event metrics cover the resumable delete queue and the live
subscription feed.

Of these, the handlers in this module update only the Records
write/query/delete timers and dwn_records_pruned_total (pkg/records) and
dwn_protocols_configured_total (pkg/protocols). The message, authorization,
rule-evaluation, store, task and event collectors are registered and
exported, but nothing in this module updates them.

# Usage

	timer := metrics.NewTimer()
	// ... process message ...
	timer.ObserveDuration(metrics.RecordsWriteDuration)
	metrics.MessagesTotal.WithLabelValues("Records", "Write", "202").Inc()

Metrics are updated directly at the call site of the operation they
describe (the way the teacher's scheduler records scheduling latency),
not collected by a separate polling goroutine — a DWN node has no cluster
state to reconcile periodically.

# HTTP endpoints

Handler() serves /metrics. HealthHandler, ReadyHandler, and
LivenessHandler serve /health, /ready, and /live; readiness checks the
"storage" and "auth" components via RegisterComponent/UpdateComponent.
*/
package metrics
