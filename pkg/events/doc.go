// Package events is the durable event log (bbolt-backed, append order)
// and the live event stream (in-process pub/sub) a node's handle() call
// writes to after a message is accepted. The log answers MessagesQuery
// and MessagesRead; the stream answers MessagesSubscribe/RecordsSubscribe.
//
// Broker generalizes the teacher's pkg/events.Broker: subscriptions carry
// a types.MessagesFilter instead of a fixed EventType, and delivery is
// scoped per owner rather than cluster-wide.
package events
