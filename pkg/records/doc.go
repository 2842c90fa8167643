/*
Package records implements the record lifecycle: Write, Delete, Read,
Query and Subscribe. It is the first caller of pkg/auth.Kernel and
pkg/protocol.Evaluate (through the kernel), and the only package that
mutates the message store's per-record_id "at most initial + latest"
invariant.

Grounded on the teacher's reconcileContainers shape (pkg/reconciler):
compare desired state against what MessageStore.Query reports as
current before mutating, and on boltdb.go's delete-then-recreate bucket
pattern for what "supersede" means at the storage layer.
*/
package records
