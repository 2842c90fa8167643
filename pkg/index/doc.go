/*
Package index implements the per-owner secondary index store: a
field-name -> scalar-value -> message-CID mapping supporting equality,
range, and prefix lookups, plus the fixed-priority query planner that
picks a single driving index for a records filter.

The bucket-per-owner, bucket-per-field layout and the db.Update/db.View
closure style are adapted from the teacher's bbolt-backed store
(pkg/storage/boltdb.go); the planner itself has no teacher analogue and
follows the priority order named by the data model directly.
*/
package index
