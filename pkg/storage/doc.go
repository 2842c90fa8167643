/*
Package storage provides the bbolt-backed implementations of
pkg/provider's BlockStore, MessageStore, DataStore, and TaskStore.

Each store opens its own bbolt database file under the node's data
directory and namespaces every key by owner DID, then by the store's own
key (a CID, a message CID, or a record/data-CID pair). The
db.Update/db.View closure style and JSON value encoding follow the
teacher's BoltStore; MessageStore additionally drives pkg/index to
answer filtered queries.
*/
package storage
