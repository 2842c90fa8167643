/*
Package provider declares the storage and crypto capabilities the
authorization kernel, protocol engine, and records lifecycle are built
against. Every operation takes an owner DID as its first argument: a
node is a multi-tenant process over many owners' independent stores.

Concrete implementations live in pkg/storage (bbolt-backed) and
pkg/security (dev signer/cipher/resolver); pkg/provider/memory offers an
in-memory Provider for tests.
*/
package provider
