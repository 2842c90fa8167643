/*
Package security provides development implementations of the node's
crypto-facing provider capabilities: a Keyring (Ed25519 signing, X25519
ECDH for the record-encryption extension), a KeyStore handing out
keyrings by controller DID, a registry-based DidResolver, and an
AES-256-GCM Cipher for at-rest encryption of local secrets.

None of this is the production DID/key infrastructure the data model
treats as an external collaborator (§6 of the spec this node
implements) — it is the reference implementation a single-process node
and its test suite run against, in the same spirit as the teacher's
SecretsManager.
*/
package security
