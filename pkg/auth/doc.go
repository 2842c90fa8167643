/*
Package auth implements the authorization kernel: the seven-step
pipeline every non-owner message is run through before a records,
protocols or messages handler sees it.

The kernel's shape is grounded on pkg/security's two existing
capability objects: the chain-verify-then-cache pattern (load, verify,
cache) that ca.go used for X.509 trust chains is generalized here to
JWS plus delegated-grant chains, and secrets.go's narrow-surface
capability object is the template for Kernel itself, which exposes a
single Authorize method and keeps its schema cache private.

Kernel.Authorize executes:

  1. JWS verify against a DID-resolved verification key.
  2. JSON-schema validation against the message's {interface}-{method} schema.
  3. Descriptor CID match (implied by 1: the payload the signature
     covers is rebuilt from the live descriptor, so a tampered
     descriptor fails verification rather than a separate comparison).
  4. Grant path, when permission_grant_id is present.
  5. Delegated-grant path, when author_delegated_grant is present.
  6. Protocol role path, when protocol_role is set.
  7. Rule evaluation, delegated to pkg/protocol.

Owner-signed messages skip steps 4-7.
*/
package auth
