package types

// Authorization is a detached-payload JWS whose payload binds the
// message's descriptor CID and, optionally, the grant/role/attestation
// context under which the author is permitted to act.
type Authorization struct {
	// Signature is the JWS over the reconstructed AuthorizationPayload:
	// header and signature travel on the wire, the payload does not. A
	// verifier rebuilds the payload from this struct's plaintext fields
	// plus the freshly recomputed descriptor CID, so tampering with
	// either invalidates the signature.
	Signature JWS `json:"signature"`

	// PermissionGrantID, ProtocolRole, DelegatedGrantID and
	// AttestationCID are the claims the signature binds. They travel as
	// plaintext because the kernel has no other way to learn which
	// grant or role the author is invoking; the signature check is what
	// keeps them honest.
	PermissionGrantID string `json:"permissionGrantId,omitempty"`
	ProtocolRole      string `json:"protocolRole,omitempty"`
	DelegatedGrantID  string `json:"delegatedGrantId,omitempty"`
	AttestationCID    string `json:"attestationCid,omitempty"`

	// OwnerSignature, when present, is a second JWS from the owner
	// co-signing a delegate's message. It lets a delegate write on the
	// owner's behalf without the owner holding a standing grant record.
	OwnerSignature *JWS `json:"ownerSignature,omitempty"`

	// AuthorDelegatedGrant embeds the RecordsWrite that created the
	// delegated grant named by DelegatedGrantID, so a verifier with no
	// prior knowledge of the grant can still validate the chain.
	AuthorDelegatedGrant *Write `json:"authorDelegatedGrant,omitempty"`
}

// JWS is a compact detached-payload JSON Web Signature: header and
// signature are transmitted; the payload is reconstructed by the
// verifier from the fields it is supposed to bind.
type JWS struct {
	Protected string `json:"protected"`
	Signature string `json:"signature"`
}

// AuthorizationPayload is the JSON structure signed by Authorization.Signature.
type AuthorizationPayload struct {
	DescriptorCID      string `json:"descriptorCid"`
	PermissionGrantID  string `json:"permissionGrantId,omitempty"`
	ProtocolRole       string `json:"protocolRole,omitempty"`
	DelegatedGrantID   string `json:"delegatedGrantId,omitempty"`
	AttestationCID     string `json:"attestationCid,omitempty"`
}
