package cid

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
)

// Codec is the multicodec used for every block in the store: raw bytes,
// no DAG-CBOR framing. The node addresses the CBOR encoding of a value,
// not a typed IPLD node.
const Codec = gocid.Raw

// CID is a content identifier: CIDv1, codec raw, sha2-256 multihash.
type CID = gocid.Cid

// Undef is the zero-value CID, returned alongside an error when
// computing or parsing a CID fails.
var Undef = gocid.Undef

var canonicalMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("dwn/cid: building canonical cbor encoder: %v", err))
	}
	canonicalMode = m
}

// Marshal deterministically CBOR-encodes v using canonical map-key
// ordering and minimal-length integers, the same bytes every time for
// equal values.
func Marshal(v any) ([]byte, error) {
	return canonicalMode.Marshal(v)
}

// cborUnmarshal decodes CBOR bytes produced by Marshal back into v.
func cborUnmarshal(b []byte, v any) error {
	return cbor.Unmarshal(b, v)
}

// Of computes the CID of v's canonical CBOR encoding.
func Of(v any) (CID, error) {
	b, err := Marshal(v)
	if err != nil {
		return gocid.Undef, fmt.Errorf("cid: encode: %w", err)
	}
	return OfBytes(b), nil
}

// OfBytes computes the raw-codec CID of an already-encoded byte string.
func OfBytes(b []byte) CID {
	hash, err := mh.Sum(b, mh.SHA2_256, -1)
	if err != nil {
		// mh.Sum only fails for unsupported hash functions or lengths;
		// SHA2_256 with the default length is always supported.
		panic(fmt.Sprintf("dwn/cid: hashing block: %v", err))
	}
	return gocid.NewCidV1(Codec, hash)
}

// String renders c as a base32, lowercase, multibase-prefixed string.
func String(c CID) string {
	s, err := c.StringOfBase(multibase.Base32)
	if err != nil {
		return c.String()
	}
	return s
}

// Parse decodes a base32-rendered CID string back into a CID.
func Parse(s string) (CID, error) {
	c, err := gocid.Decode(s)
	if err != nil {
		return gocid.Undef, fmt.Errorf("cid: parse %q: %w", s, err)
	}
	return c, nil
}

// entryIDInput mirrors the pair the entry_id CID is computed over; field
// order is irrelevant since canonical CBOR sorts map keys, but named
// fields keep the descriptor/author pairing explicit at call sites.
type entryIDInput struct {
	Descriptor any    `cbor:"descriptor"`
	Author     string `cbor:"author"`
}

// EntryID computes entry_id(descriptor, author) = cid({descriptor, author}).
func EntryID(descriptor any, author string) (CID, error) {
	return Of(entryIDInput{Descriptor: descriptor, Author: author})
}
