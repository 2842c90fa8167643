/*
Package cid implements the node's content addressing scheme: CIDv1, codec
raw (0x55), SHA-256 multihash, rendered as base32 — plus the chunker that
splits large byte payloads into fixed-size IPLD blocks and reassembles
them on read.

The shape follows the Get/Put pair in go-ipld-cbor's BasicIpldStore
(encode, hash, wrap in a cid.Cid; decode, unmarshal), adapted from
canonical DAG-CBOR framing to the node's flat raw-block + explicit List-of-
children layout described by the data model.
*/
package cid
