package cid

import "fmt"

// ChunkSize is the size in bytes of each leaf "Bytes" block produced by
// Chunk. Payloads no larger than ChunkSize are stored as a single block
// and never wrapped in a List.
const ChunkSize = 16

// childList is the CBOR shape of a root block for a chunked payload: an
// ordered list of leaf block CIDs, reassembled by concatenating their
// raw bytes in order.
type childList struct {
	Children []string `cbor:"children"`
}

// Chunk splits data into fixed-size leaf blocks when it exceeds
// ChunkSize, returning the root CID to store under and the full set of
// blocks (root plus leaves, or just the single block) keyed by CID.
func Chunk(data []byte) (root CID, blocks map[CID][]byte, err error) {
	if len(data) <= ChunkSize {
		c := OfBytes(data)
		return c, map[CID][]byte{c: data}, nil
	}

	blocks = make(map[CID][]byte)
	children := make([]string, 0, (len(data)+ChunkSize-1)/ChunkSize)
	for i := 0; i < len(data); i += ChunkSize {
		end := i + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		leaf := data[i:end]
		c := OfBytes(leaf)
		blocks[c] = leaf
		children = append(children, String(c))
	}

	rootBytes, err := Marshal(childList{Children: children})
	if err != nil {
		return root, nil, fmt.Errorf("cid: encode root list: %w", err)
	}
	root = OfBytes(rootBytes)
	blocks[root] = rootBytes
	return root, blocks, nil
}

// Reassemble fetches root (and, for payloads larger than ChunkSize, its
// children) via get and returns the original concatenated bytes. size is
// the expected payload length (records.Write.DataSize) and determines
// whether root is treated as a direct leaf or a List of children.
func Reassemble(get func(CID) ([]byte, error), root CID, size int64) ([]byte, error) {
	rootBytes, err := get(root)
	if err != nil {
		return nil, fmt.Errorf("cid: fetch root block: %w", err)
	}

	if size <= ChunkSize {
		return rootBytes, nil
	}

	var list childList
	if err := cborUnmarshal(rootBytes, &list); err != nil {
		return nil, fmt.Errorf("cid: decode root list: %w", err)
	}

	out := make([]byte, 0, size)
	for _, cs := range list.Children {
		c, err := Parse(cs)
		if err != nil {
			return nil, fmt.Errorf("cid: parse child cid %q: %w", cs, err)
		}
		leaf, err := get(c)
		if err != nil {
			return nil, fmt.Errorf("cid: fetch child block %s: %w", cs, err)
		}
		out = append(out, leaf...)
	}

	if int64(len(out)) != size {
		return nil, fmt.Errorf("cid: reassembled %d bytes, expected %d", len(out), size)
	}
	return out, nil
}
