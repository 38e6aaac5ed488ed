package rsync

import "bytes"

// HashIndex is a map-based lookup structure over a Signature's block
// hashes, keyed by weak checksum, used by the matcher to find strong-digest
// candidates for a given rolling-checksum window in O(1) average time. It is
// a Go map keyed by the full weak checksum; there is no fixed-size slot
// table and no flat head/chain arrays.
//
// Chains (the blocks sharing one weak checksum) are stored in ascending
// block-index order, matching the order they appeared in the signature.
// When a window matches more than one block with the same weak checksum,
// Lookup prefers the chain entry whose index equals the caller's "want"
// index (the block immediately following the previous match), falling back
// to the first chain entry otherwise. This reproduces rsync's preference
// for contiguous block runs over picking an arbitrary same-weak duplicate.
type HashIndex struct {
	buckets map[uint32][]*BlockHash
}

// NewHashIndex builds a HashIndex over every block hash in sig.
func NewHashIndex(sig *Signature) *HashIndex {
	idx := &HashIndex{buckets: make(map[uint32][]*BlockHash, len(sig.Hashes))}
	for i := range sig.Hashes {
		h := &sig.Hashes[i]
		idx.buckets[h.Weak] = append(idx.buckets[h.Weak], h)
	}
	return idx
}

// HasChain reports whether any block shares the given weak checksum,
// without requiring the caller to have computed a strong digest yet. The
// matcher uses this to avoid the cost of a strong digest on every window
// when the weak checksum alone already rules out a match.
func (idx *HashIndex) HasChain(weak uint32) bool {
	_, present := idx.buckets[weak]
	return present
}

// Lookup returns the block hash matching weak and strong, preferring the
// entry at index want when more than one block shares the weak checksum.
// ok is false when no block's strong digest matches. strong is computed by
// the caller only once HasChain has confirmed a chain exists.
func (idx *HashIndex) Lookup(weak uint32, strong []byte, want uint64) (*BlockHash, bool) {
	chain, present := idx.buckets[weak]
	if !present {
		return nil, false
	}

	var first *BlockHash
	for _, h := range chain {
		if !bytes.Equal(h.Strong, strong) {
			continue
		}
		if first == nil {
			first = h
		}
		if h.Index == want {
			return h, true
		}
	}
	if first != nil {
		return first, true
	}
	return nil, false
}
