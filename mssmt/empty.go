package mssmt

// EmptyTree precomputes and caches E[0..MaxDepth], the canonical hash of an
// entirely-empty subtree rooted at each depth, for one HashFunc. There is no
// process-wide cache: each tree and each storage backend builds its own
// EmptyTree from its hash function, so distinct hash functions never collide.
type EmptyTree struct {
	h HashFunc
	// e[d] == E[d], for d in [0, MaxDepth].
	e [MaxDepth + 1][KeySize]byte
}

func NewEmptyTree(h HashFunc) *EmptyTree {
	et := &EmptyTree{h: h}
	et.e[MaxDepth] = h(nil)
	for d := MaxDepth - 1; d >= 0; d-- {
		et.e[d] = branchHash(h, et.e[d+1], et.e[d+1], 0)
	}
	return et
}

// at returns the empty-subtree constant for depth d as a Node.
func (et *EmptyTree) at(d uint32) EmptyLeafNode {
	return EmptyLeafNode{Depth: d, hash: et.e[d]}
}

// isEmptyHash reports whether hash equals the empty-subtree constant for
// depth d, the cheap test a Storage backend is expected to perform when
// synthesising empty children.
func (et *EmptyTree) isEmptyHash(hash [KeySize]byte, d uint32) bool {
	return hash == et.e[d]
}

// At is the exported form of at, for Storage backends outside this package
// that need to synthesise an empty child without a stored row.
func (et *EmptyTree) At(d uint32) EmptyLeafNode { return et.at(d) }

// IsEmptyHash is the exported form of isEmptyHash.
func (et *EmptyTree) IsEmptyHash(hash [KeySize]byte, d uint32) bool { return et.isEmptyHash(hash, d) }

// expand computes the hash a fully materialized tree would have at depth d
// for a subtree whose only populated leaf is (key, leafHash, leafSum) at
// MaxDepth, i.e. the effective hash of a CompactLeaf rooted at d. It folds
// upward from MaxDepth to d, pairing the running hash with the empty
// constant at each intervening depth on the side key's bits don't select.
func (et *EmptyTree) expand(key Key, leafHash [KeySize]byte, leafSum uint64, d uint32) [KeySize]byte {
	cur := leafHash
	for i := int(MaxDepth) - 1; i >= int(d); i-- {
		sibling := et.e[i+1]
		var left, right [KeySize]byte
		if key.Bit(i) == 0 {
			left, right = cur, sibling
		} else {
			left, right = sibling, cur
		}
		cur = branchHash(et.h, left, right, leafSum)
	}
	return cur
}
