package mssmt

// siblingEntry is a single proof element: a sibling's hash and the total
// weight beneath it.
type siblingEntry struct {
	Hash [KeySize]byte
	Sum  uint64
}

// Proof is an inclusion or exclusion proof for a single key: the ordered
// sequence of MaxDepth sibling (hash, sum) pairs needed to fold the claimed
// leaf back up to a root, indexed leaf-adjacent first (depth MaxDepth-1 down
// to depth 0).
type Proof struct {
	Siblings []siblingEntry
}

// Verify folds leaf (which may be the empty leaf, for an exclusion proof) up
// through p's siblings following key's bits, and reports whether the result
// matches (rootHash, rootSum).
func (p *Proof) Verify(h HashFunc, key Key, leaf *LeafNode, rootHash [KeySize]byte, rootSum uint64) error {
	if len(p.Siblings) != MaxDepth {
		return ErrProofShape
	}
	if leaf == nil {
		// The empty leaf hashes to E[MaxDepth], the digest of empty input.
		leaf = &LeafNode{hash: h(nil)}
	}

	curHash := leaf.NodeHash()
	curSum := leaf.Sum
	for i := 0; i < MaxDepth; i++ {
		depth := MaxDepth - 1 - uint32(i)
		sibling := p.Siblings[i]

		sum, err := addSums(curSum, sibling.Sum)
		if err != nil {
			return err
		}
		var left, right [KeySize]byte
		if key.Bit(int(depth)) == 0 {
			left, right = curHash, sibling.Hash
		} else {
			left, right = sibling.Hash, curHash
		}
		curHash = branchHash(h, left, right, sum)
		curSum = sum
	}

	if curHash != rootHash || curSum != rootSum {
		return ErrVerificationFailed
	}
	return nil
}

// CompressedProof omits siblings equal to the empty-subtree constant for
// their depth, recording only where they occurred.
type CompressedProof struct {
	// Bits is a bitmap of length MaxDepth; Bits[i] is set iff Siblings[i]
	// (the sibling at depth-from-leaf i) was the empty constant for its
	// depth.
	Bits     []bool
	Siblings []siblingEntry // only the non-empty siblings, in proof order
}

// Compress elides every sibling equal to the empty constant for its depth.
func (p *Proof) Compress(et *EmptyTree) *CompressedProof {
	cp := &CompressedProof{Bits: make([]bool, len(p.Siblings))}
	for i, s := range p.Siblings {
		depth := MaxDepth - 1 - uint32(i)
		if et.isEmptyHash(s.Hash, depth+1) {
			cp.Bits[i] = true
			continue
		}
		cp.Siblings = append(cp.Siblings, s)
	}
	return cp
}

// Decompress reinserts the empty constant wherever Bits indicates, producing
// a full-length Proof. It fails if Bits isn't exactly MaxDepth long or the
// number of set bits is inconsistent with len(Siblings).
func (cp *CompressedProof) Decompress(et *EmptyTree) (*Proof, error) {
	if len(cp.Bits) != MaxDepth {
		return nil, ErrProofShape
	}
	empties := 0
	for _, b := range cp.Bits {
		if b {
			empties++
		}
	}
	if MaxDepth-empties != len(cp.Siblings) {
		return nil, ErrProofShape
	}

	siblings := make([]siblingEntry, MaxDepth)
	next := 0
	for i, isEmpty := range cp.Bits {
		depth := MaxDepth - 1 - uint32(i)
		if isEmpty {
			siblings[i] = siblingEntry{Hash: et.at(depth + 1).NodeHash(), Sum: 0}
			continue
		}
		siblings[i] = cp.Siblings[next]
		next++
	}
	return &Proof{Siblings: siblings}, nil
}
