package mssmt

import "testing"

func TestLeafHashDependsOnSum(t *testing.T) {
	a := NewLeafNode(DefaultHash, []byte("value"), 1)
	b := NewLeafNode(DefaultHash, []byte("value"), 2)
	if a.NodeHash() == b.NodeHash() {
		t.Fatal("leaves with different sums must not collide")
	}
}

func TestLeafEqual(t *testing.T) {
	a := NewLeafNode(DefaultHash, []byte("value"), 1)
	b := a.Copy()
	if !a.equal(b) {
		t.Fatal("a copy must compare equal to its source")
	}
	c := NewLeafNode(DefaultHash, []byte("other"), 1)
	if a.equal(c) {
		t.Fatal("leaves with different values must not compare equal")
	}
}

func TestBranchSumIsAdditive(t *testing.T) {
	left := NewLeafNode(DefaultHash, []byte("l"), 3)
	right := NewLeafNode(DefaultHash, []byte("r"), 4)
	branch, err := newBranchNode(DefaultHash, left, right)
	if err != nil {
		t.Fatal(err)
	}
	if branch.NodeSum() != 7 {
		t.Fatalf("branch sum: got %d, want 7", branch.NodeSum())
	}
}

func TestBranchSumOverflow(t *testing.T) {
	left := NewLeafNode(DefaultHash, []byte("l"), maxUint64)
	right := NewLeafNode(DefaultHash, []byte("r"), 1)
	if _, err := newBranchNode(DefaultHash, left, right); err != ErrSumOverflow {
		t.Fatalf("expected ErrSumOverflow, got %v", err)
	}
}

const maxUint64 = ^uint64(0)

func TestEmptyLeafIsEmpty(t *testing.T) {
	et := NewEmptyTree(DefaultHash)
	if !et.at(MaxDepth).IsEmpty() {
		t.Fatal("empty constant must report IsEmpty")
	}
	if et.at(MaxDepth).NodeSum() != 0 {
		t.Fatal("empty constant must carry zero sum")
	}
}

func TestCompactLeafExpandMatchesFullChain(t *testing.T) {
	et := NewEmptyTree(DefaultHash)
	k := key(0b1111_0000)
	leaf := NewLeafNode(DefaultHash, []byte("v"), 5)

	// Build the explicit chain of branches from MaxDepth down to depth 8,
	// pairing the leaf with the empty constant on the side the key's bits
	// don't select at every intervening depth, and compare against
	// EmptyTree.expand folding the same chain.
	var cur Node = leaf
	for d := int(MaxDepth) - 1; d >= 8; d-- {
		empty := et.at(uint32(d + 1))
		var branch *BranchNode
		var err error
		if k.Bit(d) == 0 {
			branch, err = newBranchNode(DefaultHash, cur, empty)
		} else {
			branch, err = newBranchNode(DefaultHash, empty, cur)
		}
		if err != nil {
			t.Fatal(err)
		}
		cur = branch
	}

	cl := newCompactLeafNode(et, k, leaf, 8)
	if cl.NodeHash() != cur.NodeHash() {
		t.Fatalf("compact leaf hash mismatch: got %x, want %x", cl.NodeHash(), cur.NodeHash())
	}
}
