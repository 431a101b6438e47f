package mssmt

// HashFunc is the collision-resistant digest used throughout a tree. It must
// be deterministic and produce KeySize-byte outputs. The default, used by
// New and NewCompact when none is supplied, is BLAKE3-256.
type HashFunc func([]byte) [KeySize]byte

// Node is the tagged variant over EmptyLeafNode, *LeafNode, *CompactLeafNode
// and *BranchNode. Polymorphism is limited to hash, sum and emptiness,
// matching the distilled "sum-type node" design: every node's hash is fixed
// at construction time by the HashFunc that built it, so NodeHash never
// needs to take one as an argument.
type Node interface {
	// NodeHash returns the node's canonical hash.
	NodeHash() [KeySize]byte
	// NodeSum returns the total weight of every leaf beneath (or at) this
	// node.
	NodeSum() uint64
	// IsEmpty reports whether this node is the empty-leaf constant for its
	// depth.
	IsEmpty() bool
}

// LeafNode is a populated leaf: an opaque value payload and its weight.
// node_hash = H(value || be64(sum)).
type LeafNode struct {
	Value []byte
	Sum   uint64

	hash [KeySize]byte
}

// NewLeafNode constructs a leaf from a value and sum and computes its hash.
func NewLeafNode(h HashFunc, value []byte, sum uint64) *LeafNode {
	buf := make([]byte, 0, len(value)+8)
	buf = append(buf, value...)
	buf = append(buf, sumBytes(sum)...)
	return &LeafNode{Value: value, Sum: sum, hash: h(buf)}
}

// NewLeafNodeFromParts reconstructs a leaf from a previously computed hash,
// trusting the caller's storage layer rather than recomputing it. Storage
// backends outside this package use it to rebuild nodes from persisted rows.
func NewLeafNodeFromParts(value []byte, sum uint64, hash [KeySize]byte) *LeafNode {
	return &LeafNode{Value: value, Sum: sum, hash: hash}
}

func (l *LeafNode) NodeHash() [KeySize]byte { return l.hash }
func (l *LeafNode) NodeSum() uint64         { return l.Sum }
func (l *LeafNode) IsEmpty() bool           { return len(l.Value) == 0 && l.Sum == 0 }

// Copy returns a value copy of the leaf.
func (l *LeafNode) Copy() *LeafNode {
	value := make([]byte, len(l.Value))
	copy(value, l.Value)
	return &LeafNode{Value: value, Sum: l.Sum, hash: l.hash}
}

func (l *LeafNode) equal(other *LeafNode) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Sum == other.Sum && string(l.Value) == string(other.Value)
}

// BranchNode is an interior node. Its hash and sum are derived entirely from
// its children's hash and sum, never from their contents, which is what lets
// storage be purely content-addressed.
// node_hash = H(left.hash || right.hash || be64(left.sum+right.sum)).
type BranchNode struct {
	Left, Right       [KeySize]byte
	LeftSum, RightSum uint64

	hash [KeySize]byte
}

func newBranchNode(h HashFunc, left, right Node) (*BranchNode, error) {
	sum, err := addSums(left.NodeSum(), right.NodeSum())
	if err != nil {
		return nil, err
	}
	leftHash, rightHash := left.NodeHash(), right.NodeHash()
	return &BranchNode{
		Left: leftHash, Right: rightHash,
		LeftSum: left.NodeSum(), RightSum: right.NodeSum(),
		hash: branchHash(h, leftHash, rightHash, sum),
	}, nil
}

func branchHash(h HashFunc, left, right [KeySize]byte, sum uint64) [KeySize]byte {
	buf := make([]byte, 0, 2*KeySize+8)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	buf = append(buf, sumBytes(sum)...)
	return h(buf)
}

// NewBranchNodeFromParts reconstructs a branch from previously computed
// fields, trusting the caller's storage layer rather than recomputing the
// hash. Storage backends outside this package use it to rebuild nodes from
// persisted rows.
func NewBranchNodeFromParts(left, right [KeySize]byte, leftSum, rightSum uint64, hash [KeySize]byte) *BranchNode {
	return &BranchNode{Left: left, Right: right, LeftSum: leftSum, RightSum: rightSum, hash: hash}
}

func (b *BranchNode) NodeHash() [KeySize]byte { return b.hash }
func (b *BranchNode) NodeSum() uint64 {
	sum, err := addSums(b.LeftSum, b.RightSum)
	if err != nil {
		// Sums are validated when newBranchNode constructs a branch;
		// reaching an overflow here means storage handed back a branch that
		// was never legitimately produced by this package.
		panic("mssmt: inconsistent branch sum: " + err.Error())
	}
	return sum
}
func (b *BranchNode) IsEmpty() bool { return false }

// CompactLeafNode represents a unary subtree rooted at Depth: the only
// populated leaf below Depth is Leaf, reached by following Key's bits from
// Depth onward. Its effective hash at Depth is computed by folding Leaf's
// hash up through MaxDepth-Depth empty siblings (see EmptyTree.expand).
type CompactLeafNode struct {
	Key   Key
	Leaf  *LeafNode
	Depth uint32

	hash [KeySize]byte
}

func newCompactLeafNode(et *EmptyTree, key Key, leaf *LeafNode, depth uint32) *CompactLeafNode {
	return &CompactLeafNode{
		Key: key, Leaf: leaf, Depth: depth,
		hash: et.expand(key, leaf.NodeHash(), leaf.Sum, depth),
	}
}

// NewCompactLeafNodeFromParts reconstructs a compact leaf from a previously
// computed effective hash, trusting the caller's storage layer rather than
// re-expanding it. Storage backends outside this package use it to rebuild
// nodes from persisted rows.
func NewCompactLeafNodeFromParts(key Key, leaf *LeafNode, depth uint32, hash [KeySize]byte) *CompactLeafNode {
	return &CompactLeafNode{Key: key, Leaf: leaf, Depth: depth, hash: hash}
}

func (c *CompactLeafNode) NodeHash() [KeySize]byte { return c.hash }
func (c *CompactLeafNode) NodeSum() uint64         { return c.Leaf.Sum }
func (c *CompactLeafNode) IsEmpty() bool           { return false }

// EmptyLeafNode is the canonical empty subtree constant at a given depth.
type EmptyLeafNode struct {
	Depth uint32
	hash  [KeySize]byte
}

func (e EmptyLeafNode) NodeHash() [KeySize]byte { return e.hash }
func (e EmptyLeafNode) NodeSum() uint64         { return 0 }
func (e EmptyLeafNode) IsEmpty() bool           { return true }
