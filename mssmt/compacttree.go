package mssmt

import "context"

// CompactTree maintains the same abstract (key, leaf) set as FullTree, but
// elides unary subtrees: any subtree with exactly one populated leaf is
// represented by a single CompactLeafNode instead of a chain of branches
// down to MaxDepth. Every stored branch below the root has at least two
// non-empty descendants; the root is always kept as a BranchNode, even when
// it has fewer. This engine's divergent-insert and unary-collapse logic is
// grounded on the reference codebase's LongestCommonPrefix/SideOf machinery,
// generalized to carry sums and to support deletion.
type CompactTree struct {
	storage Storage
	h       HashFunc
	et      *EmptyTree
	rec     opRecorder
}

var _ Tree = (*CompactTree)(nil)

// NewCompact constructs a CompactTree over storage. The hash function is
// BLAKE3-256 unless overridden with WithHashFunc.
func NewCompact(storage Storage, opts ...Option) *CompactTree {
	cfg := newConfig(opts)
	return &CompactTree{storage: storage, h: cfg.hash, et: NewEmptyTree(cfg.hash), rec: cfg.rec}
}

func (t *CompactTree) emptyRoot() (*BranchNode, error) {
	return newBranchNode(t.h, t.et.at(1), t.et.at(1))
}

func (t *CompactTree) Root(ctx context.Context) (*BranchNode, error) {
	root, err := t.storage.GetRoot(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return t.emptyRoot()
	}
	return root, nil
}

type compactStep struct {
	oldBranch *BranchNode
	sibling   Node
	bit       byte
}

// descend walks key from the root until it reaches an empty position or a
// CompactLeaf, whichever comes first, recording the path of branches and
// siblings traversed. The returned depth is the depth of the terminal node.
func (t *CompactTree) descend(ctx context.Context, key Key) ([]compactStep, Node, uint32, error) {
	root, err := t.Root(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	var path []compactStep
	var cur Node = root
	for d := uint32(0); ; d++ {
		branch, ok := cur.(*BranchNode)
		if !ok {
			return path, cur, d, nil
		}
		left, right, err := t.storage.GetChildren(ctx, d, branch.NodeHash())
		if err != nil {
			return nil, nil, 0, err
		}
		bit := key.Bit(int(d))
		var next, sibling Node
		if bit == 0 {
			next, sibling = left, right
		} else {
			next, sibling = right, left
		}
		path = append(path, compactStep{oldBranch: branch, sibling: sibling, bit: bit})
		cur = next
	}
}

func (t *CompactTree) Get(ctx context.Context, key Key) (leaf *LeafNode, err error) {
	defer func() { t.rec.record("get", err) }()
	_, terminal, _, err := t.descend(ctx, key)
	if err != nil {
		return nil, err
	}
	if cl, ok := terminal.(*CompactLeafNode); ok && cl.Key == key {
		return cl.Leaf, nil
	}
	return &LeafNode{hash: t.et.at(MaxDepth).NodeHash()}, nil
}

func (t *CompactTree) Insert(ctx context.Context, key Key, leaf *LeafNode) (err error) {
	defer func() { t.rec.record("insert", err) }()
	if leaf == nil || leaf.IsEmpty() {
		return t.delete(ctx, key)
	}

	path, terminal, depth, err := t.descend(ctx, key)
	if err != nil {
		return err
	}

	var replacement Node
	var deleteCompact [][KeySize]byte
	switch n := terminal.(type) {
	case EmptyLeafNode:
		cl := newCompactLeafNode(t.et, key, leaf, depth)
		if err := t.storage.InsertCompactLeaf(ctx, cl); err != nil {
			return err
		}
		replacement = cl
	case *CompactLeafNode:
		if n.Key == key {
			cl := newCompactLeafNode(t.et, key, leaf, depth)
			if err := t.storage.InsertCompactLeaf(ctx, cl); err != nil {
				return err
			}
			deleteCompact = append(deleteCompact, n.NodeHash())
			replacement = cl
		} else {
			replacement, err = t.splitCompactLeaf(ctx, n, depth, key, leaf)
			if err != nil {
				return err
			}
			deleteCompact = append(deleteCompact, n.NodeHash())
		}
	default:
		return ErrNodeNotFound
	}

	cur := replacement
	for i := int(depth) - 1; i >= 0; i-- {
		step := path[i]
		var branch *BranchNode
		if step.bit == 0 {
			branch, err = newBranchNode(t.h, cur, step.sibling)
		} else {
			branch, err = newBranchNode(t.h, step.sibling, cur)
		}
		if err != nil {
			return err
		}
		if err := t.storage.InsertBranch(ctx, branch); err != nil {
			return err
		}
		cur = branch
	}

	if err := t.storage.UpdateRoot(ctx, cur.(*BranchNode)); err != nil {
		return err
	}
	for _, h := range deleteCompact {
		_ = t.storage.DeleteCompactLeaf(ctx, h)
	}
	for _, step := range path {
		_ = t.storage.DeleteBranch(ctx, step.oldBranch.NodeHash())
	}
	return nil
}

// splitCompactLeaf materialises the branch chain needed to insert (key,
// leaf) into the subtree currently occupied by the single CompactLeaf
// existing, which sits at depth. It returns the new node to place at depth,
// replacing existing.
func (t *CompactTree) splitCompactLeaf(ctx context.Context, existing *CompactLeafNode, depth uint32, key Key, leaf *LeafNode) (Node, error) {
	m := longestCommonPrefix(key, existing.Key).bitLen

	newLeaf := newCompactLeafNode(t.et, key, leaf, m+1)
	oldLeaf := newCompactLeafNode(t.et, existing.Key, existing.Leaf, m+1)
	if err := t.storage.InsertCompactLeaf(ctx, newLeaf); err != nil {
		return nil, err
	}
	if err := t.storage.InsertCompactLeaf(ctx, oldLeaf); err != nil {
		return nil, err
	}

	var branch *BranchNode
	var err error
	if key.Bit(int(m)) == 0 {
		branch, err = newBranchNode(t.h, newLeaf, oldLeaf)
	} else {
		branch, err = newBranchNode(t.h, oldLeaf, newLeaf)
	}
	if err != nil {
		return nil, err
	}
	if err := t.storage.InsertBranch(ctx, branch); err != nil {
		return nil, err
	}

	var cur Node = branch
	for i := int(m) - 1; i >= int(depth); i-- {
		empty := t.et.at(uint32(i + 1))
		var b *BranchNode
		if key.Bit(i) == 0 {
			b, err = newBranchNode(t.h, cur, empty)
		} else {
			b, err = newBranchNode(t.h, empty, cur)
		}
		if err != nil {
			return nil, err
		}
		if err := t.storage.InsertBranch(ctx, b); err != nil {
			return nil, err
		}
		cur = b
	}
	return cur, nil
}

func (t *CompactTree) Delete(ctx context.Context, key Key) (err error) {
	defer func() { t.rec.record("delete", err) }()
	return t.delete(ctx, key)
}

func (t *CompactTree) delete(ctx context.Context, key Key) error {
	path, terminal, depth, err := t.descend(ctx, key)
	if err != nil {
		return err
	}
	cl, ok := terminal.(*CompactLeafNode)
	if !ok || cl.Key != key {
		return nil
	}

	var cur Node = t.et.at(depth)
	oldCompact := cl.NodeHash()

	for i := int(depth) - 1; i >= 1; i-- {
		step := path[i]
		var left, right Node
		if step.bit == 0 {
			left, right = cur, step.sibling
		} else {
			left, right = step.sibling, cur
		}

		switch {
		case left.IsEmpty() && right.IsEmpty():
			cur = t.et.at(uint32(i))
		case left.IsEmpty() != right.IsEmpty():
			survivor := left
			if left.IsEmpty() {
				survivor = right
			}
			if survivorLeaf, ok := survivor.(*CompactLeafNode); ok {
				collapsed := newCompactLeafNode(t.et, survivorLeaf.Key, survivorLeaf.Leaf, uint32(i))
				if err := t.storage.InsertCompactLeaf(ctx, collapsed); err != nil {
					return err
				}
				_ = t.storage.DeleteCompactLeaf(ctx, survivorLeaf.NodeHash())
				cur = collapsed
			} else {
				branch, err := newBranchNode(t.h, left, right)
				if err != nil {
					return err
				}
				if err := t.storage.InsertBranch(ctx, branch); err != nil {
					return err
				}
				cur = branch
			}
		default:
			branch, err := newBranchNode(t.h, left, right)
			if err != nil {
				return err
			}
			if err := t.storage.InsertBranch(ctx, branch); err != nil {
				return err
			}
			cur = branch
		}
		_ = t.storage.DeleteBranch(ctx, step.oldBranch.NodeHash())
	}

	// The node at depth 0 is always materialised as an explicit branch: it
	// is the distinguished root, never collapsed into a CompactLeaf.
	var rootBranch *BranchNode
	if len(path) == 0 {
		rootBranch, err = t.emptyRoot()
	} else {
		step := path[0]
		if step.bit == 0 {
			rootBranch, err = newBranchNode(t.h, cur, step.sibling)
		} else {
			rootBranch, err = newBranchNode(t.h, step.sibling, cur)
		}
	}
	if err != nil {
		return err
	}
	if err := t.storage.InsertBranch(ctx, rootBranch); err != nil {
		return err
	}
	if err := t.storage.UpdateRoot(ctx, rootBranch); err != nil {
		return err
	}
	if len(path) > 0 {
		_ = t.storage.DeleteBranch(ctx, path[0].oldBranch.NodeHash())
	}
	_ = t.storage.DeleteCompactLeaf(ctx, oldCompact)
	return nil
}

func (t *CompactTree) MerkleProof(ctx context.Context, key Key) (proof *Proof, err error) {
	defer func() { t.rec.record("prove", err) }()
	path, terminal, depth, err := t.descend(ctx, key)
	if err != nil {
		return nil, err
	}

	siblings := make([]siblingEntry, MaxDepth)
	for i, step := range path {
		siblings[MaxDepth-1-uint32(i)] = siblingEntry{Hash: step.sibling.NodeHash(), Sum: step.sibling.NodeSum()}
	}

	tail := t.tailSiblings(key, terminal, depth)
	for i, s := range tail {
		d := depth + uint32(i)
		siblings[MaxDepth-1-d] = s
	}
	return &Proof{Siblings: siblings}, nil
}

// tailSiblings computes the proof siblings for depths [fromDepth, MaxDepth)
// that aren't backed by a real stored branch, because the compact tree
// stopped descending at fromDepth. If the terminal position holds a
// CompactLeaf for a different key, the sibling at their common-prefix depth
// is that leaf's expanded hash and sum rather than an empty constant.
func (t *CompactTree) tailSiblings(key Key, terminal Node, fromDepth uint32) []siblingEntry {
	out := make([]siblingEntry, MaxDepth-fromDepth)
	cl, ok := terminal.(*CompactLeafNode)
	if !ok || cl.Key == key {
		for i := fromDepth; i < MaxDepth; i++ {
			out[i-fromDepth] = siblingEntry{Hash: t.et.at(i + 1).NodeHash(), Sum: 0}
		}
		return out
	}

	m := longestCommonPrefix(key, cl.Key).bitLen
	otherHash := t.et.expand(cl.Key, cl.Leaf.NodeHash(), cl.Leaf.Sum, m+1)
	for i := fromDepth; i < MaxDepth; i++ {
		if i == m {
			out[i-fromDepth] = siblingEntry{Hash: otherHash, Sum: cl.Leaf.Sum}
		} else {
			out[i-fromDepth] = siblingEntry{Hash: t.et.at(i + 1).NodeHash(), Sum: 0}
		}
	}
	return out
}
