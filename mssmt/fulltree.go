package mssmt

import "context"

// Tree is the public interface both tree engines satisfy.
type Tree interface {
	// Insert inserts or overwrites key's leaf; an empty leaf (via
	// NewLeafNode(h, nil, 0), or simply nil) is equivalent to Delete.
	Insert(ctx context.Context, key Key, leaf *LeafNode) error
	// Delete removes key's leaf, if any. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key Key) error
	// Get returns key's leaf, or an empty leaf if key is absent.
	Get(ctx context.Context, key Key) (*LeafNode, error)
	// Root returns the current root. An empty tree's root has hash E[0] and
	// sum 0.
	Root(ctx context.Context) (*BranchNode, error)
	// MerkleProof generates an inclusion or exclusion proof for key.
	MerkleProof(ctx context.Context, key Key) (*Proof, error)
}

// FullTree maintains the conceptually complete binary tree of depth
// MaxDepth, with unpopulated subtrees represented implicitly via empty
// constants rather than stored.
type FullTree struct {
	storage Storage
	h       HashFunc
	et      *EmptyTree
	rec     opRecorder
}

var _ Tree = (*FullTree)(nil)

// New constructs a FullTree over storage. The hash function is BLAKE3-256
// unless overridden with WithHashFunc.
func New(storage Storage, opts ...Option) *FullTree {
	cfg := newConfig(opts)
	return &FullTree{storage: storage, h: cfg.hash, et: NewEmptyTree(cfg.hash), rec: cfg.rec}
}

func (t *FullTree) emptyRoot() (*BranchNode, error) {
	return newBranchNode(t.h, t.et.at(1), t.et.at(1))
}

func (t *FullTree) Root(ctx context.Context) (*BranchNode, error) {
	root, err := t.storage.GetRoot(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return t.emptyRoot()
	}
	return root, nil
}

// fullStep records, for a single depth, the node being replaced and the
// sibling that survives.
type fullStep struct {
	old     Node // node occupying this depth before the mutation, for cleanup
	sibling Node // the other child of the parent, to be re-paired on the way up
	bit     byte
}

// descend walks key from the root down to MaxDepth, resolving children
// through storage and recording, at each depth in [0, MaxDepth), the node
// being visited and its sibling. It returns the full path plus the node
// found at MaxDepth (a leaf, or the empty constant).
func (t *FullTree) descend(ctx context.Context, key Key) ([]fullStep, Node, error) {
	root, err := t.Root(ctx)
	if err != nil {
		return nil, nil, err
	}
	path := make([]fullStep, MaxDepth)
	var cur Node = root
	for d := uint32(0); d < MaxDepth; d++ {
		var left, right Node
		switch n := cur.(type) {
		case *BranchNode:
			left, right, err = t.storage.GetChildren(ctx, d, n.NodeHash())
			if err != nil {
				return nil, nil, err
			}
		case EmptyLeafNode:
			left, right = t.et.at(d+1), t.et.at(d+1)
		default:
			// A full tree never has a leaf above MaxDepth.
			return nil, nil, ErrNodeNotFound
		}
		bit := key.Bit(int(d))
		var next, sibling Node
		if bit == 0 {
			next, sibling = left, right
		} else {
			next, sibling = right, left
		}
		path[d] = fullStep{old: cur, sibling: sibling, bit: bit}
		cur = next
	}
	return path, cur, nil
}

func (t *FullTree) Get(ctx context.Context, key Key) (leaf *LeafNode, err error) {
	defer func() { t.rec.record("get", err) }()
	_, node, err := t.descend(ctx, key)
	if err != nil {
		return nil, err
	}
	return asLeaf(node), nil
}

// asLeaf normalizes the node found at MaxDepth into a *LeafNode, synthesizing
// an empty one if the position held the empty constant.
func asLeaf(node Node) *LeafNode {
	if leaf, ok := node.(*LeafNode); ok {
		return leaf
	}
	return &LeafNode{hash: node.NodeHash()}
}

func (t *FullTree) Insert(ctx context.Context, key Key, leaf *LeafNode) (err error) {
	defer func() { t.rec.record("insert", err) }()
	if leaf == nil || leaf.IsEmpty() {
		return t.delete(ctx, key)
	}

	path, oldLeafNode, err := t.descend(ctx, key)
	if err != nil {
		return err
	}

	if err := t.storage.InsertLeaf(ctx, leaf); err != nil {
		return err
	}

	var cur Node = leaf
	for d := int(MaxDepth) - 1; d >= 0; d-- {
		step := path[d]
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

	if oldLeaf, ok := oldLeafNode.(*LeafNode); ok {
		_ = t.storage.DeleteLeaf(ctx, oldLeaf.NodeHash())
	}
	for _, step := range path {
		if oldBranch, ok := step.old.(*BranchNode); ok {
			_ = t.storage.DeleteBranch(ctx, oldBranch.NodeHash())
		}
	}
	return nil
}

func (t *FullTree) Delete(ctx context.Context, key Key) (err error) {
	defer func() { t.rec.record("delete", err) }()
	return t.delete(ctx, key)
}

func (t *FullTree) delete(ctx context.Context, key Key) error {
	path, oldLeafNode, err := t.descend(ctx, key)
	if err != nil {
		return err
	}
	oldLeaf, wasPresent := oldLeafNode.(*LeafNode)
	if !wasPresent {
		return nil
	}

	var cur Node = t.et.at(MaxDepth)
	for d := int(MaxDepth) - 1; d >= 0; d-- {
		step := path[d]
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

	_ = t.storage.DeleteLeaf(ctx, oldLeaf.NodeHash())
	for _, step := range path {
		if oldBranch, ok := step.old.(*BranchNode); ok {
			_ = t.storage.DeleteBranch(ctx, oldBranch.NodeHash())
		}
	}
	return nil
}

func (t *FullTree) MerkleProof(ctx context.Context, key Key) (proof *Proof, err error) {
	defer func() { t.rec.record("prove", err) }()
	path, _, err := t.descend(ctx, key)
	if err != nil {
		return nil, err
	}
	siblings := make([]siblingEntry, MaxDepth)
	for d := uint32(0); d < MaxDepth; d++ {
		s := path[d].sibling
		// Siblings are ordered leaf-adjacent first, i.e. depth MaxDepth-1
		// down to depth 0.
		siblings[MaxDepth-1-d] = siblingEntry{Hash: s.NodeHash(), Sum: s.NodeSum()}
	}
	return &Proof{Siblings: siblings}, nil
}
