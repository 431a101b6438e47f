package mssmt

import "testing"

func TestMemoryStorageRoundTrip(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStorage(DefaultHash).(*memoryStorage)

	leaf := NewLeafNode(DefaultHash, []byte("v"), 1)
	fatalIfErr(t, store.InsertLeaf(ctx, leaf))

	et := NewEmptyTree(DefaultHash)
	branch, err := newBranchNode(DefaultHash, leaf, et.at(MaxDepth))
	fatalIfErr(t, err)
	fatalIfErr(t, store.InsertBranch(ctx, branch))
	fatalIfErr(t, store.UpdateRoot(ctx, branch))

	root, err := store.GetRoot(ctx)
	fatalIfErr(t, err)
	if root.NodeHash() != branch.NodeHash() {
		t.Fatal("stored root does not round-trip")
	}

	left, right, err := store.GetChildren(ctx, MaxDepth-1, branch.NodeHash())
	fatalIfErr(t, err)
	if left.NodeHash() != leaf.NodeHash() {
		t.Fatal("left child does not round-trip")
	}
	if !right.IsEmpty() {
		t.Fatal("right child should resolve to the empty constant")
	}

	fatalIfErr(t, store.DeleteBranch(ctx, branch.NodeHash()))
	if _, _, err := store.GetChildren(ctx, MaxDepth-1, branch.NodeHash()); err != ErrNodeNotFound {
		t.Fatalf("expected ErrNodeNotFound after delete, got %v", err)
	}
}

func fatalIfErr(t *testing.T, err error) {
	if err != nil {
		t.Helper()
		t.Fatal(err)
	}
}
