package mssmt

import "testing"

func TestCompactTreeInsertGetDelete(t *testing.T) {
	ctx := t.Context()
	tree := NewCompact(NewMemoryStorage(DefaultHash))

	a := numberedKey(1)
	b := numberedKey(2)
	leafA := NewLeafNode(DefaultHash, []byte("a"), 3)
	leafB := NewLeafNode(DefaultHash, []byte("b"), 4)

	fatalIfErr(t, tree.Insert(ctx, a, leafA))
	fatalIfErr(t, tree.Insert(ctx, b, leafB))

	gotA, err := tree.Get(ctx, a)
	fatalIfErr(t, err)
	if !gotA.equal(leafA) {
		t.Fatal("Get(a) did not return the inserted leaf")
	}

	root, err := tree.Root(ctx)
	fatalIfErr(t, err)
	if root.NodeSum() != 7 {
		t.Fatalf("root sum: got %d, want 7", root.NodeSum())
	}

	fatalIfErr(t, tree.Delete(ctx, a))
	gotA, err = tree.Get(ctx, a)
	fatalIfErr(t, err)
	if !gotA.IsEmpty() {
		t.Fatal("Get(a) after Delete must return an empty leaf")
	}

	gotB, err := tree.Get(ctx, b)
	fatalIfErr(t, err)
	if !gotB.equal(leafB) {
		t.Fatal("deleting a lived key must not disturb its sibling")
	}

	fatalIfErr(t, tree.Delete(ctx, b))
	root, err = tree.Root(ctx)
	fatalIfErr(t, err)
	et := NewEmptyTree(DefaultHash)
	if root.NodeHash() != et.at(0).NodeHash() {
		t.Fatal("tree emptied of all leaves must collapse back to the empty root")
	}
}

func TestCompactAndFullTreeAgree(t *testing.T) {
	ctx := t.Context()
	full := New(NewMemoryStorage(DefaultHash))
	compact := NewCompact(NewMemoryStorage(DefaultHash))

	for n := uint16(0); n < 300; n++ {
		k := numberedKey(n)
		value := DefaultHash(k[:])
		leaf := NewLeafNode(DefaultHash, value[:], uint64(n))
		fatalIfErr(t, full.Insert(ctx, k, leaf))
		fatalIfErr(t, compact.Insert(ctx, k, leaf))
	}
	for n := uint16(0); n < 300; n += 3 {
		k := numberedKey(n)
		fatalIfErr(t, full.Delete(ctx, k))
		fatalIfErr(t, compact.Delete(ctx, k))
	}

	fullRoot, err := full.Root(ctx)
	fatalIfErr(t, err)
	compactRoot, err := compact.Root(ctx)
	fatalIfErr(t, err)

	if fullRoot.NodeHash() != compactRoot.NodeHash() {
		t.Fatalf("root hash diverged: full %x, compact %x", fullRoot.NodeHash(), compactRoot.NodeHash())
	}
	if fullRoot.NodeSum() != compactRoot.NodeSum() {
		t.Fatalf("root sum diverged: full %d, compact %d", fullRoot.NodeSum(), compactRoot.NodeSum())
	}

	for n := uint16(0); n < 300; n++ {
		k := numberedKey(n)
		fullLeaf, err := full.Get(ctx, k)
		fatalIfErr(t, err)
		compactLeaf, err := compact.Get(ctx, k)
		fatalIfErr(t, err)
		if fullLeaf.NodeHash() != compactLeaf.NodeHash() || fullLeaf.Sum != compactLeaf.Sum {
			t.Fatalf("leaf mismatch at key %d", n)
		}
	}
}

func TestCompactTreeProofAgreesWithFullTree(t *testing.T) {
	ctx := t.Context()
	full := New(NewMemoryStorage(DefaultHash))
	compact := NewCompact(NewMemoryStorage(DefaultHash))

	for n := uint16(0); n < 64; n++ {
		k := numberedKey(n)
		leaf := NewLeafNode(DefaultHash, []byte{byte(n)}, uint64(n))
		fatalIfErr(t, full.Insert(ctx, k, leaf))
		fatalIfErr(t, compact.Insert(ctx, k, leaf))
	}

	root, err := compact.Root(ctx)
	fatalIfErr(t, err)

	for _, n := range []uint16{0, 1, 30, 63, 9999} {
		k := numberedKey(n)
		leaf, err := compact.Get(ctx, k)
		fatalIfErr(t, err)
		proof, err := compact.MerkleProof(ctx, k)
		fatalIfErr(t, err)
		if err := proof.Verify(DefaultHash, k, leaf, root.NodeHash(), root.NodeSum()); err != nil {
			t.Fatalf("compact proof for key %d did not verify: %v", n, err)
		}
		fullProof, err := full.MerkleProof(ctx, k)
		fatalIfErr(t, err)
		for i := range proof.Siblings {
			if proof.Siblings[i] != fullProof.Siblings[i] {
				t.Fatalf("compact and full proofs for key %d differ at sibling %d", n, i)
			}
		}
	}
}
