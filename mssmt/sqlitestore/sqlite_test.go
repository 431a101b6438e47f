package sqlitestore_test

import (
	"testing"

	"github.com/lightcone-labs/mssmt/mssmt"
	"github.com/lightcone-labs/mssmt/mssmt/sqlitestore"
)

func newStore(t *testing.T) mssmt.Storage {
	store, err := sqlitestore.New(t.Context(), "file::memory:?cache=shared", mssmt.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return store
}

func TestSQLiteStoreAgreesWithMemory(t *testing.T) {
	ctx := t.Context()

	sqliteTree := mssmt.New(newStore(t))
	memTree := mssmt.New(mssmt.NewMemoryStorage(mssmt.DefaultHash))

	for n := 0; n < 200; n++ {
		var key mssmt.Key
		key[0], key[1] = byte(n>>8), byte(n)
		value := mssmt.DefaultHash(key[:])
		leaf := mssmt.NewLeafNode(mssmt.DefaultHash, value[:], uint64(n))

		if err := sqliteTree.Insert(ctx, key, leaf); err != nil {
			t.Fatal(err)
		}
		if err := memTree.Insert(ctx, key, leaf); err != nil {
			t.Fatal(err)
		}
	}

	sqliteRoot, err := sqliteTree.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	memRoot, err := memTree.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if sqliteRoot.NodeHash() != memRoot.NodeHash() {
		t.Fatalf("root hash diverged: sqlite %x, memory %x", sqliteRoot.NodeHash(), memRoot.NodeHash())
	}
	if sqliteRoot.NodeSum() != memRoot.NodeSum() {
		t.Fatalf("root sum diverged: sqlite %d, memory %d", sqliteRoot.NodeSum(), memRoot.NodeSum())
	}
}
