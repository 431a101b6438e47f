package mssmt

import (
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"
)

var errMismatch = errors.New("concurrent Get returned an unexpected leaf")

// TestConcurrentReads exercises the concurrent-reads guarantee Storage
// implementations must provide: many goroutines calling Get against the
// same populated tree while no writer is active.
func TestConcurrentReads(t *testing.T) {
	ctx := t.Context()
	tree := New(NewMemoryStorage(DefaultHash))

	const n = 500
	for i := uint16(0); i < n; i++ {
		k := numberedKey(i)
		fatalIfErr(t, tree.Insert(ctx, k, NewLeafNode(DefaultHash, []byte{byte(i)}, uint64(i))))
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := uint16(0); i < n; i++ {
		i := i
		g.Go(func() error {
			k := numberedKey(i)
			leaf, err := tree.Get(ctx, k)
			if err != nil {
				return err
			}
			if leaf.Sum != uint64(i) {
				return errMismatch
			}
			return nil
		})
	}
	fatalIfErr(t, g.Wait())
}
