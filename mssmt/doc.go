// Package mssmt implements a Merkle Sum Sparse Merkle Tree: a sparse binary
// Merkle tree over 256-bit keys in which every branch also carries the sum
// of the weights of all leaves beneath it.
//
// Two tree engines are provided over the same Storage interface and produce
// identical roots for the same key set: FullTree materializes the
// conceptually complete tree down to every key's full depth, and CompactTree
// collapses unary subtrees into single CompactLeaf nodes to avoid storing
// long runs of otherwise-empty branches.
//
// This package is NOT STABLE, regardless of the module version, and the API
// may change without notice.
package mssmt
