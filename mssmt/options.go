package mssmt

import "lukechampine.com/blake3"

// DefaultHash is BLAKE3-256, the hash function used when no Option overrides
// it, matching the hash already exercised by the reference codebase's mpt
// test suite.
func DefaultHash(data []byte) [KeySize]byte {
	return blake3.Sum256(data)
}

// Recorder observes tree operations as they complete. Implementations must
// be safe for concurrent use. See the metrics subpackage for a Prometheus
// implementation.
type Recorder interface {
	Record(op string, err error)
}

type opRecorder struct{ r Recorder }

func (o opRecorder) record(op string, err error) {
	if o.r != nil {
		o.r.Record(op, err)
	}
}

type config struct {
	hash HashFunc
	rec  opRecorder
}

func newConfig(opts []Option) *config {
	cfg := &config{hash: DefaultHash}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a FullTree or CompactTree at construction.
type Option func(*config)

// WithHashFunc overrides the tree's hash function. It must be deterministic
// and produce KeySize-byte outputs.
func WithHashFunc(h HashFunc) Option {
	return func(c *config) { c.hash = h }
}

// WithRecorder attaches a Recorder that observes every Insert, Delete, Get
// and MerkleProof call.
func WithRecorder(r Recorder) Option {
	return func(c *config) { c.rec = opRecorder{r: r} }
}
