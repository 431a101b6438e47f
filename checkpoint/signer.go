// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found at
// https://go.googlesource.com/go/+/refs/heads/master/LICENSE.

package checkpoint

import (
	"crypto"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/mod/sumdb/note"
)

const algCosignatureV1 = 4

// NewSigner constructs a note.Signer from an Ed25519 key that produces
// timestamped cosignatures over Checkpoint text, following
// c2sp.org/tlog-cosignature.
func NewSigner(name string, key crypto.Signer) (*Signer, error) {
	if !isValidName(name) {
		return nil, errors.New("invalid name")
	}
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key type is not Ed25519")
	}

	s := &Signer{
		name: name,
		hash: keyHash(name, append([]byte{algCosignatureV1}, pub...)),
		pub:  pub,
	}
	s.sign = func(msg []byte) ([]byte, error) {
		t := uint64(time.Now().Unix())
		m, err := formatCosignatureV1(t, msg)
		if err != nil {
			return nil, err
		}
		sig, err := key.Sign(nil, m, crypto.Hash(0))
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, 8+ed25519.SignatureSize)
		out = binary.BigEndian.AppendUint64(out, t)
		out = append(out, sig...)
		return out, nil
	}
	return s, nil
}

func formatCosignatureV1(t uint64, msg []byte) ([]byte, error) {
	// The signed message is:
	//
	//	cosignature/v1
	//	time TTTTTTTTTT
	//	origin line
	//	NNNNNNNNN
	//	root hash
	//	root sum
	//
	// where TTTTTTTTTT is the current UNIX timestamp, and the following
	// four lines are the first four lines of the checkpoint. Extension
	// lines are not signed.
	c, err := ParseCheckpoint(string(msg))
	if err != nil {
		return nil, fmt.Errorf("message being signed is not a valid checkpoint: %w", err)
	}
	return []byte(fmt.Sprintf(
		"cosignature/v1\ntime %d\n%s\n%d\n%s\n%d\n",
		t, c.Origin, c.LeafCount, base64.StdEncoding.EncodeToString(c.RootHash[:]), c.RootSum)), nil
}

// Signer is a note.Signer that produces timestamped cosignatures over
// Checkpoint text.
type Signer struct {
	name string
	hash uint32
	pub  ed25519.PublicKey
	sign func([]byte) ([]byte, error)
}

func (s *Signer) Name() string                    { return s.name }
func (s *Signer) KeyHash() uint32                 { return s.hash }
func (s *Signer) Sign(msg []byte) ([]byte, error) { return s.sign(msg) }
func (s *Signer) Verifier() *Verifier             { return &Verifier{name: s.name, hash: s.hash, pub: s.pub} }

var _ note.Signer = (*Signer)(nil)

// Verifier checks cosignatures produced by a Signer.
type Verifier struct {
	name string
	hash uint32
	pub  ed25519.PublicKey
}

func (v *Verifier) Name() string    { return v.name }
func (v *Verifier) KeyHash() uint32 { return v.hash }

func (v *Verifier) Verify(msg, sig []byte) bool {
	if len(sig) != 8+ed25519.SignatureSize {
		return false
	}
	t := binary.BigEndian.Uint64(sig)
	sig = sig[8:]
	m, err := formatCosignatureV1(t, msg)
	if err != nil {
		return false
	}
	return ed25519.Verify(v.pub, m, sig)
}

// String returns the vkey encoding of the verifier, per c2sp.org/signed-note.
func (v *Verifier) String() string {
	return fmt.Sprintf("%s+%08x+%s", v.name, v.hash, base64.StdEncoding.EncodeToString(
		append([]byte{algCosignatureV1}, v.pub...)))
}

var _ note.Verifier = (*Verifier)(nil)

func isValidName(name string) bool {
	return name != "" && utf8.ValidString(name) && strings.IndexFunc(name, unicode.IsSpace) < 0 && !strings.Contains(name, "+")
}

func keyHash(name string, key []byte) uint32 {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte("\n"))
	h.Write(key)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum)
}
