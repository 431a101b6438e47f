// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found at
// https://go.googlesource.com/go/+/refs/heads/master/LICENSE.

// Package checkpoint formats and signs tree heads according to
// c2sp.org/checkpoint, extended with the aggregate sum an mssmt tree carries
// at its root.
package checkpoint

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const maxCheckpointSize = 1e6
const hashSize = 32

// A Checkpoint is a signed statement about the state of an mssmt tree: its
// root hash and sum, and the number of leaves inserted to reach it.
//
// A checkpoint looks like this:
//
//	example.com/origin
//	923748
//	nND/nri/U0xuHUrYSy0HtMeal2vzD9V4k/BO79C+QeI=
//	14920
//
// The fourth line is the root sum; it is followed by any extra extension
// lines.
type Checkpoint struct {
	Origin    string
	LeafCount uint64
	RootHash  [hashSize]byte
	RootSum   uint64

	// Extension is empty or a sequence of non-empty lines, each terminated
	// by a newline character.
	Extension string
}

func ParseCheckpoint(text string) (Checkpoint, error) {
	if strings.Count(text, "\n") < 4 || len(text) > maxCheckpointSize {
		return Checkpoint{}, errors.New("malformed checkpoint")
	}
	if !strings.HasSuffix(text, "\n") {
		return Checkpoint{}, errors.New("malformed checkpoint")
	}

	lines := strings.SplitN(text, "\n", 5)

	n, err := strconv.ParseUint(lines[1], 10, 64)
	if err != nil || lines[1] != strconv.FormatUint(n, 10) {
		return Checkpoint{}, errors.New("malformed checkpoint")
	}

	h, err := base64.StdEncoding.DecodeString(lines[2])
	if err != nil || len(h) != hashSize {
		return Checkpoint{}, errors.New("malformed checkpoint")
	}

	sum, err := strconv.ParseUint(lines[3], 10, 64)
	if err != nil || lines[3] != strconv.FormatUint(sum, 10) {
		return Checkpoint{}, errors.New("malformed checkpoint")
	}

	rest := lines[4]
	for rest != "" {
		before, after, found := strings.Cut(rest, "\n")
		if before == "" || !found {
			return Checkpoint{}, errors.New("malformed checkpoint")
		}
		rest = after
	}

	var hash [hashSize]byte
	copy(hash[:], h)
	return Checkpoint{lines[0], n, hash, sum, lines[4]}, nil
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("%s\n%d\n%s\n%d\n%s",
		c.Origin,
		c.LeafCount,
		base64.StdEncoding.EncodeToString(c.RootHash[:]),
		c.RootSum,
		c.Extension,
	)
}
