// Copyright 2024 The SSK Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ----------------

// Package cdu implements the Canonical Data Unit codec: a deterministic,
// minimality-enforcing integer codec with one parameter table entry per
// subtype.
//
// Subtypes are either fixed-length (every value takes exactly baseBits
// bits) or variable-length (a first step, zero or more uniform-width middle
// steps, and a final remainder step; every non-terminal step carries a
// 1-bit continuation suffix). A value must always be encoded with the
// fewest steps capable of representing it: decoders reject any encoding
// that uses more.
package cdu

import (
	"errors"

	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/bitcursor"
)

// Subtype names one entry in the CDU parameter table.
type Subtype int

const (
	Default Subtype = iota
	SmallInt
	MediumInt
	LargeInt
	InitialDelta
	EnumK
	EnumRank
	EnumCombined
	Raw1
	Raw2
	Raw64

	numSubtypes
)

// descriptor is the "richer step/mask structure" variant called for by
// spec.md's open question on CDU headers: it records every field needed to
// compute, for any step count, the exact value capacity and bit cost,
// rather than just a maxSteps count.
type descriptor struct {
	fixed bool
	// Fixed-length subtypes use baseBits alone.
	baseBits uint

	// Variable-length subtypes use the remaining fields. The first step
	// holds `first` payload bits (first may be zero: see spec.md §4.2).
	// Each of up to `maxMiddle` middle steps holds `step` payload bits.
	// The terminal step holds `remainder` payload bits, remainder >= step.
	first     uint
	step      uint
	maxMiddle uint
	remainder uint
}

// table is initialized once by init() and is read-only thereafter, per
// spec.md §5 ("process-wide tables ... immutable after initialization").
// Go's package init() is itself a one-shot, race-free gate, so no
// additional sync.Once is needed here (unlike the combin package's table,
// which is expensive enough to be worth gating lazily - see combin.go).
var table [numSubtypes]descriptor

func init() {
	// Bit widths below are this module's concrete choice for the
	// "empirical/placeholder" CDU-subtype parameters that spec.md's design
	// notes (§9) say the source leaves unspecified.
	table[Default] = descriptor{first: 4, step: 7, maxMiddle: 8, remainder: 9}
	table[SmallInt] = descriptor{first: 3, step: 4, maxMiddle: 4, remainder: 8}
	table[MediumInt] = descriptor{first: 5, step: 8, maxMiddle: 4, remainder: 10}
	table[LargeInt] = descriptor{first: 6, step: 10, maxMiddle: 5, remainder: 12}
	table[InitialDelta] = descriptor{first: 8, step: 12, maxMiddle: 4, remainder: 16}
	table[EnumK] = descriptor{first: 0, step: 3, maxMiddle: 2, remainder: 6}
	table[EnumRank] = descriptor{first: 8, step: 10, maxMiddle: 4, remainder: 14}
	table[EnumCombined] = descriptor{first: 10, step: 12, maxMiddle: 4, remainder: 16}
	table[Raw1] = descriptor{fixed: true, baseBits: 1}
	table[Raw2] = descriptor{fixed: true, baseBits: 2}
	table[Raw64] = descriptor{fixed: true, baseBits: 64}
}

// ErrOutOfRange is returned by Encode when value cannot be represented by
// subtype.
var ErrOutOfRange = errors.New("cdu: value out of range for subtype")

// ErrTruncated mirrors bitcursor.ErrTruncated for truncation while decoding
// a CDU field specifically (as opposed to a raw bit read).
var ErrTruncated = errors.New("cdu: truncated")

// ErrNonCanonical is returned by Decode when an encoding uses more steps
// than the minimum required to represent its value.
var ErrNonCanonical = errors.New("cdu: non-canonical encoding")

// capForLevel returns the maximum value representable using a step whose
// cumulative payload width (summed over all steps so far, continuation
// bits excluded) is bits.
func capForLevel(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// levels returns the cumulative payload-bit width after each possible step
// count, in order: level 1 is just the first step, levels 2..(1+maxMiddle)
// add one middle step each, and the final level adds the remainder step.
func (d descriptor) levels() []uint {
	ls := make([]uint, 0, d.maxMiddle+2)
	cum := d.first
	ls = append(ls, cum)
	for i := uint(0); i < d.maxMiddle; i++ {
		cum += d.step
		ls = append(ls, cum)
	}
	cum += d.remainder
	ls = append(ls, cum)
	return ls
}

// stepCountFor returns the minimal number of steps needed to represent
// value, or 0 if value exceeds the subtype's capacity entirely.
func (d descriptor) stepCountFor(value uint64) int {
	for i, bits := range d.levels() {
		if value <= capForLevel(bits) {
			return i + 1
		}
	}
	return 0
}

// stepWidth returns the payload width of the stepIndex'th step (0-based).
func (d descriptor) stepWidth(stepIndex int) uint {
	if stepIndex == 0 {
		return d.first
	}
	if uint(stepIndex) <= d.maxMiddle {
		return d.step
	}
	return d.remainder
}

// Encode writes value using subtype's rules at bit offset w's current
// position, returning the number of bits written, or (0, ErrOutOfRange) if
// value cannot be represented.
func Encode(w *bitcursor.Writer, value uint64, subtype Subtype) (uint, error) {
	d := table[subtype]
	start := w.BitLen()

	if d.fixed {
		if d.baseBits < 64 && value>>d.baseBits != 0 {
			return 0, ErrOutOfRange
		}
		w.WriteBits(value, uintOrSixtyFour(d.baseBits))
		return uint(w.BitLen() - start), nil
	}

	n := d.stepCountFor(value)
	if n == 0 {
		return 0, ErrOutOfRange
	}

	levels := d.levels()
	maxStepIndex := len(levels) - 1
	lowerBound := uint64(0)
	if n > 1 {
		lowerBound = capForLevel(levels[n-2]) + 1
	}
	remainder := value - lowerBound

	for i := 0; i < n; i++ {
		width := d.stepWidth(i)
		hasMore := i < n-1

		stepBits := remainder
		if hasMore {
			// Every non-terminal step's payload is exactly width bits: the
			// encoder fills low-order bits first, matching the order the
			// decoder reconstructs them in (see Decode).
			mask := uint64(1)<<width - 1
			stepBits = remainder & mask
			remainder >>= width
		}

		if width > 0 {
			w.WriteBits(stepBits, width)
		}

		// Only a step that is not the subtype's forced-terminal (remainder)
		// step carries a continuation suffix: the remainder step's position
		// is fixed and known to both encoder and decoder, so no bit is
		// needed to mark it as last.
		if i != maxStepIndex {
			if hasMore {
				w.WriteBits(1, 1)
			} else {
				w.WriteBits(0, 1)
			}
		}
	}
	return uint(w.BitLen() - start), nil
}

func uintOrSixtyFour(n uint) uint {
	if n == 0 {
		return 1
	}
	return n
}

// Decode reads one subtype-typed field from r, returning the decoded value
// and the number of bits consumed. It enforces the canonical-minimality
// rule: an encoding using more steps than necessary is rejected with
// ErrNonCanonical.
func Decode(r *bitcursor.Reader, subtype Subtype) (uint64, uint, error) {
	d := table[subtype]
	start := r.Pos()

	if d.fixed {
		width := uintOrSixtyFour(d.baseBits)
		v, err := r.ReadBits(width)
		if err != nil {
			return 0, 0, ErrTruncated
		}
		return v, uint(r.Pos() - start), nil
	}

	levels := d.levels()
	maxSteps := len(levels)

	var pieces []uint64
	var widths []uint
	n := 0
	for i := 0; i < maxSteps; i++ {
		width := d.stepWidth(i)
		var payload uint64
		var err error
		if width > 0 {
			payload, err = r.ReadBits(width)
			if err != nil {
				return 0, 0, ErrTruncated
			}
		}
		pieces = append(pieces, payload)
		widths = append(widths, width)
		n = i + 1

		isLastPossible := i == maxSteps-1
		if isLastPossible {
			break
		}
		cont, err := r.ReadBits(1)
		if err != nil {
			return 0, 0, ErrTruncated
		}
		if cont == 0 {
			break
		}
	}

	lowerBound := uint64(0)
	if n > 1 {
		lowerBound = capForLevel(levels[n-2]) + 1
	}

	var value uint64
	if n == 1 {
		value = lowerBound + pieces[0]
	} else {
		var acc uint64
		var shift uint
		for i := 0; i < n-1; i++ {
			acc |= pieces[i] << shift
			shift += widths[i]
		}
		acc += pieces[n-1] << shift
		value = lowerBound + acc
	}

	if d.stepCountFor(value) != n {
		return 0, 0, ErrNonCanonical
	}

	return value, uint(r.Pos() - start), nil
}
