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

// Package chunktoken encodes and decodes the on-wire token stream for a
// MIX segment: one token per chunk (or per coalesced run of RAW chunks),
// tagged ENUM, RAW, RAW_RUN, or RESERVED.
package chunktoken

import (
	"errors"

	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/bitcursor"
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/cdu"
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/combin"
)

// Kind is the 2-bit token tag.
type Kind uint8

const (
	Enum     Kind = 0
	Raw      Kind = 1
	RawRun   Kind = 2
	Reserved Kind = 3
)

// ChunkWidth is the fixed window width used by every chunk except
// possibly the final chunk of a segment.
const ChunkWidth = 64

// Chunk is one 64-bit (or, for a segment's final chunk, 1..64-bit) window
// of a MIX segment's bitmap.
type Chunk struct {
	Bits  uint64 // low NBits bits are significant; higher bits are zero.
	NBits uint
}

// Classify reports whether a chunk should be ENUM- or RAW-coded, per
// spec.md §4.6 ("re-evaluates chunk token type: ENUM iff popcount <= 18").
func Classify(c Chunk) (kind Kind, k int) {
	k = popcount(c.Bits)
	if combin.ShouldUseEnum(k) {
		return Enum, k
	}
	return Raw, k
}

func popcount(v uint64) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

var (
	// ErrReserved is a hard error: the RESERVED tag (11) must never appear
	// in a valid stream.
	ErrReserved = errors.New("chunktoken: reserved tag")
	// ErrNonCanonicalRawRun is returned when two isolated RAW tokens (or a
	// RAW_RUN shorter than 2) appear where coalescing was required.
	ErrNonCanonicalRawRun = errors.New("chunktoken: adjacent RAW chunks not coalesced into RAW_RUN")
	// ErrOutOfRange is a hard error for a structurally-invalid ENUM token:
	// k > KChunkEnumMax, or rank >= C(n, k).
	ErrOutOfRange = errors.New("chunktoken: ENUM token out of range")
	// ErrTruncated mirrors bitcursor.ErrTruncated / cdu.ErrTruncated.
	ErrTruncated = errors.New("chunktoken: truncated")
	// ErrRunBounds is returned when a RAW_RUN's run_len would read past the
	// segment's full-width chunk budget.
	ErrRunBounds = errors.New("chunktoken: RAW_RUN run_len exceeds available chunks")
)

// Encode writes the token stream for chunks, which must be in segment
// order and whose widths must all be ChunkWidth except possibly the last.
// Any maximal run of two or more consecutive RAW-classified, full-width
// chunks is coalesced into a single RAW_RUN token.
func Encode(w *bitcursor.Writer, chunks []Chunk) error {
	i := 0
	for i < len(chunks) {
		kind, k := Classify(chunks[i])
		if kind == Enum {
			w.WriteBits(uint64(Enum), 2)
			if _, err := cdu.Encode(w, uint64(k), cdu.EnumK); err != nil {
				return err
			}
			rankBits := combin.RankBits(int(chunks[i].NBits), k)
			if rankBits > 0 {
				rank := combin.Rank(chunks[i].Bits, int(chunks[i].NBits), k)
				w.WriteBits(rank, rankBits)
			}
			i++
			continue
		}

		// RAW-classified: find the maximal run of consecutive RAW,
		// full-width chunks starting here. A chunk narrower than
		// ChunkWidth is always the segment's final chunk and never joins
		// a run: it is always appended as its own trailing field.
		runEnd := i + 1
		if chunks[i].NBits == ChunkWidth {
			for runEnd < len(chunks) && chunks[runEnd].NBits == ChunkWidth {
				if kind2, _ := Classify(chunks[runEnd]); kind2 != Raw {
					break
				}
				runEnd++
			}
		}
		runLen := runEnd - i

		if runLen >= 2 && chunks[i].NBits == ChunkWidth {
			w.WriteBits(uint64(RawRun), 2)
			if _, err := cdu.Encode(w, uint64(runLen), cdu.SmallInt); err != nil {
				return err
			}
			for j := i; j < runEnd; j++ {
				w.WriteBits(chunks[j].Bits, ChunkWidth)
			}
			i = runEnd
		} else {
			w.WriteBits(uint64(Raw), 2)
			w.WriteBits(chunks[i].Bits, chunks[i].NBits)
			i++
		}
	}
	return nil
}

// Decode reads the token stream for a segment whose total bit length is
// nBitsTotal, returning the reconstructed chunks in order.
func Decode(r *bitcursor.Reader, nBitsTotal uint64) ([]Chunk, error) {
	fullChunks := int(nBitsTotal / ChunkWidth)
	finalWidth := uint(nBitsTotal % ChunkWidth)
	hasShortFinal := finalWidth != 0
	totalChunks := fullChunks
	if hasShortFinal {
		totalChunks++
	}

	var chunks []Chunk
	prevWasRaw := false
	decoded := 0
	for decoded < totalChunks {
		isFinal := hasShortFinal && decoded == totalChunks-1
		width := uint(ChunkWidth)
		if isFinal {
			width = finalWidth
		}

		tagVal, err := r.ReadBits(2)
		if err != nil {
			return nil, ErrTruncated
		}
		switch Kind(tagVal) {
		case Enum:
			prevWasRaw = false
			kVal, _, err := cdu.Decode(r, cdu.EnumK)
			if err != nil {
				return nil, err
			}
			if kVal > combin.KChunkEnumMax {
				return nil, ErrOutOfRange
			}
			k := int(kVal)
			rankBits := combin.RankBits(int(width), k)
			var rank uint64
			if rankBits > 0 {
				rank, err = r.ReadBits(rankBits)
				if err != nil {
					return nil, ErrTruncated
				}
			}
			if rank >= combin.Binomial(int(width), k) {
				return nil, ErrOutOfRange
			}
			bits := combin.Unrank(rank, int(width), k)
			chunks = append(chunks, Chunk{Bits: bits, NBits: width})
			decoded++

		case Raw:
			// A short final chunk never joins a run (it can't: RAW_RUN
			// holds only full-width chunks), so its being RAW right after
			// another isolated RAW is not the un-coalesced-run case this
			// check exists to catch.
			if prevWasRaw && !isFinal {
				return nil, ErrNonCanonicalRawRun
			}
			v, err := r.ReadBits(width)
			if err != nil {
				return nil, ErrTruncated
			}
			chunks = append(chunks, Chunk{Bits: v, NBits: width})
			decoded++
			prevWasRaw = true

		case RawRun:
			prevWasRaw = false
			runLenVal, _, err := cdu.Decode(r, cdu.SmallInt)
			if err != nil {
				return nil, err
			}
			if runLenVal < 2 {
				return nil, ErrNonCanonicalRawRun
			}
			runLen := int(runLenVal)
			if decoded+runLen > fullChunks {
				return nil, ErrRunBounds
			}
			for j := 0; j < runLen; j++ {
				v, err := r.ReadBits(ChunkWidth)
				if err != nil {
					return nil, ErrTruncated
				}
				chunks = append(chunks, Chunk{Bits: v, NBits: ChunkWidth})
			}
			decoded += runLen

		case Reserved:
			return nil, ErrReserved
		}
	}
	return chunks, nil
}
