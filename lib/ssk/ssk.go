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

// Package ssk assigns every finite subset of the uint64 identifier space a
// unique, canonical binary scalar. An AbV (Abstract bit Vector) is the
// in-memory representation of one such subset: a root, partitioned by the
// high bits of the member IDs, each partition segmented along the low bits
// into RLE (uniform) or MIX (mixed) runs, each MIX segment expressed as a
// stream of fixed-width chunks individually token-coded ENUM, RAW, or
// RAW_RUN.
//
// Construction goes through Builder (New, BeginPartition, BeginMixSegment,
// AddRLESegment, Finalize); the wire form goes through Encode and Decode;
// membership and iteration go through the AbV query methods; Union,
// Intersect, Except, and Compare implement the set algebra.
package ssk

// ChunkWidth is the fixed window width of a MIX segment chunk, other than
// possibly the segment's final chunk.
const ChunkWidth = 64

// KChunkEnumMax is the largest popcount for which a chunk is ENUM-coded;
// chunks with more set bits are RAW-coded.
const KChunkEnumMax = 18

// DominantRunThreshold is the minimum run length, in bits, of the
// partition's dominant bit that is left out of the stored segments as an
// implicit gap (spec.md §4.6, "dominance omission"). Canonicalize omits
// such runs of whole dominant chunks; Decode with ValidateThreshold
// rejects a shorter implicit gap.
const DominantRunThreshold = 96

// RareRunThreshold is the minimum run length, in bits, of the rare bit
// that is stored as an RLE segment; Decode with ValidateThreshold rejects
// a shorter RLE segment.
const RareRunThreshold = 64

// MaxSegmentLenHint is the bit length above which a MIX segment should be
// split at a rare-bit boundary, if one exists, to keep segments small and
// independently decodable.
const MaxSegmentLenHint = 2048

// FormatVersion is the only wire format this package currently emits and
// accepts.
const FormatVersion = 0

// ValidateFlags selects which optional canonical-form checks Decode
// performs beyond the structurally mandatory ones (CDU minimality and
// token-boundary consistency, which Decode always enforces because the
// lower-level codecs cannot operate without them).
type ValidateFlags uint8

const (
	// ValidateOrdering rejects partitions, segments, or runs that are not
	// strictly ascending.
	ValidateOrdering ValidateFlags = 1 << iota
	// ValidateRareBit is accepted by Decode but selects no check: Decode
	// does not compare a declared rare_bit with the bit counts in its
	// scope, so a rare_bit that is not the minority bit is not rejected.
	ValidateRareBit
	// ValidateThreshold rejects an implicit dominant gap shorter than
	// DominantRunThreshold and an RLE segment shorter than
	// RareRunThreshold. It does not check segment length against
	// MaxSegmentLenHint.
	ValidateThreshold

	// ValidateAll enables every optional check.
	ValidateAll = ValidateOrdering | ValidateRareBit | ValidateThreshold
)
