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

package ssk

import (
	"golang.org/x/exp/slices"

	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/chunktoken"
)

// Canonicalize rewrites a into the unique canonical form for its member
// set: partitions and segments sorted into strictly ascending order, and
// any internal run of DominantRunThreshold-or-more full-width, purely
// dominant-bit chunks inside a MIX segment omitted by splitting the
// segment around the gap (the "dominance omission" rule). It trusts each
// partition's declared rare_bit rather than rediscovering one: rare_bit
// is the choice that gives the omitted gaps and any RLE segments their
// meaning in the first place, so flipping it after the fact would invert
// that meaning rather than correct it. It is idempotent: canonicalizing
// an already-canonical AbV is a no-op.
func Canonicalize(a *AbV) error {
	slices.SortFunc(a.partitions, func(x, y *partition) bool { return x.id < y.id })

	for _, p := range a.partitions {
		slices.SortFunc(p.segments, func(x, y *segment) bool { return x.startBit < y.startBit })

		var rebuilt []*segment
		for _, s := range p.segments {
			rebuilt = append(rebuilt, splitOmittedRuns(p, s)...)
		}
		p.segments = rebuilt

		p.cardinality = partitionCardinality(p)
	}

	var total uint64
	for _, p := range a.partitions {
		total += p.cardinality
	}
	a.cardinality = total
	a.dirty = false
	return nil
}

// splitOmittedRuns scans s's chunks for maximal runs of full-width chunks
// that are entirely the partition's dominant bit. Any such run at least
// DominantRunThreshold bits long is dropped (it becomes an implicit gap
// between the sub-segments returned on either side of it); everything
// else — including short dominant runs too small to omit, per the
// THRESHOLD validation rule — is kept.
func splitOmittedRuns(p *partition, s *segment) []*segment {
	if s.isRLE {
		return []*segment{s}
	}
	n := s.chunkCount()
	dominantAllOnes := p.rareBit == 0

	type run struct{ start, end int }
	var runs []run
	i := 0
	for i < n {
		if s.chunkWidth(i) != ChunkWidth {
			i++
			continue
		}
		if !isDominantChunk(s.arena.chunkBits(i), dominantAllOnes) {
			i++
			continue
		}
		j := i + 1
		for j < n && s.chunkWidth(j) == ChunkWidth && isDominantChunk(s.arena.chunkBits(j), dominantAllOnes) {
			j++
		}
		if uint64(j-i)*ChunkWidth >= DominantRunThreshold {
			runs = append(runs, run{i, j})
		}
		i = j
	}
	if len(runs) == 0 {
		return []*segment{s}
	}

	var out []*segment
	prev := 0
	for _, r := range runs {
		if r.start > prev {
			out = append(out, subSegment(s, prev, r.start))
		}
		prev = r.end
	}
	if prev < n {
		out = append(out, subSegment(s, prev, n))
	}
	return out
}

func isDominantChunk(bits uint64, dominantAllOnes bool) bool {
	if dominantAllOnes {
		return bits == ^uint64(0)
	}
	return bits == 0
}

// subSegment builds a fresh MIX segment holding chunks [from, to) of s.
func subSegment(s *segment, from, to int) *segment {
	ns := &segment{startBit: s.startBit + uint64(from)*ChunkWidth, arena: newSegmentArena()}
	var card uint64
	for i := from; i < to; i++ {
		bits := s.arena.chunkBits(i)
		width := s.chunkWidth(i)
		_, k := chunktoken.Classify(chunktoken.Chunk{Bits: bits, NBits: width})
		ns.arena.appendChunk(s.arena.chunkTag(i), bits)
		card += uint64(k)
	}
	ns.nBits = uint64(to-from) * ChunkWidth
	if to == s.chunkCount() {
		if last := s.chunkWidth(to - 1); last != ChunkWidth {
			ns.nBits = ns.nBits - ChunkWidth + uint64(last)
		}
	}
	ns.cardinality = card
	return ns
}
