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

import "bytes"

// Union returns a fresh, canonical AbV holding every member of a or b.
func Union(a, b *AbV) (*AbV, error) {
	return mergeIDs(a, b, func(inA, inB bool) bool { return inA || inB })
}

// Intersect returns a fresh, canonical AbV holding every member common to
// both a and b.
func Intersect(a, b *AbV) (*AbV, error) {
	return mergeIDs(a, b, func(inA, inB bool) bool { return inA && inB })
}

// Except returns a fresh, canonical AbV holding every member of a that is
// not also a member of b.
func Except(a, b *AbV) (*AbV, error) {
	return mergeIDs(a, b, func(inA, inB bool) bool { return inA && !inB })
}

// mergeIDs walks a's and b's sorted member streams in lockstep (a sorted
// merge, the same shape as chunk_writer.go's index-merge pass) applying
// keep at each candidate ID, and rebuilds the kept IDs into a fresh AbV.
func mergeIDs(a, b *AbV, keep func(inA, inB bool) bool) (*AbV, error) {
	ai, bi := a.Iterate(), b.Iterate()
	av, aOK := ai.Next()
	bv, bOK := bi.Next()

	var ids []uint64
	for aOK || bOK {
		switch {
		case aOK && (!bOK || av < bv):
			if keep(true, false) {
				ids = append(ids, av)
			}
			av, aOK = ai.Next()
		case bOK && (!aOK || bv < av):
			if keep(false, true) {
				ids = append(ids, bv)
			}
			bv, bOK = bi.Next()
		default:
			if keep(true, true) {
				ids = append(ids, av)
			}
			av, aOK = ai.Next()
			bv, bOK = bi.Next()
		}
	}
	return buildFromSortedIDs(ids)
}

// buildFromSortedIDs constructs a canonical AbV from a strictly ascending
// list of member IDs, grouping them by partition and packing each
// partition's span into 64-bit chunks.
func buildFromSortedIDs(ids []uint64) (*AbV, error) {
	out := New(FormatVersion)
	i := 0
	for i < len(ids) {
		partitionID, _ := splitID(ids[i])
		j := i
		for j < len(ids) {
			pid, _ := splitID(ids[j])
			if pid != partitionID {
				break
			}
			j++
		}
		if err := addPartitionFromIDs(out, partitionID, ids[i:j]); err != nil {
			return nil, err
		}
		i = j
	}
	if err := out.Finalize(); err != nil {
		return nil, err
	}
	if err := Canonicalize(out); err != nil {
		return nil, err
	}
	return out, nil
}

func addPartitionFromIDs(out *AbV, partitionID uint32, ids []uint64) error {
	_, firstBit := splitID(ids[0])
	_, lastBit := splitID(ids[len(ids)-1])
	startChunk := firstBit / ChunkWidth
	endChunk := lastBit/ChunkWidth + 1
	startBit := startChunk * ChunkWidth
	nBits := (endChunk - startChunk) * ChunkWidth

	pb := out.BeginPartition(partitionID)
	pb.SetRareBit(1)
	sb := pb.BeginMixSegment(startBit, nBits)

	idx := 0
	for chunk := startChunk; chunk < endChunk; chunk++ {
		var bits uint64
		chunkStartBit := chunk * ChunkWidth
		for idx < len(ids) {
			_, bit := splitID(ids[idx])
			if bit >= chunkStartBit+ChunkWidth {
				break
			}
			bits |= uint64(1) << (ChunkWidth - 1 - (bit - chunkStartBit))
			idx++
		}
		if err := sb.AddChunk(bits, ChunkWidth); err != nil {
			return err
		}
	}
	if err := sb.FinalizeSegment(); err != nil {
		return err
	}
	return pb.FinalizePartition()
}

// Compare returns -1, 0, or +1 according to the lexicographic byte order
// of a's and b's canonical Format 0 encodings, giving every pair of AbVs a
// total order independent of construction history.
func Compare(a, b *AbV) int {
	ea, errA := canonicalBytes(a)
	eb, errB := canonicalBytes(b)
	if errA != nil || errB != nil {
		// Canonical encodings of a Finalize-d AbV never fail; a non-nil
		// error here means the caller passed an AbV that was never
		// finalized and whose shape is otherwise inconsistent.
		panic("ssk: Compare called on an invalid AbV")
	}
	return bytes.Compare(ea, eb)
}

func canonicalBytes(a *AbV) ([]byte, error) {
	if err := Canonicalize(a); err != nil {
		return nil, err
	}
	return Encode(a)
}
