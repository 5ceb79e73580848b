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
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/chunktoken"
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/combin"
)

// New creates an empty AbV at the given format version, ready for
// BeginPartition calls. It mirrors rac.Writer's zero-value-then-configure
// lifecycle: a fresh AbV holds no partitions and has cardinality 0 until
// Finalize is called.
func New(formatVersion uint8) *AbV {
	return &AbV{FormatVersion: formatVersion, dirty: true}
}

// Grow enlarges the chunk arena of the AbV's most recently finalized MIX
// segment (the last segment of the last finalized partition) until that
// arena's buffer is at least extraBytes long. It does nothing when
// extraBytes <= 0, when no partition or segment has been finalized yet,
// or when that last segment is RLE; it reserves nothing for a segment
// still under construction or for segments not yet begun. Omitting the
// call never changes any result.
func (a *AbV) Grow(extraBytes int) {
	if extraBytes <= 0 || len(a.partitions) == 0 {
		return
	}
	last := a.partitions[len(a.partitions)-1]
	if len(last.segments) == 0 {
		return
	}
	seg := last.segments[len(last.segments)-1]
	if seg.isRLE || seg.arena == nil {
		return
	}
	for len(seg.arena.buf) < extraBytes {
		seg.arena.grow()
	}
}

// PartitionBuilder accumulates segments for one partition under
// construction.
type PartitionBuilder struct {
	abv     *AbV
	err     error
	p       *partition
	started bool
}

// BeginPartition opens a new partition with the given ID, which must be
// strictly greater than every previously finalized partition's ID.
func (a *AbV) BeginPartition(partitionID uint32) *PartitionBuilder {
	pb := &PartitionBuilder{abv: a, p: &partition{id: partitionID}}
	if n := len(a.partitions); n > 0 && a.partitions[n-1].id >= partitionID {
		pb.err = newError(NonCanonical, "partition IDs must be strictly ascending")
	}
	return pb
}

// SetRareBit records which bit value is the minority bit within this
// partition; RLE segments and the dominance-omission pass both rely on it.
func (pb *PartitionBuilder) SetRareBit(bit uint8) *PartitionBuilder {
	pb.p.rareBit = bit & 1
	return pb
}

// SegmentBuilder accumulates chunks for one MIX segment under
// construction.
type SegmentBuilder struct {
	pb  *PartitionBuilder
	err error
	seg *segment
}

// BeginMixSegment opens a new MIX segment spanning [startBit, startBit+nBits)
// within the partition.
func (pb *PartitionBuilder) BeginMixSegment(startBit, nBits uint64) *SegmentBuilder {
	sb := &SegmentBuilder{pb: pb, seg: &segment{startBit: startBit, nBits: nBits, arena: newSegmentArena()}}
	if err := pb.checkSegmentOrder(startBit); err != nil {
		sb.err = err
	}
	return sb
}

// AddChunk appends the next chunk's raw bits (low nBits significant) to the
// segment under construction. Chunks must be supplied in order; every
// chunk but the last must have nBits == ChunkWidth.
func (sb *SegmentBuilder) AddChunk(bits uint64, nBits uint) error {
	if sb.err != nil {
		return sb.err
	}
	if nBits == 0 || nBits > ChunkWidth {
		sb.err = newError(OutOfRange, "chunk width out of range")
		return sb.err
	}
	mask := uint64(1)<<nBits - 1
	if nBits == 64 {
		mask = ^uint64(0)
	}
	bits &= mask
	_, k := chunktoken.Classify(chunktoken.Chunk{Bits: bits, NBits: nBits})
	tag := byte(0)
	if !combin.ShouldUseEnum(k) {
		tag = 1
	}
	sb.seg.arena.appendChunk(tag, bits)
	sb.seg.cardinality += uint64(k)
	return nil
}

// FinalizeSegment closes the MIX segment, appending it to its partition.
func (sb *SegmentBuilder) FinalizeSegment() error {
	if sb.err != nil {
		return sb.err
	}
	want := sb.seg.chunkCount()
	if sb.seg.arena.nChunks != want {
		return newError(OutOfRange, "segment chunk count does not match declared bit length")
	}
	sb.pb.p.segments = append(sb.pb.p.segments, sb.seg)
	return nil
}

// AddRLESegment appends a uniform run of the partition's rare_bit value
// spanning [startBit, startBit+nBits) — the explicit counterpart to a
// dominance-omitted gap, used when a run of the minority bit is long
// enough (>= RareRunThreshold) to need stating rather than leaving the
// surrounding MIX chunks to spell it out one popcount at a time. RLE
// segments carry no chunk data; the segment's contribution to the
// partition's cardinality is fixed entirely by the partition's rare_bit
// and is counted at FinalizePartition.
func (pb *PartitionBuilder) AddRLESegment(startBit, nBits uint64) error {
	if pb.err != nil {
		return pb.err
	}
	if err := pb.checkSegmentOrder(startBit); err != nil {
		return err
	}
	pb.p.segments = append(pb.p.segments, &segment{startBit: startBit, nBits: nBits, isRLE: true})
	return nil
}

func (pb *PartitionBuilder) checkSegmentOrder(startBit uint64) error {
	if pb.err != nil {
		return pb.err
	}
	if n := len(pb.p.segments); n > 0 {
		last := pb.p.segments[n-1]
		if startBit < last.endBit() {
			return newError(NonCanonical, "segments must be strictly ascending and non-overlapping")
		}
	}
	return nil
}

// FinalizePartition closes the partition, computing its cardinality and
// appending it to the AbV. Any span not covered by a stored segment is an
// implicit run of the partition's dominant bit (the dominance-omission
// rule): its members are counted only when the dominant bit is 1.
func (pb *PartitionBuilder) FinalizePartition() error {
	if pb.err != nil {
		return pb.err
	}
	pb.p.cardinality = partitionCardinality(pb.p)
	pb.abv.partitions = append(pb.abv.partitions, pb.p)
	return nil
}

// Finalize closes the AbV, computing its total cardinality. It must be
// called after every partition has been finalized and before the AbV is
// queried, encoded, or used as an operand to Union/Intersect/Except.
func (a *AbV) Finalize() error {
	var total uint64
	for _, p := range a.partitions {
		total += p.cardinality
	}
	a.cardinality = total
	a.dirty = false
	return nil
}
