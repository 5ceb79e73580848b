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

import "testing"

// bitAt returns a ChunkWidth-wide word with only local offset bit set
// (offset 0 is the chunk's most significant bit).
func bitAt(offset uint) uint64 {
	return uint64(1) << (ChunkWidth - 1 - offset)
}

func TestEmptyAbV(t *testing.T) {
	a := New(0)
	if err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := a.Cardinality(); got != 0 {
		t.Fatalf("Cardinality() = %d, want 0", got)
	}
	if !a.IsEmpty() {
		t.Fatalf("IsEmpty() = false, want true")
	}
}

func TestSingleMemberCardinality(t *testing.T) {
	a := New(0)
	pb := a.BeginPartition(0)
	pb.SetRareBit(1)
	sb := pb.BeginMixSegment(0, ChunkWidth)
	if err := sb.AddChunk(bitAt(1), ChunkWidth); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := sb.FinalizeSegment(); err != nil {
		t.Fatalf("FinalizeSegment: %v", err)
	}
	if err := pb.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := a.Cardinality(); got != 1 {
		t.Fatalf("Cardinality() = %d, want 1", got)
	}
	if !a.Contains(1) {
		t.Fatalf("Contains(1) = false, want true")
	}
	if a.Contains(0) || a.Contains(2) {
		t.Fatalf("Contains returned true for a non-member")
	}
}

func TestFullChunkIsRAWNotENUM(t *testing.T) {
	a := New(0)
	pb := a.BeginPartition(0)
	pb.SetRareBit(1)
	sb := pb.BeginMixSegment(0, ChunkWidth)
	if err := sb.AddChunk(^uint64(0), ChunkWidth); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := sb.FinalizeSegment(); err != nil {
		t.Fatalf("FinalizeSegment: %v", err)
	}
	if err := pb.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := a.Cardinality(); got != ChunkWidth {
		t.Fatalf("Cardinality() = %d, want %d", got, ChunkWidth)
	}
	seg := a.partitions[0].segments[0]
	if seg.arena.chunkTag(0) != 1 {
		t.Fatalf("chunk tag = %d, want 1 (RAW); a 64-bit all-ones chunk has popcount 64 > KChunkEnumMax", seg.arena.chunkTag(0))
	}
}

func TestRLESegmentCardinality(t *testing.T) {
	a := New(0)
	pb := a.BeginPartition(5)
	pb.SetRareBit(1)
	if err := pb.AddRLESegment(100, 200); err != nil {
		t.Fatalf("AddRLESegment: %v", err)
	}
	if err := pb.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := a.Cardinality(); got != 200 {
		t.Fatalf("Cardinality() = %d, want 200 (rare_bit=1 RLE run contributes n_bits ones)", got)
	}
	if !a.Contains(uint64(5)<<32 | 150) {
		t.Fatalf("Contains inside RLE run = false, want true")
	}
	if a.Contains(uint64(5)<<32 | 50) {
		t.Fatalf("Contains in the leading gap = true, want false (gap is dominant bit 0)")
	}
}

func TestSegmentOrderRejected(t *testing.T) {
	a := New(0)
	pb := a.BeginPartition(0)
	pb.SetRareBit(1)
	if err := pb.AddRLESegment(100, 50); err != nil {
		t.Fatalf("AddRLESegment: %v", err)
	}
	if err := pb.AddRLESegment(120, 10); err == nil {
		t.Fatalf("AddRLESegment overlapping an existing segment: want error, got nil")
	}
}

func TestPartitionOrderRejected(t *testing.T) {
	a := New(0)
	pb1 := a.BeginPartition(5)
	pb1.SetRareBit(1)
	if err := pb1.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	pb2 := a.BeginPartition(5)
	if err := pb2.FinalizePartition(); err == nil {
		t.Fatalf("BeginPartition with a non-ascending ID: want error, got nil")
	}
}
