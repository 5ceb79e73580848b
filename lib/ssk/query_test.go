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

func buildTwoBitSet(t *testing.T, partitionID uint32, offsets ...uint) *AbV {
	t.Helper()
	a := New(0)
	pb := a.BeginPartition(partitionID)
	pb.SetRareBit(1)
	sb := pb.BeginMixSegment(0, ChunkWidth)
	var bits uint64
	for _, off := range offsets {
		bits |= bitAt(off)
	}
	if err := sb.AddChunk(bits, ChunkWidth); err != nil {
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
	return a
}

func TestIteratorAscendingOrder(t *testing.T) {
	a := buildTwoBitSet(t, 0, 3, 10, 1, 40)
	it := a.Iterate()
	var got []uint64
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []uint64{1, 3, 10, 40}
	if len(got) != len(want) {
		t.Fatalf("Iterate produced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iterate produced %v, want %v", got, want)
		}
	}
}

func TestIteratorRestartable(t *testing.T) {
	a := buildTwoBitSet(t, 0, 2)
	first := a.Iterate()
	v1, ok1 := first.Next()
	second := a.Iterate()
	v2, ok2 := second.Next()
	if !ok1 || !ok2 || v1 != v2 {
		t.Fatalf("two independent Iterate() calls diverged: (%d,%v) vs (%d,%v)", v1, ok1, v2, ok2)
	}
}

func TestContainsAcrossPartitions(t *testing.T) {
	a := New(0)
	pb0 := a.BeginPartition(0)
	pb0.SetRareBit(1)
	if err := pb0.AddRLESegment(0, ChunkWidth); err != nil {
		t.Fatalf("AddRLESegment: %v", err)
	}
	if err := pb0.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	pb1 := a.BeginPartition(1)
	pb1.SetRareBit(1)
	if err := pb1.AddRLESegment(0, ChunkWidth); err != nil {
		t.Fatalf("AddRLESegment: %v", err)
	}
	if err := pb1.FinalizePartition(); err != nil {
		t.Fatalf("FinalizePartition: %v", err)
	}
	if err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// id == 2^32 is partition 1, local bit 0: the first member of the
	// second partition.
	if !a.Contains(uint64(1) << 32) {
		t.Fatalf("Contains(2^32) = false, want true")
	}
	if a.Contains(uint64(1)<<32 | 64) {
		t.Fatalf("Contains(2^32+64) = true, want false (outside the RLE run)")
	}
	if got := a.Cardinality(); got != 2*ChunkWidth {
		t.Fatalf("Cardinality() = %d, want %d", got, 2*ChunkWidth)
	}
}
