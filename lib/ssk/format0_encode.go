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
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/bitcursor"
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/cdu"
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/chunktoken"
)

const (
	segKindRLE = 0
	segKindMix = 1
)

// Encode serializes a (canonicalized, Finalize-d) AbV to Format 0, the
// only wire format this package currently emits. The walk mirrors
// chunk_writer.go's build-the-index-then-write-it-out shape: one fixed
// header, then partitions in ascending ID order with delta-coded IDs, then
// each partition's segments in ascending start_bit order with delta-coded
// bounds, then each MIX segment's chunk token stream.
func Encode(a *AbV) ([]byte, error) {
	if a.dirty {
		if err := a.Finalize(); err != nil {
			return nil, err
		}
	}
	w := bitcursor.NewWriter()
	w.WriteBits(uint64(a.FormatVersion), 8)

	if _, err := cdu.Encode(w, uint64(len(a.partitions)), cdu.Default); err != nil {
		return nil, err
	}
	w.WriteBits(uint64(a.RareBit), 1)

	var prevPartitionID uint64
	var havePrevPartition bool
	for _, p := range a.partitions {
		var deltaOrAbs uint64
		if !havePrevPartition {
			deltaOrAbs = uint64(p.id)
		} else {
			deltaOrAbs = uint64(p.id) - prevPartitionID - 1
		}
		if _, err := cdu.Encode(w, deltaOrAbs, cdu.Default); err != nil {
			return nil, err
		}
		prevPartitionID = uint64(p.id)
		havePrevPartition = true

		if _, err := cdu.Encode(w, uint64(len(p.segments)), cdu.Default); err != nil {
			return nil, err
		}
		w.WriteBits(uint64(p.rareBit), 1)

		var prevEnd uint64
		var haveSegment bool
		for _, s := range p.segments {
			var deltaOrAbs uint64
			if !haveSegment {
				deltaOrAbs = s.startBit
			} else {
				deltaOrAbs = s.startBit - prevEnd
			}
			if _, err := cdu.Encode(w, deltaOrAbs, cdu.InitialDelta); err != nil {
				return nil, err
			}
			if _, err := cdu.Encode(w, s.nBits, cdu.Default); err != nil {
				return nil, err
			}
			haveSegment = true
			if s.isRLE {
				w.WriteBits(segKindRLE, 1)
			} else {
				w.WriteBits(segKindMix, 1)
				chunks := make([]chunktoken.Chunk, s.chunkCount())
				for i := range chunks {
					chunks[i] = chunktoken.Chunk{Bits: s.arena.chunkBits(i), NBits: s.chunkWidth(i)}
				}
				if err := chunktoken.Encode(w, chunks); err != nil {
					return nil, err
				}
			}
			prevEnd = s.endBit()
		}
	}

	return w.Bytes(), nil
}
