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
	"github.com/MarthinL/ssk-sub001/lib/ssk/internal/combin"
)

// Decode parses a Format 0 byte stream into an AbV. flags selects which
// optional canonical-form checks are enforced beyond the structurally
// mandatory ones (CDU minimality and token bounds), which the lower-level
// cdu and chunktoken decoders always enforce regardless of flags.
func Decode(data []byte, flags ValidateFlags) (*AbV, error) {
	r := bitcursor.NewReader(data, uint64(len(data))*8)

	versionVal, err := r.ReadBits(8)
	if err != nil {
		return nil, newError(Truncation, "missing format_version")
	}
	if versionVal != FormatVersion {
		return nil, newError(UnsupportedVersion, "unrecognized format_version")
	}

	nPartitions, _, err := cdu.Decode(r, cdu.Default)
	if err != nil {
		return nil, wrapCDUErr(err)
	}

	globalRareBitVal, err := r.ReadBits(1)
	if err != nil {
		return nil, newError(Truncation, "missing global rare_bit")
	}

	a := &AbV{FormatVersion: uint8(versionVal), RareBit: uint8(globalRareBitVal)}
	var prevPartitionID uint64
	var havePrevPartition bool
	for i := uint64(0); i < nPartitions; i++ {
		deltaOrAbs, _, err := cdu.Decode(r, cdu.Default)
		if err != nil {
			return nil, wrapCDUErr(err)
		}
		var id uint64
		if !havePrevPartition {
			id = deltaOrAbs
		} else {
			id = prevPartitionID + deltaOrAbs + 1
		}
		if havePrevPartition && flags&ValidateOrdering != 0 && id <= prevPartitionID {
			return nil, newError(NonCanonical, "partition IDs not strictly ascending")
		}
		if id > uint64(^uint32(0)) {
			return nil, newError(OutOfRange, "partition ID overflow")
		}
		prevPartitionID = id
		havePrevPartition = true

		nSegments, _, err := cdu.Decode(r, cdu.Default)
		if err != nil {
			return nil, wrapCDUErr(err)
		}

		rareBitVal, err := r.ReadBits(1)
		if err != nil {
			return nil, newError(Truncation, "missing partition rare_bit")
		}

		p := &partition{id: uint32(id), rareBit: uint8(rareBitVal)}
		var prevEnd uint64
		var haveSegment bool
		for j := uint64(0); j < nSegments; j++ {
			deltaOrAbs, _, err := cdu.Decode(r, cdu.InitialDelta)
			if err != nil {
				return nil, wrapCDUErr(err)
			}
			var startBit uint64
			if !haveSegment {
				startBit = deltaOrAbs
			} else {
				startBit = prevEnd + deltaOrAbs
			}
			if haveSegment && flags&ValidateOrdering != 0 && startBit < prevEnd {
				return nil, newError(NonCanonical, "segments overlap or are out of order")
			}
			if flags&ValidateThreshold != 0 {
				gap := startBit
				if haveSegment {
					gap = startBit - prevEnd
				}
				if gap > 0 && gap < DominantRunThreshold {
					return nil, newError(NonCanonical, "implicit dominant run shorter than threshold")
				}
			}

			nBits, _, err := cdu.Decode(r, cdu.Default)
			if err != nil {
				return nil, wrapCDUErr(err)
			}
			if nBits == 0 {
				return nil, newError(NonCanonical, "zero-length segment")
			}

			kindBit, err := r.ReadBits(1)
			if err != nil {
				return nil, newError(Truncation, "missing segment kind")
			}

			s := &segment{startBit: startBit, nBits: nBits}
			if kindBit == segKindRLE {
				s.isRLE = true
				if flags&ValidateThreshold != 0 && nBits < RareRunThreshold {
					return nil, newError(NonCanonical, "RLE run shorter than threshold")
				}
				if p.rareBit == 1 {
					s.cardinality = nBits
				}
			} else {
				chunks, err := chunktoken.Decode(r, nBits)
				if err != nil {
					return nil, wrapChunkErr(err)
				}
				s.arena = newSegmentArena()
				var card uint64
				for _, c := range chunks {
					_, k := chunktoken.Classify(c)
					card += uint64(k)
					tag := byte(0)
					if !combin.ShouldUseEnum(k) {
						tag = 1
					}
					s.arena.appendChunk(tag, c.Bits)
				}
				s.cardinality = card
			}

			p.segments = append(p.segments, s)
			prevEnd = s.endBit()
			haveSegment = true
		}

		p.cardinality = partitionCardinality(p)
		a.partitions = append(a.partitions, p)
	}

	var total uint64
	for _, p := range a.partitions {
		total += p.cardinality
	}
	a.cardinality = total
	a.dirty = false
	return a, nil
}

func wrapCDUErr(err error) error {
	switch err {
	case cdu.ErrNonCanonical:
		return newError(NonCanonical, "non-minimal CDU encoding")
	case cdu.ErrTruncated:
		return newError(Truncation, "truncated CDU field")
	case cdu.ErrOutOfRange:
		return newError(OutOfRange, "CDU value out of range")
	default:
		return err
	}
}

func wrapChunkErr(err error) error {
	switch err {
	case chunktoken.ErrReserved:
		return newError(Reserved, "reserved chunk tag")
	case chunktoken.ErrNonCanonicalRawRun:
		return newError(NonCanonical, "adjacent RAW chunks not coalesced")
	case chunktoken.ErrOutOfRange:
		return newError(OutOfRange, "ENUM chunk out of range")
	case chunktoken.ErrTruncated:
		return newError(Truncation, "truncated chunk token")
	case chunktoken.ErrRunBounds:
		return newError(OutOfRange, "RAW_RUN exceeds segment bounds")
	case cdu.ErrNonCanonical, cdu.ErrTruncated, cdu.ErrOutOfRange:
		return wrapCDUErr(err)
	default:
		return err
	}
}
