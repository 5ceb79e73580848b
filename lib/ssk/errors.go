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

import "fmt"

// Kind categorizes an Error, per spec.md §7.
type Kind int

const (
	// Truncation: insufficient input bits for the field being read.
	Truncation Kind = iota
	// Reserved: a reserved token tag or reserved CDU pattern was found.
	Reserved
	// NonCanonical: a CDU minimality, ordering, threshold, or RAW-coalescing
	// rule was violated.
	NonCanonical
	// OutOfRange: an ENUM rank >= C(n,k), k > KChunkEnumMax, or a
	// partition_id overflow.
	OutOfRange
	// Allocation: growth failed.
	Allocation
	// UnsupportedVersion: an unknown format_version was encountered.
	UnsupportedVersion
)

func (k Kind) String() string {
	switch k {
	case Truncation:
		return "truncation"
	case Reserved:
		return "reserved"
	case NonCanonical:
		return "non-canonical"
	case OutOfRange:
		return "out-of-range"
	case Allocation:
		return "allocation"
	case UnsupportedVersion:
		return "unsupported-version"
	default:
		return "unknown"
	}
}

// Error is SSK's typed error: every decode or builder failure carries a
// Kind alongside a human-readable message, in the "rac: <message>" sentinel
// style of lib/rac's error strings, plus a Kind field callers can switch on
// without string matching.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ssk: %s: %s", e.Kind, e.Msg)
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Is enables errors.Is(err, ssk.Truncation)-style checks against the Kind
// constants for callers who don't want to type-assert to *Error.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

func (k Kind) Error() string {
	return "ssk: kind " + k.String()
}
