// Package sigscope answers signature-scope containment questions: given
// the byte ranges covered by a document's digital signature, is a
// record's storage location fully inside them? Signature cryptography
// itself is handled elsewhere; this package deals with extents only.
package sigscope

import (
	"fmt"
	"sort"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/model"
)

// ByteRange is a half-open extent [Offset, Offset+Length).
type ByteRange struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// Scope is the set of byte ranges a signature covers. The zero value
// covers nothing.
type Scope struct {
	ranges []ByteRange
}

// NewScope builds a scope from signature byte ranges. Ranges are
// normalized: sorted, overlaps and adjacencies merged.
func NewScope(ranges []ByteRange) (*Scope, error) {
	for _, r := range ranges {
		if r.Offset < 0 || r.Length < 0 {
			return nil, fmt.Errorf("negative byte range [%d,%d)", r.Offset, r.Offset+r.Length)
		}
	}

	merged := make([]ByteRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Length > 0 {
			merged = append(merged, r)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Offset < merged[j].Offset })

	out := merged[:0]
	for _, r := range merged {
		if n := len(out); n > 0 && r.Offset <= out[n-1].Offset+out[n-1].Length {
			end := r.Offset + r.Length
			if prev := out[n-1].Offset + out[n-1].Length; prev > end {
				end = prev
			}
			out[n-1].Length = end - out[n-1].Offset
			continue
		}
		out = append(out, r)
	}

	return &Scope{ranges: out}, nil
}

// Covers reports whether the location's full extent lies inside a
// single covered range. A location that straddles a gap is not covered:
// part of it could be modified without breaking the signature.
func (s *Scope) Covers(loc model.StorageLocation) bool {
	if s == nil || loc.ByteLength <= 0 {
		return false
	}
	end := loc.ByteOffset + loc.ByteLength

	i := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].Offset+s.ranges[i].Length >= end
	})
	if i >= len(s.ranges) {
		return false
	}
	r := s.ranges[i]
	return loc.ByteOffset >= r.Offset && end <= r.Offset+r.Length
}

// Ranges returns the normalized covered ranges.
func (s *Scope) Ranges() []ByteRange {
	out := make([]ByteRange, len(s.ranges))
	copy(out, s.ranges)
	return out
}
