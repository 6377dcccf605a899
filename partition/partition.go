// Package partition splits a counted range of source records into
// offset/limit windows.
package partition

import (
	"fmt"
	"iter"
)

// Range is one window of a source: Limit records starting at Offset.
type Range struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// End returns the exclusive upper bound of the window.
func (r Range) End() int { return r.Offset + r.Limit }

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// OffsetLimit yields (start, size), (start+size, size), ... without end.
// Callers bound their own consumption. A non-positive size yields nothing.
func OffsetLimit(start, size int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if size <= 0 {
			return
		}
		for offset := start; ; offset += size {
			if !yield(offset, size) {
				return
			}
		}
	}
}

// OffsetLimitTo yields windows of size from start up to stop. The last
// window is clipped so it does not pass stop.
func OffsetLimitTo(start, size, stop int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if size <= 0 {
			return
		}
		for offset := start; offset < stop; offset += size {
			if !yield(offset, min(size, stop-offset)) {
				return
			}
		}
	}
}

// Split partitions count records into windows of size. A non-positive size
// yields a single window covering everything. A zero count yields none.
func Split(count, size int) []Range {
	if count <= 0 {
		return nil
	}
	if size <= 0 {
		return []Range{{Offset: 0, Limit: count}}
	}
	out := make([]Range, 0, (count+size-1)/size)
	for offset, limit := range OffsetLimitTo(0, size, count) {
		out = append(out, Range{Offset: offset, Limit: limit})
	}
	return out
}

// Chunk groups ranges into slices of at most n. A non-positive n yields
// one group.
func Chunk(ranges []Range, n int) [][]Range {
	if len(ranges) == 0 {
		return nil
	}
	if n <= 0 {
		return [][]Range{ranges}
	}
	out := make([][]Range, 0, (len(ranges)+n-1)/n)
	for i := 0; i < len(ranges); i += n {
		out = append(out, ranges[i:min(i+n, len(ranges))])
	}
	return out
}
