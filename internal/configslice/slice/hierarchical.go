package slice

import (
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

// Segment is one element of a HierarchicalSlicer pattern: a token to match
// against a header's whitespace-separated fields, and whether it may be
// skipped when no field is left or the next field does not match it.
type Segment struct {
	Pattern  string
	Optional bool
}

// HierarchicalSlicer matches an ordered token list against a single
// header's own fields, rather than across tree depth the way GlobSlicer
// does. A pattern of [("interface", required), ("*", required)] matched
// against headers like
// "interface Gi1/0/1" returns that node itself as the slice root: every
// interface block in the config, each rooted at its own header line.
type HierarchicalSlicer struct {
	Segments []Segment
}

// Slices walks root and returns one Slice per node whose header satisfies
// the segment list.
func (h HierarchicalSlicer) Slices(root *parse.ConfigNode) []Slice {
	var out []Slice
	var walk func(n *parse.ConfigNode, path []string)
	walk = func(n *parse.ConfigNode, path []string) {
		for _, c := range n.Children {
			childPath := append(append([]string{}, path...), c.Header())
			if matchSegments(h.Segments, strings.Fields(c.Header())) {
				out = append(out, Slice{Root: c, Path: childPath})
			}
			walk(c, childPath)
		}
	}
	walk(root, nil)
	return out
}

// matchSegments consumes segs against fields left to right. A required
// segment must consume exactly one field ("*" matches any field, a literal
// must equal it). An optional segment consumes a field if available and
// matching, otherwise is skipped without failing the match.
func matchSegments(segs []Segment, fields []string) bool {
	fi := 0
	for _, seg := range segs {
		if fi < len(fields) && (seg.Pattern == "*" || seg.Pattern == fields[fi]) {
			fi++
			continue
		}
		if !seg.Optional {
			return false
		}
	}
	return true
}
