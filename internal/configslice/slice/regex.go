package slice

import (
	"regexp"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

// RegexSlicer matches a compiled regex against every node's full header
// line anywhere in the tree, exposing capture groups for callers that need
// the matched substrings (e.g. an interface name or VLAN
// ID) without a second parse pass.
type RegexSlicer struct {
	Pattern *regexp.Regexp
}

// Match pairs a matched Slice with the regex's capture groups (index 0 is
// the whole match, matching regexp.FindStringSubmatch's convention).
type Match struct {
	Slice  Slice
	Groups []string
}

// Slices walks root and returns one Match per node whose header matches the
// pattern.
func (r RegexSlicer) Slices(root *parse.ConfigNode) []Match {
	var out []Match
	var walk func(n *parse.ConfigNode, path []string)
	walk = func(n *parse.ConfigNode, path []string) {
		for _, c := range n.Children {
			childPath := append(append([]string{}, path...), c.Header())
			if groups := r.Pattern.FindStringSubmatch(c.Header()); groups != nil {
				out = append(out, Match{Slice: Slice{Root: c, Path: childPath}, Groups: groups})
			}
			walk(c, childPath)
		}
	}
	walk(root, nil)
	return out
}
