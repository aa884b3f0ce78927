package slice

import (
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

// GlobSlicer matches a "/"-separated path pattern against a header's
// position in the tree: each segment addresses one level of depth. "*"
// matches exactly one segment (any header at that level); "**"
// matches zero or more levels, letting a pattern skip intermediate
// structure.
type GlobSlicer struct {
	// Pattern is the "/"-separated path, e.g. "interface/*" or
	// "system/services/**/ssh".
	Pattern string
}

// Slices walks root and returns one Slice per node whose path from root
// matches Pattern.
func (g GlobSlicer) Slices(root *parse.ConfigNode) []Slice {
	segs := splitPattern(g.Pattern)
	var out []Slice
	var walk func(n *parse.ConfigNode, path []string)
	walk = func(n *parse.ConfigNode, path []string) {
		for _, c := range n.Children {
			childPath := append(append([]string{}, path...), c.Header())
			if matchGlob(segs, childPath) {
				out = append(out, Slice{Root: c, Path: childPath})
			}
			walk(c, childPath)
		}
	}
	walk(root, nil)
	return out
}

func splitPattern(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// matchGlob reports whether path satisfies segs, where segs may contain
// literal header strings, "*" (exactly one level), or "**" (zero or more
// levels). The match must consume the whole path.
func matchGlob(segs, path []string) bool {
	return matchGlobAt(segs, path, 0, 0)
}

func matchGlobAt(segs, path []string, si, pi int) bool {
	for si < len(segs) {
		seg := segs[si]
		if seg == "**" {
			// Try every possible consumption length, shortest first.
			for skip := 0; pi+skip <= len(path); skip++ {
				if matchGlobAt(segs, path, si+1, pi+skip) {
					return true
				}
			}
			return false
		}
		if pi >= len(path) {
			return false
		}
		if seg != "*" && !headerMatches(seg, path[pi]) {
			return false
		}
		si++
		pi++
	}
	return pi == len(path)
}

// headerMatches reports whether a literal pattern segment matches a header:
// exact match, or a prefix match against the header's first whitespace
// token (so "interface" addresses any "interface <name>" header without
// repeating the name).
func headerMatches(seg, header string) bool {
	if seg == header {
		return true
	}
	fields := strings.Fields(header)
	return len(fields) > 0 && fields[0] == seg
}
