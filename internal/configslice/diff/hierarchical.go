package diff

import (
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

// HierarchicalDiff aligns two trees by header equality within a parent:
// unmatched headers on either side are insertions or
// deletions, matched headers recurse into their children. A childless leaf
// pair whose header itself changed (an edited command argument) falls
// through to TextDiff's categorizeLine over its own line instead of being
// reported as an unrelated Removed/Added pair.
func HierarchicalDiff(left, right *parse.ConfigNode) []Delta {
	return diffChildren(left, right, nil)
}

func diffChildren(left, right *parse.ConfigNode, path []string) []Delta {
	partner, matchedRight := matchChildren(left, right)

	var deltas []Delta
	for li, lc := range left.Children {
		ri := partner[li]
		if ri < 0 {
			deltas = append(deltas, Delta{Category: CategoryRemoved, Path: appendPath(path, lc.Header()), Left: lc})
			continue
		}
		deltas = append(deltas, alignNode(lc, right.Children[ri], path))
	}
	for ri, rc := range right.Children {
		if matchedRight[ri] {
			continue
		}
		deltas = append(deltas, Delta{Category: CategoryAdded, Path: appendPath(path, rc.Header()), Right: rc})
	}
	return deltas
}

// matchChildren pairs left.Children with right.Children in two passes: full
// header equality first (the usual case: a block, or an unchanged leaf
// line), then, for any still-unmatched childless leaves, by command key (a
// line's first token). The second pass is what lets an edited leaf argument
// (e.g. "description old" -> "description new") pair up as one node instead
// of an unrelated removal plus an unrelated insertion.
// partner[li] is the matched index into right.Children, or -1; matchedRight
// marks every right index paired by either pass.
func matchChildren(left, right *parse.ConfigNode) (partner []int, matchedRight []bool) {
	lc, rc := left.Children, right.Children
	partner = make([]int, len(lc))
	for i := range partner {
		partner[i] = -1
	}
	matchedRight = make([]bool, len(rc))

	rightByHeader := make(map[string][]int, len(rc))
	for i, c := range rc {
		h := c.Header()
		rightByHeader[h] = append(rightByHeader[h], i)
	}
	for li, c := range lc {
		h := c.Header()
		idxs := rightByHeader[h]
		if len(idxs) == 0 {
			continue
		}
		ri := idxs[0]
		rightByHeader[h] = idxs[1:]
		matchedRight[ri] = true
		partner[li] = ri
	}

	rightByKey := make(map[string][]int)
	for i, c := range rc {
		if matchedRight[i] || len(c.Children) > 0 {
			continue
		}
		k := commandKey(c.Header())
		rightByKey[k] = append(rightByKey[k], i)
	}
	for li, c := range lc {
		if partner[li] >= 0 || len(c.Children) > 0 {
			continue
		}
		k := commandKey(c.Header())
		idxs := rightByKey[k]
		if len(idxs) == 0 {
			continue
		}
		ri := idxs[0]
		rightByKey[k] = idxs[1:]
		matchedRight[ri] = true
		partner[li] = ri
	}
	return partner, matchedRight
}

// commandKey returns a config line's first whitespace-separated token, the
// identity a leaf keeps across an argument edit ("description" in
// "description old" / "description new").
func commandKey(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

// alignNode produces the delta for a matched pair. Two childless nodes with
// identical headers are Equivalent by construction; two childless nodes
// matched only by command key (their headers differ) run TextDiff's own
// categorizeLine over their lines, so a changed argument is Modified and an
// untouched one is still Equivalent (whitespace-only edits count as
// unchanged). Either side having children recurses into diffChildren.
func alignNode(left, right *parse.ConfigNode, path []string) Delta {
	if len(left.Children) == 0 && len(right.Children) == 0 {
		if left.Header() == right.Header() {
			p := appendPath(path, right.Header())
			return Delta{Category: CategoryEquivalent, Path: p, Left: left, Right: right}
		}
		p := appendPath(path, commandKey(right.Header()))
		return Delta{Category: categorizeLine(left.Line, right.Line), Path: p, Left: left, Right: right}
	}
	p := appendPath(path, right.Header())
	children := diffChildren(left, right, p)
	cat := CategoryEquivalent
	for _, c := range children {
		if c.Category != CategoryEquivalent {
			cat = CategoryModified
			break
		}
	}
	return Delta{Category: cat, Path: p, Left: left, Right: right, Children: children}
}
