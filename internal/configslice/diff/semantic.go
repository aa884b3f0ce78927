package diff

import (
	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

// SemanticDiff layers vendor awareness on top of HierarchicalDiff:
// children of a block whose ContextTag the profile marks order-insensitive
// (ACL entries, BGP neighbor statements) are compared as
// a set, so a pure reordering collapses to Equivalent; children of an
// order-sensitive block (interface command sequences) that match the same
// set in a different position are flagged Reordered instead of being
// silently accepted.
func SemanticDiff(left, right *parse.ConfigNode, profile parse.Profile) []Delta {
	return semanticDiffChildren(left, right, profile, nil)
}

func semanticDiffChildren(left, right *parse.ConfigNode, profile parse.Profile, path []string) []Delta {
	orderSensitive := profile.IsOrderSensitive(left.ContextTag)
	partner, matchedRight := matchChildren(left, right)

	var deltas []Delta
	matchedRightIdx := 0
	for li, lc := range left.Children {
		ri := partner[li]
		if ri < 0 {
			deltas = append(deltas, Delta{Category: CategoryRemoved, Path: appendPath(path, lc.Header()), Left: lc})
			continue
		}
		rc := right.Children[ri]
		d := semanticAlignNode(lc, rc, profile, path)
		if orderSensitive && d.Category == CategoryEquivalent && ri != matchedRightIdx {
			d.Category = CategoryReordered
		}
		matchedRightIdx++
		deltas = append(deltas, d)
	}
	for ri, rc := range right.Children {
		if matchedRight[ri] {
			continue
		}
		deltas = append(deltas, Delta{Category: CategoryAdded, Path: appendPath(path, rc.Header()), Right: rc})
	}
	return deltas
}

func semanticAlignNode(left, right *parse.ConfigNode, profile parse.Profile, path []string) Delta {
	if len(left.Children) == 0 && len(right.Children) == 0 {
		if left.Header() == right.Header() {
			p := appendPath(path, right.Header())
			return Delta{Category: CategoryEquivalent, Path: p, Left: left, Right: right}
		}
		p := appendPath(path, commandKey(right.Header()))
		return Delta{Category: categorizeLine(left.Line, right.Line), Path: p, Left: left, Right: right}
	}
	p := appendPath(path, right.Header())
	children := semanticDiffChildren(left, right, profile, p)
	cat := CategoryEquivalent
	for _, c := range children {
		if c.Category != CategoryEquivalent {
			cat = CategoryModified
			break
		}
	}
	return Delta{Category: cat, Path: p, Left: left, Right: right, Children: children}
}
