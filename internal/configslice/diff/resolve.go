package diff

import (
	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// Policy selects how a Conflict is resolved. There is no default:
// PolicyUnspecified is a deliberate zero value so a caller that
// forgets to choose one gets an error rather than a silently-applied
// default, since silently preferring one side of a config diff is exactly
// the kind of surprise this tool exists to avoid.
type Policy int

const (
	PolicyUnspecified Policy = iota
	PolicyPreferLeft
	PolicyPreferRight
	PolicyRequireManual
	PolicyAutoMergeNonConflicting
)

// Conflict is a Delta paired with its resolution under a Policy.
type Conflict struct {
	Delta          Delta
	Resolved       *parse.ConfigNode
	RequiresManual bool
}

// Resolve applies policy to every non-equivalent delta in deltas, flattened
// depth-first, and returns one Conflict per delta.
func Resolve(deltas []Delta, policy Policy) ([]Conflict, error) {
	if policy == PolicyUnspecified {
		return nil, errs.New(errs.KindValidation, "configslice.diff.resolve", "a resolution policy must be specified explicitly")
	}
	var out []Conflict
	for _, d := range flatten(deltas) {
		if d.Category == CategoryEquivalent {
			continue
		}
		out = append(out, resolveOne(d, policy))
	}
	return out, nil
}

func resolveOne(d Delta, policy Policy) Conflict {
	switch policy {
	case PolicyPreferLeft:
		return Conflict{Delta: d, Resolved: d.Left}
	case PolicyPreferRight:
		return Conflict{Delta: d, Resolved: d.Right}
	case PolicyAutoMergeNonConflicting:
		if d.Category == CategoryAdded || d.Category == CategoryRemoved || d.Category == CategoryReordered {
			resolved := d.Left
			if resolved == nil {
				resolved = d.Right
			}
			return Conflict{Delta: d, Resolved: resolved}
		}
		return Conflict{Delta: d, RequiresManual: true}
	case PolicyRequireManual:
		return Conflict{Delta: d, RequiresManual: true}
	default:
		return Conflict{Delta: d, RequiresManual: true}
	}
}

func flatten(deltas []Delta) []Delta {
	var out []Delta
	for _, d := range deltas {
		if len(d.Children) > 0 {
			out = append(out, flatten(d.Children)...)
			continue
		}
		out = append(out, d)
	}
	return out
}
