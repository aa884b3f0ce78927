// Package slice extracts rooted subtrees ("slices") from a parsed
// configuration tree by pattern: glob path patterns, regex header matches,
// and ordered hierarchical segment lists.
package slice

import "github.com/bedecarroll/unet-sub002/internal/configslice/parse"

// Slice is a subtree plus its resolved path from the root, used for diff
// alignment.
type Slice struct {
	Root *parse.ConfigNode
	Path []string
}
