// Package ids generates the stable opaque identifiers used for every
// persisted entity (node, link, location, template, batch). IDs are
// lowercase UUIDv4 strings prefixed by entity kind so that ids are
// self-describing in logs and journal entries without a lookup.
package ids

import "github.com/google/uuid"

type Kind string

const (
	KindNode        Kind = "node"
	KindLink        Kind = "link"
	KindLocation    Kind = "loc"
	KindTemplate    Kind = "tmpl"
	KindBatch       Kind = "batch"
	KindTransaction Kind = "txn"
)

// New returns a new opaque id of the given kind, e.g. "node_3fa...".
func New(kind Kind) string {
	return string(kind) + "_" + uuid.NewString()
}

// Valid reports whether id looks like an id minted by New for kind (or any
// kind, when kind is "").
func Valid(id string, kind Kind) bool {
	prefix := string(kind)
	if prefix == "" {
		for _, k := range []Kind{KindNode, KindLink, KindLocation, KindTemplate, KindBatch, KindTransaction} {
			if Valid(id, k) {
				return true
			}
		}
		return false
	}
	if len(id) <= len(prefix)+1 || id[len(prefix)] != '_' || id[:len(prefix)] != prefix {
		return false
	}
	_, err := uuid.Parse(id[len(prefix)+1:])
	return err == nil
}
