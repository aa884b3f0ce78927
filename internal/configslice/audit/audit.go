// Package audit ties the live-config collaborator to the slicer and diff
// engine: it fetches a device's running configuration, parses it with the
// node's vendor profile, and reports how far it has drifted from a
// baseline.
package audit

import (
	"context"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/configslice/diff"
	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
)

// Auditor fetches and diffs device configurations. Registry supplies the
// vendor parsers; Source is the transport-opaque config fetcher.
type Auditor struct {
	Source   collab.LiveConfigSource
	Registry *parse.Registry
}

// Report is the outcome of one drift audit.
type Report struct {
	NodeID    string
	Vendor    parse.Vendor
	FetchedAt int64 // milliseconds since epoch
	Deltas    []diff.Delta
	Stats     diff.Stats
}

// Drifted reports whether the audit found any non-equivalent delta.
func (r *Report) Drifted() bool {
	for cat, n := range r.Stats.ByCategory {
		if cat != diff.CategoryEquivalent && n > 0 {
			return true
		}
	}
	return false
}

// Drift fetches node's live configuration and semantically diffs it against
// baselineText (typically the last approved snapshot). The vendor is taken
// from the fetch result's hint when present, else from the node's vendor
// field.
func (a *Auditor) Drift(ctx context.Context, node *model.Node, baselineText string) (*Report, error) {
	const op = "configslice.audit.drift"
	if a.Source == nil || a.Registry == nil {
		return nil, errs.New(errs.KindValidation, op, "auditor requires a config source and a parser registry")
	}

	fetched, err := a.Source.Fetch(ctx, node.ID)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, "failed to fetch live configuration", err).With("node_id", node.ID)
	}

	hint := fetched.VendorHint
	if hint == "" {
		hint = vendorHintFor(node.Vendor)
	}

	baselineRoot, vendor, err := a.Registry.Parse(hint, baselineText)
	if err != nil {
		return nil, err
	}
	liveRoot, _, err := a.Registry.Parse(string(vendor), fetched.ConfigText)
	if err != nil {
		return nil, err
	}

	profile, ok := a.Registry.Lookup(vendor)
	if !ok {
		return nil, errs.New(errs.KindInternal, op, "no profile for detected vendor").With("vendor", string(vendor))
	}

	deltas := diff.SemanticDiff(baselineRoot, liveRoot, profile)
	return &Report{
		NodeID:    node.ID,
		Vendor:    vendor,
		FetchedAt: fetched.FetchedAt.UnixMilli(),
		Deltas:    deltas,
		Stats:     diff.Summarize(deltas),
	}, nil
}

// vendorHintFor maps the model's vendor enum onto the parser registry's
// vendor keys. Unknown vendors get the generic indentation parser.
func vendorHintFor(v model.Vendor) string {
	switch v.Kind() {
	case model.VendorCisco:
		return string(parse.VendorCisco)
	case model.VendorArista:
		return string(parse.VendorArista)
	case model.VendorJuniper:
		return string(parse.VendorJuniper)
	default:
		return string(parse.VendorGeneric)
	}
}
