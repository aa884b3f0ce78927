// Package templates builds render contexts for the template-renderer
// collaborator: the core owns which templates a node is assigned and what
// state the renderer sees; the rendering engine itself stays external.
package templates

import (
	"context"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// RenderedTemplate is one template's render output for a node.
type RenderedTemplate struct {
	TemplateID string
	Text       string
	Warnings   []string
}

// BuildRenderContext assembles the context a renderer receives for one
// node: its desired state, its derived snapshot when one exists, and its
// template assignments.
func BuildRenderContext(ctx context.Context, st store.Store, nodeID string) (collab.RenderContext, error) {
	node, err := st.GetNode(ctx, nil, nodeID)
	if err != nil {
		return collab.RenderContext{}, err
	}

	derived, err := st.GetNodeStatus(ctx, nil, nodeID)
	if err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			return collab.RenderContext{}, err
		}
		derived = nil // never polled; the renderer sees desired state only
	}

	assignments, err := st.ListAssignments(ctx, nil, nodeID)
	if err != nil {
		return collab.RenderContext{}, err
	}

	return collab.RenderContext{Node: node, Derived: derived, Assignments: assignments}, nil
}

// RenderAssigned renders every template assigned to a node, in assignment
// order. A render failure aborts the run: emitting a partial set of
// fragments for one node is worse than emitting none.
func RenderAssigned(ctx context.Context, st store.Store, renderer collab.TemplateRenderer, nodeID string) ([]RenderedTemplate, error) {
	const op = "templates.render_assigned"
	rc, err := BuildRenderContext(ctx, st, nodeID)
	if err != nil {
		return nil, err
	}

	out := make([]RenderedTemplate, 0, len(rc.Assignments))
	for _, a := range rc.Assignments {
		text, warnings, err := renderer.Render(ctx, a.TemplateID, rc)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, op, "template render failed", err).
				With("node_id", nodeID).With("template_id", a.TemplateID)
		}
		out = append(out, RenderedTemplate{TemplateID: a.TemplateID, Text: text, Warnings: warnings})
	}
	return out, nil
}
