package templates

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store/memstore"
)

type fakeRenderer struct {
	fail string // template id to fail on, if any
}

func (f fakeRenderer) Render(ctx context.Context, templateID string, rc collab.RenderContext) (string, []string, error) {
	if templateID == f.fail {
		return "", nil, errs.New(errs.KindIO, "fake.render", "boom")
	}
	return "rendered " + templateID + " for " + rc.Node.Name, []string{"deprecated variable"}, nil
}

func seed(t *testing.T) (*memstore.Store, *model.Node) {
	t.Helper()
	ms := memstore.New()
	node, err := ms.CreateNode(context.Background(), nil, &model.Node{
		Name:            "core-01",
		Vendor:          model.NewVendor(model.VendorCisco),
		Lifecycle:       model.LifecycleLive,
		MgmtAddr:        netip.MustParseAddr("10.0.0.1"),
		SoftwareVersion: "17.3",
		CustomData:      model.Object(nil),
	})
	require.NoError(t, err)
	return ms, node
}

func assign(t *testing.T, ms *memstore.Store, nodeID, templateID string) {
	t.Helper()
	require.NoError(t, ms.PutTemplate(context.Background(), nil, &model.TemplateMetadata{ID: templateID, SourcePath: templateID + ".j2"}))
	require.NoError(t, ms.AssignTemplate(context.Background(), nil, &model.TemplateAssignment{NodeID: nodeID, TemplateID: templateID}))
}

func TestBuildRenderContextWithoutDerivedState(t *testing.T) {
	ms, node := seed(t)
	rc, err := BuildRenderContext(context.Background(), ms, node.ID)
	require.NoError(t, err)
	require.Equal(t, node.ID, rc.Node.ID)
	require.Nil(t, rc.Derived)
	require.Empty(t, rc.Assignments)
}

func TestBuildRenderContextIncludesDerivedSnapshot(t *testing.T) {
	ms, node := seed(t)
	require.NoError(t, ms.PutNodeStatus(context.Background(), nil, &model.NodeStatus{
		NodeID: node.ID, Reachable: true, Raw: model.Object(nil), Interfaces: map[int]model.InterfaceStatus{},
	}))

	rc, err := BuildRenderContext(context.Background(), ms, node.ID)
	require.NoError(t, err)
	require.NotNil(t, rc.Derived)
	require.True(t, rc.Derived.Reachable)
}

func TestRenderAssignedRendersEachTemplate(t *testing.T) {
	ms, node := seed(t)
	assign(t, ms, node.ID, "tmpl_base")
	assign(t, ms, node.ID, "tmpl_bgp")

	out, err := RenderAssigned(context.Background(), ms, fakeRenderer{}, node.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "rendered tmpl_base for core-01", out[0].Text)
	require.NotEmpty(t, out[0].Warnings)
}

func TestRenderAssignedAbortsOnFailure(t *testing.T) {
	ms, node := seed(t)
	assign(t, ms, node.ID, "tmpl_base")
	assign(t, ms, node.ID, "tmpl_bad")

	_, err := RenderAssigned(context.Background(), ms, fakeRenderer{fail: "tmpl_bad"}, node.ID)
	require.Error(t, err)
	require.Equal(t, errs.KindIO, errs.KindOf(err))
}
