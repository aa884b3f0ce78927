package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/configslice/diff"
	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
	"github.com/bedecarroll/unet-sub002/internal/model"
)

type fakeConfigSource struct {
	text string
	hint string
}

func (f fakeConfigSource) Fetch(ctx context.Context, nodeID string) (collab.FetchedConfig, error) {
	return collab.FetchedConfig{
		ConfigText: f.text,
		VendorHint: f.hint,
		FetchedAt:  time.Unix(1700000000, 0),
	}, nil
}

const baseline = `
interface GigabitEthernet1/0/1
 description uplink
 switchport mode access
`

func ciscoNode() *model.Node {
	return &model.Node{ID: "node_1", Vendor: model.NewVendor(model.VendorCisco)}
}

func TestDriftReportsModifiedLeaf(t *testing.T) {
	live := `
interface GigabitEthernet1/0/1
 description changed
 switchport mode access
`
	a := &Auditor{Source: fakeConfigSource{text: live}, Registry: parse.NewRegistry()}
	report, err := a.Drift(context.Background(), ciscoNode(), baseline)
	require.NoError(t, err)
	require.True(t, report.Drifted())
	require.Equal(t, parse.VendorCisco, report.Vendor)
	require.Greater(t, report.Stats.ByCategory[diff.CategoryModified], 0)
}

func TestDriftCleanWhenConfigsMatch(t *testing.T) {
	a := &Auditor{Source: fakeConfigSource{text: baseline}, Registry: parse.NewRegistry()}
	report, err := a.Drift(context.Background(), ciscoNode(), baseline)
	require.NoError(t, err)
	require.False(t, report.Drifted())
}

func TestDriftUsesFetchVendorHintOverNodeVendor(t *testing.T) {
	juniperBaseline := `
interfaces {
    ge-0/0/0 {
        unit 0;
    }
}
`
	// the node claims cisco, but the fetcher knows better
	a := &Auditor{Source: fakeConfigSource{text: juniperBaseline, hint: "juniper"}, Registry: parse.NewRegistry()}
	report, err := a.Drift(context.Background(), ciscoNode(), juniperBaseline)
	require.NoError(t, err)
	require.Equal(t, parse.VendorJuniper, report.Vendor)
	require.False(t, report.Drifted())
}

func TestDriftRequiresWiring(t *testing.T) {
	a := &Auditor{}
	_, err := a.Drift(context.Background(), ciscoNode(), baseline)
	require.Error(t, err)
}
