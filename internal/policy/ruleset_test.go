package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/model"
)

type fakePolicySource struct {
	files   map[string]string
	modTime map[string]time.Time
}

func (f *fakePolicySource) ListFiles(ctx context.Context) ([]string, error) {
	var out []string
	for p := range f.files {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePolicySource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return []byte(f.files[path]), nil
}

func (f *fakePolicySource) LastModified(ctx context.Context, path string) (time.Time, error) {
	return f.modTime[path], nil
}

func TestLoadRuleSetOrdersByPriorityThenSource(t *testing.T) {
	src := &fakePolicySource{files: map[string]string{
		"a.policy": `
WHEN vendor == "cisco" THEN ASSERT role IS "core_router"
PRIORITY CRITICAL WHEN vendor == "arista" THEN ASSERT role IS "core_router"
`,
		"b.policy": `PRIORITY CRITICAL WHEN vendor == "juniper" THEN ASSERT role IS "core_router"`,
	}}

	loaded, fp, err := LoadRuleSet(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, fp)
	require.Len(t, loaded, 3)

	ordered := Ordered(loaded)
	require.Equal(t, "arista", *ordered[0].Rule.Condition.Left.Left.Primary.Predicate.Comparison.Value.Str)
	require.Equal(t, "juniper", *ordered[1].Rule.Condition.Left.Left.Primary.Predicate.Comparison.Value.Str)
	require.Equal(t, model.PriorityCritical, ordered[0].Priority)
	require.Equal(t, model.PriorityMedium, ordered[2].Priority)
}

func TestLoadRuleSetDefaultsToMediumPriority(t *testing.T) {
	src := &fakePolicySource{files: map[string]string{
		"a.policy": `WHEN vendor == "cisco" THEN ASSERT role IS "core_router"`,
	}}
	loaded, _, err := LoadRuleSet(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, model.PriorityMedium, loaded[0].Priority)
}

func TestLoadRuleSetFingerprintTracksContent(t *testing.T) {
	src := &fakePolicySource{files: map[string]string{
		"a.policy": `WHEN vendor == "cisco" THEN ASSERT role IS "core_router"`,
	}}
	_, fp1, err := LoadRuleSet(context.Background(), src)
	require.NoError(t, err)

	src.files["a.policy"] = `WHEN vendor == "cisco" AND lifecycle == "live" THEN ASSERT role IS "core_router"`
	_, fp2, err := LoadRuleSet(context.Background(), src)
	require.NoError(t, err)
	require.NotEqual(t, fp1, fp2)
}

func TestLoadRuleSetSurfacesParseErrorWithPath(t *testing.T) {
	src := &fakePolicySource{files: map[string]string{
		"broken.policy": `WHEN vendor === "cisco" THEN ASSERT role IS "x"`,
	}}
	_, _, err := LoadRuleSet(context.Background(), src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.policy")
}
