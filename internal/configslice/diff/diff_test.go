package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

func mustParse(t *testing.T, text string) *parse.ConfigNode {
	t.Helper()
	root, err := parse.CiscoParser{}.Parse(text)
	require.NoError(t, err)
	parse.NormalizeCisco(root)
	return root
}

func TestTextDiffEquivalentWhitespaceOnly(t *testing.T) {
	deltas := TextDiff("description uplink\n", "description  uplink\n")
	require.Len(t, deltas, 1)
	require.Equal(t, CategoryEquivalent, deltas[0].Category)
}

func TestTextDiffModified(t *testing.T) {
	deltas := TextDiff("description old\n", "description new\n")
	require.Len(t, deltas, 1)
	require.Equal(t, CategoryModified, deltas[0].Category)
}

func TestTextDiffKeepsUnchangedLinesEquivalent(t *testing.T) {
	deltas := TextDiff("a\nb\n", "a\nc\n")
	var cats []Category
	for _, d := range deltas {
		cats = append(cats, d.Category)
	}
	require.Contains(t, cats, CategoryEquivalent)
}

const left = `
hostname core-01
!
interface GigabitEthernet1/0/1
 description uplink
 switchport mode access
!
router bgp 65000
 neighbor 10.0.0.1 remote-as 65001
 neighbor 10.0.0.2 remote-as 65002
!
`

const rightRemovedInterface = `
hostname core-01
!
router bgp 65000
 neighbor 10.0.0.1 remote-as 65001
 neighbor 10.0.0.2 remote-as 65002
!
`

const rightModifiedDescription = `
hostname core-01
!
interface GigabitEthernet1/0/1
 description downlink
 switchport mode access
!
router bgp 65000
 neighbor 10.0.0.1 remote-as 65001
 neighbor 10.0.0.2 remote-as 65002
!
`

const rightReorderedNeighbors = `
hostname core-01
!
interface GigabitEthernet1/0/1
 description uplink
 switchport mode access
!
router bgp 65000
 neighbor 10.0.0.2 remote-as 65002
 neighbor 10.0.0.1 remote-as 65001
!
`

func TestHierarchicalDiffDetectsRemoval(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightRemovedInterface)
	deltas := HierarchicalDiff(l, r)
	found := false
	for _, d := range deltas {
		if d.Category == CategoryRemoved && d.Left != nil && d.Left.Header() == "interface Gi1/0/1" {
			found = true
		}
	}
	require.True(t, found)
}

func TestHierarchicalDiffDetectsModification(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightModifiedDescription)
	deltas := HierarchicalDiff(l, r)
	iface := findDelta(t, deltas, "interface Gi1/0/1")
	// The edited "description" line pairs up by command key rather than
	// surfacing as an unrelated Removed/Added pair:
	// one Modified delta at interface Gi1/0/1 -> description, everything
	// else in the block Equivalent.
	require.Equal(t, CategoryModified, iface.Category)
	desc := findDelta(t, iface.Children, "description uplink")
	require.Equal(t, CategoryModified, desc.Category)
	require.Equal(t, []string{"interface Gi1/0/1", "description"}, desc.Path)
	swport := findDelta(t, iface.Children, "switchport mode access")
	require.Equal(t, CategoryEquivalent, swport.Category)

	var added, removed int
	for _, c := range iface.Children {
		switch c.Category {
		case CategoryAdded:
			added++
		case CategoryRemoved:
			removed++
		}
	}
	require.Equal(t, 0, added)
	require.Equal(t, 0, removed)
}

func TestSemanticDiffCollapsesOrderInsensitiveReorder(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightReorderedNeighbors)
	profile := parse.Profile{
		OrderSensitive: map[string]bool{
			"interface": true,
			"router":    false,
		},
	}
	deltas := SemanticDiff(l, r, profile)
	bgp := findDelta(t, deltas, "router bgp 65000")
	require.Equal(t, CategoryEquivalent, bgp.Category)
}

func TestSemanticDiffFlagsOrderSensitiveReorder(t *testing.T) {
	leftText := "interface Gi1\n command-a\n command-b\n"
	rightText := "interface Gi1\n command-b\n command-a\n"
	l := mustParse(t, leftText)
	r := mustParse(t, rightText)
	profile := parse.Profile{OrderSensitive: map[string]bool{"interface": true}}
	deltas := SemanticDiff(l, r, profile)
	iface := findDelta(t, deltas, "interface Gi1")
	require.Equal(t, CategoryModified, iface.Category)
	cmdA := findDelta(t, iface.Children, "command-a")
	require.Equal(t, CategoryReordered, cmdA.Category)
}

func TestResolveRequiresExplicitPolicy(t *testing.T) {
	_, err := Resolve(nil, PolicyUnspecified)
	require.Error(t, err)
}

func TestResolvePreferLeft(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightModifiedDescription)
	deltas := HierarchicalDiff(l, r)
	conflicts, err := Resolve(deltas, PolicyPreferLeft)
	require.NoError(t, err)
	require.NotEmpty(t, conflicts)
	for _, c := range conflicts {
		require.Equal(t, c.Delta.Left, c.Resolved)
	}
}

func TestSummarizeCountsCategories(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightModifiedDescription)
	deltas := HierarchicalDiff(l, r)
	stats := Summarize(deltas)
	require.Greater(t, stats.ByCategory[CategoryModified], 0)
	require.Greater(t, stats.BySection[SectionInterfaces][CategoryModified], 0)
}

func TestResolveAutoMergeFlagsModifiedAsManual(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, rightModifiedDescription)
	deltas := HierarchicalDiff(l, r)
	conflicts, err := Resolve(deltas, PolicyAutoMergeNonConflicting)
	require.NoError(t, err)

	sawManual := false
	for _, c := range conflicts {
		if c.Delta.Category == CategoryModified {
			require.True(t, c.RequiresManual, "both sides touched the same leaf")
			sawManual = true
		}
	}
	require.True(t, sawManual)
}

func TestSummarizeClassifiesImpact(t *testing.T) {
	require.Equal(t, ImpactCosmetic, classifyImpact(SectionInterfaces, CategoryEquivalent))
	require.Equal(t, ImpactCosmetic, classifyImpact(SectionRouting, CategoryReordered))
	require.Equal(t, ImpactServiceAffecting, classifyImpact(SectionSecurity, CategoryReordered))
	require.Equal(t, ImpactServiceAffecting, classifyImpact(SectionRouting, CategoryModified))
	require.Equal(t, ImpactOperational, classifyImpact(SectionOther, CategoryAdded))
}

func TestDiffOfIdenticalTreesHasNoRealDeltas(t *testing.T) {
	l := mustParse(t, left)
	r := mustParse(t, left)
	stats := Summarize(HierarchicalDiff(l, r))
	require.Zero(t, stats.ByCategory[CategoryAdded])
	require.Zero(t, stats.ByCategory[CategoryRemoved])
	require.Zero(t, stats.ByCategory[CategoryModified])
	require.Zero(t, stats.ByCategory[CategoryReordered])
}

func findDelta(t *testing.T, deltas []Delta, header string) Delta {
	t.Helper()
	for _, d := range deltas {
		if d.Left != nil && d.Left.Header() == header {
			return d
		}
		if d.Right != nil && d.Right.Header() == header {
			return d
		}
	}
	t.Fatalf("delta for header %q not found", header)
	return Delta{}
}
