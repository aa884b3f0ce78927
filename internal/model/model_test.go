package model

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func validNode() *Node {
	return &Node{
		Name:            "core-01",
		Vendor:          NewVendor(VendorCisco),
		Role:            RoleCoreRouter,
		Lifecycle:       LifecycleLive,
		MgmtAddr:        netip.MustParseAddr("10.0.0.1"),
		SoftwareVersion: "17.3.1",
		CustomData:      Object(nil),
	}
}

func TestNodeValidateAcceptsCompleteNode(t *testing.T) {
	require.True(t, validNode().Validate().Empty())
}

func TestNodeValidateLiveRequiresSoftwareVersion(t *testing.T) {
	n := validNode()
	n.SoftwareVersion = ""
	verrs := n.Validate()
	require.False(t, verrs.Empty())
	require.Equal(t, "software_version", verrs.Entries()[0].Field)

	n.Lifecycle = LifecyclePlanned
	require.True(t, n.Validate().Empty())
}

func TestNodeValidateRejectsInvalidMgmtAddr(t *testing.T) {
	n := validNode()
	n.MgmtAddr = netip.Addr{}
	verrs := n.Validate()
	require.False(t, verrs.Empty())
}

func TestNodeValidateCollectsAllViolations(t *testing.T) {
	n := &Node{Lifecycle: Lifecycle("bogus")}
	verrs := n.Validate()
	require.False(t, verrs.Empty())
	require.GreaterOrEqual(t, len(verrs.Entries()), 3) // name, lifecycle, mgmt_ip
}

func TestNodeValidateRejectsScalarCustomData(t *testing.T) {
	n := validNode()
	n.CustomData = String("not an object")
	require.False(t, n.Validate().Empty())
}

func TestLinkValidateRejectsSelfLoop(t *testing.T) {
	l := &Link{
		EndpointA: Endpoint{NodeID: "node_1", Interface: "eth0"},
		EndpointZ: Endpoint{NodeID: "node_1", Interface: "eth0"},
		Lifecycle: LifecycleLive,
	}
	verrs := l.Validate()
	require.False(t, verrs.Empty())
}

func TestLinkValidateAllowsSameNodeDifferentInterface(t *testing.T) {
	l := &Link{
		EndpointA: Endpoint{NodeID: "node_1", Interface: "eth0"},
		EndpointZ: Endpoint{NodeID: "node_1", Interface: "eth1"},
		Lifecycle: LifecycleLive,
	}
	require.True(t, l.Validate().Empty())
}

func TestLinkWithoutEndpointZIsExternalCircuit(t *testing.T) {
	l := &Link{
		EndpointA: Endpoint{NodeID: "node_1", Interface: "eth0"},
		Lifecycle: LifecyclePlanned,
	}
	require.False(t, l.HasEndpointZ())
	require.True(t, l.Validate().Empty())
}

func TestLocationValidateRequiresName(t *testing.T) {
	l := &Location{Lifecycle: LifecycleLive}
	require.False(t, l.Validate().Empty())
	l.Name = "rack-12"
	require.True(t, l.Validate().Empty())
}

func TestVendorOtherCarriesFreeString(t *testing.T) {
	v := NewOtherVendor("extreme")
	require.Equal(t, VendorOther, v.Kind())
	require.Equal(t, "extreme", v.Name())

	known := NewVendor(VendorJuniper)
	require.Equal(t, "juniper", known.Name())
}

func TestRulePriorityOrdering(t *testing.T) {
	require.Greater(t, int(PriorityCritical), int(PriorityHigh))
	require.Greater(t, int(PriorityHigh), int(PriorityMedium))
	require.Greater(t, int(PriorityMedium), int(PriorityLow))
}
