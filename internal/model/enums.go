package model

// Vendor identifies a node's device family. OtherVendor carries a free-form
// string for vendors not named explicitly.
type Vendor struct {
	kind  VendorKind
	other string
}

type VendorKind string

const (
	VendorCisco   VendorKind = "cisco"
	VendorJuniper VendorKind = "juniper"
	VendorArista  VendorKind = "arista"
	VendorGeneric VendorKind = "generic"
	VendorOther   VendorKind = "other"
)

func NewVendor(kind VendorKind) Vendor { return Vendor{kind: kind} }

// NewOtherVendor builds the Other variant carrying a free string, e.g. a
// vendor name not in the closed enum.
func NewOtherVendor(name string) Vendor { return Vendor{kind: VendorOther, other: name} }

func (v Vendor) Kind() VendorKind { return v.kind }

// Name returns the canonical string: the enum value, or the free string for
// Other.
func (v Vendor) Name() string {
	if v.kind == VendorOther {
		return v.other
	}
	return string(v.kind)
}

func (v Vendor) String() string { return v.Name() }

// DeviceRole enumerates the functional role of a node in the topology.
type DeviceRole string

const (
	RoleCoreRouter   DeviceRole = "core_router"
	RoleEdgeRouter   DeviceRole = "edge_router"
	RoleAggregation  DeviceRole = "aggregation"
	RoleAccessSwitch DeviceRole = "access_switch"
	RoleFirewall     DeviceRole = "firewall"
	RoleLoadBalancer DeviceRole = "load_balancer"
	RoleOther        DeviceRole = "other"
)

// Lifecycle enumerates a node/link/location's provisioning state.
type Lifecycle string

const (
	LifecyclePlanned        Lifecycle = "planned"
	LifecycleImplementing   Lifecycle = "implementing"
	LifecycleLive           Lifecycle = "live"
	LifecycleDecommissioned Lifecycle = "decommissioned"
)

func (l Lifecycle) Valid() bool {
	switch l {
	case LifecyclePlanned, LifecycleImplementing, LifecycleLive, LifecycleDecommissioned:
		return true
	default:
		return false
	}
}

// LinkRole enumerates the purpose of a link.
type LinkRole string

const (
	LinkRoleBackbone LinkRole = "backbone"
	LinkRoleAccess   LinkRole = "access"
	LinkRolePeering  LinkRole = "peering"
	LinkRoleTransit  LinkRole = "transit"
	LinkRoleCircuit  LinkRole = "external_circuit"
)

// RulePriority enumerates policy rule priority, highest first:
// Critical > High > Medium > Low, ties broken by source order.
type RulePriority int

const (
	PriorityLow RulePriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p RulePriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}
