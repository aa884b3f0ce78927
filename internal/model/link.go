package model

// Endpoint identifies one side of a link: a node id and an interface name.
type Endpoint struct {
	NodeID    string
	Interface string
}

func (e Endpoint) empty() bool { return e.NodeID == "" }

// Link is a desired-state connection between two nodes (or a node and an
// external circuit, when EndpointZ is absent). (NodeA, InterfaceA) is
// unique; no self-loop when both endpoints resolve to the same node and
// interface.
type Link struct {
	ID            string
	EndpointA     Endpoint
	EndpointZ     Endpoint // zero value means an external circuit
	Role          LinkRole
	BandwidthMbps *int
	Lifecycle     Lifecycle
	CustomData    Value
	Version       int
	CreatedAtMS   int64
	UpdatedAtMS   int64
}

// HasEndpointZ reports whether this link terminates on a second node, as
// opposed to an external circuit.
func (l *Link) HasEndpointZ() bool { return !l.EndpointZ.empty() }

func (l *Link) Validate() *FieldErrors {
	var errs FieldErrors
	if l.EndpointA.NodeID == "" {
		errs.Add("node_a_id", "must not be empty")
	}
	if l.EndpointA.Interface == "" {
		errs.Add("interface_a", "must not be empty")
	}
	if l.HasEndpointZ() && l.EndpointA.NodeID == l.EndpointZ.NodeID && l.EndpointA.Interface == l.EndpointZ.Interface {
		errs.Add("node_z_id", "link endpoint must not be a self-loop")
	}
	if !l.Lifecycle.Valid() {
		errs.Add("lifecycle", "invalid lifecycle value")
	}
	if _, ok := l.CustomData.AsObject(); !ok && !l.CustomData.IsNull() {
		errs.Add("custom_data", "must be a JSON object")
	}
	if errs.Empty() {
		return nil
	}
	return &errs
}
