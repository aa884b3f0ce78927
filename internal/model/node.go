package model

import "net/netip"

// Node is a desired-state network device. Invariants:
// (Name, Domain) is unique; Live lifecycle requires a non-empty
// SoftwareVersion; MgmtAddr must parse as IPv4 or IPv6.
type Node struct {
	ID              string
	Name            string
	Domain          string // empty means no domain scoping
	Vendor          Vendor
	Model           string
	Role            DeviceRole
	Lifecycle       Lifecycle
	MgmtAddr        netip.Addr
	SoftwareVersion string
	LocationID      string // empty means unset
	CustomData      Value  // must be an Object
	Version         int    // optimistic-lock column, bumped on every update
	CreatedAtMS     int64
	UpdatedAtMS     int64
}

// Validate enforces the per-entity invariants that don't require a store
// round trip (uniqueness and referential checks are the store's job, since
// they need visibility into other rows).
func (n *Node) Validate() *FieldErrors {
	var errs FieldErrors
	if n.Name == "" {
		errs.Add("name", "must not be empty")
	}
	if !n.Lifecycle.Valid() {
		errs.Add("lifecycle", "invalid lifecycle value")
	}
	if n.Lifecycle == LifecycleLive && n.SoftwareVersion == "" {
		errs.Add("software_version", "must be non-empty when lifecycle is live")
	}
	if !n.MgmtAddr.IsValid() {
		errs.Add("mgmt_ip", "must be a valid IPv4 or IPv6 address")
	}
	if _, ok := n.CustomData.AsObject(); !ok && !n.CustomData.IsNull() {
		errs.Add("custom_data", "must be a JSON object")
	}
	if errs.Empty() {
		return nil
	}
	return &errs
}

// FieldErrors collects per-field validation failures so the store can raise
// one errs.Error with full context rather than failing on the first problem.
type FieldErrors struct {
	entries []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (f *FieldErrors) Add(field, message string) {
	f.entries = append(f.entries, FieldError{Field: field, Message: message})
}

func (f *FieldErrors) Empty() bool { return f == nil || len(f.entries) == 0 }

func (f *FieldErrors) Entries() []FieldError {
	if f == nil {
		return nil
	}
	return f.entries
}

func (f *FieldErrors) Error() string {
	if f.Empty() {
		return "no validation errors"
	}
	msg := ""
	for i, e := range f.entries {
		if i > 0 {
			msg += "; "
		}
		msg += e.Field + ": " + e.Message
	}
	return msg
}

// ParseMgmtAddr validates and parses a management address string, used by
// model builders before constructing a Node.
func ParseMgmtAddr(s string) (netip.Addr, error) {
	return netip.ParseAddr(s)
}
