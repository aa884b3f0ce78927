// Package eval evaluates parsed policy rules (internal/policy/lang) against
// one node's desired+derived state.
package eval

import (
	"strconv"
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/lang"
)

// Context is a read-through view of one node plus its derived state and
// location chain, exposed as a tree keyed by dotted paths.
type Context struct {
	Node          *model.Node
	Derived       *model.NodeStatus // nil if the node has never been polled
	LocationChain []*model.Location // root-first, as returned by store.AncestorChain
}

// Resolve walks a dotted field path and returns the value at that path, or
// Null if any segment is missing; existence checks depend on this never
// failing.
func (c *Context) Resolve(f *lang.Field) model.Value {
	if f == nil || len(f.Parts) == 0 {
		return model.Null()
	}
	head, rest := f.Parts[0], f.Parts[1:]
	switch head {
	case "name":
		return model.String(c.Node.Name)
	case "domain":
		return model.String(c.Node.Domain)
	case "vendor":
		return model.String(c.Node.Vendor.Name())
	case "model":
		return model.String(c.Node.Model)
	case "role":
		return model.String(string(c.Node.Role))
	case "lifecycle":
		return model.String(string(c.Node.Lifecycle))
	case "mgmt_ip":
		if !c.Node.MgmtAddr.IsValid() {
			return model.Null()
		}
		return model.String(c.Node.MgmtAddr.String())
	case "software_version":
		return model.String(c.Node.SoftwareVersion)
	case "location_id":
		return model.String(c.Node.LocationID)
	case "custom_data":
		return c.Node.CustomData.Get(rest)
	case "derived":
		return c.resolveDerived(rest)
	case "location":
		return c.resolveLocation(rest)
	default:
		return model.Null()
	}
}

func (c *Context) resolveDerived(rest []string) model.Value {
	if c.Derived == nil || len(rest) == 0 {
		return model.Null()
	}
	switch rest[0] {
	case "reachable":
		return model.Bool(c.Derived.Reachable)
	case "actual_software_version":
		return model.String(c.Derived.ActualSoftwareVersion)
	case "last_polled_at_ms":
		return model.Number(float64(c.Derived.LastPolledAtMS))
	case "raw":
		return c.Derived.Raw.Get(rest[1:])
	case "interfaces":
		return c.resolveInterface(rest[1:])
	default:
		return model.Null()
	}
}

func (c *Context) resolveInterface(rest []string) model.Value {
	if len(rest) < 2 {
		return model.Null()
	}
	idx, err := strconv.Atoi(rest[0])
	if err != nil {
		return model.Null()
	}
	ifc, ok := c.Derived.Interfaces[idx]
	if !ok {
		return model.Null()
	}
	switch rest[1] {
	case "oper_state":
		return model.String(ifc.OperState)
	case "admin_state":
		return model.String(ifc.AdminState)
	case "counters":
		return ifc.Counters.Get(rest[2:])
	case "sampled_at_ms":
		return model.Number(float64(ifc.SampledAtMS))
	default:
		return model.Null()
	}
}

// resolveLocation handles "location", "location.parent", "location.parent.parent",
// ... followed by a leaf field (e.g. "location.parent.name").
func (c *Context) resolveLocation(rest []string) model.Value {
	if len(c.LocationChain) == 0 {
		return model.Null()
	}
	idx := len(c.LocationChain) - 1
	i := 0
	for i < len(rest) && rest[i] == "parent" {
		idx--
		i++
	}
	if idx < 0 {
		return model.Null()
	}
	loc := c.LocationChain[idx]
	if i >= len(rest) {
		return model.String(loc.Name)
	}
	switch rest[i] {
	case "name":
		return model.String(loc.Name)
	case "lifecycle":
		return model.String(string(loc.Lifecycle))
	case "custom_data":
		return loc.CustomData.Get(rest[i+1:])
	default:
		return model.Null()
	}
}

// ResolveASTValue turns a lang.Value literal or field reference into a
// model.Value, given this context. MATCHES' regex operand is handled
// separately by the comparison evaluator, since model.Value has no regex kind.
func (c *Context) ResolveASTValue(v *lang.Value) (model.Value, error) {
	switch {
	case v.Str != nil:
		return model.String(*v.Str), nil
	case v.Num != nil:
		return model.Number(*v.Num), nil
	case v.Int != nil:
		return model.Number(float64(*v.Int)), nil
	case v.True:
		return model.Bool(true), nil
	case v.False:
		return model.Bool(false), nil
	case v.IsNull:
		return model.Null(), nil
	case v.Ref != nil:
		return c.Resolve(v.Ref), nil
	case v.RegexLit != nil:
		return model.String(*v.RegexLit), nil
	default:
		return model.Null(), errs.New(errs.KindInternal, "policy.eval.resolve_value", "value AST node has no populated alternative")
	}
}

// splitRegexLiteral splits a "/pattern/flags" literal into its pattern and
// flags parts.
func splitRegexLiteral(lit string) (pattern, flags string) {
	lit = strings.TrimPrefix(lit, "/")
	last := strings.LastIndex(lit, "/")
	if last < 0 {
		return lit, ""
	}
	return lit[:last], lit[last+1:]
}
