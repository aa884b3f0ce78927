package memstore

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// applyList gives memstore the same filter/sort/pagination semantics the
// postgres backend gets from SQL, over an in-memory projection of each row.
// fields maps an item to its column values by the schema's column names;
// nil values stand in for SQL NULL.
func applyList[T any](items []T, fields func(T) map[string]any, opts store.ListOptions) (store.ListResult[T], error) {
	filtered := make([]T, 0, len(items))
	for _, it := range items {
		row := fields(it)
		ok, err := rowMatches(row, opts.Filters)
		if err != nil {
			return store.ListResult[T]{}, err
		}
		if ok {
			filtered = append(filtered, it)
		}
	}

	if opts.SortBy != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			less := valueLess(fields(filtered[i])[opts.SortBy], fields(filtered[j])[opts.SortBy])
			if opts.SortDesc {
				return !less
			}
			return less
		})
	}

	total := len(filtered)
	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			filtered = nil
		} else {
			filtered = filtered[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	out := store.ListResult[T]{Items: filtered}
	if opts.CountTotal {
		out.Total = total
	}
	return out, nil
}

func rowMatches(row map[string]any, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := fieldMatches(row[f.Field], f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func fieldMatches(val any, f store.Filter) (bool, error) {
	const op = "memstore.list.filter"
	switch f.Op {
	case store.OpIsNull:
		return val == nil, nil
	case store.OpNotNull:
		return val != nil, nil
	}
	if val == nil {
		return false, nil
	}

	switch f.Op {
	case store.OpEq:
		return valueCompare(val, f.Value) == 0, nil
	case store.OpNe:
		return valueCompare(val, f.Value) != 0, nil
	case store.OpLt:
		return valueCompare(val, f.Value) < 0, nil
	case store.OpLte:
		return valueCompare(val, f.Value) <= 0, nil
	case store.OpGt:
		return valueCompare(val, f.Value) > 0, nil
	case store.OpGte:
		return valueCompare(val, f.Value) >= 0, nil
	case store.OpIn:
		for _, candidate := range anySlice(f.Value) {
			if valueCompare(val, candidate) == 0 {
				return true, nil
			}
		}
		return false, nil
	case store.OpContains:
		return strings.Contains(strings.ToLower(asString(val)), strings.ToLower(asString(f.Value))), nil
	case store.OpRegex:
		re, err := regexp.Compile(asString(f.Value))
		if err != nil {
			return false, errs.Wrap(errs.KindValidation, op, "invalid regex filter", err).With("field", f.Field)
		}
		return re.MatchString(asString(val)), nil
	default:
		return false, errs.New(errs.KindValidation, op, "unsupported filter op "+string(f.Op)).With("field", f.Field)
	}
}

func anySlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	default:
		return []any{v}
	}
}

// valueCompare orders two scalar values: numerically when both sides look
// numeric, lexically otherwise. Returns -1/0/1.
func valueCompare(a, b any) int {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(asString(a), asString(b))
}

func valueLess(a, b any) bool {
	if a == nil {
		return b != nil // NULLs sort first, matching Postgres ASC NULLS FIRST ordering for our columns
	}
	if b == nil {
		return false
	}
	return valueCompare(a, b) < 0
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func nodeFields(n *model.Node) map[string]any {
	return map[string]any{
		"id":               n.ID,
		"name":             n.Name,
		"domain":           nullable(n.Domain),
		"vendor":           n.Vendor.Name(),
		"model":            n.Model,
		"device_role":      string(n.Role),
		"mgmt_ip":          n.MgmtAddr.String(),
		"software_version": n.SoftwareVersion,
		"location_id":      nullable(n.LocationID),
		"lifecycle":        string(n.Lifecycle),
		"version":          n.Version,
		"created_at":       n.CreatedAtMS,
		"updated_at":       n.UpdatedAtMS,
	}
}

func linkFields(l *model.Link) map[string]any {
	row := map[string]any{
		"id":          l.ID,
		"node_a_id":   l.EndpointA.NodeID,
		"interface_a": l.EndpointA.Interface,
		"node_z_id":   nullable(l.EndpointZ.NodeID),
		"interface_z": nullable(l.EndpointZ.Interface),
		"role":        string(l.Role),
		"lifecycle":   string(l.Lifecycle),
		"version":     l.Version,
		"created_at":  l.CreatedAtMS,
		"updated_at":  l.UpdatedAtMS,
	}
	if l.BandwidthMbps != nil {
		row["bandwidth_mbps"] = *l.BandwidthMbps
	} else {
		row["bandwidth_mbps"] = nil
	}
	return row
}

func locationFields(l *model.Location) map[string]any {
	return map[string]any{
		"id":         l.ID,
		"name":       l.Name,
		"parent_id":  nullable(l.ParentID),
		"lifecycle":  string(l.Lifecycle),
		"version":    l.Version,
		"created_at": l.CreatedAtMS,
		"updated_at": l.UpdatedAtMS,
	}
}

func templateFields(t *model.TemplateMetadata) map[string]any {
	return map[string]any{
		"id":         t.ID,
		"path":       t.SourcePath,
		"vendor":     nullable(t.VendorHint),
		"version":    t.VersionTag,
		"created_at": t.CreatedAtMS,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
