// Package oid maps symbolic names to OID strings for the poller's bulk-get
// requests: a standard MIB-II subset plus per-vendor
// namespaces selected by a node's vendor field, extensible at runtime by
// registering new (name, OID, decoder) entries.
package oid

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/snmp"
)

// Decoder post-processes a raw snmp.Value into whatever shape the caller's
// NodeStatus field expects (e.g. TimeTicks -> seconds, OctetString -> a
// trimmed string). Most entries use DecodeIdentity.
type Decoder func(snmp.Value) (snmp.Value, error)

// DecodeIdentity returns v unchanged; the default decoder for entries that
// need no post-processing.
func DecodeIdentity(v snmp.Value) (snmp.Value, error) { return v, nil }

// DecodeUptimeSeconds converts a TimeTicks value (hundredths of a second)
// into whole seconds, the unit NodeStatus.LastPolledAtMS siblings use.
func DecodeUptimeSeconds(v snmp.Value) (snmp.Value, error) {
	if v.Kind != snmp.KindTimeTicks {
		return v, nil
	}
	return snmp.IntValue(snmp.KindTimeTicks, v.Int/100), nil
}

// Entry is one registered symbolic OID.
type Entry struct {
	Name    string
	OID     string
	Decoder Decoder
}

// Namespace groups entries under a MIB-II section or a vendor's private
// tree.
type Namespace string

const (
	NamespaceMIBII   Namespace = "mib2"
	NamespaceCisco   Namespace = "cisco"
	NamespaceJuniper Namespace = "juniper"
	NamespaceArista  Namespace = "arista"
	NamespaceGeneric Namespace = "generic"
)

// Registry holds every registered (name, OID, decoder) triple, grouped by
// namespace, plus a decode-result cache (ristretto, same dependency the
// policy engine's result cache uses) so repeated decodes of common OIDs
// across poll cycles skip redundant work.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[Namespace]map[string]Entry

	cache *ristretto.Cache
}

// NewRegistry builds a Registry pre-seeded with the standard MIB-II subset
// and the built-in vendor namespaces.
func NewRegistry() (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "oid.registry.new", "failed to construct ristretto cache", err)
	}
	r := &Registry{
		namespaces: map[Namespace]map[string]Entry{},
		cache:      cache,
	}
	r.seedMIBII()
	r.seedVendors()
	return r, nil
}

func (r *Registry) seedMIBII() {
	entries := []Entry{
		{Name: "sysDescr", OID: "1.3.6.1.2.1.1.1.0", Decoder: DecodeIdentity},
		{Name: "sysObjectID", OID: "1.3.6.1.2.1.1.2.0", Decoder: DecodeIdentity},
		{Name: "sysUpTime", OID: "1.3.6.1.2.1.1.3.0", Decoder: DecodeUptimeSeconds},
		{Name: "sysName", OID: "1.3.6.1.2.1.1.5.0", Decoder: DecodeIdentity},
		{Name: "ifNumber", OID: "1.3.6.1.2.1.2.1.0", Decoder: DecodeIdentity},
		{Name: "ifIndex", OID: "1.3.6.1.2.1.2.2.1.1", Decoder: DecodeIdentity},
		{Name: "ifDescr", OID: "1.3.6.1.2.1.2.2.1.2", Decoder: DecodeIdentity},
		{Name: "ifOperStatus", OID: "1.3.6.1.2.1.2.2.1.8", Decoder: DecodeIdentity},
		{Name: "ifAdminStatus", OID: "1.3.6.1.2.1.2.2.1.7", Decoder: DecodeIdentity},
		{Name: "ifInOctets", OID: "1.3.6.1.2.1.2.2.1.10", Decoder: DecodeIdentity},
		{Name: "ifOutOctets", OID: "1.3.6.1.2.1.2.2.1.16", Decoder: DecodeIdentity},
		{Name: "ifInErrors", OID: "1.3.6.1.2.1.2.2.1.14", Decoder: DecodeIdentity},
		{Name: "ifOutErrors", OID: "1.3.6.1.2.1.2.2.1.20", Decoder: DecodeIdentity},
		{Name: "ifHCInOctets", OID: "1.3.6.1.2.1.31.1.1.1.6", Decoder: DecodeIdentity},
		{Name: "ifHCOutOctets", OID: "1.3.6.1.2.1.31.1.1.1.10", Decoder: DecodeIdentity},
	}
	r.namespaces[NamespaceMIBII] = indexEntries(entries)
}

func (r *Registry) seedVendors() {
	r.namespaces[NamespaceCisco] = indexEntries([]Entry{
		{Name: "ciscoSoftwareVersion", OID: "1.3.6.1.4.1.9.9.25.1.1.1.2.5", Decoder: DecodeIdentity},
		{Name: "ciscoMemoryPoolUsed", OID: "1.3.6.1.4.1.9.9.48.1.1.1.5", Decoder: DecodeIdentity},
		{Name: "ciscoCpuUtilization5min", OID: "1.3.6.1.4.1.9.9.109.1.1.1.1.8", Decoder: DecodeIdentity},
	})
	r.namespaces[NamespaceJuniper] = indexEntries([]Entry{
		{Name: "jnxOperatingState", OID: "1.3.6.1.4.1.2636.3.1.13.1.6", Decoder: DecodeIdentity},
		{Name: "jnxOperatingCPU", OID: "1.3.6.1.4.1.2636.3.1.13.1.8", Decoder: DecodeIdentity},
	})
	r.namespaces[NamespaceArista] = indexEntries([]Entry{
		{Name: "aristaSwSoftwareVersion", OID: "1.3.6.1.4.1.30065.3.1.1.1", Decoder: DecodeIdentity},
	})
	r.namespaces[NamespaceGeneric] = map[string]Entry{}
}

func indexEntries(entries []Entry) map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}

// Register adds or replaces an entry at runtime.
func (r *Registry) Register(ns Namespace, e Entry) {
	if e.Decoder == nil {
		e.Decoder = DecodeIdentity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.namespaces[ns] == nil {
		r.namespaces[ns] = map[string]Entry{}
	}
	r.namespaces[ns][e.Name] = e
}

// Lookup resolves a symbolic name within a namespace.
func (r *Registry) Lookup(ns Namespace, name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.namespaces[ns][name]
	return e, ok
}

// VendorNamespace maps a node's vendor to its OID namespace. Unknown
// vendors fall back to Generic.
func VendorNamespace(v model.Vendor) Namespace {
	switch v.Kind() {
	case model.VendorCisco:
		return NamespaceCisco
	case model.VendorJuniper:
		return NamespaceJuniper
	case model.VendorArista:
		return NamespaceArista
	default:
		return NamespaceGeneric
	}
}

// ProfileOIDs builds the full OID list for a node's poll: MIB-II always,
// plus the vendor namespace's entries.
func (r *Registry) ProfileOIDs(vendor model.Vendor) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.namespaces[NamespaceMIBII])+4)
	for _, e := range r.namespaces[NamespaceMIBII] {
		out = append(out, e)
	}
	for _, e := range r.namespaces[VendorNamespace(vendor)] {
		out = append(out, e)
	}
	return out
}

// DecodeCached applies entry's decoder to v, caching the result keyed by
// (entry name, raw string form) so repeated identical readings across poll
// cycles (a link that hasn't changed) skip redundant decode work.
func (r *Registry) DecodeCached(e Entry, v snmp.Value) (snmp.Value, error) {
	key := fmt.Sprintf("%s|%d|%s", e.Name, v.Kind, v.String())
	if cached, ok := r.cache.Get(key); ok {
		if dv, ok := cached.(snmp.Value); ok {
			return dv, nil
		}
	}
	dv, err := e.Decoder(v)
	if err != nil {
		return snmp.Value{}, err
	}
	r.cache.Set(key, dv, 1)
	return dv, nil
}

func (r *Registry) Close() { r.cache.Close() }
