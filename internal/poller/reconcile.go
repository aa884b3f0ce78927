package poller

import (
	"context"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/snmp"
	"github.com/bedecarroll/unet-sub002/internal/snmp/oid"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// DevicePoller executes one node's poll and returns its decoded derived-state
// snapshot. The real implementation (snmpPoller) is a thin seam over the
// SNMP client pool and OID registry; tests substitute a fake to exercise
// scheduling and backoff without a live device.
type DevicePoller interface {
	Poll(ctx context.Context, node *model.Node) (*model.NodeStatus, error)
}

// snmpPoller is the default DevicePoller: build the node's vendor OID
// profile, run one bulk-get, decode the response vector.
type snmpPoller struct {
	pool           *snmp.Pool
	registry       *oid.Registry
	sessionConfig  SessionConfigFor
	maxRepetitions uint8
	clock          clockwork.Clock
}

func (p *snmpPoller) Poll(ctx context.Context, node *model.Node) (*model.NodeStatus, error) {
	cfg, err := p.sessionConfig(node)
	if err != nil {
		return nil, err
	}
	sess, err := p.pool.GetSession(cfg)
	if err != nil {
		return nil, err
	}

	entries := p.registry.ProfileOIDs(node.Vendor)
	oids := make([]string, len(entries))
	byOID := make(map[string]oid.Entry, len(entries))
	for i, e := range entries {
		oids[i] = e.OID
		byOID[e.OID] = e
	}

	results, err := sess.BulkGet(ctx, oids, p.maxRepetitions)
	if err != nil {
		return nil, err
	}

	return decodeSnapshot(p.registry, node.ID, p.clock.Now().UnixMilli(), byOID, results)
}

// decodeSnapshot turns a flat OID->Value result vector into a typed
// NodeStatus. ifTable columns are grouped by trailing instance index into
// per-interface InterfaceStatus rows; every other OID lands in Raw keyed
// by its symbolic name.
func decodeSnapshot(reg *oid.Registry, nodeID string, nowMS int64, byOID map[string]oid.Entry, results []snmp.Result) (*model.NodeStatus, error) {
	st := &model.NodeStatus{
		NodeID:         nodeID,
		LastPolledAtMS: nowMS,
		Interfaces:     map[int]model.InterfaceStatus{},
	}

	raw := map[string]model.Value{}
	reachable := false
	for _, r := range results {
		if !r.Value.IsAbsent() {
			reachable = true
		}
		entry, known := matchEntry(byOID, r.OID)
		var (
			decoded = r.Value
			err     error
		)
		if known {
			decoded, err = reg.DecodeCached(entry, r.Value)
			if err != nil {
				return nil, err
			}
		}
		name := r.OID
		ifIndex, isIfTableColumn := 0, false
		if known {
			name = entry.Name
			ifIndex, isIfTableColumn = ifTableIndex(entry.Name, r.OID)
		}
		if isIfTableColumn {
			applyInterfaceColumn(st, entry.Name, ifIndex, decoded)
			continue
		}
		raw[name] = snmpValueToModel(decoded)

		switch name {
		case "sysDescr":
			// retained verbatim in raw; no typed field on NodeStatus for it
		case "ciscoSoftwareVersion", "aristaSwSoftwareVersion":
			st.ActualSoftwareVersion = decoded.String()
		}
	}
	st.Reachable = reachable
	st.Raw = model.Object(raw)
	return st, nil
}

// matchEntry resolves an OID response back to its registry entry. gosnmp
// returns instance-qualified OIDs for table columns (e.g.
// "1.3.6.1.2.1.2.2.1.8.3" for ifOperStatus.3), so this matches by prefix
// against every known OID, preferring the longest (most specific) match.
func matchEntry(byOID map[string]oid.Entry, responseOID string) (oid.Entry, bool) {
	oidStr := responseOID
	if len(oidStr) > 0 && oidStr[0] == '.' {
		oidStr = oidStr[1:]
	}
	var best oid.Entry
	bestLen := -1
	for prefix, e := range byOID {
		if oidStr == prefix || (len(oidStr) > len(prefix) && oidStr[:len(prefix)+1] == prefix+".") {
			if len(prefix) > bestLen {
				best = e
				bestLen = len(prefix)
			}
		}
	}
	return best, bestLen >= 0
}

var ifTableColumns = map[string]bool{
	"ifIndex": true, "ifDescr": true, "ifOperStatus": true, "ifAdminStatus": true,
	"ifInOctets": true, "ifOutOctets": true, "ifInErrors": true, "ifOutErrors": true,
	"ifHCInOctets": true, "ifHCOutOctets": true,
}

// ifTableIndex extracts the trailing ifIndex instance from a table-column
// OID, e.g. "...2.2.1.8.3" -> ifIndex 3.
func ifTableIndex(name, responseOID string) (int, bool) {
	if !ifTableColumns[name] {
		return 0, false
	}
	oidStr := responseOID
	i := len(oidStr) - 1
	for i >= 0 && oidStr[i] != '.' {
		i--
	}
	if i < 0 {
		return 0, false
	}
	idx, err := strconv.Atoi(oidStr[i+1:])
	if err != nil {
		return 0, false
	}
	return idx, true
}

func applyInterfaceColumn(st *model.NodeStatus, name string, ifIndex int, v snmp.Value) {
	ifc := st.Interfaces[ifIndex]
	ifc.IfIndex = ifIndex
	ifc.SampledAtMS = st.LastPolledAtMS
	counters, _ := ifc.Counters.AsObject()
	if counters == nil {
		counters = map[string]model.Value{}
	}
	switch name {
	case "ifOperStatus":
		ifc.OperState = v.String()
	case "ifAdminStatus":
		ifc.AdminState = v.String()
	case "ifInOctets", "ifOutOctets", "ifInErrors", "ifOutErrors", "ifHCInOctets", "ifHCOutOctets":
		counters[name] = snmpValueToModel(v)
	}
	ifc.Counters = model.Object(counters)
	st.Interfaces[ifIndex] = ifc
}

func snmpValueToModel(v snmp.Value) model.Value {
	switch v.Kind {
	case snmp.KindInteger, snmp.KindCounter32, snmp.KindCounter64, snmp.KindGauge, snmp.KindTimeTicks:
		return model.Number(float64(v.Int))
	case snmp.KindNull, snmp.KindNoSuchObject, snmp.KindNoSuchInstance:
		return model.Null()
	default:
		return model.String(v.Str)
	}
}

// writeSnapshot commits the snapshot to derived state in a single
// transaction, bumping the node's derived-state version counter.
func (s *Scheduler) writeSnapshot(ctx context.Context, st *model.NodeStatus) error {
	return s.cfg.Store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return s.cfg.Store.PutNodeStatus(ctx, tx, st)
	})
}

// Janitor removes derived-state and polling-task rows for nodes that no
// longer exist in desired state, on the next scheduler tick after the
// deletion. Config.RetainDerivedOnDelete skips the node_status deletion
// when an operator wants derived history kept for decommissioned nodes;
// the polling_task row is always removed since there is nothing left to
// poll.
type Janitor struct {
	Store                 store.Store
	RetainDerivedOnDelete bool
}

// Sweep runs one janitor pass over every polling_task row, deleting the
// ones whose node no longer exists.
func (j *Janitor) Sweep(ctx context.Context) error {
	const op = "poller.janitor.sweep"
	rows, err := j.Store.ListDuePollingTasks(ctx, nil, maxInt64, 100_000)
	if err != nil {
		return err
	}
	for _, r := range rows {
		_, err := j.Store.GetNode(ctx, nil, r.NodeID)
		if err == nil {
			continue
		}
		if errs.KindOf(err) != errs.KindNotFound {
			return errs.Wrap(errs.KindIO, op, "failed to check node existence", err).With("node_id", r.NodeID)
		}
		if !j.RetainDerivedOnDelete {
			if delErr := j.Store.DeleteNodeStatus(ctx, nil, r.NodeID); delErr != nil && errs.KindOf(delErr) != errs.KindNotFound {
				return delErr
			}
		}
		if err := j.Store.DeletePollingTask(ctx, nil, r.NodeID); err != nil && errs.KindOf(err) != errs.KindNotFound {
			return err
		}
	}
	return nil
}
