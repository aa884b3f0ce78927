package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// PutNodeStatus overwrites the node's derived-state row in one transaction
// and bumps its version counter, never touching
// desired-state tables. Interface-level rows are replaced wholesale: the
// poller always reports a full snapshot, not an incremental delta.
func (s *Store) PutNodeStatus(ctx context.Context, tx *store.Tx, st *model.NodeStatus) error {
	const op = "store.derived.put_node_status"

	run := func(ctx context.Context, tx *store.Tx) error {
		var nextVersion int
		row := s.q(tx).QueryRow(ctx, `SELECT version FROM node_status WHERE node_id = $1`, st.NodeID)
		var existing int
		switch err := row.Scan(&existing); err {
		case nil:
			nextVersion = existing + 1
		case pgx.ErrNoRows:
			nextVersion = 1
		default:
			return errs.Wrap(errs.KindIO, op, "failed to read existing derived-state version", err)
		}

		_, err := s.q(tx).Exec(ctx, `INSERT INTO node_status (node_id, last_polled_at, reachable, actual_software_version, raw, version)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (node_id) DO UPDATE SET
				last_polled_at = EXCLUDED.last_polled_at,
				reachable = EXCLUDED.reachable,
				actual_software_version = EXCLUDED.actual_software_version,
				raw = EXCLUDED.raw,
				version = EXCLUDED.version`,
			st.NodeID, st.LastPolledAtMS, st.Reachable, nullableString(st.ActualSoftwareVersion), st.Raw, nextVersion)
		if err != nil {
			return errs.Wrap(errs.KindIO, op, "upsert node_status failed", err)
		}
		st.Version = nextVersion

		if _, err := s.q(tx).Exec(ctx, `DELETE FROM interface_status WHERE node_id = $1`, st.NodeID); err != nil {
			return errs.Wrap(errs.KindIO, op, "clear interface_status failed", err)
		}
		for _, ifc := range st.Interfaces {
			if _, err := s.q(tx).Exec(ctx, `INSERT INTO interface_status (node_id, if_index, oper_state, admin_state, counters, sampled_at)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				st.NodeID, ifc.IfIndex, ifc.OperState, ifc.AdminState, ifc.Counters, ifc.SampledAtMS); err != nil {
				return errs.Wrap(errs.KindIO, op, "insert interface_status failed", err)
			}
		}
		return nil
	}

	if tx != nil {
		return run(ctx, tx)
	}
	return s.WithTx(ctx, run)
}

func (s *Store) GetNodeStatus(ctx context.Context, tx *store.Tx, nodeID string) (*model.NodeStatus, error) {
	const op = "store.derived.get_node_status"
	var st model.NodeStatus
	var actualVersion *string
	var raw model.Value
	row := s.q(tx).QueryRow(ctx, `SELECT node_id, last_polled_at, reachable, actual_software_version, raw, version
		FROM node_status WHERE node_id = $1`, nodeID)
	if err := row.Scan(&st.NodeID, &st.LastPolledAtMS, &st.Reachable, &actualVersion, &raw, &st.Version); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, op, "no derived state for node").With("node_id", nodeID)
		}
		return nil, errs.Wrap(errs.KindIO, op, "scan failed", err)
	}
	st.ActualSoftwareVersion = derefString(actualVersion)
	st.Raw = raw

	rows, err := s.q(tx).Query(ctx, `SELECT if_index, oper_state, admin_state, counters, sampled_at
		FROM interface_status WHERE node_id = $1`, nodeID)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, "interface_status query failed", err)
	}
	defer rows.Close()

	st.Interfaces = map[int]model.InterfaceStatus{}
	for rows.Next() {
		var ifc model.InterfaceStatus
		if err := rows.Scan(&ifc.IfIndex, &ifc.OperState, &ifc.AdminState, &ifc.Counters, &ifc.SampledAtMS); err != nil {
			return nil, errs.Wrap(errs.KindIO, op, "interface_status scan failed", err)
		}
		st.Interfaces[ifc.IfIndex] = ifc
	}
	return &st, rows.Err()
}

// DeleteNodeStatus removes a node's derived-state row. Called by the
// poller's janitor pass when a node has disappeared from desired state.
func (s *Store) DeleteNodeStatus(ctx context.Context, tx *store.Tx, nodeID string) error {
	run := func(ctx context.Context, tx *store.Tx) error {
		if _, err := s.q(tx).Exec(ctx, `DELETE FROM interface_status WHERE node_id = $1`, nodeID); err != nil {
			return errs.Wrap(errs.KindIO, "store.derived.delete_node_status", "delete interface_status failed", err)
		}
		if _, err := s.q(tx).Exec(ctx, `DELETE FROM node_status WHERE node_id = $1`, nodeID); err != nil {
			return errs.Wrap(errs.KindIO, "store.derived.delete_node_status", "delete node_status failed", err)
		}
		return nil
	}
	if tx != nil {
		return run(ctx, tx)
	}
	return s.WithTx(ctx, run)
}

func (s *Store) DerivedVersion(ctx context.Context, tx *store.Tx, nodeID string) (int, error) {
	var v int
	row := s.q(tx).QueryRow(ctx, `SELECT version FROM node_status WHERE node_id = $1`, nodeID)
	switch err := row.Scan(&v); err {
	case nil:
		return v, nil
	case pgx.ErrNoRows:
		return 0, nil
	default:
		return 0, errs.Wrap(errs.KindIO, "store.derived.version", "scan failed", err)
	}
}
