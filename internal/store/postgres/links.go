package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

const linkColumns = `id, node_a_id, interface_a, node_z_id, interface_z, role, bandwidth_mbps, lifecycle, custom_data, version, created_at, updated_at`

func (s *Store) CreateLink(ctx context.Context, tx *store.Tx, l *model.Link) (*model.Link, error) {
	const op = "store.link.create"
	if verrs := l.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, op, verrs.Error())
	}
	if _, err := s.GetNode(ctx, tx, l.EndpointA.NodeID); err != nil {
		return nil, errs.Wrap(errs.KindReferentialIntegrity, op, "node_a_id does not reference an existing node", err)
	}
	if l.HasEndpointZ() {
		if _, err := s.GetNode(ctx, tx, l.EndpointZ.NodeID); err != nil {
			return nil, errs.Wrap(errs.KindReferentialIntegrity, op, "node_z_id does not reference an existing node", err)
		}
	}

	if l.ID == "" {
		l.ID = newLinkID()
	}
	now := nowMS()
	l.CreatedAtMS, l.UpdatedAtMS = now, now
	l.Version = 0

	var nodeZ, ifaceZ *string
	if l.HasEndpointZ() {
		nodeZ, ifaceZ = &l.EndpointZ.NodeID, &l.EndpointZ.Interface
	}

	_, err := s.q(tx).Exec(ctx, `INSERT INTO link (`+linkColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		l.ID, l.EndpointA.NodeID, l.EndpointA.Interface, nodeZ, ifaceZ, string(l.Role),
		l.BandwidthMbps, string(l.Lifecycle), l.CustomData, l.Version, l.CreatedAtMS, l.UpdatedAtMS)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Wrap(errs.KindAlreadyExists, op, "a link with this (node_a_id, interface_a) already exists", err)
		}
		return nil, errs.Wrap(errs.KindIO, op, "insert failed", err)
	}
	return l, nil
}

func (s *Store) GetLink(ctx context.Context, tx *store.Tx, id string) (*model.Link, error) {
	row := s.q(tx).QueryRow(ctx, `SELECT `+linkColumns+` FROM link WHERE id = $1`, id)
	return scanLink(row)
}

func (s *Store) UpdateLink(ctx context.Context, tx *store.Tx, l *model.Link) (*model.Link, error) {
	const op = "store.link.update"
	if verrs := l.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, op, verrs.Error())
	}
	l.UpdatedAtMS = nowMS()
	expectedVersion := l.Version
	l.Version++

	var nodeZ, ifaceZ *string
	if l.HasEndpointZ() {
		nodeZ, ifaceZ = &l.EndpointZ.NodeID, &l.EndpointZ.Interface
	}

	tag, err := s.q(tx).Exec(ctx, `UPDATE link SET node_a_id=$1, interface_a=$2, node_z_id=$3, interface_z=$4,
		role=$5, bandwidth_mbps=$6, lifecycle=$7, custom_data=$8, version=$9, updated_at=$10
		WHERE id=$11 AND version=$12`,
		l.EndpointA.NodeID, l.EndpointA.Interface, nodeZ, ifaceZ, string(l.Role), l.BandwidthMbps,
		string(l.Lifecycle), l.CustomData, l.Version, l.UpdatedAtMS, l.ID, expectedVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Wrap(errs.KindAlreadyExists, op, "a link with this (node_a_id, interface_a) already exists", err)
		}
		return nil, errs.Wrap(errs.KindIO, op, "update failed", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetLink(ctx, tx, l.ID); getErr != nil {
			return nil, getErr
		}
		return nil, errs.New(errs.KindConflict, op, "link was modified concurrently").With("link_id", l.ID)
	}
	return l, nil
}

func (s *Store) DeleteLink(ctx context.Context, tx *store.Tx, id string) error {
	const op = "store.link.delete"
	tag, err := s.q(tx).Exec(ctx, `DELETE FROM link WHERE id = $1`, id)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, "delete failed", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, op, "link not found").With("link_id", id)
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.Link], error) {
	const op = "store.link.list"
	where, whereArgs := buildWhere(opts.Filters, 0)
	orderLimit, olArgs := buildOrderLimit(opts, len(whereArgs))
	args := append(append([]any{}, whereArgs...), olArgs...)

	rows, err := s.q(tx).Query(ctx, `SELECT `+linkColumns+` FROM link `+where+orderLimit, args...)
	if err != nil {
		return store.ListResult[*model.Link]{}, errs.Wrap(errs.KindIO, op, "list query failed", err)
	}
	defer rows.Close()

	var out store.ListResult[*model.Link]
	for rows.Next() {
		l, err := scanLinkRow(rows)
		if err != nil {
			return store.ListResult[*model.Link]{}, errs.Wrap(errs.KindIO, op, "scan failed", err)
		}
		out.Items = append(out.Items, l)
	}
	if err := rows.Err(); err != nil {
		return store.ListResult[*model.Link]{}, errs.Wrap(errs.KindIO, op, "row iteration failed", err)
	}
	if opts.CountTotal {
		if err := s.q(tx).QueryRow(ctx, `SELECT count(*) FROM link `+where, whereArgs...).Scan(&out.Total); err != nil {
			return store.ListResult[*model.Link]{}, errs.Wrap(errs.KindIO, op, "count query failed", err)
		}
	}
	return out, nil
}

func scanLink(row pgx.Row) (*model.Link, error) { return scanLinkRow(rowScanner(row)) }

func scanLinkRow(row rowScanner) (*model.Link, error) {
	var l model.Link
	var nodeZ, ifaceZ *string
	var role, lifecycle string
	var customData model.Value

	if err := row.Scan(&l.ID, &l.EndpointA.NodeID, &l.EndpointA.Interface, &nodeZ, &ifaceZ,
		&role, &l.BandwidthMbps, &lifecycle, &customData, &l.Version, &l.CreatedAtMS, &l.UpdatedAtMS); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, "store.link.get", "link not found")
		}
		return nil, errs.Wrap(errs.KindIO, "store.link.scan", "scan failed", err)
	}
	if nodeZ != nil {
		l.EndpointZ.NodeID = *nodeZ
	}
	if ifaceZ != nil {
		l.EndpointZ.Interface = *ifaceZ
	}
	l.Role = model.LinkRole(role)
	l.Lifecycle = model.Lifecycle(lifecycle)
	l.CustomData = customData
	return &l, nil
}
