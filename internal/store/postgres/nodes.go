package postgres

import (
	"context"
	"net/netip"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

const nodeColumns = `id, name, domain, vendor, model, device_role, mgmt_ip, software_version, location_id, lifecycle, custom_data, version, created_at, updated_at`

func (s *Store) CreateNode(ctx context.Context, tx *store.Tx, n *model.Node) (*model.Node, error) {
	const op = "store.node.create"
	if verrs := n.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, op, verrs.Error())
	}

	if n.LocationID != "" {
		if _, err := s.GetLocation(ctx, tx, n.LocationID); err != nil {
			return nil, errs.Wrap(errs.KindReferentialIntegrity, op, "location_id does not reference an existing location", err)
		}
	}

	if n.ID == "" {
		n.ID = newNodeID()
	}
	now := nowMS()
	n.CreatedAtMS, n.UpdatedAtMS = now, now
	n.Version = 0

	vendor := n.Vendor.Name()
	var locationID *string
	if n.LocationID != "" {
		locationID = &n.LocationID
	}

	_, err := s.q(tx).Exec(ctx, `INSERT INTO node (`+nodeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		n.ID, n.Name, nullableString(n.Domain), vendor, n.Model, string(n.Role),
		n.MgmtAddr.String(), n.SoftwareVersion, locationID, string(n.Lifecycle),
		n.CustomData, n.Version, n.CreatedAtMS, n.UpdatedAtMS)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Wrap(errs.KindAlreadyExists, op, "a node with this (name, domain) already exists", err).
				With("name", n.Name).With("domain", n.Domain)
		}
		return nil, errs.Wrap(errs.KindIO, op, "insert failed", err)
	}
	return n, nil
}

func (s *Store) GetNode(ctx context.Context, tx *store.Tx, id string) (*model.Node, error) {
	row := s.q(tx).QueryRow(ctx, `SELECT `+nodeColumns+` FROM node WHERE id = $1`, id)
	return scanNode(row, "store.node.get")
}

func (s *Store) GetNodeByName(ctx context.Context, tx *store.Tx, name, domain string) (*model.Node, error) {
	row := s.q(tx).QueryRow(ctx, `SELECT `+nodeColumns+` FROM node WHERE name = $1 AND domain IS NOT DISTINCT FROM $2`, name, nullableString(domain))
	return scanNode(row, "store.node.get_by_name")
}

func (s *Store) UpdateNode(ctx context.Context, tx *store.Tx, n *model.Node) (*model.Node, error) {
	const op = "store.node.update"
	if verrs := n.Validate(); !verrs.Empty() {
		return nil, errs.New(errs.KindValidation, op, verrs.Error())
	}

	n.UpdatedAtMS = nowMS()
	expectedVersion := n.Version
	n.Version++

	var locationID *string
	if n.LocationID != "" {
		locationID = &n.LocationID
	}

	tag, err := s.q(tx).Exec(ctx, `UPDATE node SET name=$1, domain=$2, vendor=$3, model=$4, device_role=$5,
		mgmt_ip=$6, software_version=$7, location_id=$8, lifecycle=$9, custom_data=$10,
		version=$11, updated_at=$12
		WHERE id=$13 AND version=$14`,
		n.Name, nullableString(n.Domain), n.Vendor.Name(), n.Model, string(n.Role),
		n.MgmtAddr.String(), n.SoftwareVersion, locationID, string(n.Lifecycle), n.CustomData,
		n.Version, n.UpdatedAtMS, n.ID, expectedVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Wrap(errs.KindAlreadyExists, op, "a node with this (name, domain) already exists", err)
		}
		return nil, errs.Wrap(errs.KindIO, op, "update failed", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetNode(ctx, tx, n.ID); getErr != nil {
			return nil, getErr
		}
		return nil, errs.New(errs.KindConflict, op, "node was modified concurrently").With("node_id", n.ID)
	}
	return n, nil
}

func (s *Store) DeleteNode(ctx context.Context, tx *store.Tx, id string) error {
	const op = "store.node.delete"
	tag, err := s.q(tx).Exec(ctx, `DELETE FROM node WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.Wrap(errs.KindReferentialIntegrity, op, "node is still referenced by links or other rows", err)
		}
		return errs.Wrap(errs.KindIO, op, "delete failed", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, op, "node not found").With("node_id", id)
	}
	return nil
}

func (s *Store) ListNodes(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.Node], error) {
	const op = "store.node.list"
	where, whereArgs := buildWhere(opts.Filters, 0)
	orderLimit, olArgs := buildOrderLimit(opts, len(whereArgs))
	args := append(append([]any{}, whereArgs...), olArgs...)

	query := `SELECT ` + nodeColumns + ` FROM node ` + where + orderLimit
	rows, err := s.q(tx).Query(ctx, query, args...)
	if err != nil {
		return store.ListResult[*model.Node]{}, errs.Wrap(errs.KindIO, op, "list query failed", err)
	}
	defer rows.Close()

	var out store.ListResult[*model.Node]
	for rows.Next() {
		n, err := scanNodeRow(rows)
		if err != nil {
			return store.ListResult[*model.Node]{}, errs.Wrap(errs.KindIO, op, "scan failed", err)
		}
		out.Items = append(out.Items, n)
	}
	if err := rows.Err(); err != nil {
		return store.ListResult[*model.Node]{}, errs.Wrap(errs.KindIO, op, "row iteration failed", err)
	}

	if opts.CountTotal {
		countQuery := `SELECT count(*) FROM node ` + where
		if err := s.q(tx).QueryRow(ctx, countQuery, whereArgs...).Scan(&out.Total); err != nil {
			return store.ListResult[*model.Node]{}, errs.Wrap(errs.KindIO, op, "count query failed", err)
		}
	}
	return out, nil
}

func (s *Store) BatchUpsertNodes(ctx context.Context, tx *store.Tx, nodes []*model.Node) ([]*model.Node, error) {
	const op = "store.node.batch_upsert"
	run := func(ctx context.Context, tx *store.Tx) error {
		for _, n := range nodes {
			if n.ID == "" {
				if _, err := s.CreateNode(ctx, tx, n); err != nil {
					return err
				}
				continue
			}
			if _, err := s.UpdateNode(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	}

	if tx != nil {
		if err := run(ctx, tx); err != nil {
			return nil, err
		}
		return nodes, nil
	}
	if err := s.WithTx(ctx, run); err != nil {
		return nil, errs.Wrap(errs.KindIO, op, "batch upsert failed, rolled back all-or-nothing", err)
	}
	return nodes, nil
}

func (s *Store) BatchDeleteNodes(ctx context.Context, tx *store.Tx, ids []string) error {
	const op = "store.node.batch_delete"
	run := func(ctx context.Context, tx *store.Tx) error {
		for _, id := range ids {
			if err := s.DeleteNode(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	}
	if tx != nil {
		return run(ctx, tx)
	}
	if err := s.WithTx(ctx, run); err != nil {
		return errs.Wrap(errs.KindOf(err), op, "batch delete failed, rolled back all-or-nothing", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row pgx.Row, op string) (*model.Node, error) {
	return scanNodeRow(rowScanner(row))
}

func scanNodeRow(row rowScanner) (*model.Node, error) {
	var n model.Node
	var domain, locationID *string
	var vendor, role, lifecycle, mgmt string
	var customData model.Value

	if err := row.Scan(&n.ID, &n.Name, &domain, &vendor, &n.Model, &role, &mgmt,
		&n.SoftwareVersion, &locationID, &lifecycle, &customData, &n.Version,
		&n.CreatedAtMS, &n.UpdatedAtMS); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, "store.node.get", "node not found")
		}
		return nil, errs.Wrap(errs.KindIO, "store.node.scan", "scan failed", err)
	}

	n.Domain = derefString(domain)
	n.LocationID = derefString(locationID)
	n.Role = model.DeviceRole(role)
	n.Lifecycle = model.Lifecycle(lifecycle)
	n.CustomData = customData
	if addr, err := netip.ParseAddr(mgmt); err == nil {
		n.MgmtAddr = addr
	}
	n.Vendor = parseVendor(vendor)
	return &n, nil
}

func parseVendor(name string) model.Vendor {
	switch model.VendorKind(name) {
	case model.VendorCisco, model.VendorJuniper, model.VendorArista, model.VendorGeneric:
		return model.NewVendor(model.VendorKind(name))
	default:
		return model.NewOtherVendor(name)
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
