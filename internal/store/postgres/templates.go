package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/ids"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

func (s *Store) PutTemplate(ctx context.Context, tx *store.Tx, t *model.TemplateMetadata) error {
	const op = "store.template.put"
	if t.ID == "" {
		t.ID = newTemplateID()
	}
	if t.CreatedAtMS == 0 {
		t.CreatedAtMS = nowMS()
	}
	patterns, err := json.Marshal(t.MatchPatterns)
	if err != nil {
		return errs.Wrap(errs.KindInternal, op, "failed to marshal match_patterns", err)
	}
	_, err = s.q(tx).Exec(ctx, `INSERT INTO template (id, path, vendor, version, match_patterns, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET path=EXCLUDED.path, vendor=EXCLUDED.vendor,
			version=EXCLUDED.version, match_patterns=EXCLUDED.match_patterns`,
		t.ID, t.SourcePath, nullableString(t.VendorHint), t.VersionTag, patterns, t.CreatedAtMS)
	if err != nil {
		return errs.Wrap(errs.KindIO, op, "upsert failed", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, tx *store.Tx, id string) (*model.TemplateMetadata, error) {
	const op = "store.template.get"
	row := s.q(tx).QueryRow(ctx, `SELECT id, path, vendor, version, match_patterns, created_at FROM template WHERE id = $1`, id)
	return scanTemplate(row, op)
}

func (s *Store) ListTemplates(ctx context.Context, tx *store.Tx, opts store.ListOptions) (store.ListResult[*model.TemplateMetadata], error) {
	const op = "store.template.list"
	where, whereArgs := buildWhere(opts.Filters, 0)
	orderLimit, olArgs := buildOrderLimit(opts, len(whereArgs))
	args := append(append([]any{}, whereArgs...), olArgs...)

	rows, err := s.q(tx).Query(ctx, `SELECT id, path, vendor, version, match_patterns, created_at FROM template `+where+orderLimit, args...)
	if err != nil {
		return store.ListResult[*model.TemplateMetadata]{}, errs.Wrap(errs.KindIO, op, "list query failed", err)
	}
	defer rows.Close()

	var out store.ListResult[*model.TemplateMetadata]
	for rows.Next() {
		t, err := scanTemplate(rows, op)
		if err != nil {
			return store.ListResult[*model.TemplateMetadata]{}, err
		}
		out.Items = append(out.Items, t)
	}
	return out, rows.Err()
}

func (s *Store) AssignTemplate(ctx context.Context, tx *store.Tx, a *model.TemplateAssignment) error {
	const op = "store.template.assign"
	if a.AssignedAtMS == 0 {
		a.AssignedAtMS = nowMS()
	}
	_, err := s.q(tx).Exec(ctx, `INSERT INTO template_assignment (node_id, template_id, assigned_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (node_id, template_id) DO UPDATE SET assigned_at = EXCLUDED.assigned_at`,
		a.NodeID, a.TemplateID, a.AssignedAtMS)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.Wrap(errs.KindReferentialIntegrity, op, "node_id or template_id does not exist", err)
		}
		return errs.Wrap(errs.KindIO, op, "insert failed", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, tx *store.Tx, nodeID string) ([]*model.TemplateAssignment, error) {
	const op = "store.template.list_assignments"
	rows, err := s.q(tx).Query(ctx, `SELECT node_id, template_id, assigned_at FROM template_assignment WHERE node_id = $1`, nodeID)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, "query failed", err)
	}
	defer rows.Close()

	var out []*model.TemplateAssignment
	for rows.Next() {
		var a model.TemplateAssignment
		if err := rows.Scan(&a.NodeID, &a.TemplateID, &a.AssignedAtMS); err != nil {
			return nil, errs.Wrap(errs.KindIO, op, "scan failed", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanTemplate(row rowScanner, op string) (*model.TemplateMetadata, error) {
	var t model.TemplateMetadata
	var vendor *string
	var patterns []byte
	if err := row.Scan(&t.ID, &t.SourcePath, &vendor, &t.VersionTag, &patterns, &t.CreatedAtMS); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, op, "template not found")
		}
		return nil, errs.Wrap(errs.KindIO, op, "scan failed", err)
	}
	t.VendorHint = derefString(vendor)
	if len(patterns) > 0 {
		_ = json.Unmarshal(patterns, &t.MatchPatterns)
	}
	return &t, nil
}

func newTemplateID() string { return ids.New(ids.KindTemplate) }
