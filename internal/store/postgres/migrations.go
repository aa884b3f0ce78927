package postgres

import (
	"context"
	"fmt"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// migration is one forward/reverse delta. Migrations must be idempotent:
// every Up statement uses IF NOT EXISTS / CREATE OR REPLACE so re-applying
// a partially-applied migration is safe.
type migration struct {
	Version string
	Up      []string
	Down    []string
}

// migrations is the totally ordered embedded list. Desired-state tables
// carry a version column for optimistic-lock Conflict detection.
var migrations = []migration{
	{
		Version: "0001_schema_migrations",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at BIGINT NOT NULL
			)`,
		},
		Down: []string{`DROP TABLE IF EXISTS schema_migrations`},
	},
	{
		Version: "0002_location",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS location (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				parent_id TEXT NULL REFERENCES location(id),
				lifecycle TEXT NOT NULL,
				custom_data JSONB NOT NULL DEFAULT '{}',
				version INT NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				UNIQUE (parent_id, name)
			)`,
		},
		Down: []string{`DROP TABLE IF EXISTS location`},
	},
	{
		Version: "0003_node",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS node (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				domain TEXT NULL,
				vendor TEXT NOT NULL,
				model TEXT NOT NULL,
				device_role TEXT NOT NULL,
				mgmt_ip TEXT NOT NULL,
				software_version TEXT NOT NULL DEFAULT '',
				location_id TEXT NULL REFERENCES location(id),
				lifecycle TEXT NOT NULL,
				custom_data JSONB NOT NULL DEFAULT '{}',
				version INT NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				UNIQUE (name, domain)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_node_vendor_model ON node (vendor, model)`,
		},
		Down: []string{`DROP TABLE IF EXISTS node`},
	},
	{
		Version: "0004_link",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS link (
				id TEXT PRIMARY KEY,
				node_a_id TEXT NOT NULL REFERENCES node(id),
				interface_a TEXT NOT NULL,
				node_z_id TEXT NULL REFERENCES node(id),
				interface_z TEXT NULL,
				role TEXT NOT NULL,
				bandwidth_mbps INT NULL,
				lifecycle TEXT NOT NULL,
				custom_data JSONB NOT NULL DEFAULT '{}',
				version INT NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				UNIQUE (node_a_id, interface_a)
			)`,
		},
		Down: []string{`DROP TABLE IF EXISTS link`},
	},
	{
		Version: "0005_derived_state",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS node_status (
				node_id TEXT PRIMARY KEY REFERENCES node(id),
				last_polled_at BIGINT NOT NULL,
				reachable BOOLEAN NOT NULL,
				actual_software_version TEXT NULL,
				raw JSONB NOT NULL DEFAULT '{}',
				version INT NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS interface_status (
				node_id TEXT NOT NULL REFERENCES node(id),
				if_index INT NOT NULL,
				oper_state TEXT NOT NULL,
				admin_state TEXT NOT NULL,
				counters JSONB NOT NULL DEFAULT '{}',
				sampled_at BIGINT NOT NULL,
				PRIMARY KEY (node_id, if_index)
			)`,
		},
		Down: []string{
			`DROP TABLE IF EXISTS interface_status`,
			`DROP TABLE IF EXISTS node_status`,
		},
	},
	{
		Version: "0006_polling_task",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS polling_task (
				node_id TEXT PRIMARY KEY REFERENCES node(id),
				interval_ms BIGINT NOT NULL,
				next_due_at BIGINT NOT NULL,
				consecutive_failures INT NOT NULL DEFAULT 0,
				last_error TEXT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_polling_task_next_due ON polling_task (next_due_at)`,
		},
		Down: []string{`DROP TABLE IF EXISTS polling_task`},
	},
	{
		Version: "0007_template",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS template (
				id TEXT PRIMARY KEY,
				path TEXT NOT NULL,
				vendor TEXT NULL,
				version TEXT NOT NULL,
				match_patterns JSONB NOT NULL DEFAULT '[]',
				created_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS template_assignment (
				node_id TEXT NOT NULL REFERENCES node(id),
				template_id TEXT NOT NULL REFERENCES template(id),
				assigned_at BIGINT NOT NULL,
				PRIMARY KEY (node_id, template_id)
			)`,
		},
		Down: []string{
			`DROP TABLE IF EXISTS template_assignment`,
			`DROP TABLE IF EXISTS template`,
		},
	},
}

// Migrate applies every migration not yet recorded in schema_migrations, in
// order, refusing to run if the applied set isn't a prefix of the embedded
// list.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return errs.Wrap(errs.KindIO, "store.migrate", "failed to ensure schema_migrations table", err)
	}

	applied, err := s.AppliedVersions(ctx)
	if err != nil {
		return err
	}
	for i, v := range applied {
		if i >= len(migrations) || migrations[i].Version != v {
			return errs.New(errs.KindInternal, "store.migrate",
				fmt.Sprintf("applied version set is not a prefix of the embedded migration list at index %d (applied=%q, embedded=%q)", i, v, migrationVersionAt(i)))
		}
	}

	for _, m := range migrations[len(applied):] {
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func migrationVersionAt(i int) string {
	if i < 0 || i >= len(migrations) {
		return ""
	}
	return migrations[i].Version
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.KindIO, "store.migrate.apply", "failed to begin migration transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range m.Up {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindIO, "store.migrate.apply", fmt.Sprintf("migration %s failed", m.Version), err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, m.Version, nowMS()); err != nil {
		return errs.Wrap(errs.KindIO, "store.migrate.apply", fmt.Sprintf("recording migration %s failed", m.Version), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.KindIO, "store.migrate.apply", fmt.Sprintf("commit migration %s failed", m.Version), err)
	}
	return nil
}

func (s *Store) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "store.migrate.applied", "failed to list applied migrations", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errs.Wrap(errs.KindIO, "store.migrate.applied", "failed to scan migration row", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
