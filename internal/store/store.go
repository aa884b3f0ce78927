// Package store defines the data-store contract shared by the policy engine,
// the SNMP poller, and (indirectly) the config slicer's template metadata
// lookups. Two
// implementations ship: internal/store/postgres, built on pgx, and the
// in-memory internal/store/memstore.
package store

import (
	"context"

	"github.com/bedecarroll/unet-sub002/internal/model"
)

// FilterOp is one comparison kind a list-query filter may apply.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpNe       FilterOp = "ne"
	OpLt       FilterOp = "lt"
	OpLte      FilterOp = "lte"
	OpGt       FilterOp = "gt"
	OpGte      FilterOp = "gte"
	OpIn       FilterOp = "in"
	OpContains FilterOp = "contains" // substring for strings
	OpRegex    FilterOp = "regex"
	OpIsNull   FilterOp = "is_null"
	OpNotNull  FilterOp = "is_not_null"
)

// Filter is one predicate in a list query. Field is the column/entity field
// name (e.g. "vendor", "lifecycle"); multiple Filters in a ListOptions are
// ANDed; the store has no OR-group syntax.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// ListOptions controls filtering, sorting, and pagination for every List*
// operation.
type ListOptions struct {
	Filters    []Filter
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
	CountTotal bool // when true, ListResult.Total is populated at extra query cost
}

// ListResult is the uniform return shape for paginated list queries.
type ListResult[T any] struct {
	Items []T
	Total int // only meaningful when ListOptions.CountTotal was set
}

// Tx is an opaque transaction token. A nil *Tx means "auto-commit": the
// operation runs in its own implicit transaction. Passing a *Tx scopes the
// operation to that transaction.
type Tx struct {
	impl txImpl
}

// txImpl is satisfied by the postgres package's pgx.Tx wrapper; kept as an
// unexported interface here so this package has zero pgx import, and other
// backends (an in-memory fake for tests) can satisfy it too.
type txImpl interface {
	Unwrap() any
}

func NewTx(impl txImpl) *Tx { return &Tx{impl: impl} }

func (t *Tx) Unwrap() any {
	if t == nil || t.impl == nil {
		return nil
	}
	return t.impl.Unwrap()
}

// Transactor begins, commits, and rolls back transactions.
type Transactor interface {
	Begin(ctx context.Context) (*Tx, error)
	Commit(ctx context.Context, tx *Tx) error
	Rollback(ctx context.Context, tx *Tx) error
	// WithTx runs fn inside a transaction, committing on a nil return and
	// rolling back otherwise, the shape most callers (the policy
	// orchestrator) actually want instead of manual begin/commit/rollback.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error
}

// NodeStore is the typed CRUD + list contract for nodes.
type NodeStore interface {
	CreateNode(ctx context.Context, tx *Tx, n *model.Node) (*model.Node, error)
	GetNode(ctx context.Context, tx *Tx, id string) (*model.Node, error)
	GetNodeByName(ctx context.Context, tx *Tx, name, domain string) (*model.Node, error)
	UpdateNode(ctx context.Context, tx *Tx, n *model.Node) (*model.Node, error)
	DeleteNode(ctx context.Context, tx *Tx, id string) error
	ListNodes(ctx context.Context, tx *Tx, opts ListOptions) (ListResult[*model.Node], error)
	BatchUpsertNodes(ctx context.Context, tx *Tx, nodes []*model.Node) ([]*model.Node, error)
	// BatchDeleteNodes removes every listed node or none: a missing id or a
	// referential failure rolls the whole batch back.
	BatchDeleteNodes(ctx context.Context, tx *Tx, ids []string) error
}

// LinkStore is the typed CRUD + list contract for links.
type LinkStore interface {
	CreateLink(ctx context.Context, tx *Tx, l *model.Link) (*model.Link, error)
	GetLink(ctx context.Context, tx *Tx, id string) (*model.Link, error)
	UpdateLink(ctx context.Context, tx *Tx, l *model.Link) (*model.Link, error)
	DeleteLink(ctx context.Context, tx *Tx, id string) error
	ListLinks(ctx context.Context, tx *Tx, opts ListOptions) (ListResult[*model.Link], error)
}

// LocationStore is the typed CRUD + list contract for locations.
type LocationStore interface {
	CreateLocation(ctx context.Context, tx *Tx, l *model.Location) (*model.Location, error)
	GetLocation(ctx context.Context, tx *Tx, id string) (*model.Location, error)
	UpdateLocation(ctx context.Context, tx *Tx, l *model.Location) (*model.Location, error)
	DeleteLocation(ctx context.Context, tx *Tx, id string) error
	ListLocations(ctx context.Context, tx *Tx, opts ListOptions) (ListResult[*model.Location], error)
	// AncestorChain returns the location's full parent chain, root first,
	// used both by cycle detection on write and by the policy evaluator's
	// location.parent.* path resolution.
	AncestorChain(ctx context.Context, tx *Tx, locationID string) ([]*model.Location, error)
}

// DerivedStore is segregated from desired-state operations so
// high-rate poll writes never block operator edits beyond row-level
// contention on the same node.
type DerivedStore interface {
	PutNodeStatus(ctx context.Context, tx *Tx, status *model.NodeStatus) error
	GetNodeStatus(ctx context.Context, tx *Tx, nodeID string) (*model.NodeStatus, error)
	DeleteNodeStatus(ctx context.Context, tx *Tx, nodeID string) error
	// DerivedVersion returns the current derived-state version counter for a
	// node, used by the policy cache key.
	DerivedVersion(ctx context.Context, tx *Tx, nodeID string) (int, error)
}

// TemplateStore is the typed CRUD contract for template metadata and
// node assignments.
type TemplateStore interface {
	PutTemplate(ctx context.Context, tx *Tx, t *model.TemplateMetadata) error
	GetTemplate(ctx context.Context, tx *Tx, id string) (*model.TemplateMetadata, error)
	ListTemplates(ctx context.Context, tx *Tx, opts ListOptions) (ListResult[*model.TemplateMetadata], error)
	AssignTemplate(ctx context.Context, tx *Tx, a *model.TemplateAssignment) error
	ListAssignments(ctx context.Context, tx *Tx, nodeID string) ([]*model.TemplateAssignment, error)
}

// PollingTaskStore persists the poller's scheduling state so a scheduler
// restart resumes from last-known
// deadlines instead of re-polling everything immediately.
type PollingTaskStore interface {
	UpsertPollingTask(ctx context.Context, tx *Tx, task *PollingTaskRow) error
	GetPollingTask(ctx context.Context, tx *Tx, nodeID string) (*PollingTaskRow, error)
	ListDuePollingTasks(ctx context.Context, tx *Tx, beforeMS int64, limit int) ([]*PollingTaskRow, error)
	DeletePollingTask(ctx context.Context, tx *Tx, nodeID string) error
}

// PollingTaskRow mirrors the polling_task table.
type PollingTaskRow struct {
	NodeID              string
	IntervalMS          int64
	NextDueAtMS         int64
	ConsecutiveFailures int
	LastError           string
}

// Store is the full contract. Implementations (postgres and memstore) embed
// all sub-interfaces plus Transactor and Migrator.
type Store interface {
	Transactor
	NodeStore
	LinkStore
	LocationStore
	DerivedStore
	TemplateStore
	PollingTaskStore
	Migrator
}

// Migrator exposes schema versioning.
type Migrator interface {
	// Migrate applies every forward delta not yet in schema_migrations, in
	// order. It refuses to run if the applied version set on disk is not a
	// prefix of the embedded migration list.
	Migrate(ctx context.Context) error
	AppliedVersions(ctx context.Context) ([]string, error)
}
