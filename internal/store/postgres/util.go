package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/bedecarroll/unet-sub002/internal/store"
)

func nowMS() int64 { return time.Now().UnixMilli() }

// buildWhere renders opts.Filters into a parameterized SQL WHERE clause
// (ANDed), starting bind parameters at $argOffset+1. Returns the clause
// (possibly empty) and the accumulated args.
func buildWhere(filters []store.Filter, argOffset int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var clauses []string
	var args []any
	n := argOffset
	for _, f := range filters {
		col := quoteIdent(f.Field)
		switch f.Op {
		case store.OpEq:
			n++
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, f.Value)
		case store.OpNe:
			n++
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", col, n))
			args = append(args, f.Value)
		case store.OpLt:
			n++
			clauses = append(clauses, fmt.Sprintf("%s < $%d", col, n))
			args = append(args, f.Value)
		case store.OpLte:
			n++
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", col, n))
			args = append(args, f.Value)
		case store.OpGt:
			n++
			clauses = append(clauses, fmt.Sprintf("%s > $%d", col, n))
			args = append(args, f.Value)
		case store.OpGte:
			n++
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", col, n))
			args = append(args, f.Value)
		case store.OpIn:
			n++
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, n))
			args = append(args, f.Value)
		case store.OpContains:
			n++
			clauses = append(clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", col, n))
			args = append(args, f.Value)
		case store.OpRegex:
			n++
			clauses = append(clauses, fmt.Sprintf("%s ~ $%d", col, n))
			args = append(args, f.Value)
		case store.OpIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", col))
		case store.OpNotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", col))
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// quoteIdent double-quotes an identifier that is only ever sourced from our
// own Filter.Field literals (never raw user SQL), guarding against a column
// name colliding with a reserved word.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func buildOrderLimit(opts store.ListOptions, argOffset int) (string, []any) {
	var b strings.Builder
	if opts.SortBy != "" {
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", quoteIdent(opts.SortBy), dir)
	}
	var args []any
	n := argOffset
	if opts.Limit > 0 {
		n++
		fmt.Fprintf(&b, " LIMIT $%d", n)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		n++
		fmt.Fprintf(&b, " OFFSET $%d", n)
		args = append(args, opts.Offset)
	}
	return b.String(), args
}
