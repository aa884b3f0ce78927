package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bedecarroll/unet-sub002/internal/ids"
)

// Postgres SQLSTATE codes this package distinguishes between for the
// error-kind mapping (unique_violation -> AlreadyExists, foreign_key_violation
// -> ReferentialIntegrity).
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool     { return pgErrCode(err) == sqlStateUniqueViolation }
func isForeignKeyViolation(err error) bool { return pgErrCode(err) == sqlStateForeignKeyViolation }

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func newNodeID() string     { return ids.New(ids.KindNode) }
func newLinkID() string     { return ids.New(ids.KindLink) }
func newLocationID() string { return ids.New(ids.KindLocation) }
