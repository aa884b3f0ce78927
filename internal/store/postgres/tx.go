package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

// pgxTxWrapper adapts a pgx.Tx to store.txImpl's Unwrap contract so the
// generic store.Tx token can carry it without this package leaking pgx
// types into the store package.
type pgxTxWrapper struct{ tx pgx.Tx }

func (w pgxTxWrapper) Unwrap() any { return w.tx }

func (s *Store) Begin(ctx context.Context) (*store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "store.tx.begin", "failed to begin transaction", err)
	}
	return store.NewTx(pgxTxWrapper{tx: tx}), nil
}

func (s *Store) Commit(ctx context.Context, tx *store.Tx) error {
	pt, ok := s.pgxTx(tx)
	if !ok {
		return errs.New(errs.KindInternal, "store.tx.commit", "tx is not a postgres transaction")
	}
	if err := pt.Commit(ctx); err != nil {
		return errs.Wrap(errs.KindIO, "store.tx.commit", "failed to commit transaction", err)
	}
	return nil
}

func (s *Store) Rollback(ctx context.Context, tx *store.Tx) error {
	pt, ok := s.pgxTx(tx)
	if !ok {
		return errs.New(errs.KindInternal, "store.tx.rollback", "tx is not a postgres transaction")
	}
	if err := pt.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return errs.Wrap(errs.KindIO, "store.tx.rollback", "failed to roll back transaction", err)
	}
	return nil
}

// WithTx is the shape the policy orchestrator uses: it opens a transaction,
// runs fn, and commits on success or rolls back (and re-raises) on error or
// panic, so a batch's mutations are never partially visible.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(ctx, tx)
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := s.Rollback(ctx, tx); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return s.Commit(ctx, tx)
}

func (s *Store) pgxTx(tx *store.Tx) (pgx.Tx, bool) {
	if tx == nil {
		return nil, false
	}
	u := tx.Unwrap()
	if u == nil {
		return nil, false
	}
	pt, ok := u.(pgx.Tx)
	return pt, ok
}
