package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
)

// GridStore composes the cell, hold and submission repositories into the
// atomic operations of the store.Store contract.  Every multi-table
// mutation runs in a single transaction; a crash mid-operation rolls the
// whole rectangle back, so no caller ever observes a partial claim or a
// converted hold whose record survived.
type GridStore struct {
	db    *sql.DB
	cells *CellRepo
	holds *HoldRepo
	subs  *SubmissionRepo
}

// NewGridStore builds a GridStore over the given database handle.
func NewGridStore(db *sql.DB) *GridStore {
	return &GridStore{
		db:    db,
		cells: NewCellRepo(db),
		holds: NewHoldRepo(db),
		subs:  NewSubmissionRepo(db),
	}
}

var _ store.Store = (*GridStore)(nil)

// withTx runs fn inside a transaction, rolling back unless fn succeeds.
func (g *GridStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (g *GridStore) GetStates(ctx context.Context, cellIDs []string) (map[string]model.CellState, error) {
	return g.cells.States(ctx, cellIDs)
}

func (g *GridStore) Snapshot(ctx context.Context) ([]model.Cell, error) {
	return g.cells.Snapshot(ctx)
}

func (g *GridStore) CreateHold(ctx context.Context, h *model.Hold) ([]string, error) {
	cellIDs := h.Cells()
	var blocked []string
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := g.cells.LockTakenTx(ctx, tx, cellIDs)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			blocked = taken
			return nil // commit nothing; no rows were written
		}
		if err := g.cells.InsertHeldTx(ctx, tx, cellIDs, h.ID); err != nil {
			return err
		}
		return g.holds.InsertTx(ctx, tx, h)
	})
	if err != nil {
		return nil, err
	}
	return blocked, nil
}

func (g *GridStore) HoldByID(ctx context.Context, holdID string) (*model.Hold, error) {
	return g.holds.GetByID(ctx, holdID)
}

func (g *GridStore) HoldByCheckoutRef(ctx context.Context, ref string) (*model.Hold, error) {
	return g.holds.GetByCheckoutRef(ctx, ref)
}

func (g *GridStore) AttachCheckoutRef(ctx context.Context, holdID, ref string) error {
	return g.holds.AttachCheckoutRef(ctx, holdID, ref)
}

func (g *GridStore) CancelHold(ctx context.Context, holdID string) ([]string, error) {
	var released []string
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := g.holds.GetForUpdateTx(ctx, tx, holdID); err != nil {
			if errors.Is(err, store.ErrHoldNotFound) {
				return nil // already cancelled, reaped or converted
			}
			return err
		}
		freed, err := g.cells.ReleaseByHoldTx(ctx, tx, holdID)
		if err != nil {
			return err
		}
		released = freed
		return g.holds.DeleteTx(ctx, tx, holdID)
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (g *GridStore) ReapExpired(ctx context.Context, now time.Time, limit int) ([]*model.Hold, error) {
	var reaped []*model.Hold
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		expired, err := g.holds.ExpiredTx(ctx, tx, now, limit)
		if err != nil {
			return err
		}
		for _, h := range expired {
			if _, err := g.cells.ReleaseByHoldTx(ctx, tx, h.ID); err != nil {
				return err
			}
			if err := g.holds.DeleteTx(ctx, tx, h.ID); err != nil {
				return err
			}
		}
		reaped = expired
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reaped, nil
}

func (g *GridStore) ConvertHold(ctx context.Context, holdID string, sub *model.Submission) error {
	return g.withTx(ctx, func(tx *sql.Tx) error {
		h, err := g.holds.GetForUpdateTx(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, store.ErrHoldNotFound) {
				return store.ErrStaleHold
			}
			return err
		}
		if err := g.subs.InsertTx(ctx, tx, sub); err != nil {
			return err // includes ErrAlreadyReconciled on duplicate payment_ref
		}
		n, err := g.cells.OccupyByHoldTx(ctx, tx, holdID, sub.ID)
		if err != nil {
			return err
		}
		if n != int64(len(h.Cells())) {
			return store.ErrStaleHold
		}
		return g.holds.DeleteTx(ctx, tx, holdID)
	})
}

func (g *GridStore) SubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	return g.subs.GetByID(ctx, id)
}

func (g *GridStore) SubmissionByPaymentRef(ctx context.Context, ref string) (*model.Submission, error) {
	return g.subs.GetByPaymentRef(ctx, ref)
}

func (g *GridStore) SubmissionByCell(ctx context.Context, cellID string) (*model.Submission, error) {
	subID, err := g.cells.SubmissionIDFor(ctx, cellID)
	if err != nil {
		return nil, err
	}
	if subID == "" {
		return nil, store.ErrSubmissionNotFound
	}
	return g.subs.GetByID(ctx, subID)
}

func (g *GridStore) ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	return g.subs.ListByStatus(ctx, status)
}

func (g *GridStore) SetSubmissionContent(ctx context.Context, id, contentRef string) error {
	return g.subs.SetContent(ctx, id, contentRef)
}

func (g *GridStore) ApproveSubmission(ctx context.Context, id, notes string) (*model.Submission, error) {
	if err := g.subs.Approve(ctx, id, notes, time.Now().UTC()); err != nil {
		return nil, err
	}
	return g.subs.GetByID(ctx, id)
}

func (g *GridStore) CloseSubmission(ctx context.Context, id string, status model.SubmissionStatus, notes string) (*model.Submission, []string, error) {
	var vacated []string
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		if err := g.subs.CloseTx(ctx, tx, id, status, notes, time.Now().UTC()); err != nil {
			return err
		}
		freed, err := g.cells.VacateBySubmissionTx(ctx, tx, id)
		if err != nil {
			return err
		}
		vacated = freed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sub, err := g.subs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sub, vacated, nil
}
