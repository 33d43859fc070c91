package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
)

// HoldRepo provides data access to the holds table.  The claimed cell set
// is always the row-major expansion of the stored rectangle, so no
// per-cell join table exists.  expires_at carries an index for the reaper
// sweep and checkout_ref one for webhook reconciliation.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, contact, top_row, top_col, bottom_row, bottom_col, amount_cents, checkout_ref, expires_at, created_at`

func scanHold(scan func(dest ...interface{}) error) (*model.Hold, error) {
	var h model.Hold
	var ref sql.NullString
	err := scan(
		&h.ID, &h.Contact,
		&h.Rect.TopLeft.Row, &h.Rect.TopLeft.Col,
		&h.Rect.BottomRight.Row, &h.Rect.BottomRight.Col,
		&h.AmountCents, &ref, &h.ExpiresAt, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		h.CheckoutRef = ref.String
	}
	return &h, nil
}

// InsertTx persists a hold record within the provided transaction.
func (r *HoldRepo) InsertTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	const q = `INSERT INTO holds (id, contact, top_row, top_col, bottom_row, bottom_col, amount_cents, expires_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		h.ID, h.Contact,
		h.Rect.TopLeft.Row, h.Rect.TopLeft.Col,
		h.Rect.BottomRight.Row, h.Rect.BottomRight.Col,
		h.AmountCents, sqlTime(h.ExpiresAt), sqlTime(h.CreatedAt),
	)
	return err
}

// GetByID returns a hold or store.ErrHoldNotFound.
func (r *HoldRepo) GetByID(ctx context.Context, id string) (*model.Hold, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = ?`, id)
	h, err := scanHold(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrHoldNotFound
	}
	return h, err
}

// GetByCheckoutRef returns the hold carrying a checkout reference or
// store.ErrHoldNotFound.
func (r *HoldRepo) GetByCheckoutRef(ctx context.Context, ref string) (*model.Hold, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE checkout_ref = ?`, ref)
	h, err := scanHold(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrHoldNotFound
	}
	return h, err
}

// AttachCheckoutRef records the external checkout session on a hold.
func (r *HoldRepo) AttachCheckoutRef(ctx context.Context, holdID, ref string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE holds SET checkout_ref = ? WHERE id = ?`, ref, holdID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrHoldNotFound
	}
	return nil
}

// GetForUpdateTx loads a hold with a row lock, serializing conversion,
// cancellation and reaping of the same hold.
func (r *HoldRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Hold, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = ? FOR UPDATE`, id)
	h, err := scanHold(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrHoldNotFound
	}
	return h, err
}

// DeleteTx removes a hold record within the provided transaction.
func (r *HoldRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, id)
	return err
}

// ExpiredTx returns up to limit holds whose expires_at has passed, with row
// locks.  SKIP LOCKED lets concurrent sweeps divide the work instead of
// double-freeing.
func (r *HoldRepo) ExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]*model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds WHERE expires_at <= ? ORDER BY expires_at LIMIT ? FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, q, sqlTime(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []*model.Hold
	for rows.Next() {
		h, err := scanHold(rows.Scan)
		if err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}
