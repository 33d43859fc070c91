package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
)

// SubmissionRepo provides data access to the submissions table.  The
// uniqueness constraint on payment_ref is the durable idempotency key for
// webhook reconciliation: re-running the conversion for an already
// reconciled payment fails the insert instead of creating a second
// submission.
type SubmissionRepo struct {
	db *sql.DB
}

// NewSubmissionRepo returns a SubmissionRepo bound to the provided database.
func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

const mysqlDuplicateEntry = 1062

const submissionColumns = `id, contact, top_row, top_col, bottom_row, bottom_col, amount_cents, currency, payment_ref, status, admin_notes, content_ref, created_at, approved_at, rejected_at`

func scanSubmission(scan func(dest ...interface{}) error) (*model.Submission, error) {
	var s model.Submission
	var status string
	var notes, content sql.NullString
	var approvedAt, rejectedAt sql.NullTime
	err := scan(
		&s.ID, &s.Contact,
		&s.Rect.TopLeft.Row, &s.Rect.TopLeft.Col,
		&s.Rect.BottomRight.Row, &s.Rect.BottomRight.Col,
		&s.AmountCents, &s.Currency, &s.PaymentRef, &status,
		&notes, &content, &s.CreatedAt, &approvedAt, &rejectedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = model.SubmissionStatus(status)
	if notes.Valid {
		s.AdminNotes = notes.String
	}
	if content.Valid {
		s.ContentRef = content.String
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		s.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		s.RejectedAt = &t
	}
	return &s, nil
}

// InsertTx persists a submission within the provided transaction.  It
// returns store.ErrAlreadyReconciled when payment_ref already has a row.
func (r *SubmissionRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	const q = `INSERT INTO submissions (id, contact, top_row, top_col, bottom_row, bottom_col, amount_cents, currency, payment_ref, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		s.ID, s.Contact,
		s.Rect.TopLeft.Row, s.Rect.TopLeft.Col,
		s.Rect.BottomRight.Row, s.Rect.BottomRight.Col,
		s.AmountCents, s.Currency, s.PaymentRef, string(s.Status), sqlTime(s.CreatedAt),
	)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return store.ErrAlreadyReconciled
	}
	return err
}

// GetByID returns a submission or store.ErrSubmissionNotFound.
func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSubmissionNotFound
	}
	return s, err
}

// GetByPaymentRef returns the submission created for an external payment
// reference, or store.ErrSubmissionNotFound.
func (r *SubmissionRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE payment_ref = ?`, ref)
	s, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSubmissionNotFound
	}
	return s, err
}

// ListByStatus returns submissions filtered by status (empty means all),
// newest first.
func (r *SubmissionRepo) ListByStatus(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	q := `SELECT ` + submissionColumns + ` FROM submissions`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := make([]*model.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// SetContent stores the uploaded content reference and moves a submission
// from AWAITING_UPLOAD to UNDER_REVIEW.
func (r *SubmissionRepo) SetContent(ctx context.Context, id, contentRef string) error {
	const q = `UPDATE submissions
	           SET content_ref = ?,
	               status = CASE WHEN status = ? THEN ? ELSE status END
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		contentRef, string(model.StatusAwaitingUpload), string(model.StatusUnderReview), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSubmissionNotFound
	}
	return nil
}

// Approve marks a submission approved with notes.
func (r *SubmissionRepo) Approve(ctx context.Context, id, notes string, at time.Time) error {
	const q = `UPDATE submissions SET status = ?, admin_notes = ?, approved_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(model.StatusApproved), notes, sqlTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSubmissionNotFound
	}
	return nil
}

// CloseTx moves a submission to REJECTED or REMOVED within the provided
// transaction.
func (r *SubmissionRepo) CloseTx(ctx context.Context, tx *sql.Tx, id string, status model.SubmissionStatus, notes string, at time.Time) error {
	q := `UPDATE submissions SET status = ?, admin_notes = ? WHERE id = ?`
	args := []interface{}{string(status), notes, id}
	if status == model.StatusRejected {
		q = `UPDATE submissions SET status = ?, admin_notes = ?, rejected_at = ? WHERE id = ?`
		args = []interface{}{string(status), notes, sqlTime(at), id}
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSubmissionNotFound
	}
	return nil
}
