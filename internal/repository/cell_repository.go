package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cellboard/cellboard/internal/model"
)

// CellRepo provides data access to the grid_cells table.  Cells are stored
// sparsely: only HELD and OCCUPIED cells have rows, and a missing row means
// FREE.  The primary key on cell_id is what makes concurrent claims of
// overlapping rectangles collide deterministically.
type CellRepo struct {
	db *sql.DB
}

// NewCellRepo returns a CellRepo bound to the provided database.
func NewCellRepo(db *sql.DB) *CellRepo { return &CellRepo{db: db} }

// placeholders returns "?,?,...,?" with n slots.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func cellArgs(cellIDs []string) []interface{} {
	args := make([]interface{}, len(cellIDs))
	for i, id := range cellIDs {
		args[i] = id
	}
	return args
}

// States returns the state of each requested cell outside a transaction.
// Cells without a row are reported FREE.
func (r *CellRepo) States(ctx context.Context, cellIDs []string) (map[string]model.CellState, error) {
	out := make(map[string]model.CellState, len(cellIDs))
	for _, id := range cellIDs {
		out[id] = model.CellFree
	}
	if len(cellIDs) == 0 {
		return out, nil
	}
	q := `SELECT cell_id, state FROM grid_cells WHERE cell_id IN (` + placeholders(len(cellIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, cellArgs(cellIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, err
		}
		out[id] = model.CellState(state)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns every non-free cell ordered by cell id.
func (r *CellRepo) Snapshot(ctx context.Context) ([]model.Cell, error) {
	const q = `SELECT cell_id, state, hold_id, submission_id FROM grid_cells ORDER BY cell_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cells := make([]model.Cell, 0)
	for rows.Next() {
		var c model.Cell
		var state string
		var holdID, subID sql.NullString
		if err := rows.Scan(&c.ID, &state, &holdID, &subID); err != nil {
			return nil, err
		}
		c.State = model.CellState(state)
		if holdID.Valid {
			c.HoldID = holdID.String
		}
		if subID.Valid {
			c.SubmissionID = subID.String
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cells, nil
}

// SubmissionIDFor returns the submission occupying a cell, or the empty
// string when the cell is free or only held.
func (r *CellRepo) SubmissionIDFor(ctx context.Context, cellID string) (string, error) {
	var subID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT submission_id FROM grid_cells WHERE cell_id = ? AND state = ?`,
		cellID, string(model.CellOccupied),
	).Scan(&subID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return subID.String, nil
}

// LockTakenTx locks and returns the ids of requested cells that already
// have a row, i.e. are not FREE.  The FOR UPDATE lock serializes
// overlapping claim attempts within the surrounding transaction.
func (r *CellRepo) LockTakenTx(ctx context.Context, tx *sql.Tx, cellIDs []string) ([]string, error) {
	if len(cellIDs) == 0 {
		return nil, nil
	}
	q := `SELECT cell_id FROM grid_cells WHERE cell_id IN (` + placeholders(len(cellIDs)) + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, cellArgs(cellIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taken, nil
}

// InsertHeldTx claims all given cells for a hold in one bulk INSERT.  The
// caller must have verified via LockTakenTx that none are taken; a racing
// insert still fails the whole statement on the primary key, so no partial
// claim can ever commit.
func (r *CellRepo) InsertHeldTx(ctx context.Context, tx *sql.Tx, cellIDs []string, holdID string) error {
	if len(cellIDs) == 0 {
		return nil
	}
	query := `INSERT INTO grid_cells (cell_id, state, hold_id) VALUES `
	args := make([]interface{}, 0, len(cellIDs)*3)
	for i, id := range cellIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, id, string(model.CellHeld), holdID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReleaseByHoldTx frees the cells still held by exactly holdID and returns
// their ids.  Cells that moved on (into occupancy) are untouched, which is
// what makes release idempotent.
func (r *CellRepo) ReleaseByHoldTx(ctx context.Context, tx *sql.Tx, holdID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT cell_id FROM grid_cells WHERE hold_id = ? AND state = ? FOR UPDATE`,
		holdID, string(model.CellHeld),
	)
	if err != nil {
		return nil, err
	}
	var released []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		released = append(released, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(released) == 0 {
		return nil, nil
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM grid_cells WHERE hold_id = ? AND state = ?`,
		holdID, string(model.CellHeld),
	)
	if err != nil {
		return nil, err
	}
	return released, nil
}

// OccupyByHoldTx flips the hold's cells from HELD to OCCUPIED referencing a
// submission and returns how many rows changed.  The caller compares the
// count against the hold's cell count to detect a stale hold.
func (r *CellRepo) OccupyByHoldTx(ctx context.Context, tx *sql.Tx, holdID, submissionID string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE grid_cells SET state = ?, hold_id = NULL, submission_id = ? WHERE hold_id = ? AND state = ?`,
		string(model.CellOccupied), submissionID, holdID, string(model.CellHeld),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VacateBySubmissionTx frees the cells occupied by a submission and
// returns their ids.
func (r *CellRepo) VacateBySubmissionTx(ctx context.Context, tx *sql.Tx, submissionID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT cell_id FROM grid_cells WHERE submission_id = ? AND state = ? FOR UPDATE`,
		submissionID, string(model.CellOccupied),
	)
	if err != nil {
		return nil, err
	}
	var vacated []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		vacated = append(vacated, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(vacated) == 0 {
		return nil, nil
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM grid_cells WHERE submission_id = ? AND state = ?`,
		submissionID, string(model.CellOccupied),
	)
	if err != nil {
		return nil, err
	}
	return vacated, nil
}
