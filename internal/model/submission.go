package model

import (
	"time"

	"github.com/cellboard/cellboard/internal/grid"
)

// SubmissionStatus is the moderation state of a paid purchase.
type SubmissionStatus string

const (
	StatusAwaitingUpload SubmissionStatus = "AWAITING_UPLOAD"
	StatusUnderReview    SubmissionStatus = "UNDER_REVIEW"
	StatusApproved       SubmissionStatus = "APPROVED"
	StatusRejected       SubmissionStatus = "REJECTED"
	StatusRemoved        SubmissionStatus = "REMOVED"
)

// ValidStatus reports whether s names a known moderation status.
func ValidStatus(s SubmissionStatus) bool {
	switch s {
	case StatusAwaitingUpload, StatusUnderReview, StatusApproved, StatusRejected, StatusRemoved:
		return true
	}
	return false
}

// Submission records a completed purchase of one rectangle together with its
// payment record, uploaded content and moderation state.  A submission is
// created exactly once per external payment reference; PaymentRef carries a
// uniqueness constraint in the durable store, which is what makes webhook
// reconciliation idempotent across retries and restarts.
type Submission struct {
	ID          string           `json:"id"`
	Contact     string           `json:"contact"`
	Rect        grid.Rect        `json:"rect"`
	AmountCents uint64           `json:"amount_cents"`
	Currency    string           `json:"currency"`
	PaymentRef  string           `json:"payment_ref"`
	Status      SubmissionStatus `json:"status"`
	AdminNotes  string           `json:"admin_notes,omitempty"`
	ContentRef  string           `json:"content_ref,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	RejectedAt  *time.Time       `json:"rejected_at,omitempty"`
}

// Cells returns the submission's occupied cell-id set in row-major order.
func (s *Submission) Cells() []string {
	ids, err := s.Rect.Cells()
	if err != nil {
		return nil
	}
	return ids
}
