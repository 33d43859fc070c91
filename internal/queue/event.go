// Package queue defines the domain events exchanged over RabbitMQ and the
// background consumer that journals them.
package queue

// PurchaseConfirmedEvent is published after a payment confirmation has been
// reconciled into a submission and occupancy.  It carries enough detail for
// downstream consumers (journal, notification, analytics) without querying
// the primary database.
type PurchaseConfirmedEvent struct {
	SubmissionID string `json:"submission_id"`
	HoldID       string `json:"hold_id"`
	Contact      string `json:"contact"`
	PaymentRef   string `json:"payment_ref"`
	TopRow       int    `json:"top_row"`
	TopCol       int    `json:"top_col"`
	BottomRow    int    `json:"bottom_row"`
	BottomCol    int    `json:"bottom_col"`
	CellCount    int    `json:"cell_count"`
	AmountCents  uint64 `json:"amount_cents"`
	Currency     string `json:"currency"`
	ConfirmedAt  string `json:"confirmed_at"`
}
