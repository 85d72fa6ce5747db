package entity

import "errors"

var (
	// ErrSlotUnavailable means a lock request lost the race or targeted a
	// slot that is not available. User-facing and retryable with a fresh
	// availability query.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrPaymentNotFound means a webhook referenced an unknown order code.
	// The ingress discards the event and acknowledges anyway.
	ErrPaymentNotFound = errors.New("payment order not found")

	// ErrDuplicateEvent marks a webhook for an order that already reached a
	// terminal status: a replayed delivery, or the expiry sweep won first.
	// Not a failure; callers discard and acknowledge.
	ErrDuplicateEvent = errors.New("duplicate payment event")

	// ErrDuplicateOrderCode means an order code collided with an existing
	// ledger row.
	ErrDuplicateOrderCode = errors.New("duplicate order code")
)
