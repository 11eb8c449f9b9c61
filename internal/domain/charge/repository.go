package charge

import (
	"context"
	"time"
)

// Settlement carries the payment evidence applied when a pending charge
// transitions to paid.
type Settlement struct {
	PaymentID   string
	PaymentDate time.Time
	PayerName   string
	PayerTaxID  string
}

// ListFilter narrows List queries.
type ListFilter struct {
	Status   string
	Page     int
	PageSize int
}

// Repository defines persistence operations for charges.
type Repository interface {
	// Create persists a new charge. Returns a conflict error when the
	// external id is already taken. After creation the only mutation is the
	// settlement transition, which goes through SettleIfPending.
	Create(ctx context.Context, c *Charge) error

	// GetBySID retrieves a charge by its public short id.
	GetBySID(ctx context.Context, sid string) (*Charge, error)

	// GetByExternalID retrieves a charge by the caller-supplied correlation id.
	GetByExternalID(ctx context.Context, externalID string) (*Charge, error)

	// GetByTransactionID retrieves a charge by the gateway transaction id.
	GetByTransactionID(ctx context.Context, transactionID string) (*Charge, error)

	// SettleIfPending atomically transitions the charge identified by
	// externalID from pending to paid, applying the settlement evidence.
	// Returns true when this call performed the transition, false when the
	// charge was already settled by a concurrent observer. The conditional
	// write is the single point of arbitration between webhook delivery and
	// polling; exactly one caller wins.
	SettleIfPending(ctx context.Context, externalID string, s Settlement) (bool, error)

	// List returns charges matching the filter plus the unfiltered-by-page total.
	List(ctx context.Context, filter ListFilter) ([]*Charge, int64, error)

	// ListStalePending returns pending charges whose payment window is still
	// open as of now, oldest first, for the reconciliation sweep.
	ListStalePending(ctx context.Context, now time.Time, limit int) ([]*Charge, error)

	// Delete removes a charge by its public short id.
	Delete(ctx context.Context, sid string) error
}
