package valueobjects

import "pixgate/internal/shared/errors"

// ChargeStatus represents the persisted lifecycle state of a charge.
//
// Only PENDING and PAID are ever stored. EXPIRED is a derived, read-time
// classification of a pending charge whose window has elapsed; persisting it
// would race with late settlements, so it exists only in API views.
type ChargeStatus string

const (
	// ChargeStatusPending means the charge awaits payment confirmation.
	ChargeStatusPending ChargeStatus = "pending"
	// ChargeStatusPaid means the charge was settled. Terminal.
	ChargeStatusPaid ChargeStatus = "paid"

	// ChargeStatusExpired is the derived view of a pending charge past its
	// expiration window. Never written to storage.
	ChargeStatusExpired ChargeStatus = "expired"
)

// NewChargeStatus validates and creates a stored charge status.
func NewChargeStatus(s string) (ChargeStatus, error) {
	status := ChargeStatus(s)
	if !status.IsStorable() {
		return "", errors.NewValidationError("invalid charge status", s)
	}
	return status, nil
}

// IsStorable reports whether the status may be persisted.
func (s ChargeStatus) IsStorable() bool {
	return s == ChargeStatusPending || s == ChargeStatusPaid
}

// IsPending reports whether the charge still awaits settlement.
func (s ChargeStatus) IsPending() bool {
	return s == ChargeStatusPending
}

// IsPaid reports whether the charge has settled.
func (s ChargeStatus) IsPaid() bool {
	return s == ChargeStatusPaid
}

// IsTerminal reports whether no further stored transition is possible.
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid
}

// String returns the string representation.
func (s ChargeStatus) String() string {
	return string(s)
}
