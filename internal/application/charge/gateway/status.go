package gateway

import (
	"strings"

	"pixgate/internal/domain/charge/valueobjects"
)

// statusTable maps every known provider status string to the stored domain
// vocabulary. The mapping is deliberately a single explicit table so adding a
// provider status is a one-line change reviewed in one place.
var statusTable = map[string]valueobjects.ChargeStatus{
	// Settled
	"APPROVED":  valueobjects.ChargeStatusPaid,
	"PAID":      valueobjects.ChargeStatusPaid,
	"RECEIVED":  valueobjects.ChargeStatusPaid,
	"CONFIRMED": valueobjects.ChargeStatusPaid,

	// Awaiting payment
	"PENDING":    valueobjects.ChargeStatusPending,
	"ACTIVE":     valueobjects.ChargeStatusPending,
	"CREATED":    valueobjects.ChargeStatusPending,
	"PROCESSING": valueobjects.ChargeStatusPending,
}

// MapStatus translates a provider status into the domain vocabulary.
// Unknown statuses map to pending with ok=false: an unrecognized value must
// never trigger a settlement, only a log line.
func MapStatus(providerStatus string) (valueobjects.ChargeStatus, bool) {
	s, ok := statusTable[strings.ToUpper(strings.TrimSpace(providerStatus))]
	if !ok {
		return valueobjects.ChargeStatusPending, false
	}
	return s, true
}

// IsSettled reports whether the provider status indicates completed payment.
func IsSettled(providerStatus string) bool {
	s, ok := MapStatus(providerStatus)
	return ok && s.IsPaid()
}
