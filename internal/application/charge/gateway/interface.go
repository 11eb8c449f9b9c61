// Package gateway defines the contract between charge use cases and the
// upstream PIX payment provider.
package gateway

import (
	"context"
	"time"
)

// ChargeRequest is the input for creating a QR-code charge upstream.
type ChargeRequest struct {
	// Amount in major units as the provider expects decimals on the wire.
	Amount float64
	// ExternalID correlates the provider charge with the local record.
	ExternalID string
	// PayerQuestion is free text shown to the payer alongside the QR code.
	PayerQuestion string
	// PayerName and PayerDocument identify the expected payer when known.
	PayerName     string
	PayerDocument string
	// ExpirationSeconds bounds the payment window.
	ExpirationSeconds int
}

// ChargeCreated is the provider's response to a charge creation.
type ChargeCreated struct {
	TransactionID string
	ExternalID    string
	QRCode        string
	QRCodeImage   string
}

// ChargeSnapshot is a point-in-time view of a provider-side charge, used by
// status checks and reconciliation.
type ChargeSnapshot struct {
	TransactionID string
	ExternalID    string
	// Status is the provider's raw status string, mapped via MapStatus.
	Status string
	// AmountCents is the observed amount in minor units.
	AmountCents int64
	PaymentID   string
	PaymentDate *time.Time
	PayerName   string
	PayerTaxID  string
}

// PixGateway abstracts the upstream PIX provider. Implementations handle
// authentication, transport, and payload mapping; use cases see only
// domain-shaped inputs and snapshots.
type PixGateway interface {
	// CreateCharge registers a dynamic QR-code charge upstream.
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeCreated, error)

	// GetChargeByTransactionID fetches the current provider-side state.
	GetChargeByTransactionID(ctx context.Context, transactionID string) (*ChargeSnapshot, error)

	// GetChargeByExternalID fetches provider-side state by correlation id.
	GetChargeByExternalID(ctx context.Context, externalID string) (*ChargeSnapshot, error)

	// GetChargeDetail fetches the extended view including payer identity,
	// available once the provider has processed a payment.
	GetChargeDetail(ctx context.Context, transactionID string) (*ChargeSnapshot, error)
}
