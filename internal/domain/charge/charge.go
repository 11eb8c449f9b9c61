// Package charge contains the core domain model for PIX charges: the charge
// aggregate, its value objects, and the repository contract.
package charge

import (
	"time"

	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/id"
)

// DefaultExpirationSeconds is the charge validity window the API applies when
// the caller omits the field. The domain itself treats zero as "never expires".
const DefaultExpirationSeconds = 3600

// Charge is the aggregate root for a PIX QR-code charge. Internal state is
// private; mutations go through domain methods so invariants hold.
type Charge struct {
	sid               string
	externalID        string
	transactionID     string
	amount            valueobjects.Money
	status            valueobjects.ChargeStatus
	description       string
	qrCode            string
	qrCodeImage       string
	expirationSeconds int
	paymentID         string
	paymentDate       *time.Time
	payerName         string
	payerTaxID        string
	createdAt         time.Time
	updatedAt         time.Time
}

// NewCharge creates a pending charge. When externalID is empty a prefixed
// random id is generated so every charge carries a gateway correlation key.
// A zero expiration window creates a charge that never expires.
func NewCharge(externalID string, amount valueobjects.Money, description string, expirationSeconds int) (*Charge, error) {
	if amount.IsZero() {
		return nil, errors.NewValidationError("amount is required", "")
	}
	if expirationSeconds < 0 {
		return nil, errors.NewValidationError("expiration must not be negative", "")
	}
	if externalID == "" {
		generated, err := id.GenerateWithPrefix(id.PrefixExternal, id.DefaultLength)
		if err != nil {
			return nil, errors.NewInternalError("failed to generate external id", err.Error())
		}
		externalID = generated
	}

	now := biztime.NowUTC()
	return &Charge{
		sid:               id.MustGenerateWithPrefix(id.PrefixCharge, id.DefaultLength),
		externalID:        externalID,
		amount:            amount,
		status:            valueobjects.ChargeStatusPending,
		description:       description,
		expirationSeconds: expirationSeconds,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructCharge recreates a charge from persisted state without validation.
func ReconstructCharge(
	sid string,
	externalID string,
	transactionID string,
	amount valueobjects.Money,
	status valueobjects.ChargeStatus,
	description string,
	qrCode string,
	qrCodeImage string,
	expirationSeconds int,
	paymentID string,
	paymentDate *time.Time,
	payerName string,
	payerTaxID string,
	createdAt time.Time,
	updatedAt time.Time,
) *Charge {
	return &Charge{
		sid:               sid,
		externalID:        externalID,
		transactionID:     transactionID,
		amount:            amount,
		status:            status,
		description:       description,
		qrCode:            qrCode,
		qrCodeImage:       qrCodeImage,
		expirationSeconds: expirationSeconds,
		paymentID:         paymentID,
		paymentDate:       paymentDate,
		payerName:         payerName,
		payerTaxID:        payerTaxID,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// AttachGatewayCharge records the gateway-issued identifiers and QR payload
// after the charge is created upstream.
func (c *Charge) AttachGatewayCharge(transactionID, qrCode, qrCodeImage string) error {
	if transactionID == "" {
		return errors.NewValidationError("transaction id is required", "")
	}
	c.transactionID = transactionID
	c.qrCode = qrCode
	c.qrCodeImage = qrCodeImage
	c.updatedAt = biztime.NowUTC()
	return nil
}

// Settle transitions the charge to paid, recording the gateway payment
// evidence. Only pending charges can settle.
func (c *Charge) Settle(paymentID string, paymentDate time.Time, payerName, payerTaxID string) error {
	if c.status.IsPaid() {
		return errors.NewConflictError("charge already settled")
	}
	c.status = valueobjects.ChargeStatusPaid
	c.paymentID = paymentID
	d := biztime.ToUTC(paymentDate)
	c.paymentDate = &d
	c.payerName = payerName
	c.payerTaxID = payerTaxID
	c.updatedAt = biztime.NowUTC()
	return nil
}

// ExpiresAt returns the instant the charge's payment window closes.
func (c *Charge) ExpiresAt() time.Time {
	return c.createdAt.Add(time.Duration(c.expirationSeconds) * time.Second)
}

// IsExpired reports whether the window has elapsed as of now. Paid charges
// never expire, and a zero window means the charge never expires. Pure
// function of stored state plus the supplied clock.
func (c *Charge) IsExpired(now time.Time) bool {
	if c.status.IsPaid() || c.expirationSeconds <= 0 {
		return false
	}
	return now.After(c.ExpiresAt())
}

// EffectiveStatus classifies the charge for read paths: paid and pending pass
// through, pending past its window reads as expired. Stored status is never
// altered here.
func (c *Charge) EffectiveStatus(now time.Time) valueobjects.ChargeStatus {
	if c.status.IsPending() && c.IsExpired(now) {
		return valueobjects.ChargeStatusExpired
	}
	return c.status
}

// Getters

func (c *Charge) SID() string                          { return c.sid }
func (c *Charge) ExternalID() string                   { return c.externalID }
func (c *Charge) TransactionID() string                { return c.transactionID }
func (c *Charge) Amount() valueobjects.Money           { return c.amount }
func (c *Charge) Status() valueobjects.ChargeStatus    { return c.status }
func (c *Charge) Description() string                  { return c.description }
func (c *Charge) QRCode() string                       { return c.qrCode }
func (c *Charge) QRCodeImage() string                  { return c.qrCodeImage }
func (c *Charge) ExpirationSeconds() int               { return c.expirationSeconds }
func (c *Charge) PaymentID() string                    { return c.paymentID }
func (c *Charge) PaymentDate() *time.Time              { return c.paymentDate }
func (c *Charge) PayerName() string                    { return c.payerName }
func (c *Charge) PayerTaxID() string                   { return c.payerTaxID }
func (c *Charge) CreatedAt() time.Time                 { return c.createdAt }
func (c *Charge) UpdatedAt() time.Time                 { return c.updatedAt }
