package models

import (
	"time"
)

// ChargeModel is the gorm persistence model for PIX charges. Status only
// ever holds "pending" or "paid"; expiry is computed on read.
type ChargeModel struct {
	ID                uint   `gorm:"primaryKey"`
	SID               string `gorm:"column:sid;uniqueIndex;size:32;not null"`
	ExternalID        string `gorm:"uniqueIndex;size:64;not null"`
	TransactionID     string `gorm:"uniqueIndex;size:64"`
	AmountCents       int64  `gorm:"not null"`
	Currency          string `gorm:"size:10;not null;default:'BRL'"`
	Status            string `gorm:"size:20;not null;index"`
	Description       string `gorm:"size:255"`
	QRCode            string `gorm:"type:text"`
	QRCodeImage       string `gorm:"type:mediumtext"`
	ExpirationSeconds int `gorm:"not null;default:0"`
	// ExpiresAt denormalizes created_at + expiration_seconds so the sweep can
	// filter on it in SQL. NULL means the charge never expires. The domain
	// still derives expiry itself; this column never drives status.
	ExpiresAt *time.Time `gorm:"index"`
	PaymentID string     `gorm:"size:128"`
	PaymentDate       *time.Time
	PayerName         string `gorm:"size:128"`
	PayerTaxID        string `gorm:"size:32"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ChargeModel) TableName() string {
	return "charges"
}
