package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/infrastructure/persistence/mappers"
	"pixgate/internal/infrastructure/persistence/models"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/db"
	"pixgate/internal/shared/errors"
)

// ChargeRepository is the gorm-backed implementation of the charge
// repository contract.
type ChargeRepository struct {
	db *gorm.DB
}

func NewChargeRepository(db *gorm.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

// Ensure the contract is satisfied
var _ charge.Repository = (*ChargeRepository)(nil)

func (r *ChargeRepository) Create(ctx context.Context, c *charge.Charge) error {
	model := mappers.ChargeToModel(c)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("external id already in use")
		}
		return fmt.Errorf("failed to create charge: %w", err)
	}

	return nil
}

func (r *ChargeRepository) GetBySID(ctx context.Context, sid string) (*charge.Charge, error) {
	return r.getBy(ctx, "sid = ?", sid)
}

func (r *ChargeRepository) GetByExternalID(ctx context.Context, externalID string) (*charge.Charge, error) {
	return r.getBy(ctx, "external_id = ?", externalID)
}

func (r *ChargeRepository) GetByTransactionID(ctx context.Context, transactionID string) (*charge.Charge, error) {
	return r.getBy(ctx, "transaction_id = ?", transactionID)
}

func (r *ChargeRepository) getBy(ctx context.Context, query string, arg interface{}) (*charge.Charge, error) {
	var model models.ChargeModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where(query, arg).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("charge not found")
		}
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	return mappers.ChargeToDomain(&model)
}

// SettleIfPending performs the conditional settlement write. The WHERE clause
// on status is the arbitration point between concurrent observers: the update
// matches at most one row, and RowsAffected tells the caller whether it won.
func (r *ChargeRepository) SettleIfPending(ctx context.Context, externalID string, s charge.Settlement) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.ChargeModel{}).
		Where("external_id = ? AND status = ?", externalID, valueobjects.ChargeStatusPending.String()).
		Updates(map[string]interface{}{
			"status":       valueobjects.ChargeStatusPaid.String(),
			"payment_id":   s.PaymentID,
			"payment_date": s.PaymentDate,
			"payer_name":   s.PayerName,
			"payer_tax_id": s.PayerTaxID,
			"updated_at":   biztime.NowUTC(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to settle charge: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *ChargeRepository) List(ctx context.Context, filter charge.ListFilter) ([]*charge.Charge, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.ChargeModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count charges: %w", err)
	}

	var chargeModels []models.ChargeModel
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&chargeModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list charges: %w", err)
	}

	charges := make([]*charge.Charge, 0, len(chargeModels))
	for i := range chargeModels {
		c, err := mappers.ChargeToDomain(&chargeModels[i])
		if err != nil {
			return nil, 0, err
		}
		charges = append(charges, c)
	}

	return charges, total, nil
}

// ListStalePending returns pending charges still inside their payment window,
// oldest first. The stored expires_at column makes the per-row window a plain
// SQL predicate, so the sweep only loads rows it will actually check; a NULL
// expires_at is a charge that never expires.
func (r *ChargeRepository) ListStalePending(ctx context.Context, now time.Time, limit int) ([]*charge.Charge, error) {
	var chargeModels []models.ChargeModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ?", valueobjects.ChargeStatusPending.String()).
		Where("expires_at IS NULL OR expires_at >= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&chargeModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending charges: %w", err)
	}

	charges := make([]*charge.Charge, 0, len(chargeModels))
	for i := range chargeModels {
		c, err := mappers.ChargeToDomain(&chargeModels[i])
		if err != nil {
			return nil, err
		}
		if c.IsExpired(now) {
			continue
		}
		charges = append(charges, c)
	}

	return charges, nil
}

func (r *ChargeRepository) Delete(ctx context.Context, sid string) error {
	result := db.GetTxFromContext(ctx, r.db).
		Where("sid = ?", sid).
		Delete(&models.ChargeModel{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete charge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("charge not found")
	}

	return nil
}
