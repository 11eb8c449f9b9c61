package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
)

func paidObservation(externalID string, cents int64) Observation {
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Observation{
		ExternalID:  externalID,
		Status:      "APPROVED",
		AmountCents: cents,
		PaymentID:   "E2E-abc",
		PaymentDate: &paidAt,
		PayerName:   "Jane Payer",
		PayerTaxID:  "12345678900",
		Source:      "webhook",
	}
}

func TestReconcileObservation(t *testing.T) {
	ctx := context.Background()

	t.Run("settles pending charge exactly once", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		result, err := uc.Execute(ctx, paidObservation("ext-1", 1050))
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
		assert.False(t, result.AlreadySettled)
		assert.Equal(t, valueobjects.ChargeStatusPaid, result.Charge.Status())
		assert.Equal(t, "E2E-abc", result.Charge.PaymentID())
		assert.Equal(t, "Jane Payer", result.Charge.PayerName())
	})

	t.Run("settlement runs inside the transaction manager", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		txMgr := &countingTxManager{}
		uc := NewReconcileObservationUseCase(repo, txMgr, nil, testLogger())

		result, err := uc.Execute(ctx, paidObservation("ext-1", 1050))
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
		assert.Equal(t, 1, txMgr.count())

		// A no-op observation never opens a transaction.
		obs := paidObservation("ext-1", 1050)
		obs.Status = "PENDING"
		_, err = uc.Execute(ctx, obs)
		require.NoError(t, err)
		assert.Equal(t, 1, txMgr.count())
	})

	t.Run("replay is acknowledged without a second transition", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		first, err := uc.Execute(ctx, paidObservation("ext-1", 1050))
		require.NoError(t, err)
		require.True(t, first.Transitioned)

		second, err := uc.Execute(ctx, paidObservation("ext-1", 1050))
		require.NoError(t, err)
		assert.False(t, second.Transitioned)
		assert.True(t, second.AlreadySettled)
		// Original settlement evidence is preserved.
		assert.Equal(t, "E2E-abc", second.Charge.PaymentID())
	})

	t.Run("concurrent observers settle at most once", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		const observers = 16
		results := make([]*ReconcileResult, observers)
		var wg sync.WaitGroup
		for i := 0; i < observers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				obs := paidObservation("ext-1", 1050)
				obs.Source = "poll"
				r, err := uc.Execute(ctx, obs)
				assert.NoError(t, err)
				results[i] = r
			}(i)
		}
		wg.Wait()

		transitions := 0
		for _, r := range results {
			if r.Transitioned {
				transitions++
			} else {
				assert.True(t, r.AlreadySettled)
			}
		}
		assert.Equal(t, 1, transitions)
	})

	t.Run("amount mismatch withholds settlement and alerts", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		notifier := &mockNotifier{}
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, notifier, testLogger())

		_, err := uc.Execute(ctx, paidObservation("ext-1", 1049))
		require.Error(t, err)
		assert.True(t, errors.IsAmountMismatchError(err))
		assert.Equal(t, 1, notifier.callCount())

		c, err := repo.GetByExternalID(ctx, "ext-1")
		require.NoError(t, err)
		assert.Equal(t, valueobjects.ChargeStatusPending, c.Status())
	})

	t.Run("unknown external id is not found", func(t *testing.T) {
		repo := newFakeChargeRepo()
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		_, err := uc.Execute(ctx, paidObservation("ext-missing", 1050))
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("non-settled status is a no-op", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		obs := paidObservation("ext-1", 1050)
		obs.Status = "PENDING"
		result, err := uc.Execute(ctx, obs)
		require.NoError(t, err)
		assert.False(t, result.Transitioned)
		assert.False(t, result.AlreadySettled)
		assert.Equal(t, valueobjects.ChargeStatusPending, result.Charge.Status())
	})

	t.Run("unknown provider status never settles", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		obs := paidObservation("ext-1", 1050)
		obs.Status = "CHARGEBACK"
		result, err := uc.Execute(ctx, obs)
		require.NoError(t, err)
		assert.False(t, result.Transitioned)
		assert.Equal(t, valueobjects.ChargeStatusPending, result.Charge.Status())
	})

	t.Run("missing payment date falls back to observation time", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "ext-1", "tx-1", 1050)
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		obs := paidObservation("ext-1", 1050)
		obs.PaymentDate = nil
		before := time.Now().UTC()
		result, err := uc.Execute(ctx, obs)
		require.NoError(t, err)
		require.True(t, result.Transitioned)
		require.NotNil(t, result.Charge.PaymentDate())
		assert.False(t, result.Charge.PaymentDate().Before(before))
	})

	t.Run("late settlement after window still settles", func(t *testing.T) {
		repo := newFakeChargeRepo()
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		stale := charge.ReconstructCharge(
			"ch_stale", "ext-late", "tx-late",
			valueobjects.ReconstructMoney(1050, "BRL"),
			valueobjects.ChargeStatusPending, "", "qr", "", 600,
			"", nil, "", "", created, created,
		)
		require.NoError(t, repo.Create(ctx, stale))
		uc := NewReconcileObservationUseCase(repo, directTxManager{}, nil, testLogger())

		result, err := uc.Execute(ctx, paidObservation("ext-late", 1050))
		require.NoError(t, err)
		assert.True(t, result.Transitioned)
		assert.Equal(t, valueobjects.ChargeStatusPaid, result.Charge.Status())
	})
}
