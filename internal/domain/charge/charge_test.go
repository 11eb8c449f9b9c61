package charge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgate/internal/domain/charge/valueobjects"
)

func mustMoney(t *testing.T, cents int64) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(cents, "BRL")
	require.NoError(t, err)
	return m
}

func TestNewCharge(t *testing.T) {
	t.Run("creates pending charge", func(t *testing.T) {
		c, err := NewCharge("order-123", mustMoney(t, 1050), "test order", 3600)
		require.NoError(t, err)

		assert.Equal(t, "order-123", c.ExternalID())
		assert.Equal(t, valueobjects.ChargeStatusPending, c.Status())
		assert.Equal(t, int64(1050), c.Amount().Cents())
		assert.Equal(t, 3600, c.ExpirationSeconds())
		assert.NotEmpty(t, c.SID())
		assert.True(t, c.CreatedAt().Equal(c.CreatedAt().UTC()))
	})

	t.Run("zero window creates a never-expiring charge", func(t *testing.T) {
		c, err := NewCharge("order-open", mustMoney(t, 1050), "", 0)
		require.NoError(t, err)

		assert.Equal(t, 0, c.ExpirationSeconds())
		assert.False(t, c.IsExpired(c.CreatedAt().Add(1000*time.Hour)))
	})

	t.Run("generates external id when absent", func(t *testing.T) {
		c, err := NewCharge("", mustMoney(t, 500), "", 600)
		require.NoError(t, err)
		assert.Contains(t, c.ExternalID(), "pix_")
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewCharge("x", valueobjects.Money{}, "", 600)
		assert.Error(t, err)
	})

	t.Run("rejects negative expiration", func(t *testing.T) {
		_, err := NewCharge("x", mustMoney(t, 100), "", -1)
		assert.Error(t, err)
	})
}

func TestChargeSettle(t *testing.T) {
	t.Run("settles pending charge", func(t *testing.T) {
		c, err := NewCharge("order-1", mustMoney(t, 2500), "", 600)
		require.NoError(t, err)

		paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, c.Settle("E2E123", paidAt, "Jane Payer", "12345678900"))

		assert.Equal(t, valueobjects.ChargeStatusPaid, c.Status())
		assert.Equal(t, "E2E123", c.PaymentID())
		require.NotNil(t, c.PaymentDate())
		assert.True(t, paidAt.Equal(*c.PaymentDate()))
		assert.Equal(t, "Jane Payer", c.PayerName())
		assert.Equal(t, "12345678900", c.PayerTaxID())
	})

	t.Run("rejects double settlement", func(t *testing.T) {
		c, err := NewCharge("order-2", mustMoney(t, 100), "", 600)
		require.NoError(t, err)
		require.NoError(t, c.Settle("E2E1", time.Now(), "", ""))

		err = c.Settle("E2E2", time.Now(), "", "")
		assert.Error(t, err)
		assert.Equal(t, "E2E1", c.PaymentID())
	})
}

func TestChargeExpiration(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	pending := func(expSeconds int) *Charge {
		return ReconstructCharge(
			"ch_1", "ext-1", "tx-1", valueobjects.ReconstructMoney(1000, "BRL"),
			valueobjects.ChargeStatusPending, "", "", "", expSeconds,
			"", nil, "", "", created, created,
		)
	}

	t.Run("pending within window is not expired", func(t *testing.T) {
		c := pending(3600)
		now := created.Add(30 * time.Minute)
		assert.False(t, c.IsExpired(now))
		assert.Equal(t, valueobjects.ChargeStatusPending, c.EffectiveStatus(now))
	})

	t.Run("pending past window reads as expired", func(t *testing.T) {
		c := pending(3600)
		now := created.Add(61 * time.Minute)
		assert.True(t, c.IsExpired(now))
		assert.Equal(t, valueobjects.ChargeStatusExpired, c.EffectiveStatus(now))
		// Stored status stays pending; expiry is a view, not a transition.
		assert.Equal(t, valueobjects.ChargeStatusPending, c.Status())
	})

	t.Run("window boundary is inclusive", func(t *testing.T) {
		c := pending(3600)
		assert.False(t, c.IsExpired(created.Add(time.Hour)))
		assert.True(t, c.IsExpired(created.Add(time.Hour+time.Second)))
	})

	t.Run("zero window never expires", func(t *testing.T) {
		c := pending(0)
		assert.False(t, c.IsExpired(created.Add(1000 * time.Hour)))
	})

	t.Run("paid charge never expires", func(t *testing.T) {
		paidAt := created.Add(10 * time.Minute)
		c := ReconstructCharge(
			"ch_2", "ext-2", "tx-2", valueobjects.ReconstructMoney(1000, "BRL"),
			valueobjects.ChargeStatusPaid, "", "", "", 3600,
			"E2E1", &paidAt, "Jane", "123", created, paidAt,
		)
		now := created.Add(48 * time.Hour)
		assert.False(t, c.IsExpired(now))
		assert.Equal(t, valueobjects.ChargeStatusPaid, c.EffectiveStatus(now))
	})
}

func TestAttachGatewayCharge(t *testing.T) {
	c, err := NewCharge("order-3", mustMoney(t, 100), "", 600)
	require.NoError(t, err)

	require.NoError(t, c.AttachGatewayCharge("tx-42", "000201br.gov.bcb.pix", "aW1hZ2U="))
	assert.Equal(t, "tx-42", c.TransactionID())
	assert.Equal(t, "000201br.gov.bcb.pix", c.QRCode())

	assert.Error(t, c.AttachGatewayCharge("", "", ""))
}
