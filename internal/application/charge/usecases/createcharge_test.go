package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
)

func TestCreateCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("creates charge with gateway qr payload", func(t *testing.T) {
		repo := newFakeChargeRepo()
		gw := &mockGateway{}
		gw.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
			return req.ExternalID == "order-1" && req.Amount == 10.50
		})).Return(&gateway.ChargeCreated{
			TransactionID: "tx-100",
			ExternalID:    "order-1",
			QRCode:        "000201br.gov.bcb.pix",
			QRCodeImage:   "aW1hZ2U=",
		}, nil)

		uc := NewCreateChargeUseCase(repo, gw, testLogger())
		c, err := uc.Execute(ctx, CreateChargeInput{
			ExternalID:  "order-1",
			AmountCents: 1050,
			Description: "test order",
		})
		require.NoError(t, err)

		assert.Equal(t, "tx-100", c.TransactionID())
		assert.Equal(t, "000201br.gov.bcb.pix", c.QRCode())
		assert.Equal(t, valueobjects.ChargeStatusPending, c.Status())

		stored, err := repo.GetByExternalID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, c.SID(), stored.SID())
		gw.AssertExpectations(t)
	})

	t.Run("rejects duplicate external id before calling gateway", func(t *testing.T) {
		repo := newFakeChargeRepo()
		seedPendingCharge(repo, "order-1", "tx-1", 1050)
		gw := &mockGateway{}

		uc := NewCreateChargeUseCase(repo, gw, testLogger())
		_, err := uc.Execute(ctx, CreateChargeInput{ExternalID: "order-1", AmountCents: 1050})
		require.Error(t, err)
		assert.True(t, errors.IsConflictError(err))
		gw.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		uc := NewCreateChargeUseCase(newFakeChargeRepo(), &mockGateway{}, testLogger())
		_, err := uc.Execute(ctx, CreateChargeInput{ExternalID: "x", AmountCents: 0})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("propagates gateway failure without persisting", func(t *testing.T) {
		repo := newFakeChargeRepo()
		gw := &mockGateway{}
		gw.On("CreateCharge", mock.Anything, mock.Anything).
			Return(nil, errors.NewGatewayError(502, "provider unavailable"))

		uc := NewCreateChargeUseCase(repo, gw, testLogger())
		_, err := uc.Execute(ctx, CreateChargeInput{ExternalID: "order-2", AmountCents: 500})
		require.Error(t, err)
		assert.True(t, errors.IsGatewayError(err))

		_, err = repo.GetByExternalID(ctx, "order-2")
		assert.True(t, errors.IsNotFoundError(err))
	})
}
