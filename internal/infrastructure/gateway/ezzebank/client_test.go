package ezzebank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/shared/config"
	"pixgate/internal/shared/errors"
)

// gatewayFixture is a fake EzzeBank API covering the token and qrcode endpoints.
type gatewayFixture struct {
	t          *testing.T
	tokenCalls atomic.Int64
	// rejectFirstBearer makes the first authenticated request fail with 401.
	rejectFirstBearer bool
	rejected          atomic.Bool

	lastCreateBody map[string]interface{}
}

func (f *gatewayFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	mux.HandleFunc("/pix/qrcode", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorize(w, r) {
			return
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastCreateBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"transactionId": "tx-100",
			"externalId": "order-1",
			"qrcode": "000201br.gov.bcb.pix",
			"qrcodeBase64": "aW1hZ2U=",
			"value": 10.50,
			"status": "PENDING"
		}`)
	})
	mux.HandleFunc("/pix/qrcode/tx-100", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorize(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"transactionId": "tx-100",
			"externalId": "order-1",
			"value": 10.50,
			"status": "APPROVED",
			"paymentId": "E2E9",
			"paymentDate": "2026-03-01T12:00:00Z"
		}`)
	})
	mux.HandleFunc("/pix/qrcode/external/order-1", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorize(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"transactionId":"tx-100","externalId":"order-1","value":10.50,"status":"PENDING"}`)
	})
	mux.HandleFunc("/pix/qrcode/tx-100/detail", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorize(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"transactionId": "tx-100",
			"externalId": "order-1",
			"value": 10.50,
			"status": "APPROVED",
			"paymentId": "E2E9",
			"paymentDate": "2026-03-01T12:00:00Z",
			"debitParty": {"name": "Jane Payer", "taxId": "12345678900"}
		}`)
	})
	mux.HandleFunc("/pix/qrcode/tx-missing", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorize(w, r) {
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"statusCode":404,"message":"qrcode not found"}`)
	})
	return mux
}

func (f *gatewayFixture) authorize(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	assert.Contains(f.t, auth, "Bearer token-")
	if f.rejectFirstBearer && f.rejected.CompareAndSwap(false, true) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"statusCode":401,"message":"token expired"}`)
		return false
	}
	return true
}

func newTestClient(t *testing.T, fixture *gatewayFixture) *Client {
	t.Helper()
	srv := httptest.NewServer(fixture.handler())
	t.Cleanup(srv.Close)
	return NewClient(&config.GatewayConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      srv.URL,
		CallbackURL:  "https://example.test/api/v1/webhook",
	}, testLogger())
}

func TestClientCreateCharge(t *testing.T) {
	fixture := &gatewayFixture{t: t}
	client := newTestClient(t, fixture)

	created, err := client.CreateCharge(context.Background(), gateway.ChargeRequest{
		Amount:            10.50,
		ExternalID:        "order-1",
		PayerQuestion:     "test order",
		PayerName:         "Jane Payer",
		PayerDocument:     "12345678900",
		ExpirationSeconds: 3600,
	})
	require.NoError(t, err)

	assert.Equal(t, "tx-100", created.TransactionID)
	assert.Equal(t, "order-1", created.ExternalID)
	assert.Equal(t, "000201br.gov.bcb.pix", created.QRCode)
	assert.Equal(t, "aW1hZ2U=", created.QRCodeImage)

	// Wire payload carries the callback and payer details.
	assert.Equal(t, "order-1", fixture.lastCreateBody["external_id"])
	assert.Equal(t, 10.50, fixture.lastCreateBody["amount"])
	assert.Equal(t, "https://example.test/api/v1/webhook", fixture.lastCreateBody["callback_url"])
	assert.Equal(t, float64(3600), fixture.lastCreateBody["expiration"])
}

func TestClientCreateChargeValidation(t *testing.T) {
	client := newTestClient(t, &gatewayFixture{t: t})

	_, err := client.CreateCharge(context.Background(), gateway.ChargeRequest{Amount: 0})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestClientQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("by transaction id", func(t *testing.T) {
		client := newTestClient(t, &gatewayFixture{t: t})
		snap, err := client.GetChargeByTransactionID(ctx, "tx-100")
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", snap.Status)
		assert.Equal(t, int64(1050), snap.AmountCents)
		assert.Equal(t, "E2E9", snap.PaymentID)
		require.NotNil(t, snap.PaymentDate)
	})

	t.Run("by external id", func(t *testing.T) {
		client := newTestClient(t, &gatewayFixture{t: t})
		snap, err := client.GetChargeByExternalID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "tx-100", snap.TransactionID)
		assert.Equal(t, "PENDING", snap.Status)
	})

	t.Run("detail includes payer identity", func(t *testing.T) {
		client := newTestClient(t, &gatewayFixture{t: t})
		snap, err := client.GetChargeDetail(ctx, "tx-100")
		require.NoError(t, err)
		assert.Equal(t, "Jane Payer", snap.PayerName)
		assert.Equal(t, "12345678900", snap.PayerTaxID)
	})

	t.Run("unknown charge maps to not found", func(t *testing.T) {
		client := newTestClient(t, &gatewayFixture{t: t})
		_, err := client.GetChargeByTransactionID(ctx, "tx-missing")
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestClientRetriesOnceOnUnauthorized(t *testing.T) {
	fixture := &gatewayFixture{t: t, rejectFirstBearer: true}
	client := newTestClient(t, fixture)

	snap, err := client.GetChargeByTransactionID(context.Background(), "tx-100")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", snap.Status)
	// One exchange for the rejected token, one for the retry.
	assert.Equal(t, int64(2), fixture.tokenCalls.Load())
}
