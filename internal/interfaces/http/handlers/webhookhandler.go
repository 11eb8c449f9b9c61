package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chargeUsecases "pixgate/internal/application/charge/usecases"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
	"pixgate/internal/shared/utils"
)

// transactionTypeReceivePix is the only notification type that carries
// settlement evidence; other types are acknowledged and ignored.
const transactionTypeReceivePix = "RECEIVEPIX"

// WebhookHandler receives the gateway's asynchronous payment notifications
// and feeds them into the reconciliation engine. Response codes drive the
// gateway's redelivery policy: 401/400 reject the delivery, 404 flags an
// unknown charge, and 200 acknowledges it so the gateway stops retrying.
type WebhookHandler struct {
	reconcileUC *chargeUsecases.ReconcileObservationUseCase
	secret      string
	logger      logger.Interface
}

func NewWebhookHandler(
	reconcileUC *chargeUsecases.ReconcileObservationUseCase,
	secret string,
	logger logger.Interface,
) *WebhookHandler {
	return &WebhookHandler{
		reconcileUC: reconcileUC,
		secret:      secret,
		logger:      logger,
	}
}

type webhookRequest struct {
	Authentication  string      `json:"authentication"`
	TransactionType string      `json:"transactionType"`
	ExternalID      string      `json:"external_id"`
	Amount          float64     `json:"amount"`
	TransactionID   string      `json:"transactionId"`
	DateApproval    string      `json:"dateApproval"`
	DebitParty      *debitParty `json:"debitParty"`
}

type debitParty struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Authentication), []byte(h.secret)) != 1 {
		h.logger.Warnw("webhook rejected: bad authentication", "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authentication")
		return
	}

	if req.TransactionType != transactionTypeReceivePix {
		h.logger.Debugw("ignoring webhook transaction type", "type", req.TransactionType)
		utils.SuccessResponse(c, http.StatusOK, "notification ignored", nil)
		return
	}

	if req.ExternalID == "" || req.TransactionID == "" || req.Amount <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing required fields")
		return
	}

	obs := chargeUsecases.Observation{
		ExternalID: req.ExternalID,
		// The webhook only fires on settled payments; the status is implied.
		Status:      "APPROVED",
		AmountCents: int64(req.Amount*100 + 0.5),
		PaymentID:   req.TransactionID,
		PaymentDate: h.parseDateApproval(req.DateApproval),
		Source:      "webhook",
	}
	if req.DebitParty != nil {
		obs.PayerName = req.DebitParty.Name
		obs.PayerTaxID = req.DebitParty.TaxID
	}

	result, err := h.reconcileUC.Execute(c.Request.Context(), obs)
	if err != nil {
		switch {
		case errors.IsNotFoundError(err):
			utils.ErrorResponse(c, http.StatusNotFound, "unknown charge")
		case errors.IsAmountMismatchError(err):
			// Acknowledge so the gateway stops retrying; the anomaly is
			// already logged and alerted for operator review.
			utils.SuccessResponse(c, http.StatusOK, "amount mismatch recorded for review", nil)
		default:
			h.logger.Errorw("webhook reconciliation failed",
				"error", err,
				"external_id", req.ExternalID,
			)
			utils.ErrorResponseWithError(c, err)
		}
		return
	}

	if result.AlreadySettled {
		utils.SuccessResponse(c, http.StatusOK, "charge already settled", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "charge settled", nil)
}

// parseDateApproval parses the gateway's approval timestamp, returning nil
// when absent or unparseable so the observation time is used instead.
func (h *WebhookHandler) parseDateApproval(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := biztime.ParseRFC3339(s); err == nil {
		return &t
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	h.logger.Warnw("unparseable dateApproval in webhook", "value", s)
	return nil
}
