package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pixgate/internal/application/charge/poller"
	chargeUsecases "pixgate/internal/application/charge/usecases"
	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
	"pixgate/internal/shared/utils"
)

type ChargeHandler struct {
	createChargeUC *chargeUsecases.CreateChargeUseCase
	getChargeUC    *chargeUsecases.GetChargeUseCase
	listChargesUC  *chargeUsecases.ListChargesUseCase
	deleteChargeUC *chargeUsecases.DeleteChargeUseCase
	checkStatusUC  *chargeUsecases.CheckChargeStatusUseCase
	statusPoller   *poller.Poller
	logger         logger.Interface
}

func NewChargeHandler(
	createChargeUC *chargeUsecases.CreateChargeUseCase,
	getChargeUC *chargeUsecases.GetChargeUseCase,
	listChargesUC *chargeUsecases.ListChargesUseCase,
	deleteChargeUC *chargeUsecases.DeleteChargeUseCase,
	checkStatusUC *chargeUsecases.CheckChargeStatusUseCase,
	statusPoller *poller.Poller,
	logger logger.Interface,
) *ChargeHandler {
	return &ChargeHandler{
		createChargeUC: createChargeUC,
		getChargeUC:    getChargeUC,
		listChargesUC:  listChargesUC,
		deleteChargeUC: deleteChargeUC,
		checkStatusUC:  checkStatusUC,
		statusPoller:   statusPoller,
		logger:         logger,
	}
}

type CreateChargeRequest struct {
	ExternalID    string `json:"external_id"`
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	PayerName     string `json:"payer_name"`
	PayerDocument string `json:"payer_document"`
	// ExpirationSeconds distinguishes absent (default window) from an
	// explicit 0, which creates a charge that never expires.
	ExpirationSeconds *int `json:"expiration_seconds" binding:"omitempty,gte=0"`
}

type ChargeResponse struct {
	SID               string `json:"sid"`
	ExternalID        string `json:"external_id"`
	TransactionID     string `json:"transaction_id,omitempty"`
	AmountCents       int64  `json:"amount_cents"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	Description       string `json:"description,omitempty"`
	QRCode            string `json:"qr_code,omitempty"`
	QRCodeImage       string `json:"qr_code_image,omitempty"`
	ExpirationSeconds int    `json:"expiration_seconds"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	PaymentID         string `json:"payment_id,omitempty"`
	PaymentDate       string `json:"payment_date,omitempty"`
	PayerName         string `json:"payer_name,omitempty"`
	PayerTaxID        string `json:"payer_tax_id,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// toChargeResponse builds the API view. Status is the effective
// classification: a pending charge past its window reads as expired.
func toChargeResponse(c *charge.Charge) ChargeResponse {
	now := biztime.NowUTC()
	resp := ChargeResponse{
		SID:               c.SID(),
		ExternalID:        c.ExternalID(),
		TransactionID:     c.TransactionID(),
		AmountCents:       c.Amount().Cents(),
		Currency:          c.Amount().Currency(),
		Status:            c.EffectiveStatus(now).String(),
		Description:       c.Description(),
		QRCode:            c.QRCode(),
		QRCodeImage:       c.QRCodeImage(),
		ExpirationSeconds: c.ExpirationSeconds(),
		PaymentID:         c.PaymentID(),
		PayerName:         c.PayerName(),
		PayerTaxID:        c.PayerTaxID(),
		CreatedAt:         biztime.FormatRFC3339(c.CreatedAt()),
	}
	if c.ExpirationSeconds() > 0 {
		resp.ExpiresAt = biztime.FormatRFC3339(c.ExpiresAt())
	}
	if c.PaymentDate() != nil {
		resp.PaymentDate = biztime.FormatRFC3339(*c.PaymentDate())
	}
	return resp
}

func (h *ChargeHandler) CreateCharge(c *gin.Context) {
	var req CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	expiration := charge.DefaultExpirationSeconds
	if req.ExpirationSeconds != nil {
		expiration = *req.ExpirationSeconds
	}

	result, err := h.createChargeUC.Execute(c.Request.Context(), chargeUsecases.CreateChargeInput{
		ExternalID:        req.ExternalID,
		AmountCents:       req.AmountCents,
		Currency:          req.Currency,
		Description:       req.Description,
		PayerName:         req.PayerName,
		PayerDocument:     req.PayerDocument,
		ExpirationSeconds: expiration,
	})
	if err != nil {
		h.logger.Errorw("failed to create charge", "error", err, "external_id", req.ExternalID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, toChargeResponse(result), "charge created successfully")
}

// GetCharge resolves the path id as a short id first and falls back to the
// caller-supplied correlation id, so both handles the API hands out work.
func (h *ChargeHandler) GetCharge(c *gin.Context) {
	ref := c.Param("sid")

	result, err := h.getChargeUC.Execute(c.Request.Context(), ref)
	if errors.IsNotFoundError(err) {
		result, err = h.getChargeUC.ExecuteByExternalID(c.Request.Context(), ref)
	}
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toChargeResponse(result))
}

func (h *ChargeHandler) ListCharges(c *gin.Context) {
	var query struct {
		Status   string `form:"status"`
		Page     int    `form:"page,default=1"`
		PageSize int    `form:"page_size,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}

	charges, total, err := h.listChargesUC.Execute(c.Request.Context(), chargeUsecases.ListChargesInput{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	items := make([]ChargeResponse, 0, len(charges))
	for _, ch := range charges {
		items = append(items, toChargeResponse(ch))
	}

	utils.ListSuccessResponse(c, items, total, query.Page, query.PageSize)
}

func (h *ChargeHandler) DeleteCharge(c *gin.Context) {
	if err := h.deleteChargeUC.Execute(c.Request.Context(), c.Param("sid")); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// CheckStatus is the polling endpoint: it consults the gateway for pending
// charges and reflects any settlement through the reconciliation engine. The
// path id is resolved as a gateway transaction id first, then as the
// caller's correlation id.
func (h *ChargeHandler) CheckStatus(c *gin.Context) {
	ref := c.Param("transactionId")

	view, err := h.checkStatusUC.Execute(c.Request.Context(), ref)
	if errors.IsNotFoundError(err) {
		view, err = h.checkStatusUC.ExecuteByExternalID(c.Request.Context(), ref)
	}
	if err != nil {
		h.logger.Errorw("failed to check charge status",
			"error", err,
			"transaction_id", ref,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := toChargeResponse(view.Charge)
	resp.Status = view.Status.String()
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// WaitForSettlement blocks until the charge settles, expires, or the polling
// window closes. The connection going away cancels the run.
func (h *ChargeHandler) WaitForSettlement(c *gin.Context) {
	transactionID := c.Param("transactionId")

	result, err := h.statusPoller.PollUntilSettled(c.Request.Context(), transactionID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.View == nil || result.View.Charge == nil {
		utils.SuccessResponse(c, http.StatusOK, string(result.Outcome), nil)
		return
	}

	resp := toChargeResponse(result.View.Charge)
	resp.Status = result.View.Status.String()
	utils.SuccessResponse(c, http.StatusOK, string(result.Outcome), resp)
}
