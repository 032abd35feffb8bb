package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/middleware"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/service"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	walletService  service.WalletService
	webhookSecret  string
}

func NewPaymentHandler(paymentService service.PaymentService, walletService service.WalletService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		walletService:  walletService,
		webhookSecret:  webhookSecret,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("/:id/payments", middleware.RequirePermission("payments.write"), h.ApplyPayment)
	}

	wallets := router.Group("/api/customers/:id/wallet")
	{
		wallets.GET("", middleware.RequirePermission("wallets.read"), h.GetWalletBalance)
		wallets.GET("/transactions", middleware.RequirePermission("wallets.read"), h.ListWalletTransactions)
		wallets.POST("/deposits", middleware.RequirePermission("payments.write"), h.RecordDeposit)
		wallets.POST("/refunds", middleware.RequirePermission("payments.write"), h.RecordRefund)
	}
}

// RegisterWebhookRoutes exposes the payment-gateway callback. The route is
// authenticated by the pre-shared secret header, not by a user session.
func (h *PaymentHandler) RegisterWebhookRoutes(router *gin.RouterGroup) {
	router.POST("/api/webhooks/payments/:id", h.PaymentWebhook)
}

// ApplyPayment records a payment against an invoice
// @Summary      Apply payment
// @Description  Records a cumulative received amount or an explicit payment status, optionally drawing from the customer wallet
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Invoice ID"
// @Param        payload  body      service.ApplyPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.PaymentResultResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	var req service.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// PaymentWebhook records a payment reported by the payment gateway
// @Summary      Payment gateway webhook
// @Description  Accepts a payment callback authenticated by the X-Webhook-Secret header
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id                path      string                       true  "Invoice ID"
// @Param        X-Webhook-Secret  header    string                       true  "Pre-shared webhook secret"
// @Param        payload           body      service.ApplyPaymentRequest  true  "Payment Payload"
// @Success      200               {object}  response.Response{data=service.PaymentResultResponse}
// @Failure      403               {object}  response.Response
// @Router       /api/webhooks/payments/{id} [post]
func (h *PaymentHandler) PaymentWebhook(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Invalid webhook secret"))
		return
	}

	var req service.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	// Wallet draws are an operator action, never a gateway one.
	req.ViaWallet = false

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), c.Param("id"), "", req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetWalletBalance returns a customer's projected wallet balance
// @Summary      Get wallet balance
// @Description  Projects the customer's wallet balance from the transaction ledger
// @Tags         wallets
// @Security     BearerAuth
// @Produce      json
// @Param        id        path      string  true   "Customer ID"
// @Param        currency  query     string  false  "Currency code (defaults to the customer's wallet currency)"
// @Success      200       {object}  response.Response{data=service.WalletBalanceResponse}
// @Failure      404       {object}  response.Response
// @Router       /api/customers/{id}/wallet [get]
func (h *PaymentHandler) GetWalletBalance(c *gin.Context) {
	balance, err := h.walletService.GetBalance(c.Request.Context(), c.Param("id"), c.Query("currency"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// ListWalletTransactions lists a customer's ledger entries
// @Summary      List wallet transactions
// @Tags         wallets
// @Security     BearerAuth
// @Produce      json
// @Param        id        path      string  true   "Customer ID"
// @Param        currency  query     string  false  "Filter by currency code"
// @Success      200       {object}  response.Response{data=[]service.TransactionResponse}
// @Failure      404       {object}  response.Response
// @Router       /api/customers/{id}/wallet/transactions [get]
func (h *PaymentHandler) ListWalletTransactions(c *gin.Context) {
	transactions, err := h.walletService.ListCustomerTransactions(c.Request.Context(), c.Param("id"), c.Query("currency"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transactions))
}

// RecordDeposit appends an incoming wallet entry for a customer
// @Summary      Record deposit
// @Tags         wallets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Customer ID"
// @Param        payload  body      service.RecordDepositRequest  true  "Deposit Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers/{id}/wallet/deposits [post]
func (h *PaymentHandler) RecordDeposit(c *gin.Context) {
	var req service.RecordDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.CustomerID = c.Param("id")

	tx, err := h.paymentService.RecordDeposit(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// RecordRefund appends an outgoing wallet entry for a customer
// @Summary      Record refund
// @Tags         wallets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Customer ID"
// @Param        payload  body      service.RecordRefundRequest  true  "Refund Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers/{id}/wallet/refunds [post]
func (h *PaymentHandler) RecordRefund(c *gin.Context) {
	var req service.RecordRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.CustomerID = c.Param("id")

	tx, err := h.paymentService.RecordRefund(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}
