package handler

import (
	"context"
	"net/http"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/middleware"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/service"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/pagination"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequirePermission("invoices.write"), h.CreateInvoice)
		invoices.GET("", middleware.RequirePermission("invoices.read"), h.ListInvoices)
		invoices.GET("/:id", middleware.RequirePermission("invoices.read"), h.GetInvoice)
		invoices.PUT("/:id", middleware.RequirePermission("invoices.write"), h.UpdateInvoice)

		invoices.POST("/:id/charges", middleware.RequirePermission("invoices.write"), h.AddCharge)

		invoices.PUT("/:id/submit", middleware.RequirePermission("invoices.write"), h.SubmitInvoice)
		invoices.PUT("/:id/approve", middleware.RequirePermission("invoices.approve"), h.ApproveInvoice)
		invoices.PUT("/:id/reject", middleware.RequirePermission("invoices.approve"), h.RejectInvoice)
		invoices.PUT("/:id/finalize", middleware.RequirePermission("invoices.approve"), h.FinalizeInvoice)
		invoices.PUT("/:id/unlock", middleware.RequirePermission("invoices.unlock"), h.UnlockInvoice)
		invoices.POST("/:id/share", middleware.RequirePermission("invoices.write"), h.IssueShareToken)
	}

	charges := router.Group("/api/charges")
	{
		charges.PUT("/:id", middleware.RequirePermission("invoices.write"), h.UpdateCharge)
		charges.DELETE("/:id", middleware.RequirePermission("invoices.write"), h.DeleteCharge)
	}
}

// RegisterPublicRoutes exposes the unauthenticated share-link view.
func (h *InvoiceHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/api/public/invoices/:token", h.GetSharedInvoice)
}

// CreateInvoice creates a new draft invoice with its charges
// @Summary      Create invoice
// @Description  Creates a new draft invoice for a customer, optionally tied to a vehicle
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated, filterable list of invoices
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices filtered by status, payment status, customer or vehicle
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status          query     string  false  "Filter by lifecycle status (DRAFT, PENDING_APPROVAL, APPROVED, FINALIZED)"
// @Param        payment_status  query     string  false  "Filter by payment status (PENDING, PARTIALLY_PAID, PAID)"
// @Param        customer_id     query     string  false  "Filter by customer"
// @Param        vehicle_id      query     string  false  "Filter by vehicle"
// @Param        invoice_no      query     string  false  "Partial match on invoice number"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200             {object}  response.Response{data=object}
// @Failure      500             {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		CustomerID:    c.Query("customer_id"),
		VehicleID:     c.Query("vehicle_id"),
		InvoiceNo:     c.Query("invoice_no"),
		Page:          p.Page,
		Limit:         p.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// GetInvoice returns one invoice with its charges
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice edits header fields of an unlocked invoice
// @Summary      Update invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Update Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// AddCharge appends a revenue line to an unlocked invoice
// @Summary      Add charge
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        payload  body      service.ChargeInput  true  "Charge Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/charges [post]
func (h *InvoiceHandler) AddCharge(c *gin.Context) {
	var req service.ChargeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.AddCharge(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// UpdateCharge edits a revenue line on an unlocked invoice
// @Summary      Update charge
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Charge ID"
// @Param        payload  body      service.ChargeInput  true  "Charge Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/charges/{id} [put]
func (h *InvoiceHandler) UpdateCharge(c *gin.Context) {
	var req service.ChargeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdateCharge(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteCharge removes a revenue line from an unlocked invoice
// @Summary      Delete charge
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Charge ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/charges/{id} [delete]
func (h *InvoiceHandler) DeleteCharge(c *gin.Context) {
	invoice, err := h.invoiceService.DeleteCharge(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// SubmitInvoice moves a draft invoice into approval
// @Summary      Submit invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/submit [put]
func (h *InvoiceHandler) SubmitInvoice(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.SubmitInvoice)
}

// ApproveInvoice approves a pending invoice
// @Summary      Approve invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/approve [put]
func (h *InvoiceHandler) ApproveInvoice(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.ApproveInvoice)
}

// RejectInvoice sends a pending invoice back to draft
// @Summary      Reject invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/reject [put]
func (h *InvoiceHandler) RejectInvoice(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.RejectInvoice)
}

// FinalizeInvoice locks an approved invoice
// @Summary      Finalize invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/finalize [put]
func (h *InvoiceHandler) FinalizeInvoice(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.FinalizeInvoice)
}

// UnlockInvoice reopens a finalized invoice
// @Summary      Unlock invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/unlock [put]
func (h *InvoiceHandler) UnlockInvoice(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.UnlockInvoice)
}

// IssueShareToken creates (or returns) the read-only share link for an invoice
// @Summary      Issue share token
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/share [post]
func (h *InvoiceHandler) IssueShareToken(c *gin.Context) {
	invoice, err := h.invoiceService.IssueShareToken(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// GetSharedInvoice serves the public read-only invoice view
// @Summary      Get shared invoice
// @Description  Public read-only invoice view accessed through a share token
// @Tags         invoices
// @Produce      json
// @Param        token  path      string  true  "Share Token"
// @Success      200    {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404    {object}  response.Response
// @Router       /api/public/invoices/{token} [get]
func (h *InvoiceHandler) GetSharedInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoiceByShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

func (h *InvoiceHandler) lifecycle(c *gin.Context, fn func(ctx context.Context, id, userID string) (service.InvoiceResponse, error)) {
	invoice, err := fn(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// currentUserID pulls the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	s, _ := userID.(string)
	return s
}
