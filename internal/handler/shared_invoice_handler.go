package handler

import (
	"net/http"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/middleware"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/service"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/pagination"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/response"

	"github.com/gin-gonic/gin"
)

type SharedInvoiceHandler struct {
	allocationService service.AllocationService
}

func NewSharedInvoiceHandler(allocationService service.AllocationService) *SharedInvoiceHandler {
	return &SharedInvoiceHandler{allocationService: allocationService}
}

func (h *SharedInvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	shared := router.Group("/api/shared-invoices")
	{
		shared.POST("", middleware.RequirePermission("costs.write"), h.CreateSharedInvoice)
		shared.GET("", middleware.RequirePermission("costs.read"), h.ListSharedInvoices)
		shared.GET("/:id", middleware.RequirePermission("costs.read"), h.GetSharedInvoice)
		shared.DELETE("/:id", middleware.RequirePermission("costs.write"), h.DeleteSharedInvoice)

		shared.PUT("/:id/vehicles", middleware.RequirePermission("costs.write"), h.SetVehicles)
		shared.DELETE("/:id/vehicles/:vehicleId", middleware.RequirePermission("costs.write"), h.RemoveVehicle)

		shared.POST("/:id/container-invoices", middleware.RequirePermission("costs.write"), h.CreateContainerInvoice)
		shared.GET("/:id/container-invoices", middleware.RequirePermission("costs.read"), h.ListContainerInvoices)
	}
}

// CreateSharedInvoice creates a shared cost invoice
// @Summary      Create shared invoice
// @Description  Creates a shared cost invoice whose total is split evenly across attached vehicles
// @Tags         shared-invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSharedInvoiceRequest  true  "Shared Invoice Payload"
// @Success      201      {object}  response.Response{data=service.SharedInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/shared-invoices [post]
func (h *SharedInvoiceHandler) CreateSharedInvoice(c *gin.Context) {
	var req service.CreateSharedInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.allocationService.CreateSharedInvoice(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListSharedInvoices returns a paginated list of shared invoices
// @Summary      List shared invoices
// @Tags         shared-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/shared-invoices [get]
func (h *SharedInvoiceHandler) ListSharedInvoices(c *gin.Context) {
	p := pagination.Parse(c)

	invoices, total, err := h.allocationService.ListSharedInvoices(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"shared_invoices": invoices,
		"total":           total,
		"page":            p.Page,
		"limit":           p.Limit,
	}))
}

// GetSharedInvoice returns one shared invoice with its allocations
// @Summary      Get shared invoice
// @Tags         shared-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shared Invoice ID"
// @Success      200  {object}  response.Response{data=service.SharedInvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/shared-invoices/{id} [get]
func (h *SharedInvoiceHandler) GetSharedInvoice(c *gin.Context) {
	invoice, err := h.allocationService.GetSharedInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteSharedInvoice deletes a shared invoice and cascades its allocations
// @Summary      Delete shared invoice
// @Description  Deletes a shared invoice, removes its allocations and recomputes the affected vehicle costs
// @Tags         shared-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shared Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/shared-invoices/{id} [delete]
func (h *SharedInvoiceHandler) DeleteSharedInvoice(c *gin.Context) {
	if err := h.allocationService.DeleteSharedInvoice(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Shared invoice deleted successfully"}))
}

// SetVehicles attaches vehicles to a shared invoice and resplits the total
// @Summary      Set allocated vehicles
// @Tags         shared-invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Shared Invoice ID"
// @Param        payload  body      service.SetVehiclesRequest  true  "Vehicle IDs Payload"
// @Success      200      {object}  response.Response{data=service.SharedInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/shared-invoices/{id}/vehicles [put]
func (h *SharedInvoiceHandler) SetVehicles(c *gin.Context) {
	var req service.SetVehiclesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.allocationService.SetVehicles(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RemoveVehicle detaches one vehicle and resplits across the remainder
// @Summary      Remove allocated vehicle
// @Tags         shared-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true  "Shared Invoice ID"
// @Param        vehicleId  path      string  true  "Vehicle ID"
// @Success      200        {object}  response.Response{data=service.SharedInvoiceResponse}
// @Failure      404        {object}  response.Response
// @Router       /api/shared-invoices/{id}/vehicles/{vehicleId} [delete]
func (h *SharedInvoiceHandler) RemoveVehicle(c *gin.Context) {
	invoice, err := h.allocationService.RemoveVehicle(c.Request.Context(), c.Param("id"), c.Param("vehicleId"), currentUserID(c))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// CreateContainerInvoice attaches a container invoice to a shared container invoice
// @Summary      Create container invoice
// @Tags         shared-invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                 true  "Shared Invoice ID"
// @Param        payload  body      service.CreateContainerInvoiceRequest  true  "Container Invoice Payload"
// @Success      201      {object}  response.Response{data=service.ContainerInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/shared-invoices/{id}/container-invoices [post]
func (h *SharedInvoiceHandler) CreateContainerInvoice(c *gin.Context) {
	var req service.CreateContainerInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.allocationService.CreateContainerInvoice(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListContainerInvoices lists container invoices attached to a shared invoice
// @Summary      List container invoices
// @Tags         shared-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shared Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.ContainerInvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/shared-invoices/{id}/container-invoices [get]
func (h *SharedInvoiceHandler) ListContainerInvoices(c *gin.Context) {
	invoices, err := h.allocationService.ListContainerInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoices))
}
