package handler

import (
	"net/http"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/middleware"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/service"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/response"

	"github.com/gin-gonic/gin"
)

type CostHandler struct {
	costingService service.CostingService
}

func NewCostHandler(costingService service.CostingService) *CostHandler {
	return &CostHandler{costingService: costingService}
}

func (h *CostHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.GET("/:id/costs", middleware.RequirePermission("costs.read"), h.GetBreakdown)
		invoices.POST("/:id/cost-items", middleware.RequirePermission("costs.write"), h.CreateCostItem)
	}

	items := router.Group("/api/cost-items")
	{
		items.PUT("/:id", middleware.RequirePermission("costs.write"), h.UpdateCostItem)
		items.DELETE("/:id", middleware.RequirePermission("costs.write"), h.DeleteCostItem)
	}
}

// GetBreakdown returns the cost breakdown and profit metrics for an invoice
// @Summary      Get cost breakdown
// @Description  Retrieves revenue, regular cost, allocated shared cost and profit metrics for an invoice
// @Tags         costs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.CostBreakdownResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/costs [get]
func (h *CostHandler) GetBreakdown(c *gin.Context) {
	breakdown, err := h.costingService.GetBreakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// CreateCostItem adds a direct cost line to an invoice
// @Summary      Create cost item
// @Tags         costs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Invoice ID"
// @Param        payload  body      service.CreateCostItemRequest  true  "Cost Item Payload"
// @Success      201      {object}  response.Response{data=service.CostItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id}/cost-items [post]
func (h *CostHandler) CreateCostItem(c *gin.Context) {
	var req service.CreateCostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.costingService.CreateCostItem(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateCostItem edits a direct cost line
// @Summary      Update cost item
// @Tags         costs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Cost Item ID"
// @Param        payload  body      service.UpdateCostItemRequest  true  "Cost Item Payload"
// @Success      200      {object}  response.Response{data=service.CostItemResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/cost-items/{id} [put]
func (h *CostHandler) UpdateCostItem(c *gin.Context) {
	var req service.UpdateCostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.costingService.UpdateCostItem(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteCostItem removes a direct cost line
// @Summary      Delete cost item
// @Tags         costs
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Cost Item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cost-items/{id} [delete]
func (h *CostHandler) DeleteCostItem(c *gin.Context) {
	if err := h.costingService.DeleteCostItem(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Cost item deleted successfully"}))
}
