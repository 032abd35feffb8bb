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

type ReportHandler struct {
	reportingService service.ReportingService
}

func NewReportHandler(reportingService service.ReportingService) *ReportHandler {
	return &ReportHandler{reportingService: reportingService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequirePermission("reports.read"))
	{
		reports.GET("/vehicle-profitability", h.GetVehicleProfitability)
		reports.GET("/profit-statistics", h.GetProfitStatistics)
	}
}

// GetVehicleProfitability ranks vehicles by realized profit
// @Summary      Vehicle profitability report
// @Description  Lists vehicles with their revenue, cost and profit metrics ordered by profit
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/reports/vehicle-profitability [get]
func (h *ReportHandler) GetVehicleProfitability(c *gin.Context) {
	p := pagination.Parse(c)

	rows, total, err := h.reportingService.GetVehicleProfitability(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"vehicles": rows,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// GetProfitStatistics aggregates finalized-invoice profit over time
// @Summary      Profit statistics report
// @Description  Aggregates revenue, cost and profit of finalized invoices grouped by period
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        group_by    query     string  false  "Grouping period: week, month, quarter or year (default month)"
// @Param        start_date  query     string  false  "Start of the reporting window (RFC3339)"
// @Param        end_date    query     string  false  "End of the reporting window (RFC3339)"
// @Success      200         {object}  response.Response{data=[]service.ProfitPeriodPoint}
// @Failure      400         {object}  response.Response
// @Router       /api/reports/profit-statistics [get]
func (h *ReportHandler) GetProfitStatistics(c *gin.Context) {
	filter := service.ProfitFilter{
		GroupBy:   c.DefaultQuery("group_by", "month"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	points, err := h.reportingService.GetProfitStatistics(c.Request.Context(), filter)
	if err != nil {
		status := apperr.StatusCode(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}
