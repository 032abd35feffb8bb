package service

import (
	"context"
	"fmt"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"

	"gorm.io/gorm"
)

// --- DTOs ---

type VehicleProfitRow struct {
	VehicleID    string `json:"vehicle_id"`
	ChassisNo    string `json:"chassis_no"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	InvoiceNo    string `json:"invoice_no"`
	TotalRevenue string `json:"total_revenue"`
	TotalCost    string `json:"total_cost"`
	Profit       string `json:"profit"`
	Margin       string `json:"margin"`
	ROI          string `json:"roi"`
}

type ProfitPeriodPoint struct {
	Period       string `json:"period"`
	TotalRevenue string `json:"total_revenue"`
	TotalCost    string `json:"total_cost"`
	Profit       string `json:"profit"`
	InvoiceCount int64  `json:"invoice_count"`
}

type ProfitFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate string // RFC3339
	EndDate   string // RFC3339
}

// --- Interface ---

// ReportingService reads the cost aggregates directly for dashboards.
// It never writes, so it runs straight SQL against the root connection.
type ReportingService interface {
	GetVehicleProfitability(ctx context.Context, page, limit int) ([]VehicleProfitRow, int64, error)
	GetProfitStatistics(ctx context.Context, filter ProfitFilter) ([]ProfitPeriodPoint, error)
}

type reportingService struct {
	db *gorm.DB
}

func NewReportingService(db *gorm.DB) ReportingService {
	return &reportingService{db: db}
}

// --- Implementation ---

func (s *reportingService) GetVehicleProfitability(ctx context.Context, page, limit int) ([]VehicleProfitRow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM cost_invoices ci
		JOIN invoices i ON i.id = ci.invoice_id
		JOIN vehicles v ON v.id = i.vehicle_id
		WHERE v.deleted_at IS NULL
	`
	if err := s.db.WithContext(ctx).Raw(countQuery).Scan(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count profitability rows: %w", err)
	}

	query := `
		SELECT
			v.id AS vehicle_id,
			v.chassis_no,
			v.make,
			v.model,
			i.invoice_no,
			ci.total_revenue,
			ci.total_cost,
			ci.profit,
			ci.margin,
			ci.roi
		FROM cost_invoices ci
		JOIN invoices i ON i.id = ci.invoice_id
		JOIN vehicles v ON v.id = i.vehicle_id
		WHERE v.deleted_at IS NULL
		ORDER BY ci.profit DESC
		LIMIT $1 OFFSET $2
	`

	type rawResult struct {
		VehicleID    string  `gorm:"column:vehicle_id"`
		ChassisNo    string  `gorm:"column:chassis_no"`
		Make         string  `gorm:"column:make"`
		Model        string  `gorm:"column:model"`
		InvoiceNo    string  `gorm:"column:invoice_no"`
		TotalRevenue float64 `gorm:"column:total_revenue"`
		TotalCost    float64 `gorm:"column:total_cost"`
		Profit       float64 `gorm:"column:profit"`
		Margin       float64 `gorm:"column:margin"`
		ROI          float64 `gorm:"column:roi"`
	}

	var rows []rawResult
	offset := (page - 1) * limit
	if err := s.db.WithContext(ctx).Raw(query, limit, offset).Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query vehicle profitability: %w", err)
	}

	result := make([]VehicleProfitRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, VehicleProfitRow{
			VehicleID:    r.VehicleID,
			ChassisNo:    r.ChassisNo,
			Make:         r.Make,
			Model:        r.Model,
			InvoiceNo:    r.InvoiceNo,
			TotalRevenue: fmt.Sprintf("%.2f", r.TotalRevenue),
			TotalCost:    fmt.Sprintf("%.2f", r.TotalCost),
			Profit:       fmt.Sprintf("%.2f", r.Profit),
			Margin:       fmt.Sprintf("%.2f", r.Margin),
			ROI:          fmt.Sprintf("%.2f", r.ROI),
		})
	}

	return result, total, nil
}

func (s *reportingService) GetProfitStatistics(ctx context.Context, filter ProfitFilter) ([]ProfitPeriodPoint, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
		// valid
	default:
		groupBy = "month"
	}

	// Only finalized invoices count toward period statistics
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, i.created_at), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(ci.total_revenue), 0) AS total_revenue,
			COALESCE(SUM(ci.total_cost), 0) AS total_cost,
			COALESCE(SUM(ci.profit), 0) AS profit,
			COUNT(i.id) AS invoice_count
		FROM invoices i
		JOIN cost_invoices ci ON ci.invoice_id = i.id
		WHERE i.status = $4
		  AND i.created_at >= $2::timestamptz
		  AND i.created_at <= $3::timestamptz
		GROUP BY DATE_TRUNC($1, i.created_at)
		ORDER BY period
	`

	type rawResult struct {
		Period       string  `gorm:"column:period"`
		TotalRevenue float64 `gorm:"column:total_revenue"`
		TotalCost    float64 `gorm:"column:total_cost"`
		Profit       float64 `gorm:"column:profit"`
		InvoiceCount int64   `gorm:"column:invoice_count"`
	}

	var rows []rawResult
	if err := s.db.WithContext(ctx).Raw(query,
		groupBy,
		filter.StartDate,
		filter.EndDate,
		model.InvoiceFinalized,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query profit statistics: %w", err)
	}

	result := make([]ProfitPeriodPoint, 0, len(rows))
	for _, r := range rows {
		result = append(result, ProfitPeriodPoint{
			Period:       r.Period,
			TotalRevenue: fmt.Sprintf("%.2f", r.TotalRevenue),
			TotalCost:    fmt.Sprintf("%.2f", r.TotalCost),
			Profit:       fmt.Sprintf("%.2f", r.Profit),
			InvoiceCount: r.InvoiceCount,
		})
	}

	return result, nil
}
