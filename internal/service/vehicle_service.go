package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateVehicleRequest struct {
	ChassisNo     string `json:"chassis_no" binding:"required"`
	Make          string `json:"make" binding:"required"`
	Model         string `json:"model" binding:"required"`
	Year          int    `json:"year"`
	Mileage       int    `json:"mileage"`
	PurchasePrice string `json:"purchase_price"`
	CustomerID    string `json:"customer_id"`
	Note          string `json:"note"`
}

type UpdateVehicleRequest struct {
	Make          *string `json:"make"`
	Model         *string `json:"model"`
	Year          *int    `json:"year"`
	Mileage       *int    `json:"mileage"`
	PurchasePrice *string `json:"purchase_price"`
	ShippingStage *string `json:"shipping_stage"`
	CustomerID    *string `json:"customer_id"`
	Note          *string `json:"note"`
}

type VehicleResponse struct {
	ID            string  `json:"id"`
	ChassisNo     string  `json:"chassis_no"`
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	Mileage       int     `json:"mileage"`
	PurchasePrice string  `json:"purchase_price"`
	ShippingStage string  `json:"shipping_stage"`
	CustomerID    *string `json:"customer_id"`
	Note          string  `json:"note"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// --- Interface ---

type VehicleService interface {
	CreateVehicle(ctx context.Context, req CreateVehicleRequest) (VehicleResponse, error)
	GetVehicle(ctx context.Context, id string) (VehicleResponse, error)
	UpdateVehicle(ctx context.Context, id string, req UpdateVehicleRequest) (VehicleResponse, error)
	DeleteVehicle(ctx context.Context, id string) error
	GetVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error)
}

// --- Implementation ---

type vehicleService struct {
	vehicleRepo  repository.VehicleRepository
	customerRepo repository.CustomerRepository
}

func NewVehicleService(vehicleRepo repository.VehicleRepository, customerRepo repository.CustomerRepository) VehicleService {
	return &vehicleService{vehicleRepo: vehicleRepo, customerRepo: customerRepo}
}

var validShippingStages = map[string]bool{
	model.StagePurchased:       true,
	model.StageInlandTransport: true,
	model.StageAtPort:          true,
	model.StageShipped:         true,
	model.StageDelivered:       true,
}

func (s *vehicleService) CreateVehicle(ctx context.Context, req CreateVehicleRequest) (VehicleResponse, error) {
	if req.ChassisNo == "" {
		return VehicleResponse{}, apperr.NewValidation("chassis_no", "is required")
	}

	if existing, err := s.vehicleRepo.FindByChassisNo(ctx, req.ChassisNo); err == nil && existing != nil {
		return VehicleResponse{}, apperr.NewConflict(fmt.Sprintf("vehicle with chassis number %s already exists", req.ChassisNo))
	}

	purchasePrice := decimal.Zero
	if req.PurchasePrice != "" {
		parsed, err := decimal.NewFromString(req.PurchasePrice)
		if err != nil {
			return VehicleResponse{}, apperr.NewValidation("purchase_price", "must be a decimal number")
		}
		purchasePrice = parsed
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return VehicleResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
		}
		if _, err := s.customerRepo.FindByID(ctx, parsed); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return VehicleResponse{}, apperr.NewNotFound("customer", req.CustomerID)
			}
			return VehicleResponse{}, fmt.Errorf("failed to load customer: %w", err)
		}
		customerID = &parsed
	}

	vehicle := &model.Vehicle{
		ChassisNo:     req.ChassisNo,
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		Mileage:       req.Mileage,
		PurchasePrice: purchasePrice,
		ShippingStage: model.StagePurchased,
		CustomerID:    customerID,
		Note:          req.Note,
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return VehicleResponse{}, fmt.Errorf("failed to create vehicle: %w", err)
	}

	return toVehicleResponse(*vehicle), nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id string) (VehicleResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return VehicleResponse{}, apperr.NewValidation("vehicle_id", "must be a valid uuid")
	}
	vehicle, err := s.vehicleRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VehicleResponse{}, apperr.NewNotFound("vehicle", id)
		}
		return VehicleResponse{}, fmt.Errorf("failed to load vehicle: %w", err)
	}
	return toVehicleResponse(*vehicle), nil
}

func (s *vehicleService) UpdateVehicle(ctx context.Context, id string, req UpdateVehicleRequest) (VehicleResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return VehicleResponse{}, apperr.NewValidation("vehicle_id", "must be a valid uuid")
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VehicleResponse{}, apperr.NewNotFound("vehicle", id)
		}
		return VehicleResponse{}, fmt.Errorf("failed to load vehicle: %w", err)
	}

	if req.Make != nil {
		vehicle.Make = *req.Make
	}
	if req.Model != nil {
		vehicle.Model = *req.Model
	}
	if req.Year != nil {
		vehicle.Year = *req.Year
	}
	if req.Mileage != nil {
		vehicle.Mileage = *req.Mileage
	}
	if req.PurchasePrice != nil {
		parsed, parseErr := decimal.NewFromString(*req.PurchasePrice)
		if parseErr != nil {
			return VehicleResponse{}, apperr.NewValidation("purchase_price", "must be a decimal number")
		}
		vehicle.PurchasePrice = parsed
	}
	if req.ShippingStage != nil {
		if !validShippingStages[*req.ShippingStage] {
			return VehicleResponse{}, apperr.NewValidation("shipping_stage", "must be PURCHASED, INLAND_TRANSPORT, AT_PORT, SHIPPED or DELIVERED")
		}
		vehicle.ShippingStage = *req.ShippingStage
	}
	if req.CustomerID != nil {
		if *req.CustomerID == "" {
			vehicle.CustomerID = nil
		} else {
			parsed, parseErr := uuid.Parse(*req.CustomerID)
			if parseErr != nil {
				return VehicleResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
			}
			if _, findErr := s.customerRepo.FindByID(ctx, parsed); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return VehicleResponse{}, apperr.NewNotFound("customer", *req.CustomerID)
				}
				return VehicleResponse{}, fmt.Errorf("failed to load customer: %w", findErr)
			}
			vehicle.CustomerID = &parsed
		}
	}
	if req.Note != nil {
		vehicle.Note = *req.Note
	}

	if err := s.vehicleRepo.Update(ctx, vehicle); err != nil {
		return VehicleResponse{}, fmt.Errorf("failed to update vehicle: %w", err)
	}

	return toVehicleResponse(*vehicle), nil
}

func (s *vehicleService) DeleteVehicle(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewValidation("vehicle_id", "must be a valid uuid")
	}
	return s.vehicleRepo.Delete(ctx, uid)
}

func (s *vehicleService) GetVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error) {
	vehicles, total, err := s.vehicleRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	res := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		res = append(res, toVehicleResponse(v))
	}
	return res, total, nil
}

func toVehicleResponse(v model.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:            v.ID.String(),
		ChassisNo:     v.ChassisNo,
		Make:          v.Make,
		Model:         v.Model,
		Year:          v.Year,
		Mileage:       v.Mileage,
		PurchasePrice: v.PurchasePrice.StringFixed(2),
		ShippingStage: v.ShippingStage,
		Note:          v.Note,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     v.UpdatedAt.Format(time.RFC3339),
	}
	if v.CustomerID != nil {
		s := v.CustomerID.String()
		resp.CustomerID = &s
	}
	return resp
}
