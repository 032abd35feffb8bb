package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/SpaceKap/zervtek-crm-sub003/internal/model"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Address DTO ---

type AddressPayload struct {
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type AddressResponse struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	AddressType string    `json:"address_type"`
	FullAddress string    `json:"full_address"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Customer DTOs ---

type CreateCustomerRequest struct {
	Name           string           `json:"name" binding:"required"`
	Type           string           `json:"type" binding:"required"`
	CompanyName    string           `json:"company_name"`
	Country        string           `json:"country"`
	ContactPerson  string           `json:"contact_person"`
	Phone          string           `json:"phone"`
	Email          string           `json:"email"`
	WalletCurrency string           `json:"wallet_currency"`
	Addresses      []AddressPayload `json:"addresses"`
}

type UpdateCustomerRequest struct {
	Name           *string           `json:"name"`
	Type           *string           `json:"type"`
	CompanyName    *string           `json:"company_name"`
	Country        *string           `json:"country"`
	ContactPerson  *string           `json:"contact_person"`
	Phone          *string           `json:"phone"`
	Email          *string           `json:"email"`
	WalletCurrency *string           `json:"wallet_currency"`
	IsActive       *bool             `json:"is_active"`
	Addresses      *[]AddressPayload `json:"addresses"` // pointer so nil = not sent, [] = clear all
}

type CustomerResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	CompanyName    string            `json:"company_name"`
	Country        string            `json:"country"`
	ContactPerson  string            `json:"contact_person"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"`
	WalletCurrency string            `json:"wallet_currency"`
	IsActive       bool              `json:"is_active"`
	Addresses      []AddressResponse `json:"addresses"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
	GetCustomers(ctx context.Context, page, limit int) ([]CustomerResponse, int64, error)
}

// --- Implementation ---

type customerService struct {
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{customerRepo: customerRepo, txManager: txManager}
}

// --- Validation helpers ---

var validCustomerTypes = map[string]bool{
	model.CustomerTypeIndividual: true,
	model.CustomerTypeDealer:     true,
}

var validAddressTypes = map[string]bool{
	model.AddressTypeBilling:  true,
	model.AddressTypeShipping: true,
}

func validateAddresses(addresses []AddressPayload) error {
	for i, addr := range addresses {
		if !validAddressTypes[addr.AddressType] {
			return apperr.NewValidation("addresses", fmt.Sprintf("addresses[%d]: address_type must be BILLING or SHIPPING", i))
		}
		if addr.FullAddress == "" {
			return apperr.NewValidation("addresses", fmt.Sprintf("addresses[%d]: full_address is required", i))
		}
	}
	return nil
}

func toAddressModels(customerID uuid.UUID, payloads []AddressPayload) []model.CustomerAddress {
	addresses := make([]model.CustomerAddress, 0, len(payloads))
	for _, p := range payloads {
		addresses = append(addresses, model.CustomerAddress{
			CustomerID:  customerID,
			AddressType: p.AddressType,
			FullAddress: p.FullAddress,
			IsDefault:   p.IsDefault,
		})
	}
	return addresses
}

// --- CRUD ---

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error) {
	if req.Name == "" {
		return CustomerResponse{}, apperr.NewValidation("name", "is required")
	}
	if !validCustomerTypes[req.Type] {
		return CustomerResponse{}, apperr.NewValidation("type", "must be INDIVIDUAL or DEALER")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return CustomerResponse{}, apperr.NewValidation("email", "invalid email format")
		}
	}
	if err := validateAddresses(req.Addresses); err != nil {
		return CustomerResponse{}, err
	}

	walletCurrency := req.WalletCurrency
	if walletCurrency == "" {
		walletCurrency = "JPY"
	}

	customer := &model.Customer{
		Name:           req.Name,
		Type:           req.Type,
		CompanyName:    req.CompanyName,
		Country:        req.Country,
		ContactPerson:  req.ContactPerson,
		Phone:          req.Phone,
		Email:          req.Email,
		WalletCurrency: walletCurrency,
		IsActive:       true,
		Addresses:      toAddressModels(uuid.Nil, req.Addresses), // GORM fills CustomerID on cascade create
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to create customer: %w", err)
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
	}
	customer, err := s.customerRepo.FindByIDWithAddresses(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, apperr.NewNotFound("customer", id)
		}
		return CustomerResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (CustomerResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.NewValidation("customer_id", "must be a valid uuid")
	}

	customer, err := s.customerRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, apperr.NewNotFound("customer", id)
		}
		return CustomerResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return CustomerResponse{}, apperr.NewValidation("name", "cannot be empty")
		}
		customer.Name = *req.Name
	}
	if req.Type != nil {
		if !validCustomerTypes[*req.Type] {
			return CustomerResponse{}, apperr.NewValidation("type", "must be INDIVIDUAL or DEALER")
		}
		customer.Type = *req.Type
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return CustomerResponse{}, apperr.NewValidation("email", "invalid email format")
		}
		customer.Email = *req.Email
	} else if req.Email != nil {
		customer.Email = ""
	}
	if req.CompanyName != nil {
		customer.CompanyName = *req.CompanyName
	}
	if req.Country != nil {
		customer.Country = *req.Country
	}
	if req.ContactPerson != nil {
		customer.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.WalletCurrency != nil && *req.WalletCurrency != "" {
		customer.WalletCurrency = *req.WalletCurrency
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if req.Addresses != nil {
		if err := validateAddresses(*req.Addresses); err != nil {
			return CustomerResponse{}, err
		}
	}

	// Update + address replacement in one transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}

		// Replace addresses if provided (delete-all + re-create strategy)
		if req.Addresses != nil {
			if err := s.customerRepo.DeleteAddresses(txCtx, uid); err != nil {
				return fmt.Errorf("failed to delete old addresses: %w", err)
			}
			newAddrs := toAddressModels(uid, *req.Addresses)
			for i := range newAddrs {
				if err := s.customerRepo.CreateAddress(txCtx, &newAddrs[i]); err != nil {
					return fmt.Errorf("failed to create address: %w", err)
				}
			}
			customer.Addresses = newAddrs
		}

		return nil
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewValidation("customer_id", "must be a valid uuid")
	}
	return s.customerRepo.Delete(ctx, uid)
}

func (s *customerService) GetCustomers(ctx context.Context, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	res := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		res = append(res, toCustomerResponse(c))
	}

	return res, total, nil
}

// --- Response mappers ---

func toCustomerResponse(c model.Customer) CustomerResponse {
	addresses := make([]AddressResponse, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, AddressResponse{
			ID:          a.ID,
			CustomerID:  a.CustomerID,
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			IsDefault:   a.IsDefault,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}

	return CustomerResponse{
		ID:             c.ID,
		Name:           c.Name,
		Type:           c.Type,
		CompanyName:    c.CompanyName,
		Country:        c.Country,
		ContactPerson:  c.ContactPerson,
		Phone:          c.Phone,
		Email:          c.Email,
		WalletCurrency: c.WalletCurrency,
		IsActive:       c.IsActive,
		Addresses:      addresses,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
