package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saleshub/internal/apperr"
	"saleshub/internal/model"
	"saleshub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateCustomerDTO struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email" binding:"omitempty,email"`
}

type UpdateCustomerDTO struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Email   *string `json:"email" binding:"omitempty,email"`
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, actor Actor, req CreateCustomerDTO) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, actor Actor, id string, req UpdateCustomerDTO) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, actor Actor, id string) error
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	ListCustomers(ctx context.Context, page, limit int, search string) ([]CustomerResponse, int64, error)
}

type customerService struct {
	txManager    repository.TransactionManager
	customerRepo repository.CustomerRepository
	activityRepo repository.ActivityRepository
	log          *zap.Logger
}

func NewCustomerService(
	txManager repository.TransactionManager,
	customerRepo repository.CustomerRepository,
	activityRepo repository.ActivityRepository,
	log *zap.Logger,
) CustomerService {
	return &customerService{
		txManager:    txManager,
		customerRepo: customerRepo,
		activityRepo: activityRepo,
		log:          log,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, actor Actor, req CreateCustomerDTO) (CustomerResponse, error) {
	customer := model.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Email:   req.Email,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return s.logActivity(txCtx, actor, model.ActivityCustomerCreated, &customer, nil)
	})
	if err != nil {
		return CustomerResponse{}, err
	}
	s.log.Info("customer created", zap.String("name", customer.Name))
	return toCustomerResponse(&customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, actor Actor, id string, req UpdateCustomerDTO) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.Validation("id", "invalid uuid")
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CustomerResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		customer.Name = *req.Name
		changes["name"] = *req.Name
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
		changes["phone"] = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
		changes["address"] = *req.Address
	}
	if req.Email != nil {
		customer.Email = *req.Email
		changes["email"] = *req.Email
	}
	if len(changes) == 0 {
		return toCustomerResponse(customer), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return s.logActivity(txCtx, actor, model.ActivityCustomerUpdated, customer, changes)
	})
	if err != nil {
		return CustomerResponse{}, err
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, actor Actor, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validation("id", "invalid uuid")
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Delete(txCtx, customerID); err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		return s.logActivity(txCtx, actor, model.ActivityCustomerDeleted, customer, nil)
	})
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.Validation("id", "invalid uuid")
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CustomerResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, page, limit int, search string) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	responses := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, toCustomerResponse(&customers[i]))
	}
	return responses, total, nil
}

func (s *customerService) logActivity(txCtx context.Context, actor Actor, activityType string, customer *model.Customer, extra map[string]interface{}) error {
	details, _ := json.Marshal(extra)
	entry := model.ActivityLog{
		Type:       activityType,
		ActorID:    &actor.ID,
		ActorName:  actor.DisplayName,
		ActorRole:  actor.Role,
		EntityID:   customer.ID.String(),
		EntityName: customer.Name,
		Details:    string(details),
	}
	if err := s.activityRepo.Log(txCtx, &entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

func toCustomerResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		Email:     c.Email,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
