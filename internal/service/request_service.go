package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saleshub/internal/apperr"
	"saleshub/internal/authz"
	"saleshub/internal/model"
	"saleshub/internal/repository"
	ws "saleshub/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type RequestItemDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Urgency   string `json:"urgency" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

type CreateRequestDTO struct {
	Items    []RequestItemDTO `json:"items" binding:"required"`
	Priority string           `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Notes    string           `json:"notes"`
}

type RequestFilter struct {
	Status string // PENDING, APPROVED, REJECTED, COMPLETED or empty for all
	Page   int
	Limit  int
}

type RejectRequestDTO struct {
	Reason string `json:"reason" binding:"required"`
}

type ApproveRequestDTO struct {
	Notes string `json:"notes"`
}

type RequestItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	Urgency     string `json:"urgency"`
}

type RequestResponse struct {
	ID              string                `json:"id"`
	RequestCode     string                `json:"request_code"`
	RequestedBy     string                `json:"requested_by"`
	RequestedByName string                `json:"requested_by_name"`
	RequestedByRole string                `json:"requested_by_role"`
	Items           []RequestItemResponse `json:"items"`
	Status          string                `json:"status"`
	Priority        string                `json:"priority"`
	Notes           string                `json:"notes"`
	ApprovedBy      *string               `json:"approved_by"`
	ApprovedAt      *string               `json:"approved_at"`
	ApprovalNotes   string                `json:"approval_notes,omitempty"`
	RejectedBy      *string               `json:"rejected_by"`
	RejectedAt      *string               `json:"rejected_at"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	FulfilledBy     *string               `json:"fulfilled_by"`
	FulfilledAt     *string               `json:"fulfilled_at"`
	CreatedAt       string                `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error)
	ListRequests(ctx context.Context, actor Actor, filter RequestFilter) ([]RequestResponse, int64, error)
	GetRequest(ctx context.Context, actor Actor, id string) (RequestResponse, error)
	ApproveRequest(ctx context.Context, actor Actor, id string, notes string) (RequestResponse, error)
	RejectRequest(ctx context.Context, actor Actor, id string, reason string) (RequestResponse, error)
}

type requestService struct {
	db           *gorm.DB
	txManager    repository.TransactionManager
	requestRepo  repository.RequestRepository
	productRepo  repository.ProductRepository
	activityRepo repository.ActivityRepository
	hub          *ws.Hub
	log          *zap.Logger
}

func NewRequestService(
	db *gorm.DB,
	txManager repository.TransactionManager,
	requestRepo repository.RequestRepository,
	productRepo repository.ProductRepository,
	activityRepo repository.ActivityRepository,
	hub *ws.Hub,
	log *zap.Logger,
) RequestService {
	return &requestService{
		db:           db,
		txManager:    txManager,
		requestRepo:  requestRepo,
		productRepo:  productRepo,
		activityRepo: activityRepo,
		hub:          hub,
		log:          log,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error) {
	if !authz.CanRequest(actor.Role) {
		return RequestResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "create product requests"}
	}
	if len(req.Items) == 0 {
		return RequestResponse{}, apperr.Validation("items", "at least one item is required")
	}
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}

	// Resolve every line against the catalog before writing anything, so a
	// bad line rejects the whole request.
	items := make([]model.RequestItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return RequestResponse{}, apperr.Validation(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return RequestResponse{}, apperr.Validation(fmt.Sprintf("items[%d].product_id", i), "invalid uuid")
		}
		product, err := s.productRepo.FindByID(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, fmt.Errorf("product %s: %w", item.ProductID, apperr.ErrNotFound)
		} else if err != nil {
			return RequestResponse{}, fmt.Errorf("failed to look up product: %w", err)
		}
		if !product.Active {
			return RequestResponse{}, apperr.Validation(fmt.Sprintf("items[%d].product_id", i), "product is inactive")
		}
		urgency := item.Urgency
		if urgency == "" {
			urgency = model.PriorityNormal
		}
		items = append(items, model.RequestItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Unit:        product.Unit,
			Urgency:     urgency,
		})
	}

	request := model.ProductRequest{
		RequestedBy:     actor.ID,
		RequestedByName: actor.DisplayName,
		RequestedByRole: actor.Role,
		Status:          model.RequestStatusPending,
		Priority:        req.Priority,
		Notes:           req.Notes,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		code, err := nextCode(repository.GetDB(txCtx, s.db), "REQ", func(prefix string) (int64, error) {
			return s.requestRepo.CountByPrefix(txCtx, prefix)
		})
		if err != nil {
			return fmt.Errorf("failed to generate request code: %w", err)
		}
		request.RequestCode = code

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		for i := range items {
			items[i].RequestID = request.ID
			if err := s.requestRepo.CreateItem(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to create request item: %w", err)
			}
		}
		request.Items = items

		return s.logActivity(txCtx, actor, model.ActivityRequestCreated, &request, map[string]interface{}{
			"priority":   request.Priority,
			"item_count": len(items),
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.log.Info("product request created",
		zap.String("request_code", request.RequestCode),
		zap.String("requested_by", actor.ID.String()),
		zap.Int("items", len(items)))

	s.hub.Publish(ws.EventRequestChanged, map[string]interface{}{
		"id":     request.ID.String(),
		"code":   request.RequestCode,
		"status": request.Status,
	})

	return toRequestResponse(&request), nil
}

func (s *requestService) ListRequests(ctx context.Context, actor Actor, filter RequestFilter) ([]RequestResponse, int64, error) {
	repoFilter := repository.RequestListFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	// Requesters only see their own queue; approver roles see everything.
	if !authz.CanApprove(actor.Role) {
		id := actor.ID
		repoFilter.RequestedBy = &id
	}

	requests, total, err := s.requestRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}

	responses := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		responses = append(responses, toRequestResponse(&requests[i]))
	}
	return responses, total, nil
}

func (s *requestService) GetRequest(ctx context.Context, actor Actor, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperr.Validation("id", "invalid uuid")
	}
	request, err := s.requestRepo.FindByIDWithItems(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RequestResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return RequestResponse{}, fmt.Errorf("failed to load request: %w", err)
	}
	if !authz.CanApprove(actor.Role) && request.RequestedBy != actor.ID {
		return RequestResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "view requests raised by others"}
	}
	return toRequestResponse(request), nil
}

func (s *requestService) ApproveRequest(ctx context.Context, actor Actor, id string, notes string) (RequestResponse, error) {
	return s.transition(ctx, actor, id, model.RequestStatusApproved, notes)
}

func (s *requestService) RejectRequest(ctx context.Context, actor Actor, id string, reason string) (RequestResponse, error) {
	if reason == "" {
		return RequestResponse{}, apperr.Validation("reason", "rejection reason is required")
	}
	return s.transition(ctx, actor, id, model.RequestStatusRejected, reason)
}

// transition flips a PENDING request to APPROVED or REJECTED. The status
// column is the guard: the conditional update matches only while the row is
// still PENDING, so two racing approvers cannot both win.
func (s *requestService) transition(ctx context.Context, actor Actor, id, newStatus, note string) (RequestResponse, error) {
	if !authz.CanApprove(actor.Role) {
		return RequestResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "approve or reject requests"}
	}
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperr.Validation("id", "invalid uuid")
	}

	var request *model.ProductRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err = s.requestRepo.FindByID(txCtx, requestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}
		if request.RequestedBy == actor.ID {
			return apperr.Validation("id", "a request cannot be approved or rejected by its requester")
		}

		now := time.Now()
		rows, err := s.requestRepo.Transition(txCtx, requestID, repository.TransitionFields{
			Status: newStatus,
			ByID:   actor.ID,
			At:     now,
			Note:   note,
		})
		if err != nil {
			return fmt.Errorf("failed to transition request: %w", err)
		}
		if rows == 0 {
			// Someone else already decided it. Re-read for the real status.
			current, readErr := s.requestRepo.FindByID(txCtx, requestID)
			currentStatus := "unknown"
			if readErr == nil {
				currentStatus = current.Status
			}
			return &apperr.InvalidStateError{
				Entity:   "request " + request.RequestCode,
				Current:  currentStatus,
				Expected: model.RequestStatusPending,
			}
		}

		request.Status = newStatus
		if newStatus == model.RequestStatusApproved {
			request.ApprovedBy = &actor.ID
			request.ApprovedAt = &now
			request.ApprovalNotes = note
		} else {
			request.RejectedBy = &actor.ID
			request.RejectedAt = &now
			request.RejectionReason = note
		}

		activityType := model.ActivityRequestApproved
		if newStatus == model.RequestStatusRejected {
			activityType = model.ActivityRequestRejected
		}
		return s.logActivity(txCtx, actor, activityType, request, map[string]interface{}{
			"note": note,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.log.Info("product request transitioned",
		zap.String("request_code", request.RequestCode),
		zap.String("status", newStatus),
		zap.String("decided_by", actor.ID.String()))

	s.hub.Publish(ws.EventRequestChanged, map[string]interface{}{
		"id":     request.ID.String(),
		"code":   request.RequestCode,
		"status": newStatus,
	})

	return toRequestResponse(request), nil
}

func (s *requestService) logActivity(txCtx context.Context, actor Actor, activityType string, request *model.ProductRequest, extra map[string]interface{}) error {
	details, _ := json.Marshal(extra)
	entry := model.ActivityLog{
		Type:       activityType,
		ActorID:    &actor.ID,
		ActorName:  actor.DisplayName,
		ActorRole:  actor.Role,
		EntityID:   request.ID.String(),
		EntityName: request.RequestCode,
		Details:    string(details),
	}
	if err := s.activityRepo.Log(txCtx, &entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

// --- Helpers ---

func toRequestResponse(r *model.ProductRequest) RequestResponse {
	items := make([]RequestItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, RequestItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Urgency:     item.Urgency,
		})
	}
	return RequestResponse{
		ID:              r.ID.String(),
		RequestCode:     r.RequestCode,
		RequestedBy:     r.RequestedBy.String(),
		RequestedByName: r.RequestedByName,
		RequestedByRole: r.RequestedByRole,
		Items:           items,
		Status:          r.Status,
		Priority:        r.Priority,
		Notes:           r.Notes,
		ApprovedBy:      uuidPtrString(r.ApprovedBy),
		ApprovedAt:      timePtrString(r.ApprovedAt),
		ApprovalNotes:   r.ApprovalNotes,
		RejectedBy:      uuidPtrString(r.RejectedBy),
		RejectedAt:      timePtrString(r.RejectedAt),
		RejectionReason: r.RejectionReason,
		FulfilledBy:     uuidPtrString(r.FulfilledBy),
		FulfilledAt:     timePtrString(r.FulfilledAt),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func timePtrString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
