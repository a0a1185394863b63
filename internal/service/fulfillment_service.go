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

type FulfillRequestDTO struct {
	Location string `json:"location"` // defaults to the main showroom
}

type FulfillmentResponse struct {
	RequestID   string    `json:"request_id"`
	RequestCode string    `json:"request_code"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	FulfilledBy string    `json:"fulfilled_by"`
	FulfilledAt time.Time `json:"fulfilled_at"`
	// AlreadyFulfilled is true when the request had been fulfilled before and
	// this call changed nothing.
	AlreadyFulfilled bool                  `json:"already_fulfilled"`
	Credited         []StockCreditResponse `json:"credited"`
}

type StockCreditResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	StockAfter  int    `json:"stock_after"`
}

// --- Interface ---

type FulfillmentService interface {
	// Fulfill transfers an approved request's quantities into inventory and
	// marks the request COMPLETED. Calling it again for the same request is a
	// no-op that reports AlreadyFulfilled instead of double-crediting stock.
	Fulfill(ctx context.Context, actor Actor, requestID string, req FulfillRequestDTO) (FulfillmentResponse, error)
}

type fulfillmentService struct {
	txManager    repository.TransactionManager
	requestRepo  repository.RequestRepository
	activityRepo repository.ActivityRepository
	ledger       stockLedger
	hub          *ws.Hub
	log          *zap.Logger
}

func NewFulfillmentService(
	txManager repository.TransactionManager,
	requestRepo repository.RequestRepository,
	inventoryRepo repository.InventoryRepository,
	activityRepo repository.ActivityRepository,
	hub *ws.Hub,
	log *zap.Logger,
) FulfillmentService {
	return &fulfillmentService{
		txManager:    txManager,
		requestRepo:  requestRepo,
		activityRepo: activityRepo,
		ledger:       stockLedger{inventoryRepo: inventoryRepo},
		hub:          hub,
		log:          log,
	}
}

// --- Implementation ---

func (s *fulfillmentService) Fulfill(ctx context.Context, actor Actor, requestID string, req FulfillRequestDTO) (FulfillmentResponse, error) {
	if !authz.CanFulfill(actor.Role) {
		return FulfillmentResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "fulfill product requests"}
	}
	id, err := uuid.Parse(requestID)
	if err != nil {
		return FulfillmentResponse{}, apperr.Validation("id", "invalid uuid")
	}
	location := req.Location
	if location == "" {
		location = model.DefaultLocation
	}

	var resp FulfillmentResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock keeps a racing second fulfiller waiting until this one
		// commits, after which the FulfilledAt marker turns it away.
		request, err := s.requestRepo.FindByIDForUpdate(txCtx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}

		if request.FulfilledAt != nil {
			resp = FulfillmentResponse{
				RequestID:        request.ID.String(),
				RequestCode:      request.RequestCode,
				Status:           request.Status,
				FulfilledBy:      request.FulfilledBy.String(),
				FulfilledAt:      *request.FulfilledAt,
				AlreadyFulfilled: true,
				Credited:         []StockCreditResponse{},
			}
			return nil
		}
		if request.Status != model.RequestStatusApproved {
			return &apperr.InvalidStateError{
				Entity:   "request " + request.RequestCode,
				Current:  request.Status,
				Expected: model.RequestStatusApproved,
			}
		}

		credited := make([]StockCreditResponse, 0, len(request.Items))
		for _, item := range request.Items {
			reqID := request.ID
			rec, err := s.ledger.applyDelta(txCtx, item.ProductID, item.ProductName, location, item.Quantity, model.MovementTransferIn, &reqID, nil)
			if err != nil {
				return err
			}
			credited = append(credited, StockCreditResponse{
				ProductID:   item.ProductID.String(),
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				StockAfter:  rec.UnitsInStock,
			})
		}

		now := time.Now()
		rows, err := s.requestRepo.MarkFulfilled(txCtx, request.ID, actor.ID, now)
		if err != nil {
			return fmt.Errorf("failed to mark request fulfilled: %w", err)
		}
		if rows == 0 {
			return &apperr.InvalidStateError{
				Entity:   "request " + request.RequestCode,
				Current:  request.Status,
				Expected: model.RequestStatusApproved,
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"location":   location,
			"item_count": len(request.Items),
		})
		entry := model.ActivityLog{
			Type:       model.ActivityRequestFulfilled,
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

		resp = FulfillmentResponse{
			RequestID:   request.ID.String(),
			RequestCode: request.RequestCode,
			Status:      model.RequestStatusCompleted,
			Location:    location,
			FulfilledBy: actor.ID.String(),
			FulfilledAt: now,
			Credited:    credited,
		}
		return nil
	})
	if err != nil {
		return FulfillmentResponse{}, err
	}

	if resp.AlreadyFulfilled {
		s.log.Info("fulfillment retried on already-fulfilled request",
			zap.String("request_code", resp.RequestCode))
		return resp, nil
	}

	s.log.Info("request fulfilled into inventory",
		zap.String("request_code", resp.RequestCode),
		zap.String("location", resp.Location),
		zap.Int("lines", len(resp.Credited)))

	s.hub.Publish(ws.EventRequestChanged, map[string]interface{}{
		"id":     resp.RequestID,
		"code":   resp.RequestCode,
		"status": resp.Status,
	})
	s.hub.Publish(ws.EventStockChanged, map[string]interface{}{
		"location": resp.Location,
		"credited": resp.Credited,
	})

	return resp, nil
}
