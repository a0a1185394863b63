package repository

import (
	"context"
	"time"

	"saleshub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestListFilter narrows a request listing.
type RequestListFilter struct {
	Status      string
	RequestedBy *uuid.UUID
	Role        string // requester role scope for approvers
	Page        int
	Limit       int
}

// TransitionFields carries the approver-side fields written exactly once at
// the PENDING -> APPROVED/REJECTED transition.
type TransitionFields struct {
	Status string
	ByID   uuid.UUID
	At     time.Time
	Note   string
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.ProductRequest) error
	CreateItem(ctx context.Context, item *model.RequestItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error)
	List(ctx context.Context, filter RequestListFilter) ([]model.ProductRequest, int64, error)
	// Transition performs the compare-and-set status flip: the UPDATE only
	// applies while the row is still PENDING. Returns the number of rows
	// changed; zero means another actor won the race.
	Transition(ctx context.Context, id uuid.UUID, fields TransitionFields) (int64, error)
	// MarkFulfilled sets the consumed marker, guarded on the APPROVED status.
	MarkFulfilled(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) (int64, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.ProductRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) CreateItem(ctx context.Context, item *model.RequestItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	var req model.ProductRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	var req model.ProductRequest
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Requester").
		Preload("Approver").
		Preload("Rejecter").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	var req model.ProductRequest
	if err := forUpdate(GetDB(ctx, r.db)).Preload("Items").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestListFilter) ([]model.ProductRequest, int64, error) {
	var requests []model.ProductRequest
	var total int64

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.RequestedBy != nil {
			q = q.Where("requested_by = ?", *filter.RequestedBy)
		}
		if filter.Role != "" {
			q = q.Where("requested_by_role = ?", filter.Role)
		}
		return q
	}

	if err := apply(GetDB(ctx, r.db).Model(&model.ProductRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(GetDB(ctx, r.db).Preload("Items").Preload("Requester").Preload("Approver").Preload("Rejecter")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Transition(ctx context.Context, id uuid.UUID, fields TransitionFields) (int64, error) {
	updates := map[string]interface{}{
		"status":     fields.Status,
		"updated_at": fields.At,
	}
	switch fields.Status {
	case model.RequestStatusApproved:
		updates["approved_by"] = fields.ByID
		updates["approved_at"] = fields.At
		updates["approval_notes"] = fields.Note
	case model.RequestStatusRejected:
		updates["rejected_by"] = fields.ByID
		updates["rejected_at"] = fields.At
		updates["rejection_reason"] = fields.Note
	}

	res := GetDB(ctx, r.db).Model(&model.ProductRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *requestRepository) MarkFulfilled(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.ProductRequest{}).
		Where("id = ? AND status = ? AND fulfilled_at IS NULL", id, model.RequestStatusApproved).
		Updates(map[string]interface{}{
			"status":       model.RequestStatusCompleted,
			"fulfilled_by": actorID,
			"fulfilled_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

func (r *requestRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ProductRequest{}).
		Where("request_code LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
