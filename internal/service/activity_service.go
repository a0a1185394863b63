package service

import (
	"context"
	"fmt"
	"time"

	"saleshub/internal/model"
	"saleshub/internal/repository"
)

type ActivityResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorName  string `json:"actor_name"`
	ActorRole  string `json:"actor_role"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name,omitempty"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// ActivityService exposes the read side of the audit trail. Writes happen
// inside the mutating services' transactions, never here.
type ActivityService interface {
	ListActivities(ctx context.Context, activityType string, page, limit int) ([]ActivityResponse, int64, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) ListActivities(ctx context.Context, activityType string, page, limit int) ([]ActivityResponse, int64, error) {
	entries, total, err := s.activityRepo.List(ctx, activityType, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	responses := make([]ActivityResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toActivityResponse(&entries[i]))
	}
	return responses, total, nil
}

func toActivityResponse(a *model.ActivityLog) ActivityResponse {
	resp := ActivityResponse{
		ID:         a.ID.String(),
		Type:       a.Type,
		ActorName:  a.ActorName,
		ActorRole:  a.ActorRole,
		EntityID:   a.EntityID,
		EntityName: a.EntityName,
		Details:    a.Details,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if a.ActorID != nil {
		resp.ActorID = a.ActorID.String()
	}
	return resp
}
