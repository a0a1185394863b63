package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saleshub/internal/apperr"
	"saleshub/internal/model"
	"saleshub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateRoleDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRoleDTO struct {
	Description string `json:"description"`
}

type UpdateRolePermissionsDTO struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsDTO) (*RoleResponse, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo repository.RoleRepository
}

func NewRoleService(repo repository.RoleRepository) RoleService {
	return &roleService{repo: repo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	responses := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		responses = append(responses, toRoleResponse(r))
	}
	return responses, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("id", "invalid uuid")
	}
	role, err := s.repo.FindByID(ctx, roleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	responses := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		responses = append(responses, toPermissionResponse(p))
	}
	return responses, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsDTO) (*RoleResponse, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, apperr.Validation("id", "invalid uuid")
	}
	permIDs := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, raw := range req.PermissionIDs {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.Validation("permission_ids", "invalid uuid: "+raw)
		}
		permIDs = append(permIDs, pid)
	}

	if err := s.repo.UpdatePermissions(ctx, id, permIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update role permissions: %w", err)
	}
	return s.GetRole(ctx, roleID)
}

// defaultPermissions is the seed permission catalog grouped by concern.
var defaultPermissions = []model.Permission{
	{Code: "requests.create", Name: "Create product requests", Group: "requests"},
	{Code: "requests.view", Name: "View product requests", Group: "requests"},
	{Code: "requests.approve", Name: "Approve or reject requests", Group: "requests"},
	{Code: "requests.fulfill", Name: "Fulfill approved requests", Group: "requests"},
	{Code: "invoices.create", Name: "Create invoices", Group: "invoices"},
	{Code: "invoices.view", Name: "View invoices", Group: "invoices"},
	{Code: "invoices.payments", Name: "Record payments", Group: "invoices"},
	{Code: "inventory.view", Name: "View inventory", Group: "inventory"},
	{Code: "inventory.adjust", Name: "Adjust stock levels", Group: "inventory"},
	{Code: "catalog.manage", Name: "Manage catalog products", Group: "catalog"},
	{Code: "customers.manage", Name: "Manage customers", Group: "customers"},
	{Code: "activities.view", Name: "View activity log", Group: "activities"},
	{Code: "analytics.view", Name: "View analytics", Group: "analytics"},
	{Code: "users.manage", Name: "Manage users", Group: "users"},
}

// defaultRolePerms maps the built-in roles onto the seed permission codes.
var defaultRolePerms = map[string][]string{
	model.RoleHeadOffice: {
		"requests.view", "requests.approve", "requests.fulfill",
		"invoices.view", "inventory.view", "inventory.adjust",
		"catalog.manage", "customers.manage", "activities.view", "analytics.view",
	},
	model.RoleShowroomManager: {
		"requests.create", "requests.view", "requests.approve", "requests.fulfill",
		"invoices.create", "invoices.view", "invoices.payments",
		"inventory.view", "inventory.adjust", "catalog.manage",
		"customers.manage", "activities.view", "analytics.view",
	},
	model.RoleShowroomStaff: {
		"requests.create", "requests.view",
		"invoices.create", "invoices.view", "invoices.payments",
		"inventory.view", "customers.manage",
	},
	model.RoleRepresentative: {
		"requests.create", "requests.view",
		"invoices.create", "invoices.view", "invoices.payments",
		"inventory.view", "customers.manage",
	},
	model.RoleDistributor: {
		"requests.create", "requests.view", "inventory.view",
	},
}

// SeedDefaultRolesAndPermissions makes sure the built-in roles and the
// permission catalog exist. Idempotent; safe to run on every boot.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	permsByCode := make(map[string]uuid.UUID, len(defaultPermissions))
	for i := range defaultPermissions {
		perm := defaultPermissions[i]
		if err := s.repo.FindOrCreatePermission(ctx, &perm); err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", perm.Code, err)
		}
		permsByCode[perm.Code] = perm.ID
	}

	roleDescriptions := map[string]string{
		model.RoleAdmin:           "Full system access",
		model.RoleHeadOffice:      "Approves requests and oversees distribution",
		model.RoleShowroomManager: "Runs a showroom end to end",
		model.RoleShowroomStaff:   "Sells from the showroom floor",
		model.RoleRepresentative:  "Field sales representative",
		model.RoleDistributor:     "External distribution partner",
	}

	for name, desc := range roleDescriptions {
		role, err := s.repo.FindByName(ctx, name)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role = &model.Role{Name: name, Description: desc, IsSystem: true}
			if err := s.repo.Create(ctx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up role %s: %w", name, err)
		} else {
			continue // existing roles keep their admin-edited permission sets
		}

		codes := defaultRolePerms[name]
		if name == model.RoleAdmin {
			codes = make([]string, 0, len(permsByCode))
			for code := range permsByCode {
				codes = append(codes, code)
			}
		}
		ids := make([]uuid.UUID, 0, len(codes))
		for _, code := range codes {
			ids = append(ids, permsByCode[code])
		}
		if err := s.repo.UpdatePermissions(ctx, role.ID, ids); err != nil {
			return fmt.Errorf("failed to assign permissions to %s: %w", name, err)
		}
	}
	return nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
