package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/repository"
)

// PermissionService — реестр прав: отвечает на вопрос "может ли субъект X
// выполнить действие Y над ресурсом Z" и управляет грантами
type PermissionService struct {
	db    *sqlx.DB
	perms *repository.PermissionRepository
	users *repository.UserRepository
}

func NewPermissionService(
	db *sqlx.DB,
	perms *repository.PermissionRepository,
	users *repository.UserRepository,
) *PermissionService {
	return &PermissionService{
		db:    db,
		perms: perms,
		users: users,
	}
}

// RoleOf возвращает действующую роль субъекта на ресурс
func (s *PermissionService) RoleOf(ctx context.Context, userID uuid.UUID, resource domain.ResourceRef) (domain.Role, bool, error) {
	return s.perms.RoleOf(ctx, s.db, userID, resource)
}

// HasRole проверяет наличие конкретной роли
func (s *PermissionService) HasRole(ctx context.Context, userID uuid.UUID, resource domain.ResourceRef, role domain.Role) (bool, error) {
	return s.perms.HasRole(ctx, s.db, userID, resource, role)
}

// Grant выдаёт роль пользователю, найденному по email. Выдавать гранты
// может только владелец ресурса. Политика: одна активная роль на пару
// (субъект, ресурс) — повторная выдача возвращает DUPLICATE_PERMISSION.
func (s *PermissionService) Grant(ctx context.Context, actorID uuid.UUID, email string, resource domain.ResourceRef, role domain.Role) (*domain.Permission, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrBadInput, role)
	}

	// Целевой пользователь разрешается по внешнему идентификатору
	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	isOwner, err := s.perms.HasRole(ctx, tx, actorID, resource, domain.RoleOwner)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, domain.ErrForbidden
	}

	// Проверяем, нет ли у субъекта уже какой-либо роли на этот ресурс
	if _, exists, err := s.perms.RoleOf(ctx, tx, target.ID, resource); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrDuplicatePermission
	}

	permission := &domain.Permission{
		ID:       uuid.New(),
		UserID:   target.ID,
		Resource: resource,
		Role:     role,
	}

	if err := s.perms.Insert(ctx, tx, permission); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[Grant] User %s granted %s on %s %s to %s", actorID, role, resource.Type, resource.ID, target.ID)
	return permission, nil
}

// UpdateRole меняет роль существующего гранта на месте. Только владелец
// ресурса; отзыв и повторная выдача не требуются.
func (s *PermissionService) UpdateRole(ctx context.Context, actorID uuid.UUID, rt domain.ResourceType, permissionID uuid.UUID, role domain.Role) (*domain.Permission, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrBadInput, role)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	permission, err := s.perms.GetByID(ctx, tx, rt, permissionID)
	if err != nil {
		return nil, err
	}

	isOwner, err := s.perms.HasRole(ctx, tx, actorID, permission.Resource, domain.RoleOwner)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, domain.ErrForbidden
	}

	if err := s.perms.UpdateRole(ctx, tx, rt, permissionID, role); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	permission.Role = role
	log.Printf("[UpdateRole] User %s set role %s on permission %s", actorID, role, permissionID)
	return permission, nil
}

// Revoke отзывает грант. Разрешено владельцу ресурса и самому субъекту
// гранта (отзыв собственного доступа).
func (s *PermissionService) Revoke(ctx context.Context, actorID uuid.UUID, rt domain.ResourceType, permissionID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	permission, err := s.perms.GetByID(ctx, tx, rt, permissionID)
	if err != nil {
		return err
	}

	isOwner, err := s.perms.HasRole(ctx, tx, actorID, permission.Resource, domain.RoleOwner)
	if err != nil {
		return err
	}
	if !isOwner && permission.UserID != actorID {
		return domain.ErrForbidden
	}

	if err := s.perms.Delete(ctx, tx, rt, permissionID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListForResource возвращает гранты ресурса; доступно любому субъекту,
// имеющему роль на ресурс
func (s *PermissionService) ListForResource(ctx context.Context, actorID uuid.UUID, resource domain.ResourceRef) ([]domain.Permission, error) {
	if _, ok, err := s.perms.RoleOf(ctx, s.db, actorID, resource); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrNotFound
	}

	return s.perms.ListByResource(ctx, s.db, resource)
}
