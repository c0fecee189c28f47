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

type FolderService struct {
	db      *sqlx.DB
	folders *repository.FolderRepository
	perms   *repository.PermissionRepository
}

func NewFolderService(
	db *sqlx.DB,
	folders *repository.FolderRepository,
	perms *repository.PermissionRepository,
) *FolderService {
	return &FolderService{
		db:      db,
		folders: folders,
		perms:   perms,
	}
}

// CreateFolder создаёт папку и owner-грант для создателя одной
// транзакцией. Для вложенной папки нужен owner или editor на родителя.
func (s *FolderService) CreateFolder(ctx context.Context, actorID uuid.UUID, name string, parentID *uuid.UUID) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrBadInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if parentID != nil {
		var exists bool
		err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check parent folder: %w", err)
		}
		if !exists {
			return nil, domain.ErrNotFound
		}

		role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FolderRef(*parentID))
		if err != nil {
			return nil, err
		}
		if !ok || !role.CanWrite() {
			return nil, domain.ErrPermissionDenied
		}
	}

	folder := &domain.Folder{
		ID:       uuid.New(),
		Name:     name,
		ParentID: parentID,
	}

	if err := s.folders.Insert(ctx, tx, folder); err != nil {
		return nil, err
	}

	ownerGrant := &domain.Permission{
		ID:       uuid.New(),
		UserID:   actorID,
		Resource: domain.FolderRef(folder.ID),
		Role:     domain.RoleOwner,
	}
	if err := s.perms.Insert(ctx, tx, ownerGrant); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return folder, nil
}

// GetFolder возвращает папку, видимую субъекту (любая роль)
func (s *FolderService) GetFolder(ctx context.Context, userID, id uuid.UUID) (*domain.Folder, error) {
	return s.folders.GetForSubject(ctx, userID, id)
}

// ListFolders возвращает папки уровня parentID, видимые субъекту
func (s *FolderService) ListFolders(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) ([]domain.Folder, error) {
	return s.folders.ListForSubject(ctx, userID, parentID)
}

// GetPath строит хлебные крошки от корня до папки
func (s *FolderService) GetPath(ctx context.Context, userID, id uuid.UUID) ([]domain.PathPart, error) {
	if _, err := s.folders.GetForSubject(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.folders.PathToRoot(ctx, id)
}

// UpdateFolder меняет метаданные (имя, пометку). Политика: метаданные
// мутирует только владелец; editor получает FORBIDDEN, посторонний —
// NOT_FOUND.
func (s *FolderService) UpdateFolder(ctx context.Context, actorID, id uuid.UUID, update domain.FolderUpdate) (*domain.Folder, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FolderRef(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	if role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}

	var folder domain.Folder
	if err := sqlx.GetContext(ctx, tx, &folder, `SELECT * FROM folders WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("%w: folder name is required", domain.ErrBadInput)
		}
		folder.Name = *update.Name
	}
	if update.Starred != nil {
		folder.Starred = *update.Starred
	}

	if err := s.folders.UpdateMeta(ctx, tx, &folder); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &folder, nil
}

// DeleteFolder каскадно удаляет папку со всеми потомками, их грантами
// и ссылками. Требуется роль owner; при меньшей роли — FORBIDDEN, при
// отсутствии папки — NOT_FOUND (различие важно клиенту).
func (s *FolderService) DeleteFolder(ctx context.Context, actorID, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check folder: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	isOwner, err := s.perms.HasRole(ctx, tx, actorID, domain.FolderRef(id), domain.RoleOwner)
	if err != nil {
		return err
	}
	if !isOwner {
		return domain.ErrForbidden
	}

	if err := s.folders.Delete(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[DeleteFolder] Folder %s deleted by %s", id, actorID)
	return nil
}
