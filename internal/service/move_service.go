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

// MoveService — движок пакетного перемещения. Перемещение меняет только
// указатель на родителя, потомки едут вместе с узлом без переписывания
// строк. Вся пачка выполняется одной транзакцией.
type MoveService struct {
	db      *sqlx.DB
	folders *repository.FolderRepository
	files   *repository.FileRepository
	perms   *repository.PermissionRepository
}

func NewMoveService(
	db *sqlx.DB,
	folders *repository.FolderRepository,
	files *repository.FileRepository,
	perms *repository.PermissionRepository,
) *MoveService {
	return &MoveService{
		db:      db,
		folders: folders,
		files:   files,
		perms:   perms,
	}
}

// MoveFolders перемещает пачку папок под destParentID (nil — корень).
// Требуется право записи на каждый источник и на назначение. Назначение,
// совпадающее с перемещаемой папкой или лежащее внутри неё, отклоняется
// как цикл.
func (s *MoveService) MoveFolders(ctx context.Context, actorID uuid.UUID, folderIDs []uuid.UUID, destParentID *uuid.UUID) error {
	if len(folderIDs) == 0 {
		return fmt.Errorf("%w: nothing to move", domain.ErrBadInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkDestination(ctx, tx, actorID, destParentID); err != nil {
		return err
	}

	sources := make(map[uuid.UUID]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		sources[id] = struct{}{}
	}

	// Проверка цикла по актуальному состоянию дерева внутри транзакции:
	// назначение и вся его цепочка предков не должны входить в пачку
	if destParentID != nil {
		if _, moved := sources[*destParentID]; moved {
			return domain.ErrCycle
		}

		ancestors, err := s.folders.AncestorIDs(ctx, tx, *destParentID)
		if err != nil {
			return err
		}
		for _, ancestorID := range ancestors {
			if _, moved := sources[ancestorID]; moved {
				return domain.ErrCycle
			}
		}
	}

	for _, id := range folderIDs {
		if err := s.checkSource(ctx, tx, actorID, domain.FolderRef(id), `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, id); err != nil {
			return err
		}
		if err := s.folders.SetParent(ctx, tx, id, destParentID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[MoveFolders] User %s moved %d folder(s)", actorID, len(folderIDs))
	return nil
}

// MoveFiles перемещает пачку файлов в папку destFolderID (nil — корень)
func (s *MoveService) MoveFiles(ctx context.Context, actorID uuid.UUID, fileIDs []uuid.UUID, destFolderID *uuid.UUID) error {
	if len(fileIDs) == 0 {
		return fmt.Errorf("%w: nothing to move", domain.ErrBadInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkDestination(ctx, tx, actorID, destFolderID); err != nil {
		return err
	}

	for _, id := range fileIDs {
		if err := s.checkSource(ctx, tx, actorID, domain.FileRef(id), `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id); err != nil {
			return err
		}
		if err := s.files.SetFolder(ctx, tx, id, destFolderID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[MoveFiles] User %s moved %d file(s)", actorID, len(fileIDs))
	return nil
}

func (s *MoveService) checkDestination(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, destID *uuid.UUID) error {
	if destID == nil {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, *destID); err != nil {
		return fmt.Errorf("failed to check destination folder: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FolderRef(*destID))
	if err != nil {
		return err
	}
	if !ok || !role.CanWrite() {
		return domain.ErrPermissionDenied
	}

	return nil
}

func (s *MoveService) checkSource(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, resource domain.ResourceRef, existsQuery string, id uuid.UUID) error {
	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, existsQuery, id); err != nil {
		return fmt.Errorf("failed to check %s: %w", resource.Type, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	role, ok, err := s.perms.RoleOf(ctx, tx, actorID, resource)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	if !role.CanWrite() {
		return domain.ErrPermissionDenied
	}

	return nil
}
