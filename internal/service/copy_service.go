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

// CopyService — движок глубокого копирования поддеревьев. Вся пачка
// строк (папки, файлы, гранты) пишется одной транзакцией: любой отказ
// откатывает копию целиком.
type CopyService struct {
	db      *sqlx.DB
	folders *repository.FolderRepository
	files   *repository.FileRepository
	perms   *repository.PermissionRepository
}

func NewCopyService(
	db *sqlx.DB,
	folders *repository.FolderRepository,
	files *repository.FileRepository,
	perms *repository.PermissionRepository,
) *CopyService {
	return &CopyService{
		db:      db,
		folders: folders,
		files:   files,
		perms:   perms,
	}
}

// nextAvailableName подбирает имя копии детерминированно:
// "X (Copy)", затем "X (Copy) (1)", "X (Copy) (2)", ...
// Формат зафиксирован для совместимости, счётчик начинается с 1.
func nextAvailableName(base string, exists func(string) (bool, error)) (string, error) {
	candidate := base + " (Copy)"
	counter := 1

	for {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (Copy) (%d)", base, counter)
		counter++
	}
}

// CopyFile копирует один файл в папку назначения. Копия поверхностная:
// новая строка метаданных разделяет storage_key источника, байты в
// хранилище не дублируются.
func (s *CopyService) CopyFile(ctx context.Context, actorID, fileID, destFolderID uuid.UUID) (*domain.File, error) {
	source, err := s.files.GetForSubject(ctx, actorID, fileID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkDestination(ctx, tx, actorID, destFolderID); err != nil {
		return nil, err
	}

	destID := destFolderID
	name, err := nextAvailableName(source.Name, func(candidate string) (bool, error) {
		return s.files.NameExists(ctx, tx, &destID, candidate)
	})
	if err != nil {
		return nil, err
	}

	copied, err := s.copyFileRow(ctx, tx, actorID, source, &destID, name)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return copied, nil
}

// CopyFolder рекурсивно копирует папку в destParentID (nil — корень).
// Обход в глубину: сперва строка папки, затем гранты, подпапки, файлы.
func (s *CopyService) CopyFolder(ctx context.Context, actorID, folderID uuid.UUID, destParentID *uuid.UUID) (*domain.Folder, error) {
	source, err := s.folders.GetForSubject(ctx, actorID, folderID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if destParentID != nil {
		if err := s.checkDestination(ctx, tx, actorID, *destParentID); err != nil {
			return nil, err
		}

		// Назначение внутри копируемого поддерева зацикливает обход:
		// свежие строки копии попадали бы в списки детей источника.
		// Отклоняем так же, как перемещение.
		if *destParentID == source.ID {
			return nil, domain.ErrCycle
		}
		ancestors, err := s.folders.AncestorIDs(ctx, tx, *destParentID)
		if err != nil {
			return nil, err
		}
		for _, ancestorID := range ancestors {
			if ancestorID == source.ID {
				return nil, domain.ErrCycle
			}
		}
	}

	name, err := nextAvailableName(source.Name, func(candidate string) (bool, error) {
		return s.folders.NameExists(ctx, tx, destParentID, candidate)
	})
	if err != nil {
		return nil, err
	}

	copied, err := s.copyFolderTree(ctx, tx, actorID, source, destParentID, name)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[CopyFolder] Folder %s copied to %s as %q by %s", folderID, copied.ID, copied.Name, actorID)
	return copied, nil
}

// checkDestination требует owner или editor на папку назначения
func (s *CopyService) checkDestination(ctx context.Context, tx *sqlx.Tx, actorID, destFolderID uuid.UUID) error {
	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, destFolderID); err != nil {
		return fmt.Errorf("failed to check destination folder: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FolderRef(destFolderID))
	if err != nil {
		return err
	}
	if !ok || !role.CanWrite() {
		return domain.ErrPermissionDenied
	}

	return nil
}

func (s *CopyService) copyFolderTree(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, source *domain.Folder, parentID *uuid.UUID, name string) (*domain.Folder, error) {
	folder := &domain.Folder{
		ID:       uuid.New(),
		Name:     name,
		ParentID: parentID,
		Starred:  source.Starred,
	}

	if err := s.folders.Insert(ctx, tx, folder); err != nil {
		return nil, err
	}

	// Копия всегда получает свежий owner-грант для действующего
	// субъекта; гранты источника добавляются поверх
	ownerGrant := &domain.Permission{
		ID:       uuid.New(),
		UserID:   actorID,
		Resource: domain.FolderRef(folder.ID),
		Role:     domain.RoleOwner,
	}
	if err := s.perms.Insert(ctx, tx, ownerGrant); err != nil {
		return nil, err
	}

	if err := s.copyGrants(ctx, tx, domain.FolderRef(source.ID), domain.FolderRef(folder.ID)); err != nil {
		return nil, err
	}

	// Внутри свежесозданной копии коллизии имён невозможны,
	// дети сохраняют исходные имена
	children, err := s.folders.ListChildren(ctx, tx, source.ID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if _, err := s.copyFolderTree(ctx, tx, actorID, &children[i], &folder.ID, children[i].Name); err != nil {
			return nil, err
		}
	}

	files, err := s.files.ListByFolder(ctx, tx, source.ID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if _, err := s.copyFileRow(ctx, tx, actorID, &files[i], &folder.ID, files[i].Name); err != nil {
			return nil, err
		}
	}

	return folder, nil
}

func (s *CopyService) copyFileRow(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, source *domain.File, folderID *uuid.UUID, name string) (*domain.File, error) {
	file := &domain.File{
		ID:         uuid.New(),
		Name:       name,
		FolderID:   folderID,
		StorageKey: source.StorageKey,
		MIMEType:   source.MIMEType,
		Ext:        source.Ext,
		SizeBytes:  source.SizeBytes,
		Starred:    source.Starred,
	}

	if err := s.files.Insert(ctx, tx, file); err != nil {
		return nil, err
	}

	ownerGrant := &domain.Permission{
		ID:       uuid.New(),
		UserID:   actorID,
		Resource: domain.FileRef(file.ID),
		Role:     domain.RoleOwner,
	}
	if err := s.perms.Insert(ctx, tx, ownerGrant); err != nil {
		return nil, err
	}

	if err := s.copyGrants(ctx, tx, domain.FileRef(source.ID), domain.FileRef(file.ID)); err != nil {
		return nil, err
	}

	return file, nil
}

// copyGrants переносит гранты источника на копию. Дубликат свежего
// owner-гранта создателя молча пропускается.
func (s *CopyService) copyGrants(ctx context.Context, tx *sqlx.Tx, source, target domain.ResourceRef) error {
	grants, err := s.perms.ListByResource(ctx, tx, source)
	if err != nil {
		return err
	}

	for _, grant := range grants {
		copied := &domain.Permission{
			ID:       uuid.New(),
			UserID:   grant.UserID,
			Resource: target,
			Role:     grant.Role,
		}
		if err := s.perms.InsertIgnoreDuplicate(ctx, tx, copied); err != nil {
			return err
		}
	}

	return nil
}
