package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cirrusdrive/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Folder, error) {
	var folder domain.Folder
	query := `SELECT * FROM folders WHERE id = $1`

	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// GetForSubject возвращает папку, только если у субъекта есть любая роль
// на неё (owner/editor/viewer) — inner join с таблицей прав
func (r *FolderRepository) GetForSubject(ctx context.Context, userID, id uuid.UUID) (*domain.Folder, error) {
	var folder domain.Folder
	query := `
        SELECT f.*
        FROM folders f
        JOIN folder_permissions fp ON fp.folder_id = f.id
        WHERE f.id = $1 AND fp.user_id = $2
        LIMIT 1`

	err := r.db.GetContext(ctx, &folder, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// ListForSubject возвращает папки уровня parentID, видимые субъекту.
// parentID == nil означает корневой уровень.
func (r *FolderRepository) ListForSubject(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) ([]domain.Folder, error) {
	folders := []domain.Folder{}

	query := `
        SELECT DISTINCT f.*
        FROM folders f
        JOIN folder_permissions fp ON fp.folder_id = f.id
        WHERE fp.user_id = $1 AND f.parent_id IS NOT DISTINCT FROM $2
        ORDER BY f.name`

	err := r.db.SelectContext(ctx, &folders, query, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) Insert(ctx context.Context, q sqlx.ExtContext, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (id, name, parent_id, starred)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`

	err := q.QueryRowxContext(
		ctx,
		query,
		folder.ID,
		folder.Name,
		folder.ParentID,
		folder.Starred,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

// ListChildren возвращает прямые подпапки без фильтра прав —
// используется движком копирования внутри транзакции
func (r *FolderRepository) ListChildren(ctx context.Context, q sqlx.ExtContext, parentID uuid.UUID) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	query := `SELECT * FROM folders WHERE parent_id = $1 ORDER BY name`

	err := sqlx.SelectContext(ctx, q, &folders, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) NameExists(ctx context.Context, q sqlx.ExtContext, parentID *uuid.UUID, name string) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE parent_id IS NOT DISTINCT FROM $1 AND name = $2
        )`

	err := sqlx.GetContext(ctx, q, &exists, query, parentID, name)
	if err != nil {
		return false, fmt.Errorf("failed to check folder existence: %w", err)
	}

	return exists, nil
}

func (r *FolderRepository) UpdateMeta(ctx context.Context, q sqlx.ExtContext, folder *domain.Folder) error {
	query := `
        UPDATE folders
        SET name = $1, starred = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3
        RETURNING updated_at`

	err := q.QueryRowxContext(ctx, query, folder.Name, folder.Starred, folder.ID).Scan(&folder.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update folder: %w", err)
	}

	return nil
}

// SetParent переназначает родителя — перемещение не копирует строки,
// идентичность и гранты папки сохраняются
func (r *FolderRepository) SetParent(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, parentID *uuid.UUID) error {
	query := `
        UPDATE folders
        SET parent_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	_, err := q.ExecContext(ctx, query, parentID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		return fmt.Errorf("failed to move folder: %w", err)
	}

	return nil
}

// Delete удаляет папку. Потомки, гранты и ссылки каскадируются
// внешними ключами ON DELETE CASCADE.
func (r *FolderRepository) Delete(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

// AncestorIDs возвращает цепочку предков папки от непосредственного
// родителя до корня. Явный обход по сохранённым id — именно им
// пользуется проверка циклов при перемещении.
func (r *FolderRepository) AncestorIDs(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) ([]uuid.UUID, error) {
	ancestors := []uuid.UUID{}
	current := id

	for {
		var parentID *uuid.UUID
		err := sqlx.GetContext(ctx, q, &parentID, `SELECT parent_id FROM folders WHERE id = $1`, current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("failed to walk folder ancestors: %w", err)
		}

		if parentID == nil {
			return ancestors, nil
		}

		ancestors = append(ancestors, *parentID)
		current = *parentID
	}
}

// PathToRoot строит хлебные крошки от корня до папки
func (r *FolderRepository) PathToRoot(ctx context.Context, id uuid.UUID) ([]domain.PathPart, error) {
	parts := []domain.PathPart{}
	current := &id

	for current != nil {
		var row struct {
			ID       uuid.UUID  `db:"id"`
			Name     string     `db:"name"`
			ParentID *uuid.UUID `db:"parent_id"`
		}
		err := r.db.GetContext(ctx, &row, `SELECT id, name, parent_id FROM folders WHERE id = $1`, *current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("failed to build folder path: %w", err)
		}

		folderID := row.ID
		parts = append(parts, domain.PathPart{ID: &folderID, Name: row.Name})
		current = row.ParentID
	}

	// Корень файловой системы не хранится в БД, добавляем его виртуально
	path := []domain.PathPart{{ID: nil, Name: "Root"}}
	for i := len(parts) - 1; i >= 0; i-- {
		path = append(path, parts[i])
	}

	return path, nil
}
