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

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, &file, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// GetForSubject возвращает файл, только если у субъекта есть любая роль на него
func (r *FileRepository) GetForSubject(ctx context.Context, userID, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT f.*
        FROM files f
        JOIN file_permissions fp ON fp.file_id = f.id
        WHERE f.id = $1 AND fp.user_id = $2
        LIMIT 1`

	err := r.db.GetContext(ctx, &file, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// ListForSubject возвращает файлы папки, видимые субъекту.
// folderID == nil означает файлы корневого уровня.
func (r *FileRepository) ListForSubject(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]domain.File, error) {
	files := []domain.File{}

	query := `
        SELECT DISTINCT f.*
        FROM files f
        JOIN file_permissions fp ON fp.file_id = f.id
        WHERE fp.user_id = $1 AND f.folder_id IS NOT DISTINCT FROM $2
        ORDER BY f.name`

	err := r.db.SelectContext(ctx, &files, query, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) Insert(ctx context.Context, q sqlx.ExtContext, file *domain.File) error {
	query := `
        INSERT INTO files (id, name, folder_id, storage_key, mime_type, ext, size_bytes, starred)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := q.QueryRowxContext(
		ctx,
		query,
		file.ID,
		file.Name,
		file.FolderID,
		file.StorageKey,
		file.MIMEType,
		file.Ext,
		file.SizeBytes,
		file.Starred,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// ListByFolder возвращает файлы папки без фильтра прав —
// используется движком копирования внутри транзакции
func (r *FileRepository) ListByFolder(ctx context.Context, q sqlx.ExtContext, folderID uuid.UUID) ([]domain.File, error) {
	files := []domain.File{}
	query := `SELECT * FROM files WHERE folder_id = $1 ORDER BY name`

	err := sqlx.SelectContext(ctx, q, &files, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) NameExists(ctx context.Context, q sqlx.ExtContext, folderID *uuid.UUID, name string) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM files
            WHERE folder_id IS NOT DISTINCT FROM $1 AND name = $2
        )`

	err := sqlx.GetContext(ctx, q, &exists, query, folderID, name)
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return exists, nil
}

func (r *FileRepository) UpdateMeta(ctx context.Context, q sqlx.ExtContext, file *domain.File) error {
	query := `
        UPDATE files
        SET name = $1, starred = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3
        RETURNING updated_at`

	err := q.QueryRowxContext(ctx, query, file.Name, file.Starred, file.ID).Scan(&file.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update file: %w", err)
	}

	return nil
}

// SetFolder переназначает родительскую папку файла
func (r *FileRepository) SetFolder(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, folderID *uuid.UUID) error {
	query := `
        UPDATE files
        SET folder_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	_, err := q.ExecContext(ctx, query, folderID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileExists
		}
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// Delete удаляет файл. Гранты и ссылки каскадируются внешними ключами.
func (r *FileRepository) Delete(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
