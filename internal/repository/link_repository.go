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

// ErrDuplicateToken сигнализирует коллизию токена ссылки. Вероятность
// ничтожна (32 случайных байта), но уникальное ограничение обязано её
// отлавливать — сервис делает одну повторную попытку.
var ErrDuplicateToken = errors.New("link token already exists")

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Insert(ctx context.Context, q sqlx.ExtContext, link *domain.Link) error {
	query := `
        INSERT INTO links (id, token, file_id, folder_id, user_id, password_hash, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := q.QueryRowxContext(
		ctx,
		query,
		link.ID,
		link.Token,
		link.FileID,
		link.FolderID,
		link.UserID,
		link.PasswordHash,
		link.ExpiresAt,
	).Scan(&link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *LinkRepository) GetByToken(ctx context.Context, token string) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT * FROM links WHERE token = $1`

	err := r.db.GetContext(ctx, &link, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (r *LinkRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT * FROM links WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, &link, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (r *LinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *LinkRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Link, error) {
	links := []domain.Link{}
	query := `SELECT * FROM links WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &links, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}
