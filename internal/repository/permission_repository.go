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

// PermissionRepository обслуживает обе таблицы грантов одной логикой:
// file_permissions и folder_permissions различаются только именем
// таблицы и колонкой внешнего ключа
type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func grantTable(rt domain.ResourceType) (table string, fkColumn string, err error) {
	switch rt {
	case domain.ResourceTypeFile:
		return "file_permissions", "file_id", nil
	case domain.ResourceTypeFolder:
		return "folder_permissions", "folder_id", nil
	default:
		return "", "", fmt.Errorf("%w: unknown resource type %q", domain.ErrBadInput, rt)
	}
}

type grantRow struct {
	ID         uuid.UUID   `db:"id"`
	UserID     uuid.UUID   `db:"user_id"`
	ResourceID uuid.UUID   `db:"resource_id"`
	Role       domain.Role `db:"role"`
}

func (row grantRow) toPermission(rt domain.ResourceType) domain.Permission {
	return domain.Permission{
		ID:       row.ID,
		UserID:   row.UserID,
		Resource: domain.ResourceRef{Type: rt, ID: row.ResourceID},
		Role:     row.Role,
	}
}

func (r *PermissionRepository) Insert(ctx context.Context, q sqlx.ExtContext, p *domain.Permission) error {
	table, fk, err := grantTable(p.Resource.Type)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, user_id, %s, role) VALUES ($1, $2, $3, $4)`,
		table, fk,
	)

	_, err = q.ExecContext(ctx, query, p.ID, p.UserID, p.Resource.ID, p.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePermission
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

// InsertIgnoreDuplicate вставляет грант, молча пропуская дубликат —
// используется при копировании грантов, где свежий owner-грант
// создателя уже существует
func (r *PermissionRepository) InsertIgnoreDuplicate(ctx context.Context, q sqlx.ExtContext, p *domain.Permission) error {
	table, fk, err := grantTable(p.Resource.Type)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, user_id, %s, role) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		table, fk,
	)

	_, err = q.ExecContext(ctx, query, p.ID, p.UserID, p.Resource.ID, p.Role)
	if err != nil {
		return fmt.Errorf("failed to copy permission: %w", err)
	}

	return nil
}

// RoleOf возвращает действующую роль субъекта на ресурс. Владелец
// вычисляется сканированием грантов, а не денормализованной колонкой —
// единственный источник истины это таблица прав. При нескольких ролях
// (историческое ограничение уникальности допускает их) действует
// старшая: owner > editor > viewer.
func (r *PermissionRepository) RoleOf(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, resource domain.ResourceRef) (domain.Role, bool, error) {
	table, fk, err := grantTable(resource.Type)
	if err != nil {
		return "", false, err
	}

	query := fmt.Sprintf(`
        SELECT role FROM %s
        WHERE user_id = $1 AND %s = $2
        ORDER BY CASE role
            WHEN 'owner' THEN 0
            WHEN 'editor' THEN 1
            ELSE 2
        END
        LIMIT 1`, table, fk)

	var role domain.Role
	err = sqlx.GetContext(ctx, q, &role, query, userID, resource.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve role: %w", err)
	}

	return role, true, nil
}

func (r *PermissionRepository) HasRole(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, resource domain.ResourceRef, role domain.Role) (bool, error) {
	table, fk, err := grantTable(resource.Type)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
        SELECT EXISTS(
            SELECT 1 FROM %s WHERE user_id = $1 AND %s = $2 AND role = $3
        )`, table, fk)

	var exists bool
	err = sqlx.GetContext(ctx, q, &exists, query, userID, resource.ID, role)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	return exists, nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, q sqlx.ExtContext, rt domain.ResourceType, id uuid.UUID) (*domain.Permission, error) {
	table, fk, err := grantTable(rt)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, %s AS resource_id, role FROM %s WHERE id = $1`, fk, table)

	var row grantRow
	err = sqlx.GetContext(ctx, q, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	p := row.toPermission(rt)
	return &p, nil
}

func (r *PermissionRepository) ListByResource(ctx context.Context, q sqlx.ExtContext, resource domain.ResourceRef) ([]domain.Permission, error) {
	table, fk, err := grantTable(resource.Type)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, %s AS resource_id, role FROM %s WHERE %s = $1`, fk, table, fk)

	rows := []grantRow{}
	err = sqlx.SelectContext(ctx, q, &rows, query, resource.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	permissions := make([]domain.Permission, 0, len(rows))
	for _, row := range rows {
		permissions = append(permissions, row.toPermission(resource.Type))
	}

	return permissions, nil
}

// UpdateRole меняет роль существующего гранта на месте
func (r *PermissionRepository) UpdateRole(ctx context.Context, q sqlx.ExtContext, rt domain.ResourceType, id uuid.UUID, role domain.Role) error {
	table, _, err := grantTable(rt)
	if err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET role = $1 WHERE id = $2`, table), role, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePermission
		}
		return fmt.Errorf("failed to update permission: %w", err)
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

func (r *PermissionRepository) Delete(ctx context.Context, q sqlx.ExtContext, rt domain.ResourceType, id uuid.UUID) error {
	table, _, err := grantTable(rt)
	if err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
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
