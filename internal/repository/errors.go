package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation определяет нарушение уникального ограничения Postgres
// (SQLSTATE 23505), чтобы сервисы получали ошибку таксономии, а не сырую
// ошибку драйвера
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
