package domain

import (
	"time"

	"github.com/google/uuid"
)

// User — субъект. Живёт независимо от любых грантов: удаление гранта
// или ресурса пользователя не трогает.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
