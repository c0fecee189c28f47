package domain

import (
	"time"

	"github.com/google/uuid"
)

// Link — публичная ссылка на один ресурс. Токен не угадываемый,
// доступ по ссылке не зависит от таблиц прав.
type Link struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Token        string     `json:"token" db:"token"`
	FileID       *uuid.UUID `json:"file_id,omitempty" db:"file_id"`
	FolderID     *uuid.UUID `json:"folder_id,omitempty" db:"folder_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	PasswordHash *string    `json:"-" db:"password_hash"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Target возвращает ссылку на целевой ресурс
func (l *Link) Target() ResourceRef {
	if l.FileID != nil {
		return FileRef(*l.FileID)
	}
	return FolderRef(*l.FolderID)
}

// SharedResource — результат разрешения ссылки: сам ресурс, не Link
type SharedResource struct {
	ResourceType ResourceType `json:"resource_type"`
	File         *File        `json:"file,omitempty"`
	Folder       *Folder      `json:"folder,omitempty"`
}
