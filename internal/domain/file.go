package domain

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	FolderID   *uuid.UUID `json:"folder_id,omitempty" db:"folder_id"`
	StorageKey string     `json:"-" db:"storage_key"`
	MIMEType   string     `json:"mime_type" db:"mime_type"`
	Ext        string     `json:"ext" db:"ext"`
	SizeBytes  int64      `json:"size_bytes" db:"size_bytes"`
	Starred    bool       `json:"starred" db:"starred"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// FileUpload — входные данные загрузки файла
type FileUpload struct {
	Name     string
	MIMEType string
	FolderID *uuid.UUID
	Data     []byte
}

// FileUpdate описывает изменяемые поля файла. nil — поле не трогаем.
type FileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Starred *bool   `json:"starred,omitempty"`
}
