package domain

import (
	"time"

	"github.com/google/uuid"
)

type Folder struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Starred   bool       `json:"starred" db:"starred"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// PathPart — один элемент хлебных крошек от корня до папки
type PathPart struct {
	ID   *uuid.UUID `json:"id"`
	Name string     `json:"name"`
}

// FolderUpdate описывает изменяемые поля папки. nil — поле не трогаем.
type FolderUpdate struct {
	Name    *string `json:"name,omitempty"`
	Starred *bool   `json:"starred,omitempty"`
}
