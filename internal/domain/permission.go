package domain

import "github.com/google/uuid"

type Role string
type ResourceType string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"

	ResourceTypeFile   ResourceType = "file"
	ResourceTypeFolder ResourceType = "folder"
)

// ValidRole проверяет, что строка является известной ролью
func ValidRole(r Role) bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// ResourceRef указывает ровно на один ресурс — файл или папку
type ResourceRef struct {
	Type ResourceType `json:"resource_type"`
	ID   uuid.UUID    `json:"resource_id"`
}

func FileRef(id uuid.UUID) ResourceRef {
	return ResourceRef{Type: ResourceTypeFile, ID: id}
}

func FolderRef(id uuid.UUID) ResourceRef {
	return ResourceRef{Type: ResourceTypeFolder, ID: id}
}

// Permission — запись (субъект, ресурс, роль). Одна модель обслуживает
// обе таблицы (file_permissions и folder_permissions), чтобы логика
// не расходилась между файлами и папками.
type Permission struct {
	ID       uuid.UUID   `json:"id" db:"id"`
	UserID   uuid.UUID   `json:"user_id" db:"user_id"`
	Resource ResourceRef `json:"resource"`
	Role     Role        `json:"role" db:"role"`
}

// CanWrite — достаточно ли роли для мутации содержимого (создание,
// загрузка, перемещение внутрь ресурса)
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}
