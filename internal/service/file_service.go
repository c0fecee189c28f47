package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/repository"
	"cirrusdrive/internal/service/s3"
)

type FileService struct {
	db      *sqlx.DB
	files   *repository.FileRepository
	folders *repository.FolderRepository
	perms   *repository.PermissionRepository
	storage s3.Storage
}

func NewFileService(
	db *sqlx.DB,
	files *repository.FileRepository,
	folders *repository.FolderRepository,
	perms *repository.PermissionRepository,
	storage s3.Storage,
) *FileService {
	return &FileService{
		db:      db,
		files:   files,
		folders: folders,
		perms:   perms,
		storage: storage,
	}
}

// FileDownload — метаданные плюс поток байтов из блоб-хранилища
type FileDownload struct {
	File   *domain.File
	Object s3.Object
}

// Upload загружает байты в блоб-хранилище и создаёт строку файла
// вместе с owner-грантом одной транзакцией
func (s *FileService) Upload(ctx context.Context, actorID uuid.UUID, upload *domain.FileUpload) (*domain.File, error) {
	if upload.Name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrBadInput)
	}

	mimeType := upload.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(upload.Data)
	}

	file := &domain.File{
		ID:        uuid.New(),
		Name:      upload.Name,
		FolderID:  upload.FolderID,
		MIMEType:  mimeType,
		Ext:       strings.TrimPrefix(filepath.Ext(upload.Name), "."),
		SizeBytes: int64(len(upload.Data)),
	}
	file.StorageKey = file.ID.String()

	// Сначала байты: если транзакция метаданных не пройдёт,
	// осиротевший объект подчищается ниже
	if err := s.storage.UploadBytes(ctx, file.StorageKey, upload.Data); err != nil {
		return nil, fmt.Errorf("%w: failed to store file content: %v", domain.ErrInternal, err)
	}

	created, err := s.createRow(ctx, actorID, file)
	if err != nil {
		if delErr := s.storage.DeleteObject(ctx, file.StorageKey); delErr != nil {
			log.Printf("[Upload] Failed to clean up orphaned object %s: %v", file.StorageKey, delErr)
		}
		return nil, err
	}

	return created, nil
}

func (s *FileService) createRow(ctx context.Context, actorID uuid.UUID, file *domain.File) (*domain.File, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if file.FolderID != nil {
		var exists bool
		err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)`, *file.FolderID)
		if err != nil {
			return nil, fmt.Errorf("failed to check parent folder: %w", err)
		}
		if !exists {
			return nil, domain.ErrNotFound
		}

		role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FolderRef(*file.FolderID))
		if err != nil {
			return nil, err
		}
		if !ok || !role.CanWrite() {
			return nil, domain.ErrPermissionDenied
		}
	}

	if err := s.files.Insert(ctx, tx, file); err != nil {
		return nil, err
	}

	ownerGrant := &domain.Permission{
		ID:       uuid.New(),
		UserID:   actorID,
		Resource: domain.FileRef(file.ID),
		Role:     domain.RoleOwner,
	}
	if err := s.perms.Insert(ctx, tx, ownerGrant); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return file, nil
}

// GetFile возвращает файл, видимый субъекту (любая роль)
func (s *FileService) GetFile(ctx context.Context, userID, id uuid.UUID) (*domain.File, error) {
	return s.files.GetForSubject(ctx, userID, id)
}

// ListFiles возвращает файлы папки, видимые субъекту
func (s *FileService) ListFiles(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]domain.File, error) {
	return s.files.ListForSubject(ctx, userID, folderID)
}

// Download отдаёт метаданные и поток байтов файла
func (s *FileService) Download(ctx context.Context, userID, id uuid.UUID) (*FileDownload, error) {
	file, err := s.files.GetForSubject(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	object, err := s.storage.GetObject(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file content: %v", domain.ErrInternal, err)
	}

	return &FileDownload{File: file, Object: object}, nil
}

// UpdateFile меняет метаданные файла. Только владелец; editor — FORBIDDEN,
// посторонний — NOT_FOUND.
func (s *FileService) UpdateFile(ctx context.Context, actorID, id uuid.UUID, update domain.FileUpdate) (*domain.File, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	role, ok, err := s.perms.RoleOf(ctx, tx, actorID, domain.FileRef(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	if role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}

	var file domain.File
	if err := sqlx.GetContext(ctx, tx, &file, `SELECT * FROM files WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("%w: file name is required", domain.ErrBadInput)
		}
		file.Name = *update.Name
	}
	if update.Starred != nil {
		file.Starred = *update.Starred
	}

	if err := s.files.UpdateMeta(ctx, tx, &file); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &file, nil
}

// DeleteFile удаляет файл, его гранты и ссылки. Требуется роль owner.
// Физический объект удаляется после фиксации транзакции; неудача
// логируется и не откатывает логическое удаление.
func (s *FileService) DeleteFile(ctx context.Context, actorID, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := sqlx.GetContext(ctx, tx, &exists, `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check file: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	isOwner, err := s.perms.HasRole(ctx, tx, actorID, domain.FileRef(id), domain.RoleOwner)
	if err != nil {
		return err
	}
	if !isOwner {
		return domain.ErrForbidden
	}

	var file domain.File
	if err := sqlx.GetContext(ctx, tx, &file, `SELECT * FROM files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	if err := s.files.Delete(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Копии разделяют storage_key: байты удаляем, только когда на них
	// больше никто не ссылается
	var refs int
	if err := s.db.GetContext(ctx, &refs, `SELECT COUNT(*) FROM files WHERE storage_key = $1`, file.StorageKey); err != nil {
		log.Printf("[DeleteFile] Failed to count storage key refs for %s: %v", file.StorageKey, err)
		return nil
	}
	if refs == 0 {
		if err := s.storage.DeleteObject(ctx, file.StorageKey); err != nil {
			log.Printf("[DeleteFile] Failed to delete object %s: %v", file.StorageKey, err)
		}
	}

	return nil
}
