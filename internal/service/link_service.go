package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/repository"
)

// LinkService — реестр публичных ссылок. Ссылка выдаётся владельцем,
// разрешается анонимно по токену и живёт независимо от таблиц прав.
type LinkService struct {
	db      *sqlx.DB
	links   *repository.LinkRepository
	files   *repository.FileRepository
	folders *repository.FolderRepository
	perms   *repository.PermissionRepository
}

func NewLinkService(
	db *sqlx.DB,
	links *repository.LinkRepository,
	files *repository.FileRepository,
	folders *repository.FolderRepository,
	perms *repository.PermissionRepository,
) *LinkService {
	return &LinkService{
		db:      db,
		links:   links,
		files:   files,
		folders: folders,
		perms:   perms,
	}
}

// LinkOptions — необязательные ограничения выдаваемой ссылки
type LinkOptions struct {
	Password  string
	ExpiresAt *time.Time
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// Issue создаёт публичную ссылку на ресурс. Выдавать ссылки может только
// владелец; отказ маскируется под NOT_FOUND, чтобы не раскрывать
// существование чужого ресурса.
func (s *LinkService) Issue(ctx context.Context, actorID uuid.UUID, resource domain.ResourceRef, opts LinkOptions) (*domain.Link, error) {
	isOwner, err := s.perms.HasRole(ctx, s.db, actorID, resource, domain.RoleOwner)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, domain.ErrNotFound
	}

	link := &domain.Link{
		ID:        uuid.New(),
		UserID:    actorID,
		ExpiresAt: opts.ExpiresAt,
	}
	switch resource.Type {
	case domain.ResourceTypeFile:
		id := resource.ID
		link.FileID = &id
	case domain.ResourceTypeFolder:
		id := resource.ID
		link.FolderID = &id
	default:
		return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrBadInput, resource.Type)
	}

	if opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash link password: %w", err)
		}
		hashStr := string(hash)
		link.PasswordHash = &hashStr
	}

	// Коллизия токена практически невозможна, но уникальный индекс
	// её всё же ловит; одной повторной попытки достаточно
	for attempt := 0; attempt < 2; attempt++ {
		link.Token, err = generateToken()
		if err != nil {
			return nil, err
		}

		err = s.links.Insert(ctx, s.db, link)
		if err == nil {
			log.Printf("[Issue] User %s issued link for %s %s", actorID, resource.Type, resource.ID)
			return link, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: token collision persisted", domain.ErrInternal)
}

// Resolve разрешает ссылку по токену. Порядок проверок фиксирован:
// существование, срок действия, пароль. Просроченная ссылка отвечает
// GONE, а не NOT_FOUND: ресурс был, но доступ истёк.
func (s *LinkService) Resolve(ctx context.Context, token, password string) (*domain.SharedResource, error) {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrGone
	}

	if link.PasswordHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(password)); err != nil {
			return nil, domain.ErrUnauthorized
		}
	}

	// Ссылка разрешается в сам ресурс, минуя реестр прав
	if link.FileID != nil {
		file, err := s.files.GetByID(ctx, *link.FileID)
		if err != nil {
			return nil, err
		}
		return &domain.SharedResource{ResourceType: domain.ResourceTypeFile, File: file}, nil
	}

	folder, err := s.folders.GetByID(ctx, *link.FolderID)
	if err != nil {
		return nil, err
	}
	return &domain.SharedResource{ResourceType: domain.ResourceTypeFolder, Folder: folder}, nil
}

// ListForUser возвращает ссылки, выданные пользователем
func (s *LinkService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Link, error) {
	return s.links.ListByUser(ctx, userID)
}

// Revoke удаляет ссылку, выданную пользователем. Чужая или
// несуществующая ссылка неразличимы: NOT_FOUND.
func (s *LinkService) Revoke(ctx context.Context, actorID, linkID uuid.UUID) error {
	link, err := s.links.GetForUser(ctx, actorID, linkID)
	if err != nil {
		return err
	}

	return s.links.Delete(ctx, link.ID)
}
