package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/repository"
	"cirrusdrive/internal/service/s3"
)

// memStorage — блоб-хранилище в памяти для интеграционных тестов
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) UploadBytes(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) GetObject(_ context.Context, key string) (s3.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memObject{Reader: bytes.NewReader(data), size: int64(len(data))}, nil
}

func (m *memStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type memObject struct {
	*bytes.Reader
	size int64
}

func (o *memObject) Close() error         { return nil }
func (o *memObject) ContentLength() int64 { return o.size }
func (o *memObject) ContentType() string  { return "application/octet-stream" }

type testEnv struct {
	db      *sqlx.DB
	storage *memStorage

	users       *repository.UserRepository
	folders     *FolderService
	files       *FileService
	permissions *PermissionService
	copies      *CopyService
	moves       *MoveService
	links       *LinkService
}

// newTestEnv подключается к базе из TEST_DATABASE_URL, прогоняет миграции
// и очищает таблицы. Без заданной переменной тест пропускается.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := migrate.New("file://../../migrations", url)
	require.NoError(t, err)
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to run migrations: %v", err)
	}

	_, err = db.Exec(`TRUNCATE users, folders, files, folder_permissions, file_permissions, links CASCADE`)
	require.NoError(t, err)

	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	userRepo := repository.NewUserRepository(db)
	storage := newMemStorage()

	return &testEnv{
		db:          db,
		storage:     storage,
		users:       userRepo,
		folders:     NewFolderService(db, folderRepo, permRepo),
		files:       NewFileService(db, fileRepo, folderRepo, permRepo, storage),
		permissions: NewPermissionService(db, permRepo, userRepo),
		copies:      NewCopyService(db, folderRepo, fileRepo, permRepo),
		moves:       NewMoveService(db, folderRepo, fileRepo, permRepo),
		links:       NewLinkService(db, linkRepo, fileRepo, folderRepo, permRepo),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{ID: uuid.New(), Email: email, Name: email}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) uploadFile(t *testing.T, actorID uuid.UUID, name string, folderID *uuid.UUID, data []byte) *domain.File {
	t.Helper()
	file, err := e.files.Upload(context.Background(), actorID, &domain.FileUpload{
		Name:     name,
		FolderID: folderID,
		Data:     data,
	})
	require.NoError(t, err)
	return file
}

func TestFolderSiblingNameUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	_, err := env.folders.CreateFolder(ctx, alice.ID, "Docs", nil)
	require.NoError(t, err)

	_, err = env.folders.CreateFolder(ctx, alice.ID, "Docs", nil)
	assert.ErrorIs(t, err, domain.ErrFileExists)

	// То же имя в другом родителе допустимо
	parent, err := env.folders.CreateFolder(ctx, alice.ID, "Projects", nil)
	require.NoError(t, err)
	_, err = env.folders.CreateFolder(ctx, alice.ID, "Docs", &parent.ID)
	assert.NoError(t, err)
}

func TestCreateFolderRequiresWriteOnParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	parent, err := env.folders.CreateFolder(ctx, alice.ID, "Shared", nil)
	require.NoError(t, err)

	// Без роли на родителя создание отклоняется
	_, err = env.folders.CreateFolder(ctx, bob.ID, "Intruder", &parent.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// viewer читает, но не пишет
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(parent.ID), domain.RoleViewer)
	require.NoError(t, err)
	_, err = env.folders.CreateFolder(ctx, bob.ID, "Intruder", &parent.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

// Сценарий: владелец выдаёт viewer-грант, субъект видит ресурс, но не
// может его удалить; посторонний не видит ресурс вовсе
func TestGrantVisibilityAndDeletePolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")
	carol := env.createUser(t, "carol@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Reports", nil)
	require.NoError(t, err)

	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleViewer)
	require.NoError(t, err)

	got, err := env.folders.GetFolder(ctx, bob.ID, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, got.ID)

	// Папка существует и видима, но роли не хватает: FORBIDDEN, не NOT_FOUND
	err = env.folders.DeleteFolder(ctx, bob.ID, folder.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Посторонний не должен узнать о существовании папки
	_, err = env.folders.GetFolder(ctx, carol.ID, folder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = env.folders.DeleteFolder(ctx, alice.ID, folder.ID)
	assert.NoError(t, err)
}

func TestDuplicateGrantRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Reports", nil)
	require.NoError(t, err)

	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleEditor)
	require.NoError(t, err)

	// Повторная выдача той же роли
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleEditor)
	assert.ErrorIs(t, err, domain.ErrDuplicatePermission)

	// И другой роли тому же субъекту: одна активная роль на пару
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrDuplicatePermission)

	grants, err := env.permissions.ListForResource(ctx, alice.ID, domain.FolderRef(folder.ID))
	require.NoError(t, err)
	assert.Len(t, grants, 2) // owner самой alice и editor для bob
}

func TestGrantRequiresOwnerAndKnownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")
	carol := env.createUser(t, "carol@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Reports", nil)
	require.NoError(t, err)

	_, err = env.permissions.Grant(ctx, alice.ID, "nobody@example.com", domain.FolderRef(folder.ID), domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.Role("superuser"))
	assert.ErrorIs(t, err, domain.ErrBadInput)

	// editor не вправе раздавать гранты
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleEditor)
	require.NoError(t, err)
	_, err = env.permissions.Grant(ctx, bob.ID, carol.Email, domain.FolderRef(folder.ID), domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// Сценарий: копия папки получает имя "X (Copy)", дети сохраняют свои
// имена, гранты источника переносятся, автор копии становится владельцем
func TestCopyFolderDeep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	root, err := env.folders.CreateFolder(ctx, alice.ID, "Project", nil)
	require.NoError(t, err)
	child, err := env.folders.CreateFolder(ctx, alice.ID, "Assets", &root.ID)
	require.NoError(t, err)
	env.uploadFile(t, alice.ID, "readme.txt", &root.ID, []byte("hello"))

	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(root.ID), domain.RoleViewer)
	require.NoError(t, err)

	copied, err := env.copies.CopyFolder(ctx, alice.ID, root.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Project (Copy)", copied.Name)

	// Повторная копия в тот же уровень получает суффикс со счётчиком
	second, err := env.copies.CopyFolder(ctx, alice.ID, root.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Project (Copy) (1)", second.Name)

	// Дети копии сохраняют исходные имена
	children, err := env.folders.ListFolders(ctx, alice.ID, &copied.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Assets", children[0].Name)
	assert.NotEqual(t, child.ID, children[0].ID)

	files, err := env.files.ListFiles(ctx, alice.ID, &copied.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "readme.txt", files[0].Name)

	// Грант bob перенесён: копия видна и ему
	_, err = env.folders.GetFolder(ctx, bob.ID, copied.ID)
	assert.NoError(t, err)

	// Автор копии владеет ею
	isOwner, err := env.permissions.HasRole(ctx, alice.ID, domain.FolderRef(copied.ID), domain.RoleOwner)
	require.NoError(t, err)
	assert.True(t, isOwner)
}

// Копия папки в само поддерево источника должна отклоняться: иначе
// свежие строки копии попадают в обход детей и рекурсия не завершается
func TestCopyFolderIntoOwnSubtreeRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	a, err := env.folders.CreateFolder(ctx, alice.ID, "A", nil)
	require.NoError(t, err)
	b, err := env.folders.CreateFolder(ctx, alice.ID, "B", &a.ID)
	require.NoError(t, err)
	c, err := env.folders.CreateFolder(ctx, alice.ID, "C", &b.ID)
	require.NoError(t, err)

	_, err = env.copies.CopyFolder(ctx, alice.ID, a.ID, &a.ID)
	assert.ErrorIs(t, err, domain.ErrCycle)

	_, err = env.copies.CopyFolder(ctx, alice.ID, a.ID, &c.ID)
	assert.ErrorIs(t, err, domain.ErrCycle)

	// Состояние не изменилось: частичных копий нет
	children, err := env.folders.ListFolders(ctx, alice.ID, &a.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "B", children[0].Name)

	// Копия поддерева в сторонний узел по-прежнему работает
	_, err = env.copies.CopyFolder(ctx, alice.ID, b.ID, nil)
	assert.NoError(t, err)
}

func TestCopyFileSharesBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Docs", nil)
	require.NoError(t, err)
	original := env.uploadFile(t, alice.ID, "notes.txt", &folder.ID, []byte("content"))

	copied, err := env.copies.CopyFile(ctx, alice.ID, original.ID, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt (Copy)", copied.Name)

	// Поверхностная копия: байты не дублируются
	assert.Equal(t, original.StorageKey, copied.StorageKey)

	// Удаление одной строки не трогает блоб, пока жива вторая
	require.NoError(t, env.files.DeleteFile(ctx, alice.ID, copied.ID))
	assert.True(t, env.storage.has(original.StorageKey))

	require.NoError(t, env.files.DeleteFile(ctx, alice.ID, original.ID))
	assert.False(t, env.storage.has(original.StorageKey))
}

// Сценарий: перемещение папки внутрь собственного поддерева отклоняется
// целиком, состояние не меняется
func TestMoveCycleRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	a, err := env.folders.CreateFolder(ctx, alice.ID, "A", nil)
	require.NoError(t, err)
	b, err := env.folders.CreateFolder(ctx, alice.ID, "B", &a.ID)
	require.NoError(t, err)
	c, err := env.folders.CreateFolder(ctx, alice.ID, "C", &b.ID)
	require.NoError(t, err)

	err = env.moves.MoveFolders(ctx, alice.ID, []uuid.UUID{a.ID}, &c.ID)
	assert.ErrorIs(t, err, domain.ErrCycle)

	err = env.moves.MoveFolders(ctx, alice.ID, []uuid.UUID{a.ID}, &a.ID)
	assert.ErrorIs(t, err, domain.ErrCycle)

	// Дерево не изменилось
	got, err := env.folders.GetFolder(ctx, alice.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestMoveBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	src, err := env.folders.CreateFolder(ctx, alice.ID, "Inbox", nil)
	require.NoError(t, err)
	dst, err := env.folders.CreateFolder(ctx, alice.ID, "Archive", nil)
	require.NoError(t, err)

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "2025", &src.ID)
	require.NoError(t, err)
	file := env.uploadFile(t, alice.ID, "report.pdf", &src.ID, []byte("pdf"))

	require.NoError(t, env.moves.MoveFolders(ctx, alice.ID, []uuid.UUID{folder.ID}, &dst.ID))
	require.NoError(t, env.moves.MoveFiles(ctx, alice.ID, []uuid.UUID{file.ID}, &dst.ID))

	movedFolder, err := env.folders.GetFolder(ctx, alice.ID, folder.ID)
	require.NoError(t, err)
	require.NotNil(t, movedFolder.ParentID)
	assert.Equal(t, dst.ID, *movedFolder.ParentID)

	movedFile, err := env.files.GetFile(ctx, alice.ID, file.ID)
	require.NoError(t, err)
	require.NotNil(t, movedFile.FolderID)
	assert.Equal(t, dst.ID, *movedFile.FolderID)
}

func TestMoveRequiresWriteAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	src, err := env.folders.CreateFolder(ctx, alice.ID, "Private", nil)
	require.NoError(t, err)
	dst, err := env.folders.CreateFolder(ctx, bob.ID, "BobDocs", nil)
	require.NoError(t, err)

	// bob не видит чужую папку
	err = env.moves.MoveFolders(ctx, bob.ID, []uuid.UUID{src.ID}, &dst.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// viewer видит, но двигать не может
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(src.ID), domain.RoleViewer)
	require.NoError(t, err)
	err = env.moves.MoveFolders(ctx, bob.ID, []uuid.UUID{src.ID}, &dst.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

// Сценарий: ссылка с паролем и сроком действия. Порядок отказов:
// неизвестный токен, истёкший срок, неверный пароль.
func TestLinkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Public", nil)
	require.NoError(t, err)

	// Не владелец не может выдать ссылку; отказ маскируется под NOT_FOUND
	_, err = env.links.Issue(ctx, bob.ID, domain.FolderRef(folder.ID), LinkOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	link, err := env.links.Issue(ctx, alice.ID, domain.FolderRef(folder.ID), LinkOptions{Password: "s3cret"})
	require.NoError(t, err)

	_, err = env.links.Resolve(ctx, "no-such-token", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.links.Resolve(ctx, link.Token, "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	shared, err := env.links.Resolve(ctx, link.Token, "s3cret")
	require.NoError(t, err)
	require.NotNil(t, shared.Folder)
	assert.Equal(t, folder.ID, shared.Folder.ID)

	// Истёкшая ссылка отвечает GONE даже при верном пароле
	past := time.Now().Add(-time.Hour)
	expired, err := env.links.Issue(ctx, alice.ID, domain.FolderRef(folder.ID), LinkOptions{ExpiresAt: &past})
	require.NoError(t, err)
	_, err = env.links.Resolve(ctx, expired.Token, "")
	assert.ErrorIs(t, err, domain.ErrGone)
}

func TestRevokeLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Public", nil)
	require.NoError(t, err)
	link, err := env.links.Issue(ctx, alice.ID, domain.FolderRef(folder.ID), LinkOptions{})
	require.NoError(t, err)

	// Чужую ссылку отозвать нельзя, отказ неотличим от несуществующей
	err = env.links.Revoke(ctx, bob.ID, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.links.Revoke(ctx, alice.ID, link.ID))

	_, err = env.links.Resolve(ctx, link.Token, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = env.links.Revoke(ctx, alice.ID, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFolderCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	root, err := env.folders.CreateFolder(ctx, alice.ID, "Root", nil)
	require.NoError(t, err)
	child, err := env.folders.CreateFolder(ctx, alice.ID, "Child", &root.ID)
	require.NoError(t, err)
	file := env.uploadFile(t, alice.ID, "data.bin", &child.ID, []byte{1, 2, 3})

	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(child.ID), domain.RoleViewer)
	require.NoError(t, err)
	link, err := env.links.Issue(ctx, alice.ID, domain.FileRef(file.ID), LinkOptions{})
	require.NoError(t, err)

	require.NoError(t, env.folders.DeleteFolder(ctx, alice.ID, root.ID))

	_, err = env.folders.GetFolder(ctx, alice.ID, child.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.files.GetFile(ctx, alice.ID, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.links.Resolve(ctx, link.Token, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Удаление несуществующего отличимо от нехватки прав
	err = env.folders.DeleteFolder(ctx, alice.ID, root.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateMetadataOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")
	carol := env.createUser(t, "carol@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Old", nil)
	require.NoError(t, err)
	_, err = env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleEditor)
	require.NoError(t, err)

	newName := "New"
	starred := true

	// editor не мутирует метаданные
	_, err = env.folders.UpdateFolder(ctx, bob.ID, folder.ID, domain.FolderUpdate{Name: &newName})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// посторонний получает NOT_FOUND
	_, err = env.folders.UpdateFolder(ctx, carol.ID, folder.ID, domain.FolderUpdate{Name: &newName})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := env.folders.UpdateFolder(ctx, alice.ID, folder.ID, domain.FolderUpdate{Name: &newName, Starred: &starred})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.True(t, updated.Starred)
}

func TestDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	content := []byte("round trip payload")
	file := env.uploadFile(t, alice.ID, "payload.bin", nil, content)

	download, err := env.files.Download(ctx, alice.ID, file.ID)
	require.NoError(t, err)
	defer download.Object.Close()

	got, err := io.ReadAll(download.Object)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), download.File.SizeBytes)
}

func TestBreadcrumbPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")

	a, err := env.folders.CreateFolder(ctx, alice.ID, "A", nil)
	require.NoError(t, err)
	b, err := env.folders.CreateFolder(ctx, alice.ID, "B", &a.ID)
	require.NoError(t, err)

	path, err := env.folders.GetPath(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Root", path[0].Name)
	assert.Equal(t, "A", path[1].Name)
	assert.Equal(t, "B", path[2].Name)
}

// Смена роли гранта выполняется на месте одним вызовом, без пары
// revoke+grant
func TestUpdatePermissionRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Shared", nil)
	require.NoError(t, err)

	grant, err := env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleViewer)
	require.NoError(t, err)

	// Не владелец менять роли не может
	_, err = env.permissions.UpdateRole(ctx, bob.ID, domain.ResourceTypeFolder, grant.ID, domain.RoleEditor)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Неизвестная роль и неизвестный грант
	_, err = env.permissions.UpdateRole(ctx, alice.ID, domain.ResourceTypeFolder, grant.ID, domain.Role("superuser"))
	assert.ErrorIs(t, err, domain.ErrBadInput)
	_, err = env.permissions.UpdateRole(ctx, alice.ID, domain.ResourceTypeFolder, uuid.New(), domain.RoleEditor)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := env.permissions.UpdateRole(ctx, alice.ID, domain.ResourceTypeFolder, grant.ID, domain.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, updated.Role)

	role, ok, err := env.permissions.RoleOf(ctx, bob.ID, domain.FolderRef(folder.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RoleEditor, role)
}

func TestRevokePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")

	folder, err := env.folders.CreateFolder(ctx, alice.ID, "Shared", nil)
	require.NoError(t, err)

	grant, err := env.permissions.Grant(ctx, alice.ID, bob.Email, domain.FolderRef(folder.ID), domain.RoleViewer)
	require.NoError(t, err)

	require.NoError(t, env.permissions.Revoke(ctx, alice.ID, domain.ResourceTypeFolder, grant.ID))

	_, err = env.folders.GetFolder(ctx, bob.ID, folder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = env.permissions.Revoke(ctx, alice.ID, domain.ResourceTypeFolder, grant.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
