package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"cirrusdrive/internal/auth"
	"cirrusdrive/internal/config"
	"cirrusdrive/internal/handler"
	"cirrusdrive/internal/repository"
	"cirrusdrive/internal/service"
	"cirrusdrive/internal/service/s3"
)

func connectWithRetry(cfg *config.DatabaseConfig, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.GetDSN()

	// Сначала подключаемся к системной базе postgres и при необходимости
	// создаём рабочую базу
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(&appConfig.Database, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Проверка bearer-токенов
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	auth.Init(authConfig)

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	linkRepo := repository.NewLinkRepository(db)

	// Инициализация сервисов
	permissionService := service.NewPermissionService(db, permissionRepo, userRepo)
	folderService := service.NewFolderService(db, folderRepo, permissionRepo)
	fileService := service.NewFileService(db, fileRepo, folderRepo, permissionRepo, s3Client)
	copyService := service.NewCopyService(db, folderRepo, fileRepo, permissionRepo)
	moveService := service.NewMoveService(db, folderRepo, fileRepo, permissionRepo)
	linkService := service.NewLinkService(db, linkRepo, fileRepo, folderRepo, permissionRepo)

	// Инициализация хендлеров
	userHandler := handler.NewUserHandler(userRepo)
	folderHandler := handler.NewFolderHandler(folderService, fileService)
	fileHandler := handler.NewFileHandler(fileService)
	permissionHandler := handler.NewPermissionHandler(permissionService)
	linkHandler := handler.NewLinkHandler(linkService)
	transferHandler := handler.NewTransferHandler(copyService, moveService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Link-Password"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", userHandler.Register)
		r.Get("/users/me", userHandler.Me)

		r.Get("/folders", folderHandler.GetFolderContent)
		r.Post("/folders", folderHandler.CreateFolder)
		r.Get("/folders/{id}", folderHandler.GetFolderContent)
		r.Get("/folders/{id}/path", folderHandler.GetFolderPath)
		r.Patch("/folders/{id}", folderHandler.UpdateFolder)
		r.Delete("/folders/{id}", folderHandler.DeleteFolder)

		r.Post("/files", fileHandler.UploadFile)
		r.Get("/files/{id}", fileHandler.GetFile)
		r.Get("/files/{id}/content", fileHandler.DownloadFile)
		r.Patch("/files/{id}", fileHandler.UpdateFile)
		r.Delete("/files/{id}", fileHandler.DeleteFile)

		r.Route("/{resource_type}/{id}", func(r chi.Router) {
			r.Post("/permissions", permissionHandler.GrantPermission)
			r.Get("/permissions", permissionHandler.ListPermissions)
			r.Post("/links", linkHandler.IssueLink)
		})
		r.Patch("/permissions/{resource_type}/{permission_id}", permissionHandler.UpdatePermission)
		r.Delete("/permissions/{resource_type}/{permission_id}", permissionHandler.RevokePermission)

		r.Post("/copy/file", transferHandler.CopyFile)
		r.Post("/copy/folder", transferHandler.CopyFolder)
		r.Post("/move", transferHandler.Move)

		r.Get("/links", linkHandler.ListLinks)
		r.Delete("/links/{id}", linkHandler.RevokeLink)
	})

	// Анонимный доступ по публичной ссылке
	r.Get("/s/{token}", linkHandler.ResolveLink)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
