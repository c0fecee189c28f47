package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cirrusdrive/internal/auth"
	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
	fileService   *service.FileService
}

func NewFolderHandler(folderService *service.FolderService, fileService *service.FileService) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		fileService:   fileService,
	}
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// GetFolderContent отдаёт папку вместе с видимыми пользователю
// подпапками и файлами. Без id отдаётся корневой уровень.
func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var folder *domain.Folder
	var parentID *uuid.UUID

	if idStr := chi.URLParam(r, "id"); idStr != "" {
		folderID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}

		folder, err = h.folderService.GetFolder(r.Context(), userID, folderID)
		if err != nil {
			writeError(w, err)
			return
		}
		parentID = &folder.ID
	}

	folders, err := h.folderService.ListFolders(r.Context(), userID, parentID)
	if err != nil {
		writeError(w, err)
		return
	}

	files, err := h.fileService.ListFiles(r.Context(), userID, parentID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := struct {
		Folder  *domain.Folder  `json:"folder,omitempty"`
		Folders []domain.Folder `json:"folders"`
		Files   []domain.File   `json:"files"`
	}{
		Folder:  folder,
		Folders: folders,
		Files:   files,
	}

	writeJSON(w, http.StatusOK, response)
}

// GetFolderPath строит хлебные крошки от корня до папки
func (h *FolderHandler) GetFolderPath(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	path, err := h.folderService.GetPath(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Path []domain.PathPart `json:"path"`
	}{Path: path})
}

func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var update domain.FolderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), userID, folderID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
