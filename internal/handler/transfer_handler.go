package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"cirrusdrive/internal/auth"
	"cirrusdrive/internal/service"
)

// TransferHandler обслуживает копирование и перемещение узлов дерева
type TransferHandler struct {
	copyService *service.CopyService
	moveService *service.MoveService
}

func NewTransferHandler(copyService *service.CopyService, moveService *service.MoveService) *TransferHandler {
	return &TransferHandler{
		copyService: copyService,
		moveService: moveService,
	}
}

type copyFileRequest struct {
	FileID       uuid.UUID `json:"file_id"`
	DestFolderID uuid.UUID `json:"destination_folder_id"`
}

func (h *TransferHandler) CopyFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req copyFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := h.copyService.CopyFile(r.Context(), userID, req.FileID, req.DestFolderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

type copyFolderRequest struct {
	FolderID     uuid.UUID  `json:"folder_id"`
	DestParentID *uuid.UUID `json:"destination_parent_id,omitempty"`
}

func (h *TransferHandler) CopyFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req copyFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.copyService.CopyFolder(r.Context(), userID, req.FolderID, req.DestParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

type moveRequest struct {
	FolderIDs    []uuid.UUID `json:"folder_ids,omitempty"`
	FileIDs      []uuid.UUID `json:"file_ids,omitempty"`
	DestFolderID *uuid.UUID  `json:"destination_folder_id,omitempty"`
}

// Move перемещает пачку папок и файлов в общее назначение. Запрос —
// это ДВЕ независимые атомарные пачки: сперва папки, затем файлы.
// Каждая пачка коммитится или откатывается целиком, но отказ файловой
// пачки не откатывает уже перемещённые папки.
func (h *TransferHandler) Move(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.FolderIDs) == 0 && len(req.FileIDs) == 0 {
		http.Error(w, "Nothing to move", http.StatusBadRequest)
		return
	}

	if len(req.FolderIDs) > 0 {
		if err := h.moveService.MoveFolders(r.Context(), userID, req.FolderIDs, req.DestFolderID); err != nil {
			writeError(w, err)
			return
		}
	}

	if len(req.FileIDs) > 0 {
		if err := h.moveService.MoveFiles(r.Context(), userID, req.FileIDs, req.DestFolderID); err != nil {
			writeError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}
