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

type PermissionHandler struct {
	permissionService *service.PermissionService
}

func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// resourceFromRequest собирает ссылку на ресурс из URL-параметров
// {resource_type} и {id}
func resourceFromRequest(r *http.Request) (domain.ResourceRef, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return domain.ResourceRef{}, false
	}

	switch domain.ResourceType(chi.URLParam(r, "resource_type")) {
	case domain.ResourceTypeFile:
		return domain.FileRef(id), true
	case domain.ResourceTypeFolder:
		return domain.FolderRef(id), true
	default:
		return domain.ResourceRef{}, false
	}
}

type grantRequest struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// GrantPermission выдаёт роль пользователю, указанному по email
func (h *PermissionHandler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resource, ok := resourceFromRequest(r)
	if !ok {
		http.Error(w, "Invalid resource", http.StatusBadRequest)
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	permission, err := h.permissionService.Grant(r.Context(), userID, req.Email, resource, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, permission)
}

// ListPermissions отдаёт гранты ресурса
func (h *PermissionHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resource, ok := resourceFromRequest(r)
	if !ok {
		http.Error(w, "Invalid resource", http.StatusBadRequest)
		return
	}

	permissions, err := h.permissionService.ListForResource(r.Context(), userID, resource)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Permissions []domain.Permission `json:"permissions"`
	}{Permissions: permissions})
}

type updateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// UpdatePermission меняет роль существующего гранта
func (h *PermissionHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rt := domain.ResourceType(chi.URLParam(r, "resource_type"))
	if rt != domain.ResourceTypeFile && rt != domain.ResourceTypeFolder {
		http.Error(w, "Invalid resource type", http.StatusBadRequest)
		return
	}

	permissionID, err := uuid.Parse(chi.URLParam(r, "permission_id"))
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	permission, err := h.permissionService.UpdateRole(r.Context(), userID, rt, permissionID, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, permission)
}

// RevokePermission отзывает грант по идентификатору
func (h *PermissionHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rt := domain.ResourceType(chi.URLParam(r, "resource_type"))
	if rt != domain.ResourceTypeFile && rt != domain.ResourceTypeFolder {
		http.Error(w, "Invalid resource type", http.StatusBadRequest)
		return
	}

	permissionID, err := uuid.Parse(chi.URLParam(r, "permission_id"))
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.Revoke(r.Context(), userID, rt, permissionID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
