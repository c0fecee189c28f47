package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cirrusdrive/internal/auth"
	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/service"
)

type LinkHandler struct {
	linkService *service.LinkService
}

func NewLinkHandler(linkService *service.LinkService) *LinkHandler {
	return &LinkHandler{linkService: linkService}
}

type issueLinkRequest struct {
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IssueLink создаёт публичную ссылку на ресурс из URL
func (h *LinkHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
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

	var req issueLinkRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	link, err := h.linkService.Issue(r.Context(), userID, resource, service.LinkOptions{
		Password:  req.Password,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// ListLinks отдаёт ссылки, выданные пользователем
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	links, err := h.linkService.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Links []domain.Link `json:"links"`
	}{Links: links})
}

// RevokeLink удаляет выданную ссылку
func (h *LinkHandler) RevokeLink(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	linkID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid link ID", http.StatusBadRequest)
		return
	}

	if err := h.linkService.Revoke(r.Context(), userID, linkID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResolveLink — анонимная точка входа по токену. Пароль, если ссылка
// защищена, передаётся заголовком X-Link-Password.
func (h *LinkHandler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	resource, err := h.linkService.Resolve(r.Context(), token, r.Header.Get("X-Link-Password"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resource)
}
