package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cirrusdrive/internal/auth"
	"cirrusdrive/internal/domain"
	"cirrusdrive/internal/repository"
)

type UserHandler struct {
	users *repository.UserRepository
}

func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type registerResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register создаёт пользователя и выдаёт bearer-токен
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	user := &domain.User{
		ID:    uuid.New(),
		Email: req.Email,
		Name:  req.Name,
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.IssueToken(user.ID, 24*time.Hour)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{User: user, Token: token})
}

// Me возвращает профиль текущего пользователя
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
