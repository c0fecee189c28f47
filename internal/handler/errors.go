package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cirrusdrive/internal/domain"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeError переводит доменную ошибку в HTTP-статус и JSON с кодом.
// Неизвестные ошибки не протекают наружу, клиент видит только INTERNAL.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrGone):
		status, message = http.StatusGone, "link expired"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrPermissionDenied):
		status, message = http.StatusForbidden, "access denied"
	case errors.Is(err, domain.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "authorization required"
	case errors.Is(err, domain.ErrBadInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFileExists):
		status, message = http.StatusConflict, "name already taken"
	case errors.Is(err, domain.ErrDuplicatePermission):
		status, message = http.StatusConflict, "permission already granted"
	case errors.Is(err, domain.ErrCycle):
		status, message = http.StatusConflict, "destination is inside the moved folder"
	default:
		log.Printf("[HTTP] Internal error: %v", err)
	}

	writeJSON(w, status, errorResponse{Code: domain.CodeOf(err), Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}
