package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sprintquest/internal/game"
	"sprintquest/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service and game errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), game.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, game.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrNotFacilitator):
		return http.StatusForbidden
	case errors.Is(err, game.ErrIllegalPhase),
		errors.Is(err, game.ErrVotesPending),
		errors.Is(err, game.ErrDuplicateName),
		errors.Is(err, game.ErrNoRole),
		errors.Is(err, game.ErrReadOnly),
		errors.Is(err, game.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
