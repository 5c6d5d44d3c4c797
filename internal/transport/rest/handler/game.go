package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"sprintquest/internal/model"
	"sprintquest/internal/service"
	"sprintquest/internal/transport/rest/middleware"
)

// GameHandler handles in-game actions. The acting participant always comes
// from the token, never from the body.
type GameHandler struct {
	sessionSvc *service.SessionService
}

// NewGameHandler creates a new game handler
func NewGameHandler(sessionSvc *service.SessionService) *GameHandler {
	return &GameHandler{sessionSvc: sessionSvc}
}

// AssignRoleRequest is the request body for changing a role
type AssignRoleRequest struct {
	Name string     `json:"name"` // Defaults to the caller
	Role model.Role `json:"role"`
}

// VoteRequest is the request body for casting a vote
type VoteRequest struct {
	ItemID string `json:"itemId"`
}

// AssignRole handles PUT /v1/sessions/{id}/roles
func (h *GameHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	actor := middleware.GetParticipant(r.Context())

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := req.Name
	if target == "" {
		target = actor
	}

	if err := h.sessionSvc.AssignRole(id, actor, target, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": target, "role": string(req.Role)})
}

// StartVoting handles POST /v1/sessions/{id}/voting/start
func (h *GameHandler) StartVoting(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionSvc.StartVoting)
}

// ResolveVoting handles POST /v1/sessions/{id}/voting/resolve
func (h *GameHandler) ResolveVoting(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionSvc.ResolveVoting)
}

// AcknowledgeEvent handles POST /v1/sessions/{id}/event/ack
func (h *GameHandler) AcknowledgeEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionSvc.AcknowledgeEvent)
}

// EndTurn handles POST /v1/sessions/{id}/turn/end
func (h *GameHandler) EndTurn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionSvc.EndTurn)
}

// End handles POST /v1/sessions/{id}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	actor := middleware.GetParticipant(r.Context())

	if err := h.sessionSvc.End(id, actor); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// SubmitVote handles POST /v1/sessions/{id}/votes
func (h *GameHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	actor := middleware.GetParticipant(r.Context())

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	if err := h.sessionSvc.SubmitVote(id, actor, req.ItemID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"itemId": req.ItemID})
}

// CompleteTask handles POST /v1/sessions/{id}/tasks/{itemId}/complete
func (h *GameHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	actor := middleware.GetParticipant(r.Context())

	if err := h.sessionSvc.CompleteTask(vars["id"], actor, vars["itemId"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"itemId": vars["itemId"]})
}

// UsePower handles POST /v1/sessions/{id}/powers/{power}
func (h *GameHandler) UsePower(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	actor := middleware.GetParticipant(r.Context())

	used, err := h.sessionSvc.UsePower(vars["id"], actor, vars["power"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"power": vars["power"],
		"used":  used,
	})
}

func (h *GameHandler) transition(w http.ResponseWriter, r *http.Request, fn func(id, actor string) error) {
	id := mux.Vars(r)["id"]
	actor := middleware.GetParticipant(r.Context())

	if err := fn(id, actor); err != nil {
		writeServiceError(w, err)
		return
	}

	state, err := h.sessionSvc.Get(r.Context(), id)
	if err != nil {
		// The game may have finished and been torn down
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phase": state.Phase,
		"turn":  state.Turn,
	})
}
