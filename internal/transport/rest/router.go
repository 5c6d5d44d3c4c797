package rest

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"sprintquest/internal/service"
	"sprintquest/internal/transport/rest/handler"
	"sprintquest/internal/transport/rest/middleware"
	"sprintquest/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	WSHub          *ws.Hub
	Logger         *zap.Logger
	Authoritative  bool
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	gameHandler := handler.NewGameHandler(c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/join", sessionHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/code/{code}", sessionHandler.Lookup).Methods("GET", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{id}", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		role := "replica"
		if c.Authoritative {
			role = "authoritative"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"role":     role,
			"sessions": c.SessionService.Count(),
		})
	}).Methods("GET")

	// Participant routes (require a token for the session in the path)
	sessionRoutes := v1.PathPrefix("/sessions/{id}").Subrouter()
	sessionRoutes.Use(authMW.RequireParticipant)

	sessionRoutes.HandleFunc("", sessionHandler.Get).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/players", sessionHandler.Players).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/scoreboard", sessionHandler.Scoreboard).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/roles", gameHandler.AssignRole).Methods("PUT", "OPTIONS")
	sessionRoutes.HandleFunc("/voting/start", gameHandler.StartVoting).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/voting/resolve", gameHandler.ResolveVoting).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/votes", gameHandler.SubmitVote).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/event/ack", gameHandler.AcknowledgeEvent).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/tasks/{itemId}/complete", gameHandler.CompleteTask).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/powers/{power}", gameHandler.UsePower).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/turn/end", gameHandler.EndTurn).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/end", gameHandler.End).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
