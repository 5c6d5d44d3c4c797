package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"sprintquest/internal/service"
)

type contextKey string

const (
	SessionIDKey   contextKey = "sessionId"
	ParticipantKey contextKey = "participant"
	FacilitatorKey contextKey = "facilitator"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireParticipant validates a participant JWT from the Authorization header
// or the token query param. When the route carries an {id} var the token must
// belong to that session.
func (m *AuthMiddleware) RequireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			// WebSocket clients cannot set headers
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateParticipantToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		if id, ok := mux.Vars(r)["id"]; ok && id != claims.SessionID {
			http.Error(w, `{"error":"token is not valid for this session"}`, http.StatusForbidden)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
		ctx = context.WithValue(ctx, ParticipantKey, claims.Name)
		ctx = context.WithValue(ctx, FacilitatorKey, claims.Facilitator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID extracts the token's session id from context
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(SessionIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetParticipant extracts the participant name from context
func GetParticipant(ctx context.Context) string {
	if v := ctx.Value(ParticipantKey); v != nil {
		return v.(string)
	}
	return ""
}

// IsFacilitator reports the facilitator claim carried by the token
func IsFacilitator(ctx context.Context) bool {
	v, _ := ctx.Value(FacilitatorKey).(bool)
	return v
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
