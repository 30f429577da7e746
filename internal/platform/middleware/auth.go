// Package middleware carries the request-scoped plumbing shared by every
// handler: actor identity, request ids, panic recovery, and request logging.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Role is the actor's platform role as asserted by the identity provider.
// The service trusts this claim; computing it is not this system's job.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleClubDirector Role = "CLUB_DIRECTOR"
	RoleStaffTeacher Role = "STAFF_TEACHER"
	RoleStudent      Role = "STUDENT_PARENT"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleClubDirector, RoleStaffTeacher, RoleStudent:
		return true
	}
	return false
}

// Actor is the authenticated caller. ClubID is set for club directors and
// student/parent accounts; it scopes every roster and registration operation.
type Actor struct {
	UserID id.UserID
	Role   Role
	ClubID id.ClubID
	Email  string
}

type contextKey string

const actorKey contextKey = "cmms.actor"

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithActor attaches an actor to the context. Exposed for tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

type actorClaims struct {
	Role   string `json:"role"`
	ClubID string `json:"club_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and stores the actor in context.
// Requests without a valid token are rejected before any handler runs.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			var claims actorClaims
			parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(signingKey), nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(r.Context(), "rejected invalid token", "error", err)
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			userID, err := id.ParseUserID(claims.Subject)
			if err != nil {
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid subject claim"))
				return
			}

			role := Role(claims.Role)
			if !role.IsValid() {
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid role claim"))
				return
			}

			actor := Actor{UserID: userID, Role: role, Email: claims.Email}
			if claims.ClubID != "" {
				clubID, err := id.ParseClubID(claims.ClubID)
				if err != nil {
					writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid club claim"))
					return
				}
				actor.ClubID = clubID
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole gates a route to specific roles. Denials are generic on purpose:
// no hint about what the role would have been allowed to see.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				writeAuthError(w, dErrors.New(dErrors.CodeForbidden, "You do not have permission to perform this action."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_, _ = w.Write([]byte(`{"error":"` + string(code) + `","message":"` + dErrors.MessageOf(err) + `"}`))
}
