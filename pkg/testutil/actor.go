package testutil

import (
	"net/http"

	"cmms/internal/platform/middleware"
	id "cmms/pkg/domain"
)

// AsActor attaches an authenticated actor to the request context.
// This simulates what the auth middleware would do for a valid token.
func AsActor(req *http.Request, actor middleware.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

// AsRole attaches an actor with just a role, for routes that do not need
// club scoping.
func AsRole(req *http.Request, userID id.UserID, role middleware.Role) *http.Request {
	return AsActor(req, middleware.Actor{UserID: userID, Role: role})
}
