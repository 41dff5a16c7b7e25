package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brightbasket/cart-backend/api/middleware"
	"github.com/brightbasket/cart-backend/internal/carts"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

// ownerFromRequest builds the cart owner from the identity the middleware
// resolved: a user id for signed-in requests, a session id for guests.
func ownerFromRequest(r *http.Request) (carts.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return carts.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return carts.NewUserOwner(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return carts.NewGuestOwner(sessionID), nil
	}
	return carts.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}

// userIDFromRequest returns the authenticated user id or unauthorized.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
