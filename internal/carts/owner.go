package carts

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

// Owner identifies who a cart operation acts for: a signed-in user or an
// anonymous guest session. Exactly one of the two must be set.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *string
}

// NewUserOwner builds an Owner for a signed-in user.
func NewUserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// NewGuestOwner builds an Owner for a guest session.
func NewGuestOwner(sessionID string) Owner {
	return Owner{SessionID: &sessionID}
}

// IsGuest reports whether the owner is an anonymous session.
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Validate enforces the one-of-two ownership invariant.
func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := o.SessionID != nil && strings.TrimSpace(*o.SessionID) != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or session id is required")
	}
	return nil
}
