package cart

import (
	"net/http"

	cartdto "github.com/brightbasket/cart-backend/api/controllers/cart/dto"
	"github.com/brightbasket/cart-backend/api/responses"
	"github.com/brightbasket/cart-backend/api/validators"
	"github.com/brightbasket/cart-backend/internal/cartmerge"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/logger"
)

// MergePreview computes the merge plan for the caller's guest cart without
// touching either cart.
func MergePreview(svc cartmerge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merge service unavailable"))
			return
		}

		req, err := mergeRequestFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Preview(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.NewMergePreviewView(plan))
	}
}

// MergeCommit folds the guest cart into the authenticated user's cart.
func MergeCommit(svc cartmerge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merge service unavailable"))
			return
		}

		req, err := mergeRequestFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Merge(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.NewMergeView(result))
	}
}

func mergeRequestFrom(r *http.Request) (cartmerge.Request, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return cartmerge.Request{}, err
	}

	var payload cartdto.MergeRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return cartmerge.Request{}, err
	}

	return cartmerge.Request{
		SessionToken: payload.SessionToken,
		UserID:       userID,
		Options:      payload.Options(),
	}, nil
}
