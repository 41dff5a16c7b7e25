package cartdto

import (
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/internal/cartmerge"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// MergeRequest asks to fold the guest cart proven by the session token into
// the authenticated user's cart.
type MergeRequest struct {
	SessionToken      string `json:"sessionToken" validate:"required"`
	CombineQuantities bool   `json:"combineQuantities,omitempty"`
	PreferGuestPrice  bool   `json:"preferGuestPrice,omitempty"`
	PreferUserPrice   bool   `json:"preferUserPrice,omitempty"`
	PreserveMetadata  bool   `json:"preserveMetadata,omitempty"`
}

// Options maps the request flags onto merge options.
func (r MergeRequest) Options() cartmerge.Options {
	return cartmerge.Options{
		CombineQuantities: r.CombineQuantities,
		PreferGuestPrice:  r.PreferGuestPrice,
		PreferUserPrice:   r.PreferUserPrice,
		PreserveMetadata:  r.PreserveMetadata,
	}
}

// MergePreviewView shows what a merge would do without running it.
type MergePreviewView struct {
	ItemsAdded     int                  `json:"itemsAdded"`
	ItemsUpdated   int                  `json:"itemsUpdated"`
	Conflicts      []cartmerge.Conflict `json:"conflicts"`
	Metadata       types.Metadata       `json:"metadata,omitempty"`
	EstimatedTotal decimal.Decimal      `json:"estimatedTotal"`
}

// NewMergePreviewView maps a merge plan onto its wire shape.
func NewMergePreviewView(plan *cartmerge.Plan) MergePreviewView {
	return MergePreviewView{
		ItemsAdded:     len(plan.Adds),
		ItemsUpdated:   len(plan.Updates),
		Conflicts:      plan.Conflicts,
		Metadata:       plan.Metadata,
		EstimatedTotal: plan.EstimatedTotal,
	}
}

// MergeView reports an executed merge.
type MergeView struct {
	Cart         CartView             `json:"cart"`
	ItemsAdded   int                  `json:"itemsAdded"`
	ItemsUpdated int                  `json:"itemsUpdated"`
	Conflicts    []cartmerge.Conflict `json:"conflicts"`
}

// NewMergeView maps a merge result onto its wire shape.
func NewMergeView(result *cartmerge.Result) MergeView {
	return MergeView{
		Cart:         NewCartView(result.UserCart),
		ItemsAdded:   result.ItemsAdded,
		ItemsUpdated: result.ItemsUpdated,
		Conflicts:    result.Conflicts,
	}
}
