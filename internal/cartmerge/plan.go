package cartmerge

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// Options steer conflict resolution when the same line exists in both carts.
type Options struct {
	CombineQuantities bool `json:"combineQuantities"`
	PreferGuestPrice  bool `json:"preferGuestPrice"`
	PreferUserPrice   bool `json:"preferUserPrice"`
	PreserveMetadata  bool `json:"preserveMetadata"`
}

// Strategy is the metrics/reporting label for an option set.
func (o Options) Strategy() enums.ConflictResolution {
	switch {
	case o.CombineQuantities:
		return enums.ResolutionCombined
	case o.PreferUserPrice:
		return enums.ResolutionUser
	default:
		return enums.ResolutionGuest
	}
}

// Conflict records one line that existed in both carts, however it was
// resolved. Conflicts are returned for auditing and never persisted.
type Conflict struct {
	ProductID     uuid.UUID                `json:"productId"`
	VariantID     *string                  `json:"variantId,omitempty"`
	GuestQuantity int                      `json:"guestQuantity"`
	UserQuantity  int                      `json:"userQuantity"`
	GuestPrice    decimal.Decimal          `json:"guestPrice"`
	UserPrice     decimal.Decimal          `json:"userPrice"`
	Resolution    enums.ConflictResolution `json:"resolution"`
}

// ItemChange is one queued add or update against the user cart.
type ItemChange struct {
	ProductID     uuid.UUID
	VariantID     *string
	Quantity      int
	UnitPrice     decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      *string
	Metadata      types.Metadata
}

// Plan is the full outcome of reconciling a guest cart into a user cart.
// Preview returns it untouched; Merge applies it atomically. Both run the
// same BuildPlan so the preview always matches the eventual merge.
type Plan struct {
	Adds           []ItemChange
	Updates        []ItemChange
	Conflicts      []Conflict
	Metadata       types.Metadata
	EstimatedTotal decimal.Decimal
}

// BuildPlan reconciles the guest cart into the user cart line by line.
// Lines are keyed by (product, variant); a key present in both carts is a
// conflict resolved per the options:
//
//   - CombineQuantities sums the quantities; the price follows
//     PreferGuestPrice, defaulting to the user price.
//   - PreferUserPrice keeps the user line untouched and drops the guest line.
//   - PreferGuestPrice overwrites the user line with the guest quantity and
//     price.
//   - With no preference set, the line touched most recently wins: the user
//     line survives when its updated_at is newer, otherwise the guest line
//     overwrites it.
func BuildPlan(guest, user *models.Cart, opts Options) (*Plan, error) {
	if guest == nil || user == nil {
		return nil, fmt.Errorf("both carts required")
	}

	userLines := make(map[string]models.CartItem, len(user.Items))
	for _, item := range user.Items {
		userLines[lineKey(item.ProductID, item.VariantID)] = item
	}

	plan := &Plan{}
	resolved := make(map[string]ItemChange)

	for _, guestItem := range guest.Items {
		key := lineKey(guestItem.ProductID, guestItem.VariantID)
		userItem, clash := userLines[key]
		if !clash {
			plan.Adds = append(plan.Adds, changeFromItem(guestItem, guestItem.Quantity, guestItem.UnitPrice))
			continue
		}

		conflict := Conflict{
			ProductID:     guestItem.ProductID,
			VariantID:     guestItem.VariantID,
			GuestQuantity: guestItem.Quantity,
			UserQuantity:  userItem.Quantity,
			GuestPrice:    guestItem.UnitPrice,
			UserPrice:     userItem.UnitPrice,
		}

		switch {
		case opts.CombineQuantities:
			conflict.Resolution = enums.ResolutionCombined
			price := userItem.UnitPrice
			if opts.PreferGuestPrice {
				price = guestItem.UnitPrice
			}
			change := changeFromItem(guestItem, guestItem.Quantity+userItem.Quantity, price)
			plan.Updates = append(plan.Updates, change)
			resolved[key] = change
		case opts.PreferUserPrice:
			conflict.Resolution = enums.ResolutionUser
		case opts.PreferGuestPrice:
			conflict.Resolution = enums.ResolutionGuest
			change := changeFromItem(guestItem, guestItem.Quantity, guestItem.UnitPrice)
			plan.Updates = append(plan.Updates, change)
			resolved[key] = change
		default:
			// No preference: the most recently touched line wins.
			if userItem.UpdatedAt.After(guestItem.UpdatedAt) {
				conflict.Resolution = enums.ResolutionUser
				break
			}
			conflict.Resolution = enums.ResolutionGuest
			change := changeFromItem(guestItem, guestItem.Quantity, guestItem.UnitPrice)
			plan.Updates = append(plan.Updates, change)
			resolved[key] = change
		}

		plan.Conflicts = append(plan.Conflicts, conflict)
	}

	if opts.PreserveMetadata {
		plan.Metadata = user.Metadata.Merge(guest.Metadata)
	} else {
		plan.Metadata = user.Metadata.Clone()
	}

	plan.EstimatedTotal = estimateTotal(user.Items, resolved, plan.Adds)
	return plan, nil
}

// estimateTotal prices the user cart as it will look after the plan applies.
func estimateTotal(userItems []models.CartItem, resolved map[string]ItemChange, adds []ItemChange) decimal.Decimal {
	total := decimal.Zero
	for _, item := range userItems {
		if change, ok := resolved[lineKey(item.ProductID, item.VariantID)]; ok {
			total = total.Add(change.UnitPrice.Mul(decimal.NewFromInt(int64(change.Quantity))))
			continue
		}
		total = total.Add(item.LineSubtotal())
	}
	for _, change := range adds {
		total = total.Add(change.UnitPrice.Mul(decimal.NewFromInt(int64(change.Quantity))))
	}
	return total
}

func changeFromItem(item models.CartItem, quantity int, price decimal.Decimal) ItemChange {
	return ItemChange{
		ProductID:     item.ProductID,
		VariantID:     item.VariantID,
		Quantity:      quantity,
		UnitPrice:     price,
		OriginalPrice: item.OriginalPrice,
		Category:      item.Category,
		Metadata:      item.Metadata.Clone(),
	}
}

func lineKey(productID uuid.UUID, variantID *string) string {
	if variantID == nil {
		return productID.String()
	}
	return productID.String() + "|" + *variantID
}
