package taxes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// TaxableLine is one cart line's contribution to the tax base. Amount is the
// post-discount amount allocated to the line.
type TaxableLine struct {
	ProductID uuid.UUID
	Category  *string
	Amount    decimal.Decimal
	IsTaxable bool
}

// AppliedRate is one rate's contribution to the cart's tax.
type AppliedRate struct {
	RateID      uuid.UUID
	Name        string
	Type        enums.TaxType
	Rate        decimal.Decimal
	Base        decimal.Decimal
	Amount      decimal.Decimal
	IsInclusive bool
}

// Result is the full tax breakdown. Total excludes inclusive rates, whose
// amounts are already part of the listed prices.
type Result struct {
	Applied []AppliedRate
	Total   decimal.Decimal
}

// Calculate applies every matching rate to the lines it covers. Rates never
// exclude each other: each one taxes its own base independently and rounds
// its amount to two decimal places.
func Calculate(rates []models.TaxRate, lines []TaxableLine) Result {
	result := Result{Total: decimal.Zero}

	for _, rate := range rates {
		base := decimal.Zero
		for _, line := range lines {
			if !line.IsTaxable {
				continue
			}
			if !rateCoversLine(rate, line) {
				continue
			}
			base = base.Add(line.Amount)
		}
		if base.IsZero() {
			continue
		}

		amount := base.Mul(rate.Rate).Div(oneHundred).Round(2)
		result.Applied = append(result.Applied, AppliedRate{
			RateID:      rate.ID,
			Name:        rate.Name,
			Type:        rate.Type,
			Rate:        rate.Rate,
			Base:        base,
			Amount:      amount,
			IsInclusive: rate.IsInclusive,
		})
		if !rate.IsInclusive {
			result.Total = result.Total.Add(amount)
		}
	}

	return result
}

// rateCoversLine applies the rate's optional product/category allow-lists.
// Empty lists cover everything.
func rateCoversLine(rate models.TaxRate, line TaxableLine) bool {
	if len(rate.ApplicableProducts) > 0 {
		if !containsUUID(rate.ApplicableProducts, line.ProductID) {
			return false
		}
	}
	if len(rate.ApplicableCategories) > 0 {
		if line.Category == nil || !containsString(rate.ApplicableCategories, *line.Category) {
			return false
		}
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsUUID(values []uuid.UUID, target uuid.UUID) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
