package enums

import "fmt"

// TaxType labels the regime a tax rate belongs to.
type TaxType string

const (
	TaxVAT         TaxType = "vat"
	TaxGST         TaxType = "gst"
	TaxSales       TaxType = "sales_tax"
	TaxConsumption TaxType = "consumption_tax"
)

var validTaxTypes = []TaxType{
	TaxVAT,
	TaxGST,
	TaxSales,
	TaxConsumption,
}

// String implements fmt.Stringer.
func (t TaxType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaxType.
func (t TaxType) IsValid() bool {
	for _, candidate := range validTaxTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaxType converts raw input into a TaxType.
func ParseTaxType(value string) (TaxType, error) {
	for _, candidate := range validTaxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tax type %q", value)
}
