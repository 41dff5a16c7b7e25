package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Address mirrors the address_t composite Postgres type used for shipping
// addresses. Country is required; narrower fields stay optional so tax rates
// can match at any specificity level.
type Address struct {
	Line1      string  `json:"line1,omitempty"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
}

// Normalized returns a copy with trimmed, upper-cased region codes.
func (a Address) Normalized() Address {
	out := a
	out.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	out.State = strings.ToUpper(strings.TrimSpace(a.State))
	out.City = strings.TrimSpace(a.City)
	out.PostalCode = strings.TrimSpace(a.PostalCode)
	out.Line1 = strings.TrimSpace(a.Line1)
	return out
}

// Value marshals Address into a Postgres composite literal.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Country) == "" {
		return nil, fmt.Errorf("address: missing country")
	}

	parts := []string{
		quoteCompositeString(a.Line1),
		quoteCompositeNullable(a.Line2),
		quoteCompositeString(a.City),
		quoteCompositeString(a.State),
		quoteCompositeString(a.PostalCode),
		quoteCompositeString(strings.ToUpper(strings.TrimSpace(a.Country))),
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the Postgres composite literal.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 6)
	if err != nil {
		return err
	}

	a.Line1 = fields[0]
	a.Line2 = newCompositeNullable(fields[1])
	a.City = fields[2]
	a.State = fields[3]
	a.PostalCode = fields[4]

	country := strings.TrimSpace(fields[5])
	if isCompositeNull(fields[5]) {
		country = ""
	}
	a.Country = country

	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
