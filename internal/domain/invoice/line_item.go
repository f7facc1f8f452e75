package invoice

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is a single billable row of a draft
type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
}

// Amount is quantity × unit price
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// VAT is amount × vatRate / 100
func (li LineItem) VAT() decimal.Decimal {
	return li.Amount().Mul(li.VATRate).Div(hundred)
}

// Total is amount + VAT
func (li LineItem) Total() decimal.Decimal {
	return li.Amount().Add(li.VAT())
}
