package invoice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/types"
	"github.com/facto/facto/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the wire format of the draft's date fields
	DateLayout = "2006-01-02"

	// DefaultDueDays is the distance between a new draft's date and its due date
	DefaultDueDays = 30

	defaultFilenameStem = "draft"
)

// Draft is the invoice being edited. JSON names match the browser form's
// camelCase fields so a stored draft restores unchanged.
type Draft struct {
	// Company
	CompanyName       string `json:"companyName"`
	CompanyAddress    string `json:"companyAddress"`
	CompanyCity       string `json:"companyCity"`
	CompanyPostalCode string `json:"companyPostalCode"`
	CompanyVAT        string `json:"companyVAT"`
	CompanyPhone      string `json:"companyPhone"`
	CompanyEmail      string `json:"companyEmail" validate:"omitempty,email"`
	// CompanyLogo is a data URL
	CompanyLogo string `json:"companyLogo,omitempty"`

	// Client
	ClientName       string `json:"clientName"`
	ClientAddress    string `json:"clientAddress"`
	ClientCity       string `json:"clientCity"`
	ClientPostalCode string `json:"clientPostalCode"`
	ClientVAT        string `json:"clientVAT"`

	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`

	Items []LineItem `json:"items" validate:"dive"`

	Notes string `json:"notes,omitempty"`
}

// NewDraft returns an empty draft dated today and due in thirty days
func NewDraft(now time.Time) *Draft {
	return &Draft{
		InvoiceDate: now.Format(DateLayout),
		DueDate:     now.AddDate(0, 0, DefaultDueDays).Format(DateLayout),
		Items:       []LineItem{},
	}
}

// NewLineItem returns an empty row with a fresh id and a single unit
func NewLineItem() LineItem {
	return LineItem{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM),
		Quantity: decimal.NewFromInt(1),
	}
}

func (d *Draft) Subtotal() decimal.Decimal {
	return lo.Reduce(d.Items, func(acc decimal.Decimal, li LineItem, _ int) decimal.Decimal {
		return acc.Add(li.Amount())
	}, decimal.Zero)
}

func (d *Draft) VATTotal() decimal.Decimal {
	return lo.Reduce(d.Items, func(acc decimal.Decimal, li LineItem, _ int) decimal.Decimal {
		return acc.Add(li.VAT())
	}, decimal.Zero)
}

// Total is the sum of every line's amount plus VAT
func (d *Draft) Total() decimal.Decimal {
	return lo.Reduce(d.Items, func(acc decimal.Decimal, li LineItem, _ int) decimal.Decimal {
		return acc.Add(li.Total())
	}, decimal.Zero)
}

// Clone returns a deep copy that shares no line items with d
func (d *Draft) Clone() *Draft {
	c := *d
	c.Items = append([]LineItem{}, d.Items...)
	return &c
}

// Filename is the name of the exported file
func (d *Draft) Filename() string {
	stem := strings.TrimSpace(d.InvoiceNumber)
	if stem == "" {
		stem = defaultFilenameStem
	}
	return fmt.Sprintf("invoice-%s.pdf", sanitizeFilename(stem))
}

func (d *Draft) Validate() error {
	if err := validator.ValidateRequest(d); err != nil {
		return err
	}
	return nil
}

// Marshal serializes the draft for the pending-state store
func (d *Draft) Marshal() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Could not save the invoice draft").
			Mark(ierr.ErrSystem)
	}
	return string(b), nil
}

// Unmarshal parses a serialized draft
func Unmarshal(raw string) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored invoice draft is unreadable").
			Mark(ierr.ErrValidation)
	}
	if d.Items == nil {
		d.Items = []LineItem{}
	}
	return &d, nil
}

// FormatAmount renders a money value with two decimals, rounding half away from zero
func FormatAmount(v decimal.Decimal) string {
	return v.Round(2).StringFixed(2)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
