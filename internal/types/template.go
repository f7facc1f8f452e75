package types

import (
	ierr "github.com/facto/facto/internal/errors"
	"github.com/samber/lo"
)

// TemplateType identifies one of the visual invoice layouts
type TemplateType string

const (
	TemplateModern        TemplateType = "modern"
	TemplateModern2       TemplateType = "modern2"
	TemplateModern3       TemplateType = "modern3"
	TemplateModern4       TemplateType = "modern4"
	TemplateClassic       TemplateType = "classic"
	TemplateClassicGray   TemplateType = "classic_gray"
	TemplateClassicYellow TemplateType = "classic_yellow"
	TemplateClassicBlue   TemplateType = "classic_blue"
	TemplateMinimal       TemplateType = "minimal"

	DefaultTemplate = TemplateModern
)

// Templates lists every layout in selector order
var Templates = []TemplateType{
	TemplateModern,
	TemplateModern2,
	TemplateModern3,
	TemplateModern4,
	TemplateClassic,
	TemplateClassicGray,
	TemplateClassicYellow,
	TemplateClassicBlue,
	TemplateMinimal,
}

func (t TemplateType) Validate() error {
	if !lo.Contains(Templates, t) {
		return ierr.NewError("invalid template").
			WithHintf("Template must be one of %v", Templates).
			WithReportableDetails(map[string]any{
				"template": string(t),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ParseTemplate maps a raw value to a TemplateType, defaulting empty input
func ParseTemplate(raw string) (TemplateType, error) {
	if raw == "" {
		return DefaultTemplate, nil
	}
	t := TemplateType(raw)
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}
