package types

import (
	ierr "github.com/facto/facto/internal/errors"
	"github.com/samber/lo"
)

// Plan is the subscription plan a user picks before checkout
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"

	// DefaultPlan is used when a create-session request omits the plan
	DefaultPlan = PlanMonthly
)

// Plans lists every plan in display order
var Plans = []Plan{PlanMonthly, PlanYearly}

func (p Plan) Validate() error {
	if !lo.Contains(Plans, p) {
		return ierr.NewError("invalid plan").
			WithHint("Plan must be monthly or yearly").
			WithReportableDetails(map[string]any{
				"plan": string(p),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Label is the human readable price label shown in the plan chooser
func (p Plan) Label() string {
	switch p {
	case PlanMonthly:
		return "Monthly – 7€ / month"
	case PlanYearly:
		return "Yearly – 60€ / year"
	}
	return string(p)
}

// ParsePlan maps a raw value to a Plan, defaulting empty input to DefaultPlan
func ParsePlan(raw string) (Plan, error) {
	if raw == "" {
		return DefaultPlan, nil
	}
	p := Plan(raw)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}
