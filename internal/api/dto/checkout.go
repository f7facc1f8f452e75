package dto

import (
	"strings"

	"github.com/facto/facto/internal/types"
	"github.com/facto/facto/internal/validator"
)

// CreateCheckoutSessionRequest starts a subscription checkout
type CreateCheckoutSessionRequest struct {
	Email string     `json:"email" validate:"omitempty,email"`
	Plan  types.Plan `json:"plan" validate:"omitempty,plan"`
	UID   string     `json:"uid"`
}

// CreateCheckoutSessionResponse carries the provider page to navigate to
type CreateCheckoutSessionResponse struct {
	URL string `json:"url"`
}

// ConfirmCheckoutSessionResponse is the result of confirming a session.
// An unpaid session is reported with OK false and an Error message.
type ConfirmCheckoutSessionResponse struct {
	OK    bool       `json:"ok"`
	UID   string     `json:"uid,omitempty"`
	Plan  types.Plan `json:"plan,omitempty"`
	Error string     `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// Validate validates the create checkout session request and applies the default plan
func (r *CreateCheckoutSessionRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.UID = strings.TrimSpace(r.UID)

	plan, err := types.ParsePlan(string(r.Plan))
	if err != nil {
		return err
	}
	r.Plan = plan

	return validator.ValidateRequest(r)
}
