package checkout

import (
	"context"

	"github.com/facto/facto/internal/types"
)

// Session is the provider's view of one purchase attempt
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// Paid reports whether the provider has settled the session
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == types.PaymentStatusPaid
}

// UID is the metadata uid, falling back to the anonymous sentinel
func (s *Session) UID() string {
	if s == nil || s.Metadata[types.MetadataUID] == "" {
		return types.AnonymousUserID
	}
	return s.Metadata[types.MetadataUID]
}

func (s *Session) Plan() types.Plan {
	if s == nil {
		return ""
	}
	return types.Plan(s.Metadata[types.MetadataPlan])
}

// ConfirmResult is the outcome of confirming a session
type ConfirmResult struct {
	Paid bool
	UID  string
	Plan types.Plan
}

// CreateParams describes a new subscription checkout
type CreateParams struct {
	PriceID    string
	Email      string
	UID        string
	Plan       types.Plan
	SuccessURL string
	CancelURL  string
}

// Gateway is the payment provider's checkout API
type Gateway interface {
	CreateSession(ctx context.Context, params *CreateParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}
