package stripe

import (
	"context"
	"strings"

	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/types"
	"github.com/stripe/stripe-go/v82"
)

var _ checkout.Gateway = (*Client)(nil)

// Client creates and reads subscription checkout sessions on Stripe
type Client struct {
	config *config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a new Stripe client
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		config: &cfg.Stripe,
		logger: logger,
	}
}

// GetStripeClient returns an API client for the configured secret key
func (c *Client) GetStripeClient() (*stripe.Client, error) {
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return nil, ierr.NewError("stripe secret key is not configured").
			WithHint("Payments are not configured").
			Mark(ierr.ErrConfiguration)
	}
	return stripe.NewClient(c.config.SecretKey, nil), nil
}

func (c *Client) CreateSession(ctx context.Context, req *checkout.CreateParams) (*checkout.Session, error) {
	stripeClient, err := c.GetStripeClient()
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		Metadata: map[string]string{
			types.MetadataUID:  req.UID,
			types.MetadataPlan: string(req.Plan),
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	session, err := stripeClient.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"plan", req.Plan,
			"uid", req.UID)
		return nil, providerError(err, "Unable to create Stripe checkout session", map[string]interface{}{
			"plan": req.Plan,
		})
	}

	c.logger.Infow("created Stripe checkout session",
		"session_id", session.ID,
		"plan", req.Plan,
		"uid", req.UID)

	return toSession(session), nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*checkout.Session, error) {
	stripeClient, err := c.GetStripeClient()
	if err != nil {
		return nil, err
	}

	session, err := stripeClient.V1CheckoutSessions.Retrieve(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		c.logger.Errorw("failed to get Stripe checkout session",
			"error", err,
			"session_id", sessionID)
		return nil, providerError(err, "Unable to retrieve Stripe checkout session", map[string]interface{}{
			"session_id": sessionID,
		})
	}

	return toSession(session), nil
}

func toSession(s *stripe.CheckoutSession) *checkout.Session {
	return &checkout.Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}

// providerError surfaces Stripe's own message when it rejected the call
func providerError(err error, fallback string, details map[string]interface{}) error {
	hint := fallback
	if stripeErr, ok := err.(*stripe.Error); ok {
		if stripeErr.Msg != "" {
			hint = stripeErr.Msg
		}
		details["stripe_error_code"] = stripeErr.Code
	}
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(details).
		Mark(ierr.ErrProvider)
}
