package service

import (
	"context"
	"strings"

	"github.com/facto/facto/internal/api/dto"
	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/types"
	"github.com/samber/lo"
)

const (
	// checkoutSessionPlaceholder is substituted by the provider with the real session id
	checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

	msgPaymentNotCompleted = "Payment not completed"
)

// CheckoutService creates subscription checkout sessions and confirms them on return
type CheckoutService interface {
	CreateSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CreateCheckoutSessionResponse, error)
	ConfirmSession(ctx context.Context, sessionID string) (*dto.ConfirmCheckoutSessionResponse, error)
}

type checkoutService struct {
	ServiceParams
}

func NewCheckoutService(params ServiceParams) CheckoutService {
	return &checkoutService{
		ServiceParams: params,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CreateCheckoutSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	priceID := s.Config.Stripe.PriceID(req.Plan)
	if priceID == "" {
		return nil, ierr.NewError("price id not configured").
			WithHint("Missing Stripe price id for selected plan").
			WithReportableDetails(map[string]interface{}{
				"plan": req.Plan,
			}).
			Mark(ierr.ErrConfiguration)
	}

	redirectBase := s.Config.Client.RedirectBase()
	if strings.TrimSpace(s.Config.Client.URL) == "" {
		return nil, ierr.NewError("client url not configured").
			WithHint("Missing checkout redirect URL").
			Mark(ierr.ErrConfiguration)
	}

	// the token stays literal for the provider to fill in
	successURL := redirectBase + "?" + types.QueryCheckout + "=" + string(types.CheckoutOutcomeSuccess) +
		"&" + types.QuerySessionID + "=" + checkoutSessionPlaceholder
	cancelURL := redirectBase + "?" + types.QueryCheckout + "=" + string(types.CheckoutOutcomeCancelled)

	session, err := s.CheckoutGateway.CreateSession(ctx, &checkout.CreateParams{
		PriceID:    priceID,
		Email:      req.Email,
		UID:        lo.Ternary(req.UID != "", req.UID, types.AnonymousUserID),
		Plan:       req.Plan,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("checkout session created",
		"session_id", session.ID,
		"plan", req.Plan,
		"request_id", types.GetRequestID(ctx))

	return &dto.CreateCheckoutSessionResponse{URL: session.URL}, nil
}

func (s *checkoutService) ConfirmSession(ctx context.Context, sessionID string) (*dto.ConfirmCheckoutSessionResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ierr.NewError("session_id is required").
			WithHint("Missing session_id").
			Mark(ierr.ErrMissingSessionID)
	}

	// paid is final, so a confirmed result can be served from cache
	cacheKey := cache.GenerateKey(cache.PrefixCheckoutSession, sessionID)
	if s.Cache != nil {
		if cached, found := s.Cache.Get(ctx, cacheKey); found {
			if resp, ok := cached.(*dto.ConfirmCheckoutSessionResponse); ok {
				return resp, nil
			}
		}
	}

	session, err := s.CheckoutGateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Paid() {
		s.Logger.Infow("checkout session not paid",
			"session_id", sessionID,
			"payment_status", session.PaymentStatus)
		return &dto.ConfirmCheckoutSessionResponse{
			OK:    false,
			Error: msgPaymentNotCompleted,
		}, nil
	}

	resp := &dto.ConfirmCheckoutSessionResponse{
		OK:   true,
		UID:  session.Metadata[types.MetadataUID],
		Plan: session.Plan(),
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, resp, cache.NoExpiration)
	}

	s.Logger.Infow("checkout session confirmed",
		"session_id", sessionID,
		"uid", resp.UID,
		"plan", resp.Plan)

	return resp, nil
}
