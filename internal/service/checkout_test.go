package service

import (
	"context"
	"testing"
	"time"

	"github.com/facto/facto/internal/api/dto"
	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/testutil"
	"github.com/facto/facto/internal/types"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CheckoutService
	gateway *testutil.InMemoryCheckoutGateway
}

// expiryRecorder remembers the expiration each key was last stored with
type expiryRecorder struct {
	cache.Cache
	expirations map[string]time.Duration
}

func (r *expiryRecorder) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	r.expirations[key] = expiration
	r.Cache.Set(ctx, key, value, expiration)
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.gateway = s.GetStores().CheckoutGateway
	s.service = NewCheckoutService(NewServiceParams(s.GetLogger(), s.GetConfig(), s.GetCache(), s.gateway))
}

func (s *CheckoutServiceSuite) TestCreateSession() {
	tests := []struct {
		name      string
		req       *dto.CreateCheckoutSessionRequest
		wantPrice string
		wantPlan  types.Plan
		wantUID   string
	}{
		{
			name:      "defaults to monthly",
			req:       &dto.CreateCheckoutSessionRequest{Email: "a@facto.cloud", UID: "u1"},
			wantPrice: "price_monthly_test",
			wantPlan:  types.PlanMonthly,
			wantUID:   "u1",
		},
		{
			name:      "yearly",
			req:       &dto.CreateCheckoutSessionRequest{Email: "a@facto.cloud", UID: "u1", Plan: types.PlanYearly},
			wantPrice: "price_yearly_test",
			wantPlan:  types.PlanYearly,
			wantUID:   "u1",
		},
		{
			name:      "missing uid is anonymous",
			req:       &dto.CreateCheckoutSessionRequest{Plan: types.PlanMonthly},
			wantPrice: "price_monthly_test",
			wantPlan:  types.PlanMonthly,
			wantUID:   types.AnonymousUserID,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.gateway.Clear()

			resp, err := s.service.CreateSession(s.GetContext(), tt.req)
			s.Require().NoError(err)
			s.Equal("https://checkout.stripe.test/c/pay/cs_test_1", resp.URL)

			created := s.gateway.Created()
			s.Require().Len(created, 1)
			s.Equal(tt.wantPrice, created[0].PriceID)
			s.Equal(tt.wantPlan, created[0].Plan)
			s.Equal(tt.wantUID, created[0].UID)
			s.Equal("https://www.facto.cloud/home?checkout=success&session_id={CHECKOUT_SESSION_ID}", created[0].SuccessURL)
			s.Equal("https://www.facto.cloud/home?checkout=cancelled", created[0].CancelURL)
		})
	}
}

func (s *CheckoutServiceSuite) TestCreateSessionRejectsUnknownPlan() {
	_, err := s.service.CreateSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{Plan: "weekly"})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Empty(s.gateway.Created())
}

func (s *CheckoutServiceSuite) TestCreateSessionMissingPrice() {
	cfg := *s.GetConfig()
	cfg.Stripe.PriceIDYearly = ""
	svc := NewCheckoutService(NewServiceParams(s.GetLogger(), &cfg, s.GetCache(), s.gateway))

	_, err := svc.CreateSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{Plan: types.PlanYearly})
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
	s.Equal("Missing Stripe price id for selected plan", ierr.DisplayMessage(err, ""))
	s.Empty(s.gateway.Created())
}

func (s *CheckoutServiceSuite) TestCreateSessionProviderFailure() {
	s.gateway.FailWith(ierr.NewError("stripe down").WithHint("Stripe is unavailable").Mark(ierr.ErrProvider))

	_, err := s.service.CreateSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{})
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
}

func (s *CheckoutServiceSuite) TestConfirmSession() {
	s.gateway.Put(&checkout.Session{
		ID:            "cs_paid",
		PaymentStatus: types.PaymentStatusPaid,
		Metadata:      map[string]string{"uid": "u1", "plan": "yearly"},
	})
	s.gateway.Put(&checkout.Session{
		ID:            "cs_open",
		PaymentStatus: "unpaid",
		Metadata:      map[string]string{"uid": "u1", "plan": "monthly"},
	})

	s.Run("paid", func() {
		resp, err := s.service.ConfirmSession(s.GetContext(), "cs_paid")
		s.Require().NoError(err)
		s.True(resp.OK)
		s.Equal("u1", resp.UID)
		s.Equal(types.PlanYearly, resp.Plan)
	})

	s.Run("paid result is cached", func() {
		before := s.gateway.GetCalls()
		resp, err := s.service.ConfirmSession(s.GetContext(), "cs_paid")
		s.Require().NoError(err)
		s.True(resp.OK)
		s.Equal(before, s.gateway.GetCalls())
	})

	s.Run("paid result never expires", func() {
		recorder := &expiryRecorder{Cache: cache.NewInMemoryCache(true), expirations: map[string]time.Duration{}}
		svc := NewCheckoutService(NewServiceParams(s.GetLogger(), s.GetConfig(), recorder, s.gateway))

		_, err := svc.ConfirmSession(s.GetContext(), "cs_paid")
		s.Require().NoError(err)
		_, err = svc.ConfirmSession(s.GetContext(), "cs_open")
		s.Require().NoError(err)

		s.Equal(map[string]time.Duration{
			cache.GenerateKey(cache.PrefixCheckoutSession, "cs_paid"): cache.NoExpiration,
		}, recorder.expirations)
	})

	s.Run("unpaid is a normal result", func() {
		resp, err := s.service.ConfirmSession(s.GetContext(), "cs_open")
		s.Require().NoError(err)
		s.False(resp.OK)
		s.Equal("Payment not completed", resp.Error)

		// unpaid results are re-read every time
		before := s.gateway.GetCalls()
		_, err = s.service.ConfirmSession(s.GetContext(), "cs_open")
		s.Require().NoError(err)
		s.Equal(before+1, s.gateway.GetCalls())
	})

	s.Run("missing session id", func() {
		_, err := s.service.ConfirmSession(s.GetContext(), "  ")
		s.Require().Error(err)
		s.True(ierr.Is(err, ierr.ErrMissingSessionID))
	})

	s.Run("unknown session", func() {
		_, err := s.service.ConfirmSession(s.GetContext(), "cs_missing")
		s.Require().Error(err)
		s.True(ierr.IsProvider(err))
	})
}
