package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/facto/facto/internal/api/dto"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/httpclient"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/types"
)

const (
	pathCreateSession  = "/api/create-checkout-session"
	pathConfirmSession = "/api/checkout/confirm"
)

// TokenSource supplies the signed-in user's ID token, if any
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// Client calls the checkout backend. Calls are never retried.
type Client struct {
	baseURL string
	http    httpclient.Client
	tokens  TokenSource
	logger  *logger.Logger
}

func NewClient(cfg *config.Configuration, client httpclient.Client, tokens TokenSource, logger *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		http:    client,
		tokens:  tokens,
		logger:  logger,
	}
}

// CreateSession asks the backend for a provider checkout page and returns its URL.
// A nil user is rejected before any request is made.
func (c *Client) CreateSession(ctx context.Context, plan types.Plan, user *auth.User) (string, error) {
	if user == nil {
		return "", ierr.NewError("no signed in user").
			WithHint("Please sign in to continue.").
			Mark(ierr.ErrUnauthenticated)
	}
	if err := plan.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(dto.CreateCheckoutSessionRequest{
		Email: user.Email,
		Plan:  plan,
		UID:   user.UID,
	})
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	resp, err := c.send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + pathCreateSession,
		Body:   body,
	})
	if err != nil {
		return "", err
	}

	var out dto.CreateCheckoutSessionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil || out.URL == "" {
		return "", ierr.NewError("checkout session response has no url").
			WithHint("No checkout session URL").
			Mark(ierr.ErrProvider)
	}
	return out.URL, nil
}

// ConfirmSession reads a session's payment state. A session that is not paid
// is a normal result with Paid false.
func (c *Client) ConfirmSession(ctx context.Context, sessionID string) (*checkout.ConfirmResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ierr.NewError("session id is required").
			WithHint("Missing session_id").
			Mark(ierr.ErrMissingSessionID)
	}

	resp, err := c.send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + pathConfirmSession + "?" + url.Values{types.QuerySessionID: []string{sessionID}}.Encode(),
	})
	if err != nil {
		if ierr.IsSessionUnpaid(err) {
			return &checkout.ConfirmResult{Paid: false}, nil
		}
		return nil, err
	}

	var out dto.ConfirmCheckoutSessionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid Stripe confirmation").
			Mark(ierr.ErrProvider)
	}

	result := &checkout.ConfirmResult{Paid: out.OK}
	if out.OK {
		result.UID = out.UID
		result.Plan = out.Plan
	} else {
		c.logger.Infow("checkout session not paid", "session_id", sessionID, "reason", out.Error)
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	if c.tokens != nil {
		token, err := c.tokens.IDToken(ctx)
		if err != nil {
			c.logger.Warnw("could not get id token, calling without it", "error", err)
		} else if token != "" {
			req.Headers = map[string]string{types.HeaderAuthorization: "Bearer " + token}
		}
	}

	resp, err := c.http.Send(ctx, req)
	if err != nil {
		return nil, decodeError(err)
	}
	return resp, nil
}

// decodeError maps a non-2xx answer back to the sentinel named by its code,
// keeping the server's message as the hint
func decodeError(err error) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return err
	}

	var body ierr.ErrorResponse
	_ = json.Unmarshal(httpErr.Response, &body)

	hint := strings.TrimSpace(body.Error)
	if hint == "" {
		hint = http.StatusText(httpErr.StatusCode)
	}

	sentinel := ierr.FromCode(body.Code)
	if body.Code == "" && httpErr.StatusCode >= http.StatusBadGateway {
		sentinel = ierr.ErrNetwork
	}

	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]interface{}{
			"status": httpErr.StatusCode,
			"code":   body.Code,
		}).
		Mark(sentinel)
}
