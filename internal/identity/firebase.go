package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/httpclient"
)

// Identity Toolkit REST methods
const (
	methodSignUp = "accounts:signUp"
	methodSignIn = "accounts:signInWithPassword"
	methodLookup = "accounts:lookup"
)

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoUrl"`
	} `json:"users"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// providerMessages maps Identity Toolkit error codes to what the user is shown
var providerMessages = map[string]string{
	"EMAIL_EXISTS":                "This email is already registered",
	"EMAIL_NOT_FOUND":             "Invalid email or password",
	"INVALID_PASSWORD":            "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password",
	"INVALID_EMAIL":               "Invalid email address",
	"USER_DISABLED":               "This account has been disabled",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts, please try again later",
	"TOKEN_EXPIRED":               "Your session has expired, please sign in again",
	"INVALID_REFRESH_TOKEN":       "Your session has expired, please sign in again",
	"USER_NOT_FOUND":              "Your session has expired, please sign in again",
}

// defaultTokenLifetime applies when a response carries no usable expires_in
const defaultTokenLifetime = time.Hour

// tokenRefreshSkew renews an ID token this long before it actually expires
const tokenRefreshSkew = time.Minute

// tokenExpiry turns an expires-in value in seconds into the moment the token
// should be renewed
func tokenExpiry(now time.Time, expiresIn string) time.Time {
	lifetime := defaultTokenLifetime
	if secs, err := strconv.Atoi(strings.TrimSpace(expiresIn)); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}
	if lifetime > tokenRefreshSkew {
		lifetime -= tokenRefreshSkew
	}
	return now.Add(lifetime)
}

// restClient talks to the Identity Toolkit and Secure Token REST APIs
type restClient struct {
	http          httpclient.Client
	apiKey        string
	identityBase  string
	tokenEndpoint string
}

func (c *restClient) signUp(ctx context.Context, email, password string) (*passwordResponse, error) {
	var out passwordResponse
	err := c.postJSON(ctx, c.identityURL(methodSignUp), passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &out)
	return &out, err
}

func (c *restClient) signIn(ctx context.Context, email, password string) (*passwordResponse, error) {
	var out passwordResponse
	err := c.postJSON(ctx, c.identityURL(methodSignIn), passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &out)
	return &out, err
}

func (c *restClient) lookup(ctx context.Context, idToken string) (*lookupResponse, error) {
	var out lookupResponse
	err := c.postJSON(ctx, c.identityURL(methodLookup), lookupRequest{IDToken: idToken}, &out)
	return &out, err
}

func (c *restClient) refresh(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.tokenURL(),
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	})
	if err != nil {
		return nil, providerError(err)
	}

	var out refreshResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unexpected response from the sign-in service").
			Mark(ierr.ErrProvider)
	}
	return &out, nil
}

func (c *restClient) postJSON(ctx context.Context, endpoint string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Body:   body,
	})
	if err != nil {
		return providerError(err)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return ierr.WithError(err).
			WithHint("Unexpected response from the sign-in service").
			Mark(ierr.ErrProvider)
	}
	return nil
}

func (c *restClient) identityURL(method string) string {
	return strings.TrimRight(c.identityBase, "/") + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
}

func (c *restClient) tokenURL() string {
	return strings.TrimRight(c.tokenEndpoint, "/") + "/token?key=" + url.QueryEscape(c.apiKey)
}

// providerError turns a rejected call into a provider error carrying a readable hint.
// Transport failures keep their network mark.
func providerError(err error) error {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return err
	}

	var apiErr apiErrorResponse
	_ = json.Unmarshal(httpErr.Response, &apiErr)

	// messages look like "WEAK_PASSWORD : Password should be at least 6 characters"
	code, detail, _ := strings.Cut(apiErr.Error.Message, " : ")
	code = strings.TrimSpace(code)

	hint, known := providerMessages[code]
	if !known {
		hint = strings.TrimSpace(detail)
		if hint == "" {
			hint = "Authentication failed"
		}
	}

	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]interface{}{
			"status":        httpErr.StatusCode,
			"provider_code": code,
		}).
		Mark(ierr.ErrProvider)
}
