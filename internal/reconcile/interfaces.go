package reconcile

import (
	"context"
	"net/url"

	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/domain/checkout"
	"github.com/facto/facto/internal/domain/invoice"
	"github.com/facto/facto/internal/pdfgen"
	"github.com/facto/facto/internal/types"
)

// AuthState is the read side of the identity provider
type AuthState interface {
	Loading() bool
	CurrentUser() *auth.User
	Subscribe(fn func(*auth.User)) (unsubscribe func())
}

type CheckoutClient interface {
	CreateSession(ctx context.Context, plan types.Plan, user *auth.User) (string, error)
	ConfirmSession(ctx context.Context, sessionID string) (*checkout.ConfirmResult, error)
}

// Location is the visible address of the page
type Location interface {
	Current() *url.URL
	// Replace swaps the visible address without reloading
	Replace(u *url.URL)
}

// Notifier shows transient messages. Loading returns an id for Dismiss.
type Notifier interface {
	Loading(msg string) string
	Success(msg string)
	Info(msg string)
	Error(msg string)
	Dismiss(id string)
}

// Workspace is the editor holding the draft being worked on
type Workspace interface {
	Template() types.TemplateType
	Draft() *invoice.Draft
	SetTemplate(t types.TemplateType)
	SetDraft(d *invoice.Draft)
	ShowPlanChooser()
	HidePlanChooser()
	// Surface is the rendered preview of the current template and draft
	Surface() pdfgen.Surface
}

type Exporter interface {
	Export(ctx context.Context, surface pdfgen.Surface, filename string) (string, error)
}

// Navigator leaves the application for an external page
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}
