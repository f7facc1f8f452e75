package reconcile

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/entitlement"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/pending"
	"github.com/facto/facto/internal/types"
)

// Params holds the controller's collaborators
type Params struct {
	Config       *config.Configuration
	Logger       *logger.Logger
	Auth         AuthState
	Checkout     CheckoutClient
	Pending      *pending.Store
	Entitlements *entitlement.Cache
	Location     Location
	Notifier     Notifier
	Workspace    Workspace
	Exporter     Exporter
	Navigator    Navigator
}

// Controller derives entitlement and resumes deferred exports from the
// page address, the stored pending state and the auth status. One
// controller serves one tab. Every checkout signal is consumed once, so
// Reconcile may run any number of times for the same address.
type Controller struct {
	Params

	mu          sync.Mutex
	state       State
	denial      error
	settleDelay time.Duration
	unsubscribe func()
}

func NewController(params Params) *Controller {
	return &Controller{
		Params:      params,
		state:       StateIdle,
		settleDelay: params.Config.Export.SettleDelay,
	}
}

// Start reconciles the current address and again on every auth change
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.unsubscribe = func() {}
	c.mu.Unlock()

	unsubscribe := c.Auth.Subscribe(func(_ *auth.User) {
		c.Reconcile(ctx)
	})

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.Reconcile(ctx)
}

func (c *Controller) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Denial is why the last confirmation was refused, nil unless the state is Denied
func (c *Controller) Denial() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDenied {
		return nil
	}
	return c.denial
}

// Reconcile inspects the address and pending state and acts on any checkout
// outcome found there. It returns the resulting state.
func (c *Controller) Reconcile(ctx context.Context) State {
	c.mu.Lock()
	if c.state == StateConfirming {
		c.mu.Unlock()
		return StateConfirming
	}

	current := c.Location.Current()
	query := current.Query()
	outcome := types.ParseCheckoutOutcome(query.Get(types.QueryCheckout))
	sessionID := strings.TrimSpace(query.Get(types.QuerySessionID))

	if outcome == types.CheckoutOutcomeCancelled {
		c.Pending.ConsumeDownloadRequested(ctx)
		c.cleanLocation(current)
		c.Workspace.HidePlanChooser()
		c.state = StateCancelled
		c.mu.Unlock()

		c.Logger.Infow("checkout cancelled")
		c.Notifier.Info(MsgCancelled)
		return StateCancelled
	}

	if c.Auth.Loading() {
		if outcome == types.CheckoutOutcomeSuccess || sessionID != "" {
			if err := c.Pending.MarkConfirmationDeferred(ctx, sessionID); err != nil {
				c.Logger.Errorw("failed to defer checkout confirmation", "error", err)
			}
			c.state = StateAwaitingAuth
			c.Logger.Debugw("checkout outcome deferred until auth resolves", "session_id", sessionID)
		}
		state := c.state
		c.mu.Unlock()
		return state
	}

	var confirmID string
	switch stashedID, stashed := c.Pending.ConsumeConfirmationDeferred(ctx); {
	case stashed:
		confirmID = stashedID
	case outcome == types.CheckoutOutcomeSuccess:
	case sessionID != "":
		confirmID = sessionID
	default:
		if c.state == StateAwaitingAuth {
			c.state = StateIdle
		}
		state := c.state
		c.mu.Unlock()
		return state
	}

	c.cleanLocation(current)
	if confirmID == "" {
		c.mu.Unlock()
		return c.grant(ctx)
	}

	c.state = StateConfirming
	c.mu.Unlock()
	return c.confirm(ctx, confirmID)
}

func (c *Controller) confirm(ctx context.Context, sessionID string) State {
	toast := c.Notifier.Loading(MsgValidating)
	result, err := c.Checkout.ConfirmSession(ctx, sessionID)
	c.Notifier.Dismiss(toast)

	switch {
	case err != nil:
		c.Logger.Errorw("checkout confirmation failed", "session_id", sessionID, "error", err)
		if ierr.DisplayMessage(err, "") == "" {
			err = ierr.WithError(err).WithHint(MsgConfirmFailed).Mark(ierr.ErrProvider)
		}
		return c.deny(err)
	case !result.Paid:
		c.Logger.Infow("checkout session not paid", "session_id", sessionID)
		return c.deny(ierr.NewError("checkout session not paid").
			WithHint(MsgPaymentIncomplete).
			WithReportableDetails(map[string]any{"session_id": sessionID}).
			Mark(ierr.ErrSessionUnpaid))
	}
	return c.grant(ctx)
}

// deny settles on Denied and shows the hint carried by cause
func (c *Controller) deny(cause error) State {
	c.mu.Lock()
	c.state = StateDenied
	c.denial = cause
	c.mu.Unlock()

	c.Notifier.Error(ierr.DisplayMessage(cause, MsgConfirmFailed))
	return StateDenied
}

// grant records entitlement for whoever is signed in now and resumes a
// download that was waiting on it
func (c *Controller) grant(ctx context.Context) State {
	c.mu.Lock()
	user := c.Auth.CurrentUser()
	if err := c.Entitlements.Grant(ctx, user); err != nil {
		c.Logger.Errorw("failed to persist entitlement", "key", entitlement.Key(user), "error", err)
	}
	c.Workspace.HidePlanChooser()
	c.state = StateGranted

	resume := c.Pending.ConsumeDownloadRequested(ctx)
	if resume {
		if snap, ok := c.Pending.Restore(ctx); ok {
			if snap.Template != "" {
				c.Workspace.SetTemplate(snap.Template)
			}
			if snap.Draft != nil {
				c.Workspace.SetDraft(snap.Draft)
			}
		}
		if err := c.Pending.Clear(ctx); err != nil {
			c.Logger.Warnw("failed to clear pending export", "error", err)
		}
	}
	c.mu.Unlock()

	c.Notifier.Success(MsgActivated)
	if !resume {
		return StateGranted
	}

	if err := c.settle(ctx); err != nil {
		c.Logger.Warnw("deferred export abandoned", "error", err)
		return StateGranted
	}
	_ = c.export(ctx)
	return StateGranted
}

func (c *Controller) settle(ctx context.Context) error {
	if c.settleDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.settleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) export(ctx context.Context) error {
	filename := "invoice-draft.pdf"
	if draft := c.Workspace.Draft(); draft != nil {
		filename = draft.Filename()
	}

	toast := c.Notifier.Loading(MsgGenerating)
	path, err := c.Exporter.Export(ctx, c.Workspace.Surface(), filename)
	c.Notifier.Dismiss(toast)
	if err != nil {
		c.Logger.Errorw("invoice export failed", "filename", filename, "error", err)
		c.Notifier.Error(ierr.DisplayMessage(err, MsgExportFailed))
		return err
	}

	c.Logger.Infow("invoice exported", "path", path)
	c.Notifier.Success(MsgDownloaded)
	return nil
}

// cleanLocation strips checkout parameters from the visible address
func (c *Controller) cleanLocation(current *url.URL) {
	query := current.Query()
	if !query.Has(types.QueryCheckout) && !query.Has(types.QuerySessionID) {
		return
	}
	query.Del(types.QueryCheckout)
	query.Del(types.QuerySessionID)

	cleaned := *current
	cleaned.RawQuery = query.Encode()
	c.Location.Replace(&cleaned)
}
