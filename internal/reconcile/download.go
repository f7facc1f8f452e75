package reconcile

import (
	"context"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/types"
)

// RequestDownload exports right away for an entitled user. Otherwise it asks
// the user to sign in, or saves the work in progress and offers the plans.
func (c *Controller) RequestDownload(ctx context.Context) (DownloadResult, error) {
	c.mu.Lock()
	user := c.Auth.CurrentUser()
	if c.Entitlements.IsEntitled(ctx, user) {
		c.mu.Unlock()
		return DownloadExported, c.export(ctx)
	}

	if user == nil {
		c.mu.Unlock()
		c.Notifier.Info(MsgSignIn)
		return DownloadSignInRequired, nil
	}

	if err := c.Pending.Save(ctx, c.Workspace.Template(), c.Workspace.Draft()); err != nil {
		c.mu.Unlock()
		c.Logger.Errorw("failed to save pending export", "error", err)
		c.Notifier.Error(ierr.DisplayMessage(err, MsgExportFailed))
		return "", err
	}
	if err := c.Pending.MarkDownloadRequested(ctx); err != nil {
		c.mu.Unlock()
		c.Logger.Errorw("failed to mark download requested", "error", err)
		c.Notifier.Error(ierr.DisplayMessage(err, MsgExportFailed))
		return "", err
	}
	c.Workspace.ShowPlanChooser()
	c.mu.Unlock()

	c.Logger.Infow("download waiting on subscription", "uid", user.UID)
	return DownloadPlanRequired, nil
}

// ChoosePlan opens a checkout session for plan and leaves for the provider's page
func (c *Controller) ChoosePlan(ctx context.Context, plan types.Plan) error {
	if err := plan.Validate(); err != nil {
		c.Notifier.Error(ierr.DisplayMessage(err, MsgRedirectFailed))
		return err
	}

	user := c.Auth.CurrentUser()
	if user == nil {
		c.Notifier.Info(MsgSignIn)
		return ierr.NewError("no signed in user").
			WithHint(MsgSignIn).
			Mark(ierr.ErrUnauthenticated)
	}

	toast := c.Notifier.Loading(MsgRedirecting)
	target, err := c.Checkout.CreateSession(ctx, plan, user)
	if err != nil {
		c.Notifier.Dismiss(toast)
		c.Logger.Errorw("failed to create checkout session", "plan", plan, "error", err)
		c.Notifier.Error(ierr.DisplayMessage(err, MsgRedirectFailed))
		return err
	}

	c.Logger.Infow("redirecting to checkout", "plan", plan, "uid", user.UID)
	if err := c.Navigator.Navigate(ctx, target); err != nil {
		c.Notifier.Dismiss(toast)
		c.Notifier.Error(MsgRedirectFailed)
		return err
	}
	return nil
}
