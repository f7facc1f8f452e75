package reconcile

import (
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/testutil"
	"github.com/facto/facto/internal/types"
)

func (s *ControllerSuite) TestDownloadWhenEntitledExports() {
	s.Require().NoError(s.entitlements.Grant(s.ctx, s.user))
	s.workspace.SetDraft(s.draftD())
	c := s.newController()

	result, err := c.RequestDownload(s.ctx)
	s.NoError(err)
	s.Equal(DownloadExported, result)
	s.Require().Len(s.exporter.Calls(), 1)
	s.Equal("invoice-D-1.pdf", s.exporter.Calls()[0].Filename)
	s.False(s.pending.DownloadRequested(s.ctx))
	s.Equal([]string{MsgGenerating}, s.notifier.Of(testutil.NotifyLoading))
}

func (s *ControllerSuite) TestDownloadExportFailureIsRetryable() {
	s.Require().NoError(s.entitlements.Grant(s.ctx, s.user))
	s.exporter.FailWith(ierr.NewError("boom").WithHint(MsgExportFailed).Mark(ierr.ErrExportRender))
	c := s.newController()

	result, err := c.RequestDownload(s.ctx)
	s.Error(err)
	s.True(ierr.IsExportRender(err))
	s.Equal(DownloadExported, result)
	s.Equal([]string{MsgExportFailed}, s.notifier.Of(testutil.NotifyError))

	s.exporter.FailWith(nil)
	_, err = c.RequestDownload(s.ctx)
	s.NoError(err)
	s.Len(s.exporter.Calls(), 2)
}

func (s *ControllerSuite) TestDownloadWithoutUserAsksToSignIn() {
	s.auth = testutil.NewFakeAuthState(false, nil)
	c := s.newController()

	result, err := c.RequestDownload(s.ctx)
	s.NoError(err)
	s.Equal(DownloadSignInRequired, result)
	s.Equal([]string{MsgSignIn}, s.notifier.Of(testutil.NotifyInfo))
	s.False(s.pending.DownloadRequested(s.ctx))
	s.Empty(s.exporter.Calls())
	s.False(s.workspace.PlanChooserVisible())
}

func (s *ControllerSuite) TestDownloadWithoutEntitlementSavesWork() {
	s.workspace.SetTemplate(types.TemplateModern2)
	s.workspace.SetDraft(s.draftD())
	s.Require().NoError(s.entitlements.Grant(s.ctx, &auth.User{UID: "someone_else"}))
	c := s.newController()

	result, err := c.RequestDownload(s.ctx)
	s.NoError(err)
	s.Equal(DownloadPlanRequired, result)
	s.True(s.workspace.PlanChooserVisible())
	s.True(s.pending.DownloadRequested(s.ctx))
	s.Empty(s.exporter.Calls())

	snap, ok := s.pending.Restore(s.ctx)
	s.Require().True(ok)
	s.Equal(types.TemplateModern2, snap.Template)
	s.Equal("D-1", snap.Draft.InvoiceNumber)
}

func (s *ControllerSuite) TestChoosePlanNavigatesToCheckout() {
	c := s.newController()

	s.NoError(c.ChoosePlan(s.ctx, types.PlanYearly))
	s.Equal([]types.Plan{types.PlanYearly}, s.checkout.CreateCalls())
	s.Equal([]string{"https://checkout.stripe.test/c/pay/cs_test_1"}, s.navigator.Visited())
	s.Equal([]string{MsgRedirecting}, s.notifier.Of(testutil.NotifyLoading))
}

func (s *ControllerSuite) TestChoosePlanFailures() {
	s.Run("unknown plan", func() {
		s.SetupTest()
		err := s.newController().ChoosePlan(s.ctx, types.Plan("weekly"))
		s.True(ierr.IsValidation(err))
		s.Empty(s.checkout.CreateCalls())
	})

	s.Run("signed out", func() {
		s.SetupTest()
		s.auth = testutil.NewFakeAuthState(false, nil)
		err := s.newController().ChoosePlan(s.ctx, types.PlanMonthly)
		s.True(ierr.IsUnauthenticated(err))
		s.Empty(s.checkout.CreateCalls())
		s.Equal([]string{MsgSignIn}, s.notifier.Of(testutil.NotifyInfo))
	})

	s.Run("provider rejects", func() {
		s.SetupTest()
		s.checkout.FailCreate(ierr.NewError("no price").
			WithHint("Missing Stripe price id for selected plan").
			Mark(ierr.ErrConfiguration))
		err := s.newController().ChoosePlan(s.ctx, types.PlanMonthly)
		s.True(ierr.IsConfiguration(err))
		s.Empty(s.navigator.Visited())
		s.Equal([]string{"Missing Stripe price id for selected plan"}, s.notifier.Of(testutil.NotifyError))
	})
}

func (s *ControllerSuite) TestFullRoundTrip() {
	s.workspace.SetTemplate(types.TemplateModern2)
	s.workspace.SetDraft(s.draftD())
	c := s.newController()

	result, err := c.RequestDownload(s.ctx)
	s.Require().NoError(err)
	s.Equal(DownloadPlanRequired, result)
	s.Require().NoError(c.ChoosePlan(s.ctx, types.PlanMonthly))

	// the provider sends the browser back to a freshly loaded page
	s.auth = testutil.NewFakeAuthState(true, nil)
	s.workspace.SetTemplate(types.TemplateModern)
	s.workspace.SetDraft(nil)
	s.at(homeURL + "?checkout=success&session_id=cs_test_1")
	s.checkout.PutSession("cs_test_1", &checkout.ConfirmResult{Paid: true, UID: s.user.UID, Plan: types.PlanMonthly})

	back := s.newController()
	back.Start(s.ctx)
	defer back.Stop()
	s.Empty(s.exporter.Calls())

	s.auth.Resolve(s.user)
	s.Equal(StateGranted, back.State())
	s.Require().Len(s.exporter.Calls(), 1)
	s.Equal("invoice-D-1.pdf", s.exporter.Calls()[0].Filename)
	s.Equal(types.TemplateModern2, s.workspace.Template())
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))

	result, err = back.RequestDownload(s.ctx)
	s.NoError(err)
	s.Equal(DownloadExported, result)
}
