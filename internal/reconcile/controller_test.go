package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/console"
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/domain/checkout"
	"github.com/facto/facto/internal/domain/invoice"
	"github.com/facto/facto/internal/entitlement"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/pending"
	"github.com/facto/facto/internal/storage"
	"github.com/facto/facto/internal/testutil"
	"github.com/facto/facto/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const homeURL = "https://www.facto.cloud/home"

type ControllerSuite struct {
	suite.Suite
	ctx          context.Context
	backend      *cache.MemoryBackend
	auth         *testutil.FakeAuthState
	checkout     *testutil.FakeCheckoutClient
	pending      *pending.Store
	entitlements *entitlement.Cache
	location     *console.Location
	workspace    *console.Workspace
	notifier     *testutil.RecordingNotifier
	exporter     *testutil.FakeExporter
	navigator    *testutil.FakeNavigator
	user         *auth.User
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = cache.NewMemoryBackend()
	log := logger.NewNoopLogger()
	s.user = &auth.User{UID: "u_1", Email: "ada@example.com"}
	s.auth = testutil.NewFakeAuthState(false, s.user)
	s.checkout = testutil.NewFakeCheckoutClient()
	s.pending = pending.NewStore(storage.TabScope(s.backend, "tab_1", time.Hour), log)
	s.entitlements = entitlement.NewCache(storage.LocalScope(s.backend), log)
	s.workspace = console.NewWorkspace(types.TemplateModern, invoice.NewDraft(time.Now()))
	s.notifier = testutil.NewRecordingNotifier()
	s.exporter = testutil.NewFakeExporter()
	s.navigator = &testutil.FakeNavigator{}
	s.at(homeURL)
}

func (s *ControllerSuite) at(raw string) {
	loc, err := console.NewLocation(raw)
	s.Require().NoError(err)
	s.location = loc
}

func (s *ControllerSuite) newController() *Controller {
	cfg := config.GetDefaultConfig()
	cfg.Export.SettleDelay = 0
	return NewController(Params{
		Config:       cfg,
		Logger:       logger.NewNoopLogger(),
		Auth:         s.auth,
		Checkout:     s.checkout,
		Pending:      s.pending,
		Entitlements: s.entitlements,
		Location:     s.location,
		Notifier:     s.notifier,
		Workspace:    s.workspace,
		Exporter:     s.exporter,
		Navigator:    s.navigator,
	})
}

func (s *ControllerSuite) draftD() *invoice.Draft {
	d := invoice.NewDraft(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	d.InvoiceNumber = "D-1"
	d.ClientName = "Globex"
	d.Items = append(d.Items, invoice.LineItem{
		ID:        "item_1",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("10.00"),
		VATRate:   decimal.NewFromInt(21),
	})
	return d
}

func (s *ControllerSuite) TestNoOutcomeIsIdle() {
	c := s.newController()
	s.Equal(StateIdle, c.Reconcile(s.ctx))
	s.Empty(s.checkout.ConfirmCalls())
	s.False(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Equal(homeURL, s.location.String())
}

func (s *ControllerSuite) TestSuccessFlagGrantsWithoutConfirm() {
	s.at(homeURL + "?checkout=success")
	c := s.newController()

	s.Equal(StateGranted, c.Reconcile(s.ctx))
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Empty(s.checkout.ConfirmCalls())
	s.Equal(homeURL, s.location.String())
	s.Equal([]string{MsgActivated}, s.notifier.Of(testutil.NotifySuccess))
}

func (s *ControllerSuite) TestReplayingSameURLIsIdempotent() {
	s.at(homeURL + "?checkout=success&session_id=cs_X")
	s.checkout.PutSession("cs_X", &checkout.ConfirmResult{Paid: true, UID: "u_1", Plan: types.PlanMonthly})
	c := s.newController()

	s.Equal(StateGranted, c.Reconcile(s.ctx))
	s.Equal(homeURL, s.location.String())

	s.Equal(StateGranted, c.Reconcile(s.ctx))
	s.Len(s.notifier.Of(testutil.NotifySuccess), 1)
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
}

func (s *ControllerSuite) TestSessionIDOnlyIsConfirmed() {
	s.at(homeURL + "?session_id=cs_1&lang=fr")
	s.checkout.PutSession("cs_1", &checkout.ConfirmResult{Paid: true, UID: "u_1", Plan: types.PlanYearly})
	c := s.newController()

	s.Equal(StateGranted, c.Reconcile(s.ctx))
	s.Equal([]string{"cs_1"}, s.checkout.ConfirmCalls())
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Equal(homeURL+"?lang=fr", s.location.String())
	s.Equal([]string{MsgValidating}, s.notifier.Of(testutil.NotifyLoading))
	s.Len(s.notifier.Dismissed(), 1)
}

func (s *ControllerSuite) TestOrderingWhileAuthLoads() {
	s.auth = testutil.NewFakeAuthState(true, nil)
	s.at(homeURL + "?session_id=cs_late")
	s.checkout.PutSession("cs_late", &checkout.ConfirmResult{Paid: true, UID: "u_1"})
	c := s.newController()
	c.Start(s.ctx)
	defer c.Stop()

	for i := 0; i < 3; i++ {
		s.Equal(StateAwaitingAuth, c.Reconcile(s.ctx))
	}
	s.Empty(s.checkout.ConfirmCalls())
	s.False(s.entitlements.IsEntitled(s.ctx, nil))
	s.False(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Contains(s.location.String(), "session_id=cs_late")

	s.auth.Resolve(s.user)

	s.Equal(StateGranted, c.State())
	s.Equal([]string{"cs_late"}, s.checkout.ConfirmCalls())
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
	s.False(s.entitlements.IsEntitled(s.ctx, nil))
	s.Equal(homeURL, s.location.String())
	s.False(s.pending.ConfirmationDeferred(s.ctx))
}

func (s *ControllerSuite) TestDeferredSuccessFlagGrantsResolvedUser() {
	s.auth = testutil.NewFakeAuthState(true, nil)
	s.at(homeURL + "?checkout=success")
	c := s.newController()
	c.Start(s.ctx)
	defer c.Stop()

	s.Equal(StateAwaitingAuth, c.State())
	s.auth.Resolve(s.user)

	s.Equal(StateGranted, c.State())
	s.Empty(s.checkout.ConfirmCalls())
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
	s.False(s.entitlements.IsEntitled(s.ctx, nil))
}

func (s *ControllerSuite) TestDeferredStashSurvivesRestart() {
	s.auth = testutil.NewFakeAuthState(true, nil)
	s.at(homeURL + "?checkout=success&session_id=cs_2")
	s.checkout.PutSession("cs_2", &checkout.ConfirmResult{Paid: true})
	s.Equal(StateAwaitingAuth, s.newController().Reconcile(s.ctx))

	// a fresh page load on a clean address still finds the stash
	s.auth = testutil.NewFakeAuthState(false, s.user)
	s.at(homeURL)
	c := s.newController()

	s.Equal(StateGranted, c.Reconcile(s.ctx))
	s.Equal([]string{"cs_2"}, s.checkout.ConfirmCalls())
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
}

func (s *ControllerSuite) TestDeferredDownloadIsRestoredBeforeExport() {
	d := s.draftD()
	s.Require().NoError(s.pending.Save(s.ctx, types.TemplateModern2, d))
	s.Require().NoError(s.pending.MarkDownloadRequested(s.ctx))
	s.workspace.ShowPlanChooser()

	s.at(homeURL + "?checkout=success&session_id=cs_3")
	s.checkout.PutSession("cs_3", &checkout.ConfirmResult{Paid: true})

	var seenTemplate types.TemplateType
	var seenDraft *invoice.Draft
	s.exporter.OnExport = func() {
		seenTemplate = s.workspace.Template()
		seenDraft = s.workspace.Draft()
	}

	c := s.newController()
	s.Equal(StateGranted, c.Reconcile(s.ctx))

	s.Equal(types.TemplateModern2, seenTemplate)
	s.Require().NotNil(seenDraft)
	s.Equal("D-1", seenDraft.InvoiceNumber)
	s.Equal("36.30", invoice.FormatAmount(seenDraft.Total()))

	calls := s.exporter.Calls()
	s.Require().Len(calls, 1)
	s.Equal("invoice-D-1.pdf", calls[0].Filename)

	s.False(s.pending.DownloadRequested(s.ctx))
	s.False(s.pending.ConfirmationDeferred(s.ctx))
	_, restored := s.pending.Restore(s.ctx)
	s.False(restored)
	s.False(s.workspace.PlanChooserVisible())
	s.Equal([]string{MsgActivated, MsgDownloaded}, s.notifier.Of(testutil.NotifySuccess))
}

func (s *ControllerSuite) TestDeferredExportFailureIsReported() {
	s.Require().NoError(s.pending.Save(s.ctx, types.TemplateClassic, s.draftD()))
	s.Require().NoError(s.pending.MarkDownloadRequested(s.ctx))
	s.exporter.FailWith(ierr.NewError("canvas lost").WithHint(MsgExportFailed).Mark(ierr.ErrExportRender))
	s.at(homeURL + "?checkout=success")

	s.Equal(StateGranted, s.newController().Reconcile(s.ctx))
	s.True(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Equal([]string{MsgExportFailed}, s.notifier.Of(testutil.NotifyError))
	s.False(s.pending.DownloadRequested(s.ctx))
}

func (s *ControllerSuite) TestCancellationIsNonDestructive() {
	s.Require().NoError(s.entitlements.Grant(s.ctx, &auth.User{UID: "other"}))
	s.Require().NoError(s.pending.Save(s.ctx, types.TemplateMinimal, s.draftD()))
	s.Require().NoError(s.pending.MarkDownloadRequested(s.ctx))
	s.workspace.ShowPlanChooser()
	s.auth = testutil.NewFakeAuthState(true, nil)
	s.at(homeURL + "?checkout=cancelled")

	c := s.newController()
	s.Equal(StateCancelled, c.Reconcile(s.ctx))

	s.False(s.pending.DownloadRequested(s.ctx))
	snap, ok := s.pending.Restore(s.ctx)
	s.True(ok)
	s.Equal(types.TemplateMinimal, snap.Template)
	s.True(s.entitlements.IsEntitled(s.ctx, &auth.User{UID: "other"}))
	s.False(s.entitlements.IsEntitled(s.ctx, s.user))
	s.False(s.workspace.PlanChooserVisible())
	s.Equal(homeURL, s.location.String())
	s.Equal([]string{MsgCancelled}, s.notifier.Of(testutil.NotifyInfo))
	s.Empty(s.checkout.ConfirmCalls())
	s.Empty(s.exporter.Calls())

	s.Equal(StateCancelled, c.Reconcile(s.ctx))
	s.Len(s.notifier.Of(testutil.NotifyInfo), 1)
}

func (s *ControllerSuite) TestUnpaidSessionDenies() {
	s.Require().NoError(s.pending.MarkDownloadRequested(s.ctx))
	s.at(homeURL + "?session_id=cs_unpaid")
	s.checkout.PutSession("cs_unpaid", &checkout.ConfirmResult{Paid: false})
	c := s.newController()

	s.Equal(StateDenied, c.Reconcile(s.ctx))
	s.False(s.entitlements.IsEntitled(s.ctx, s.user))
	s.Equal([]string{MsgPaymentIncomplete}, s.notifier.Of(testutil.NotifyError))
	s.Equal(homeURL, s.location.String())
	s.Empty(s.exporter.Calls())
	s.True(ierr.IsSessionUnpaid(c.Denial()))
	s.Equal(MsgPaymentIncomplete, ierr.DisplayMessage(c.Denial(), ""))

	s.Equal(StateDenied, c.Reconcile(s.ctx))
	s.Len(s.checkout.ConfirmCalls(), 1)
}

func (s *ControllerSuite) TestConfirmFailureSurfacesMessage() {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "provider message",
			err:  ierr.NewError("stripe down").WithHint("No such checkout session").Mark(ierr.ErrProvider),
			want: "No such checkout session",
		},
		{
			name: "no hint",
			err:  errors.New("connection reset"),
			want: MsgConfirmFailed,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.at(homeURL + "?checkout=success&session_id=cs_bad")
			s.auth = testutil.NewFakeAuthState(true, nil)
			s.checkout.FailConfirm(tt.err)
			c := s.newController()
			c.Reconcile(s.ctx)
			s.auth.Resolve(s.user)

			s.Equal(StateDenied, c.Reconcile(s.ctx))
			s.Equal([]string{tt.want}, s.notifier.Of(testutil.NotifyError))
			s.Require().Error(c.Denial())
			s.False(ierr.IsSessionUnpaid(c.Denial()))
			s.Equal(tt.want, ierr.DisplayMessage(c.Denial(), ""))
			s.False(s.entitlements.IsEntitled(s.ctx, s.user))
			s.Equal(homeURL, s.location.String())
			s.False(s.pending.ConfirmationDeferred(s.ctx))
		})
	}
}

func (s *ControllerSuite) TestStopUnsubscribes() {
	s.auth = testutil.NewFakeAuthState(true, nil)
	c := s.newController()
	c.Start(s.ctx)
	c.Start(s.ctx)
	s.Equal(1, s.auth.Subscribers())

	c.Stop()
	s.Equal(0, s.auth.Subscribers())
}
