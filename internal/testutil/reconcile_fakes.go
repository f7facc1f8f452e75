package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/pdfgen"
	"github.com/facto/facto/internal/types"
)

// FakeAuthState is an identity provider whose resolution the test drives
type FakeAuthState struct {
	mu          sync.Mutex
	loading     bool
	user        *auth.User
	subscribers map[int]func(*auth.User)
	nextID      int
}

func NewFakeAuthState(loading bool, user *auth.User) *FakeAuthState {
	return &FakeAuthState{
		loading:     loading,
		user:        user,
		subscribers: make(map[int]func(*auth.User)),
	}
}

func (f *FakeAuthState) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *FakeAuthState) CurrentUser() *auth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil
	}
	u := *f.user
	return &u
}

func (f *FakeAuthState) Subscribe(fn func(*auth.User)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn
	resolved := !f.loading
	f.mu.Unlock()

	if resolved {
		fn(f.CurrentUser())
	}
	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// Resolve finishes loading with user and notifies subscribers
func (f *FakeAuthState) Resolve(user *auth.User) {
	f.mu.Lock()
	f.loading = false
	f.user = user
	f.mu.Unlock()
	f.emit(user)
}

func (f *FakeAuthState) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *FakeAuthState) emit(user *auth.User) {
	f.mu.Lock()
	subs := make([]func(*auth.User), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(user)
	}
}

// FakeCheckoutClient answers confirm calls from a table of sessions
type FakeCheckoutClient struct {
	mu           sync.Mutex
	sessions     map[string]*checkout.ConfirmResult
	confirmErr   error
	createURL    string
	createErr    error
	confirmCalls []string
	createCalls  []types.Plan
}

func NewFakeCheckoutClient() *FakeCheckoutClient {
	return &FakeCheckoutClient{
		sessions:  make(map[string]*checkout.ConfirmResult),
		createURL: "https://checkout.stripe.test/c/pay/cs_test_1",
	}
}

func (f *FakeCheckoutClient) PutSession(id string, result *checkout.ConfirmResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = result
}

func (f *FakeCheckoutClient) FailConfirm(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmErr = err
}

func (f *FakeCheckoutClient) FailCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *FakeCheckoutClient) CreateSession(_ context.Context, plan types.Plan, user *auth.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, plan)
	if f.createErr != nil {
		return "", f.createErr
	}
	if user == nil {
		return "", ierr.NewError("no user").Mark(ierr.ErrUnauthenticated)
	}
	return f.createURL, nil
}

func (f *FakeCheckoutClient) ConfirmSession(_ context.Context, sessionID string) (*checkout.ConfirmResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls = append(f.confirmCalls, sessionID)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if result, ok := f.sessions[sessionID]; ok {
		r := *result
		return &r, nil
	}
	return &checkout.ConfirmResult{Paid: false}, nil
}

func (f *FakeCheckoutClient) ConfirmCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.confirmCalls...)
}

func (f *FakeCheckoutClient) CreateCalls() []types.Plan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Plan{}, f.createCalls...)
}

// Notification is one message shown to the user
type Notification struct {
	Kind string
	Text string
}

const (
	NotifyLoading = "loading"
	NotifySuccess = "success"
	NotifyInfo    = "info"
	NotifyError   = "error"
)

// RecordingNotifier keeps every message it is asked to show
type RecordingNotifier struct {
	mu        sync.Mutex
	messages  []Notification
	dismissed []string
	next      int
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Loading(msg string) string {
	n.record(NotifyLoading, msg)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	return fmt.Sprintf("toast_%d", n.next)
}

func (n *RecordingNotifier) Success(msg string) { n.record(NotifySuccess, msg) }
func (n *RecordingNotifier) Info(msg string)    { n.record(NotifyInfo, msg) }
func (n *RecordingNotifier) Error(msg string)   { n.record(NotifyError, msg) }

func (n *RecordingNotifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed = append(n.dismissed, id)
}

func (n *RecordingNotifier) record(kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, Notification{Kind: kind, Text: msg})
}

// Of returns the texts shown with kind, in order
func (n *RecordingNotifier) Of(kind string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.messages {
		if m.Kind == kind {
			out = append(out, m.Text)
		}
	}
	return out
}

func (n *RecordingNotifier) Dismissed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.dismissed...)
}

func (n *RecordingNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
	n.dismissed = nil
}

// ExportCall records one export request
type ExportCall struct {
	Surface  pdfgen.Surface
	Filename string
}

// FakeExporter records exports instead of writing files. OnExport, when
// set, runs inside each call before it returns.
type FakeExporter struct {
	mu       sync.Mutex
	calls    []ExportCall
	err      error
	OnExport func()
}

func NewFakeExporter() *FakeExporter {
	return &FakeExporter{}
}

func (e *FakeExporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *FakeExporter) Export(_ context.Context, surface pdfgen.Surface, filename string) (string, error) {
	if e.OnExport != nil {
		e.OnExport()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, ExportCall{Surface: surface, Filename: filename})
	if e.err != nil {
		return "", e.err
	}
	return "/tmp/" + filename, nil
}

func (e *FakeExporter) Calls() []ExportCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ExportCall{}, e.calls...)
}

// FakeNavigator records the addresses the application left for
type FakeNavigator struct {
	mu      sync.Mutex
	visited []string
}

func (n *FakeNavigator) Navigate(_ context.Context, target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visited = append(n.visited, target)
	return nil
}

func (n *FakeNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.visited...)
}
