package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/facto/facto/internal/domain/checkout"
	ierr "github.com/facto/facto/internal/errors"
)

// InMemoryCheckoutGateway is a checkout.Gateway keeping sessions in a map
type InMemoryCheckoutGateway struct {
	mu       sync.Mutex
	sessions map[string]*checkout.Session
	created  []*checkout.CreateParams
	gets     int
	err      error
}

func NewInMemoryCheckoutGateway() *InMemoryCheckoutGateway {
	return &InMemoryCheckoutGateway{
		sessions: make(map[string]*checkout.Session),
	}
}

func (g *InMemoryCheckoutGateway) CreateSession(_ context.Context, params *checkout.CreateParams) (*checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}

	id := fmt.Sprintf("cs_test_%d", len(g.created)+1)
	g.created = append(g.created, params)
	s := &checkout.Session{
		ID:            id,
		URL:           "https://checkout.stripe.test/c/pay/" + id,
		PaymentStatus: "unpaid",
		Metadata: map[string]string{
			"uid":  params.UID,
			"plan": string(params.Plan),
		},
	}
	g.sessions[id] = s
	return s, nil
}

func (g *InMemoryCheckoutGateway) GetSession(_ context.Context, sessionID string) (*checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gets++
	if g.err != nil {
		return nil, g.err
	}
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, ierr.NewError("no such checkout session").
			WithHintf("No such checkout.session: '%s'", sessionID).
			Mark(ierr.ErrProvider)
	}
	return s, nil
}

// Put stores a session as the provider would see it
func (g *InMemoryCheckoutGateway) Put(s *checkout.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID] = s
}

// FailWith makes every following call return err; nil restores normal behaviour
func (g *InMemoryCheckoutGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Created returns the params of every created session
func (g *InMemoryCheckoutGateway) Created() []*checkout.CreateParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*checkout.CreateParams(nil), g.created...)
}

// GetCalls counts GetSession calls
func (g *InMemoryCheckoutGateway) GetCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets
}

func (g *InMemoryCheckoutGateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = make(map[string]*checkout.Session)
	g.created = nil
	g.gets = 0
	g.err = nil
}
