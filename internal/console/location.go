package console

import (
	"net/url"
	"sync"

	ierr "github.com/facto/facto/internal/errors"
)

// Location keeps the address the application was opened with
type Location struct {
	mu      sync.RWMutex
	current url.URL
}

func NewLocation(raw string) (*Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invalid address %q", raw).
			Mark(ierr.ErrValidation)
	}
	return &Location{current: *u}, nil
}

func (l *Location) Current() *url.URL {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u := l.current
	return &u
}

func (l *Location) Replace(u *url.URL) {
	if u == nil {
		return
	}
	l.mu.Lock()
	l.current = *u
	l.mu.Unlock()
}

func (l *Location) String() string {
	return l.Current().String()
}
