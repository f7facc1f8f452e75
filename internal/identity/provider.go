package identity

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/auth"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/httpclient"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
)

// sessionKey holds the persisted sign-in in the long-lived store
const sessionKey = "facto_auth_session"

type persistedSession struct {
	RefreshToken string    `json:"refreshToken"`
	User         auth.User `json:"user"`
}

// Provider is the client's single identity service. It starts out loading,
// resolves the persisted session once in the background, and then notifies
// subscribers on every sign-in and sign-out.
type Provider struct {
	rest   *restClient
	store  storage.Store
	logger *logger.Logger
	now    func() time.Time

	mu           sync.RWMutex
	loading      bool
	resolving    bool
	generation   uint64
	user         *auth.User
	idToken      string
	tokenExpiry  time.Time
	refreshToken string
	subscribers  map[int]func(*auth.User)
	nextID       int

	// persistMu orders writes of the stored session against generation changes
	persistMu sync.Mutex

	startOnce sync.Once
	ready     chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewProvider(cfg *config.Configuration, client httpclient.Client, store storage.Store, logger *logger.Logger) *Provider {
	return &Provider{
		rest: &restClient{
			http:          client,
			apiKey:        cfg.Firebase.APIKey,
			identityBase:  cfg.Firebase.IdentityEndpoint,
			tokenEndpoint: cfg.Firebase.TokenEndpoint,
		},
		store:       store,
		logger:      logger,
		now:         time.Now,
		loading:     true,
		subscribers: make(map[int]func(*auth.User)),
		ready:       make(chan struct{}),
	}
}

// Start resolves the persisted session asynchronously. Subscribers are
// notified before Ready is closed. A sign-in or sign-out made while the
// restore is running wins over the restored session.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.cancel = cancel

		p.mu.Lock()
		p.resolving = true
		gen := p.generation
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.resolve(ctx, gen)

			p.mu.Lock()
			p.loading = false
			p.resolving = false
			p.mu.Unlock()

			user := p.CurrentUser()
			p.logger.Debugw("identity resolved", "signed_in", user != nil)
			p.notify(user)
			close(p.ready)
		}()
	})
}

// Close stops a pending resolution and waits for it to finish
func (p *Provider) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Ready is closed once the initial state is known
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Loading is true until the initial state has been resolved
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// CurrentUser is nil when signed out and until a session is known
func (p *Provider) CurrentUser() *auth.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// IDToken returns the current user's token for authenticated backend calls,
// renewing it through the refresh token once it is about to expire
func (p *Provider) IDToken(ctx context.Context) (string, error) {
	p.mu.RLock()
	token, refresh, expiry, gen := p.idToken, p.refreshToken, p.tokenExpiry, p.generation
	p.mu.RUnlock()

	if token != "" && p.now().Before(expiry) {
		return token, nil
	}
	if refresh == "" {
		return "", nil
	}

	resp, err := p.rest.refresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	if p.generation != gen {
		// signed in or out meanwhile, the token belongs to someone else
		p.mu.Unlock()
		return p.IDToken(ctx)
	}
	p.idToken = resp.IDToken
	p.tokenExpiry = tokenExpiry(p.now(), resp.ExpiresIn)
	rotated := resp.RefreshToken != "" && resp.RefreshToken != refresh
	if rotated {
		p.refreshToken = resp.RefreshToken
	}
	user := p.user
	p.mu.Unlock()

	if rotated && user != nil {
		p.persist(ctx, gen, resp.RefreshToken, user)
	}
	p.logger.Debugw("id token renewed", "rotated", rotated)
	return resp.IDToken, nil
}

// Subscribe registers fn for auth changes and returns its unsubscribe handle.
// Once the initial state is known fn is also called right away with it.
func (p *Provider) Subscribe(fn func(*auth.User)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	resolved := !p.loading
	p.mu.Unlock()

	if resolved {
		fn(p.CurrentUser())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*auth.User, error) {
	if err := p.checkCredentials(email, password); err != nil {
		return nil, err
	}
	resp, err := p.rest.signUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return p.signedIn(ctx, resp)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	if err := p.checkCredentials(email, password); err != nil {
		return nil, err
	}
	resp, err := p.rest.signIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return p.signedIn(ctx, resp)
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.user = nil
	p.idToken = ""
	p.tokenExpiry = time.Time{}
	p.refreshToken = ""
	loading := p.loading
	p.mu.Unlock()

	p.forget(ctx, gen)
	if !loading {
		p.notify(nil)
	}
	return nil
}

func (p *Provider) checkCredentials(email, password string) error {
	if strings.TrimSpace(p.rest.apiKey) == "" {
		return ierr.NewError("firebase api key is not configured").
			WithHint("Sign-in is not configured").
			Mark(ierr.ErrConfiguration)
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return ierr.NewError("email and password are required").
			WithHint("Email and password are required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (p *Provider) signedIn(ctx context.Context, resp *passwordResponse) (*auth.User, error) {
	user := &auth.User{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}

	// photo url only comes back from lookup
	if lookup, err := p.rest.lookup(ctx, resp.IDToken); err == nil && len(lookup.Users) > 0 {
		user.PhotoURL = lookup.Users[0].PhotoURL
		if user.DisplayName == "" {
			user.DisplayName = lookup.Users[0].DisplayName
		}
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.user = user
	p.idToken = resp.IDToken
	p.tokenExpiry = tokenExpiry(p.now(), resp.ExpiresIn)
	p.refreshToken = resp.RefreshToken
	if !p.resolving {
		p.loading = false
	}
	loading := p.loading
	p.mu.Unlock()

	p.persist(ctx, gen, resp.RefreshToken, user)
	p.logger.Infow("signed in", "uid", user.UID)

	// the pending resolution announces the user once it completes
	if !loading {
		p.notify(p.CurrentUser())
	}
	return p.CurrentUser(), nil
}

// resolve restores the persisted session. Any failure resolves as signed out;
// the stored session is only dropped when the provider rejected it. Nothing
// is applied when the generation moved on while the restore was running.
func (p *Provider) resolve(ctx context.Context, gen uint64) {
	raw, ok, err := p.store.Get(ctx, sessionKey)
	if err != nil {
		p.logger.Warnw("failed to read persisted session", "error", err)
		return
	}
	if !ok {
		return
	}

	var session persistedSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.RefreshToken == "" {
		p.logger.Warnw("dropping unreadable persisted session", "error", err)
		p.forget(ctx, gen)
		return
	}

	if strings.TrimSpace(p.rest.apiKey) == "" {
		p.logger.Warnw("firebase api key missing, cannot restore session")
		return
	}

	refreshed, err := p.rest.refresh(ctx, session.RefreshToken)
	if err != nil {
		if ierr.IsProvider(err) {
			p.forget(ctx, gen)
		}
		p.logger.Warnw("failed to restore session", "error", err)
		return
	}

	user := session.User
	user.UID = refreshed.UserID
	if lookup, err := p.rest.lookup(ctx, refreshed.IDToken); err == nil && len(lookup.Users) > 0 {
		u := lookup.Users[0]
		user = auth.User{
			UID:         u.LocalID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			PhotoURL:    u.PhotoURL,
		}
	}

	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		p.logger.Debugw("discarding restored session, auth changed while restoring", "uid", user.UID)
		return
	}
	p.user = &user
	p.idToken = refreshed.IDToken
	p.tokenExpiry = tokenExpiry(p.now(), refreshed.ExpiresIn)
	p.refreshToken = refreshed.RefreshToken
	p.mu.Unlock()

	p.persist(ctx, gen, refreshed.RefreshToken, &user)
}

func (p *Provider) current(gen uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation == gen
}

// persist stores the session unless a newer sign-in or sign-out happened
func (p *Provider) persist(ctx context.Context, gen uint64, refreshToken string, user *auth.User) {
	b, err := json.Marshal(persistedSession{RefreshToken: refreshToken, User: *user})
	if err != nil {
		return
	}

	p.persistMu.Lock()
	defer p.persistMu.Unlock()
	if !p.current(gen) {
		return
	}
	if err := p.store.Set(ctx, sessionKey, string(b)); err != nil {
		p.logger.Warnw("failed to persist session", "error", err)
	}
}

// forget drops the stored session unless a newer sign-in happened
func (p *Provider) forget(ctx context.Context, gen uint64) {
	p.persistMu.Lock()
	defer p.persistMu.Unlock()
	if !p.current(gen) {
		return
	}
	if err := p.store.Delete(ctx, sessionKey); err != nil {
		p.logger.Warnw("failed to forget session", "error", err)
	}
}

func (p *Provider) notify(user *auth.User) {
	p.mu.RLock()
	subs := make([]func(*auth.User), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(user)
	}
}
