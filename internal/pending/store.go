package pending

import (
	"context"

	"github.com/facto/facto/internal/domain/invoice"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
	"github.com/facto/facto/internal/types"
)

// Tab-scoped keys
const (
	KeyTemplate       = "facto_pending_template"
	KeyInvoice        = "facto_pending_invoice"
	KeyDownload       = "facto_pending_download"
	KeyPremiumPending = "facto_premium_pending"
	KeyPremiumSession = "facto_premium_session"

	flagSet = "1"
)

// Snapshot is what survives the checkout round trip. Either field may be
// empty when its stored value was missing or unreadable.
type Snapshot struct {
	Template types.TemplateType
	Draft    *invoice.Draft
}

// Store keeps the user's in-progress choices and the single-use flags of the
// export workflow in tab storage. Reads never fail: a storage error is logged
// and reads as absent.
type Store struct {
	store  storage.Store
	logger *logger.Logger
}

func NewStore(store storage.Store, logger *logger.Logger) *Store {
	return &Store{store: store, logger: logger}
}

// Save snapshots the template and draft
func (s *Store) Save(ctx context.Context, template types.TemplateType, draft *invoice.Draft) error {
	if err := s.store.Set(ctx, KeyTemplate, string(template)); err != nil {
		return err
	}
	if draft == nil {
		return s.store.Delete(ctx, KeyInvoice)
	}
	raw, err := draft.Marshal()
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyInvoice, raw)
}

// Restore returns the saved snapshot. An unknown template is dropped while a
// readable draft is still returned; ok is false when nothing usable was stored.
func (s *Store) Restore(ctx context.Context) (Snapshot, bool) {
	var snap Snapshot

	if raw, ok := s.get(ctx, KeyTemplate); ok {
		template, err := types.ParseTemplate(raw)
		if err != nil {
			s.logger.Warnw("dropping unknown pending template", "template", raw)
		} else {
			snap.Template = template
		}
	}

	if raw, ok := s.get(ctx, KeyInvoice); ok {
		draft, err := invoice.Unmarshal(raw)
		if err != nil {
			s.logger.Warnw("dropping unreadable pending invoice", "error", err)
		} else {
			snap.Draft = draft
		}
	}

	return snap, snap.Template != "" || snap.Draft != nil
}

// Clear forgets the snapshot and every flag
func (s *Store) Clear(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{KeyTemplate, KeyInvoice, KeyDownload, KeyPremiumPending, KeyPremiumSession} {
		if err := s.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) MarkDownloadRequested(ctx context.Context) error {
	return s.store.Set(ctx, KeyDownload, flagSet)
}

// ConsumeDownloadRequested reports the flag and clears it
func (s *Store) ConsumeDownloadRequested(ctx context.Context) bool {
	requested := s.DownloadRequested(ctx)
	if requested {
		s.delete(ctx, KeyDownload)
	}
	return requested
}

// DownloadRequested reports the flag without clearing it
func (s *Store) DownloadRequested(ctx context.Context) bool {
	v, ok := s.get(ctx, KeyDownload)
	return ok && v == flagSet
}

// MarkConfirmationDeferred stashes a checkout outcome that arrived before auth
// was resolved. sessionID may be empty for the bare success flag.
func (s *Store) MarkConfirmationDeferred(ctx context.Context, sessionID string) error {
	if err := s.store.Set(ctx, KeyPremiumPending, flagSet); err != nil {
		return err
	}
	if sessionID == "" {
		return nil
	}
	return s.store.Set(ctx, KeyPremiumSession, sessionID)
}

// ConsumeConfirmationDeferred returns the stash, if any, and clears it
func (s *Store) ConsumeConfirmationDeferred(ctx context.Context) (string, bool) {
	v, ok := s.get(ctx, KeyPremiumPending)
	if !ok || v == "" {
		return "", false
	}
	sessionID, _ := s.get(ctx, KeyPremiumSession)
	s.delete(ctx, KeyPremiumPending)
	s.delete(ctx, KeyPremiumSession)
	return sessionID, true
}

// ConfirmationDeferred reports whether a stash exists without clearing it
func (s *Store) ConfirmationDeferred(ctx context.Context) bool {
	v, ok := s.get(ctx, KeyPremiumPending)
	return ok && v != ""
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warnw("pending state read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (s *Store) delete(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warnw("pending state delete failed", "key", key, "error", err)
	}
}
