package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"redveil/pkg/fingerprint"
)

// Credential is the live identity used for authenticated upstream
// requests: the bearer token, the device it was issued to, and the
// session headers captured during the handshake.
type Credential struct {
	// AccessToken is the OAuth bearer token.
	AccessToken string

	// ExpiresAt is the token's expiry as reported by the handshake.
	ExpiresAt time.Time

	// Device is the spoofed client identity the token was issued to.
	// Requests carrying the token must carry this device's headers,
	// or the pairing looks inconsistent upstream.
	Device *fingerprint.Device

	// SessionHeaders are the session continuity headers echoed back by
	// the mobile handshake (x-reddit-loid, x-reddit-session). Empty
	// for fallback credentials.
	SessionHeaders http.Header
}

// Valid reports whether the credential carries an unexpired token.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != "" && time.Now().Before(c.ExpiresAt)
}

// TTL returns the remaining validity window. Negative once expired.
func (c *Credential) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return time.Until(c.ExpiresAt)
}

// Store holds the current credential behind an atomic pointer so reads
// on the hot request path never contend with the refresher.
//
// A Store starts empty. Until the first Set, Current returns
// ErrNotReady; AwaitReady lets startup code block until the first
// handshake lands.
type Store struct {
	current   atomic.Pointer[Credential]
	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{ready: make(chan struct{})}
}

// Current returns the current credential, or ErrNotReady before the
// first handshake. A returned credential may already be expired if the
// refresher is failing; callers proceed with it and rely on the
// dispatcher's reactive refresh.
func (s *Store) Current() (*Credential, error) {
	cred := s.current.Load()
	if cred == nil {
		return nil, ErrNotReady
	}
	return cred, nil
}

// Set replaces the current credential and marks the store ready.
func (s *Store) Set(cred *Credential) {
	s.current.Store(cred)
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready returns a channel closed after the first credential lands.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// AwaitReady blocks until the first credential lands or the context is
// canceled.
func (s *Store) AwaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
