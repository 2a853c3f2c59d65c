package gib

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/efatura-gateway/internal/domain"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

// Session is the opaque handle for one (tenant, service) pair. The connector
// track authenticates with a login-issued cookie; the archive track embeds a
// username/password block on every call (and keeps whatever cookie its
// document service handed back). Owned exclusively by the SessionStore;
// never persisted across restarts, never shared across tenants.
type Session struct {
	Tenant   string
	Service  pkggib.Service
	Cookie   string
	Username string
	Password string
}

// Usable reports whether the handle can authenticate a call at all.
func (s *Session) Usable() bool {
	if s == nil {
		return false
	}
	return s.Cookie != "" || (s.Username != "" && s.Password != "")
}

// LoginClient performs the service-appropriate handshake and returns a fresh
// session handle. Implemented by the wire client; mocked in tests.
type LoginClient interface {
	Login(ctx context.Context, service pkggib.Service) (*Session, error)
}

type sessionKey struct {
	tenant  string
	service pkggib.Service
}

// sessionEntry serializes all session operations for one key. The entry
// mutex is held across the handshake: that is exactly what guarantees a
// login in progress blocks (rather than races) other operations wanting the
// same key, and that the handshake runs at most once per expiry. Hold time
// is bounded by the login call's own timeout.
type sessionEntry struct {
	mu   sync.Mutex
	sess *Session
}

// SessionStore caches one session per (tenant, service) pair and
// re-authenticates lazily. State machine per key:
// NoSession -> Authenticating -> Active -> (Drop) -> NoSession.
// There is no automatic retry: a failed handshake leaves the key in
// NoSession and the error travels up.
type SessionStore struct {
	mu      sync.Mutex
	entries map[sessionKey]*sessionEntry
	login   LoginClient
	log     *logger.Logger
}

// NewSessionStore creates the store.
func NewSessionStore(login LoginClient, log *logger.Logger) *SessionStore {
	return &SessionStore{
		entries: make(map[sessionKey]*sessionEntry),
		login:   login,
		log:     log,
	}
}

// Ensure returns the cached session for (tenant, service), performing the
// handshake first if the key has none. Idempotent: an Active key returns the
// cached handle untouched. Concurrent calls for the same key serialize on
// the key's entry; different keys proceed fully in parallel.
func (st *SessionStore) Ensure(ctx context.Context, tenant string, service pkggib.Service) (*Session, error) {
	entry := st.entry(sessionKey{tenant: tenant, service: service})

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess.Usable() {
		return entry.sess, nil
	}

	st.log.Debug().Str("tenant", tenant).Str("service", string(service)).Msg("authenticating against GIB service")
	sess, err := st.login.Login(ctx, service)
	if err != nil {
		// Key stays NoSession; the caller decides whether to try again.
		return nil, err
	}
	if !sess.Usable() {
		return nil, fmt.Errorf("%w: handshake returned no usable credential for service %s",
			domain.ErrAuthentication, service)
	}
	sess.Tenant = tenant
	sess.Service = service
	entry.sess = sess
	st.log.Info().Str("tenant", tenant).Str("service", string(service)).Msg("GIB session established")
	return sess, nil
}

// Drop invalidates the cached session for a key, forcing the next Ensure to
// re-authenticate. Used when the backend signals an expired session.
func (st *SessionStore) Drop(tenant string, service pkggib.Service) {
	entry := st.entry(sessionKey{tenant: tenant, service: service})
	entry.mu.Lock()
	entry.sess = nil
	entry.mu.Unlock()
}

func (st *SessionStore) entry(key sessionKey) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[key]
	if !ok {
		e = &sessionEntry{}
		st.entries[key] = e
	}
	return e
}
