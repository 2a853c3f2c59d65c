package gib_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

// fakeLoginClient counts handshakes and can be slowed down or made to fail,
// so the store's one-login-per-key guarantee is observable.
type fakeLoginClient struct {
	calls int32
	delay time.Duration
	err   error
}

func (f *fakeLoginClient) Login(_ context.Context, service pkggib.Service) (*infragib.Session, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &infragib.Session{Cookie: "JSESSIONID=abc"}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "development", Level: "error"})
}

func TestEnsure_CachesSession(t *testing.T) {
	login := &fakeLoginClient{}
	store := infragib.NewSessionStore(login, testLogger())

	s1, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)
	s2, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)

	assert.Same(t, s1, s2, "the second Ensure must return the cached handle")
	assert.EqualValues(t, 1, atomic.LoadInt32(&login.calls))
	assert.Equal(t, "tenant-1", s1.Tenant)
	assert.Equal(t, pkggib.ServiceEInvoice, s1.Service)
}

// Concurrent Ensure calls for one key perform exactly one handshake; the
// per-key lock is held across the login so racers wait instead of dialing.
func TestEnsure_ConcurrentSingleHandshake(t *testing.T) {
	login := &fakeLoginClient{delay: 30 * time.Millisecond}
	store := infragib.NewSessionStore(login, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&login.calls),
		"16 concurrent callers of one key must trigger exactly one login")
}

func TestEnsure_KeysAreIndependent(t *testing.T) {
	login := &fakeLoginClient{}
	store := infragib.NewSessionStore(login, testLogger())

	_, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)
	_, err = store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEArchive)
	require.NoError(t, err)
	_, err = store.Ensure(context.Background(), "tenant-2", pkggib.ServiceEInvoice)
	require.NoError(t, err)

	assert.EqualValues(t, 3, atomic.LoadInt32(&login.calls),
		"each (tenant, service) pair authenticates separately")
}

func TestDrop_ForcesReauthentication(t *testing.T) {
	login := &fakeLoginClient{}
	store := infragib.NewSessionStore(login, testLogger())

	_, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)

	store.Drop("tenant-1", pkggib.ServiceEInvoice)

	_, err = store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&login.calls))
}

// A failed handshake leaves the key empty; there is no automatic retry, the
// next Ensure simply tries again.
func TestEnsure_FailedHandshakeNotCached(t *testing.T) {
	login := &fakeLoginClient{err: errors.New("backend unreachable")}
	store := infragib.NewSessionStore(login, testLogger())

	_, err := store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.Error(t, err)

	login.err = nil
	_, err = store.Ensure(context.Background(), "tenant-1", pkggib.ServiceEInvoice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&login.calls))
}
