package einvoice_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/efatura-gateway/internal/application/einvoice"
	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
	"github.com/jhoicas/efatura-gateway/pkg/config"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes for the outbound ports. The exchange answers with canned bodies so
// each backend behavior (fault, rejection, acceptance, silence) is exercised
// without a network.
// ──────────────────────────────────────────────────────────────────────────────

type fakeBuilder struct {
	err error
}

func (f *fakeBuilder) Build(ctx *infragib.DocumentBuildContext) (*entity.CanonicalDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.CanonicalDocument{
		ETTN:        "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		XML:         []byte("<Invoice><ID>" + ctx.DocumentNumber + "</ID></Invoice>"),
		Fingerprint: "d41d8cd98f00b204e9800998ecf8427e",
	}, nil
}

type fakeSessions struct {
	ensureErr error
	drops     []string
}

func (f *fakeSessions) Ensure(_ context.Context, tenant string, service pkggib.Service) (*infragib.Session, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	return &infragib.Session{Tenant: tenant, Service: service, Cookie: "JSESSIONID=test"}, nil
}

func (f *fakeSessions) Drop(tenant string, service pkggib.Service) {
	f.drops = append(f.drops, tenant+"/"+string(service))
}

type fakeExchange struct {
	sendResponse   []byte
	sendErr        error
	statusResponse []byte
	statusErr      error
	lastSend       *infragib.SubmitRequest
	lastStatus     *infragib.StatusRequest
}

func (f *fakeExchange) SendDocument(_ context.Context, _ *infragib.Session, req infragib.SubmitRequest) ([]byte, error) {
	f.lastSend = &req
	return f.sendResponse, f.sendErr
}

func (f *fakeExchange) GetStatus(_ context.Context, _ *infragib.Session, req infragib.StatusRequest) ([]byte, error) {
	f.lastStatus = &req
	return f.statusResponse, f.statusErr
}

func testGIBConfig() config.GIBConfig {
	return config.GIBConfig{
		LoginURL:       "https://gib.example/login",
		ConnectorURL:   "https://gib.example/connector",
		ArchiveURL:     "https://gib.example/archive",
		VKN:            "1234567890",
		Username:       "integrator",
		Password:       "secret",
		IntegratorCode: "ERP01",
		DocumentPrefix: "POS",
	}
}

func testDraft() *entity.InvoiceDraft {
	return &entity.InvoiceDraft{
		Supplier: entity.Party{TaxID: "1234567890", Name: "Örnek Market A.Ş."},
		Customer: entity.Party{TaxID: "9876543210", Name: "Alıcı Ltd. Şti."},
		Lines: []entity.InvoiceLine{
			{Name: "Su 0.5L", Quantity: decimal.NewFromInt(4), Unit: "adet", UnitPrice: decimal.NewFromFloat(5.00)},
		},
		Subtotal:     decimal.NewFromFloat(20.00),
		TaxTotal:     decimal.NewFromFloat(4.00),
		GrandTotal:   decimal.NewFromFloat(24.00),
		DocumentType: entity.DocumentTypeEInvoice,
	}
}

type fixture struct {
	uc       *einvoice.UseCase
	sessions *fakeSessions
	exchange *fakeExchange
}

func newFixture(cfg config.GIBConfig, exchange *fakeExchange) *fixture {
	sessions := &fakeSessions{}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	uc := einvoice.NewUseCase(cfg, &fakeBuilder{}, sessions, exchange, infragib.NewResponseInterpreter(), log)
	return &fixture{uc: uc, sessions: sessions, exchange: exchange}
}

// ──────────────────────────────────────────────────────────────────────────────
// SubmitInvoice
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmitInvoice_AcceptedWithIdentifiers(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn><belgeNo>GIB2026000000001</belgeNo></resp>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.False(t, out.Unconfirmed)
	assert.Equal(t, entity.FailureNone, out.Failure)
	assert.Equal(t, "GIB2026000000001", out.DocumentID)
	assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", out.ETTN)
	assert.NotEmpty(t, out.Fingerprint)
}

func TestSubmitInvoice_GeneratesDocumentNumberWhenEmpty(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn></resp>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.DocumentNumber, "POS-"),
		"generated numbers carry the configured prefix")
	require.NotNil(t, fx.exchange.lastSend)
	assert.Equal(t, out.DocumentNumber, fx.exchange.lastSend.DocumentNumber)
}

func TestSubmitInvoice_KeepsProvidedDocumentNumber(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn></resp>`),
	})
	draft := testDraft()
	draft.DocumentNumber = "POS-2026-000042"

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", draft)
	require.NoError(t, err)
	assert.Equal(t, "POS-2026-000042", out.DocumentNumber)
}

// Degraded success: the backend answered something response-shaped but with
// no strong identifier. The submission still counts as accepted, marked
// unconfirmed, under a placeholder id the caller can reconcile later.
func TestSubmitInvoice_DegradedSuccessPlaceholder(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><resultText>islem alindi</resultText></resp>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.True(t, out.Unconfirmed)
	assert.True(t, strings.HasPrefix(out.DocumentID, "PENDING-"),
		"the placeholder id marks an acceptance awaiting confirmation")
	assert.Equal(t, entity.FailureNone, out.Failure)
}

func TestSubmitInvoice_FaultOutcome(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<Envelope><Body><Fault><faultstring>Schema dogrulama hatasi</faultstring></Fault></Body></Envelope>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err, "backend-side failures are outcomes, not errors")

	assert.False(t, out.Accepted)
	assert.Equal(t, entity.FailureFault, out.Failure)
	assert.Contains(t, out.ErrorText, "Schema dogrulama hatasi")
	assert.Empty(t, fx.sessions.drops, "a non-session fault keeps the session cached")
}

// An expired-session fault invalidates the cached session so the next call
// re-authenticates instead of replaying a dead cookie.
func TestSubmitInvoice_SessionFaultDropsSession(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<Envelope><Body><Fault><faultstring>Session expired, login again</faultstring></Fault></Body></Envelope>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.Equal(t, entity.FailureFault, out.Failure)
	assert.Equal(t, []string{"tenant-1/efatura"}, fx.sessions.drops)
}

func TestSubmitInvoice_BusinessRejection(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>2</resultCode><resultText>Gecersiz VKN</resultText></resp>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Equal(t, entity.FailureRejected, out.Failure)
	assert.Contains(t, out.ErrorText, "2")
	assert.Contains(t, out.ErrorText, "Gecersiz VKN")
}

// A rejection whose text echoes a UUID-shaped token must stay a rejection;
// nothing scraped out of a structured response counts as an identifier.
func TestSubmitInvoice_RejectionWithEchoedUUIDStaysRejected(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><resp><resultCode>2</resultCode><resultText>belge f47ac10b-58cc-4372-a567-0e02b2c3d479 reddedildi</resultText></resp></s:Body></s:Envelope>`),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Equal(t, entity.FailureRejected, out.Failure)
	assert.Empty(t, out.DocumentURL, "the envelope xmlns URL is not a document URL")
}

func TestSubmitInvoice_TransportFailureOutcome(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendErr: fmt.Errorf("%w: connection refused", domain.ErrTransport),
	})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.False(t, out.Accepted, "a transport error never infers success")
	assert.Equal(t, entity.FailureTransport, out.Failure)
	assert.NotEmpty(t, out.DocumentNumber, "the number the submission traveled under is preserved")
}

func TestSubmitInvoice_SessionFailures(t *testing.T) {
	exchange := &fakeExchange{}
	fx := newFixture(testGIBConfig(), exchange)
	fx.sessions.ensureErr = fmt.Errorf("%w: handshake rejected", domain.ErrAuthentication)

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)
	assert.Equal(t, entity.FailureAuth, out.Failure)

	fx.sessions.ensureErr = fmt.Errorf("%w: dial tcp: timeout", domain.ErrTransport)
	out, err = fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)
	assert.Equal(t, entity.FailureTransport, out.Failure)
	assert.Nil(t, exchange.lastSend, "no document travels without a session")
}

func TestSubmitInvoice_MissingConfigOutcome(t *testing.T) {
	cfg := testGIBConfig()
	cfg.ConnectorURL = ""
	fx := newFixture(cfg, &fakeExchange{})

	out, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	assert.Equal(t, entity.FailureConfig, out.Failure)
	assert.Contains(t, out.ErrorText, "GIB_CONNECTOR_URL")
	assert.Nil(t, fx.exchange.lastSend, "config errors are detected before any network call")
}

func TestSubmitInvoice_InvalidDraftIsAnError(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{})
	draft := testDraft()
	draft.Lines = nil

	_, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", draft)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidDraft))
}

func TestSubmitInvoice_SendsBase64AndFingerprint(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn></resp>`),
	})

	_, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", testDraft())
	require.NoError(t, err)

	req := fx.exchange.lastSend
	require.NotNil(t, req)
	assert.Equal(t, "1234567890", req.VKN)
	assert.Equal(t, pkggib.DocTypeInvoiceUBL, req.DocumentType)
	assert.Equal(t, "ERP01", req.IntegratorCode)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", req.Fingerprint)
	assert.NotEmpty(t, req.ContentB64)
	assert.NotContains(t, req.ContentB64, "<", "the document travels base64-encoded")
}

func TestSubmitInvoice_ArchiveDraftUsesArchiveDocType(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		sendResponse: []byte(`<resp><resultCode>0</resultCode><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn></resp>`),
	})
	draft := testDraft()
	draft.DocumentType = entity.DocumentTypeEArchive

	_, err := fx.uc.SubmitInvoice(context.Background(), "tenant-1", draft)
	require.NoError(t, err)
	require.NotNil(t, fx.exchange.lastSend)
	assert.Equal(t, pkggib.DocTypeArchiveUBL, fx.exchange.lastSend.DocumentType)
}

// ──────────────────────────────────────────────────────────────────────────────
// CheckStatus
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckStatus_PopulatedSnapshot(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		statusResponse: []byte(`<resp><status>APPROVED</status><resultText>Onaylandi</resultText><ettn>f47ac10b-58cc-4372-a567-0e02b2c3d479</ettn></resp>`),
	})

	snap, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	require.NoError(t, err)

	assert.Equal(t, "POS-1", snap.DocumentNumber)
	assert.Equal(t, "APPROVED", snap.StatusCode)
	assert.Equal(t, "Onaylandi", snap.StatusText)
	assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", snap.ETTN)
	assert.False(t, snap.Empty())
}

// "Not found" is an expected transient state for a recent submission: an
// empty snapshot and a nil error, never a failure.
func TestCheckStatus_NotFoundIsEmptySnapshot(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		statusResponse: []byte(`<resp><status>Belge bulunamadi</status></resp>`),
	})

	snap, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.Equal(t, "POS-1", snap.DocumentNumber)
}

func TestCheckStatus_SessionFaultDropsAndTypesError(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		statusResponse: []byte(`<Envelope><Body><Fault><faultstring>Oturum gecersiz session</faultstring></Fault></Body></Envelope>`),
	})

	_, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSessionExpired),
		"an expired-session fault surfaces as the typed sentinel")
	assert.Equal(t, []string{"tenant-1/efatura"}, fx.sessions.drops,
		"a session fault on status also invalidates the cached session")
}

func TestCheckStatus_NonSessionFaultIsPlainError(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		statusResponse: []byte(`<Envelope><Body><Fault><faultstring>Servis bakimda</faultstring></Fault></Body></Envelope>`),
	})

	_, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSessionExpired))
	assert.Empty(t, fx.sessions.drops, "a non-session fault keeps the session cached")
}

func TestCheckStatus_TransportErrorPropagates(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{
		statusErr: fmt.Errorf("%w: connection reset", domain.ErrTransport),
	})

	_, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestCheckStatus_ValidatesInput(t *testing.T) {
	fx := newFixture(testGIBConfig(), &fakeExchange{})

	_, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "", entity.DocumentTypeEInvoice)
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)

	_, err = fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", "PROFORMA")
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
}

func TestCheckStatus_MissingConfigIsAnError(t *testing.T) {
	cfg := testGIBConfig()
	cfg.VKN = ""
	fx := newFixture(cfg, &fakeExchange{})

	_, err := fx.uc.CheckStatus(context.Background(), "tenant-1", "POS-1", entity.DocumentTypeEInvoice)
	assert.ErrorIs(t, err, domain.ErrMissingConfig)
}
