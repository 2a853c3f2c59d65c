package einvoice

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
	"github.com/jhoicas/efatura-gateway/pkg/config"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

// placeholderPrefix marks a locally generated document id for a submission
// the backend accepted without returning a strong identifier.
const placeholderPrefix = "PENDING-"

// UseCase is the submission and status client: it orchestrates the document
// builder, the session store and the response interpreter for one tenant
// call at a time. Safe for concurrent use across tenants; the session store
// is the only shared mutable state and carries its own locking.
//
// There is no retry loop here. Blind retries against a document-submission
// endpoint risk duplicate submissions (the fingerprint only detects them),
// so resilience is composed by the caller.
type UseCase struct {
	cfg      config.GIBConfig
	builder  DocumentBuilder
	sessions SessionProvider
	exchange DocumentExchange
	interp   ResponseInterpreter
	log      *logger.Logger
}

// NewUseCase wires the client with its collaborators.
func NewUseCase(
	cfg config.GIBConfig,
	builder DocumentBuilder,
	sessions SessionProvider,
	exchange DocumentExchange,
	interp ResponseInterpreter,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		cfg:      cfg,
		builder:  builder,
		sessions: sessions,
		exchange: exchange,
		interp:   interp,
		log:      log,
	}
}

// SubmitInvoice builds, fingerprints and submits one draft, then normalizes
// whatever the backend answered into a SubmissionOutcome.
//
// The returned error is non-nil only for caller mistakes (invalid draft) or
// internal build failures. Every backend-side condition (missing config,
// transport failure, authentication failure, protocol fault, business
// rejection, ambiguous acceptance) is encoded in the outcome so nothing is
// thrown across the network boundary.
func (uc *UseCase) SubmitInvoice(ctx context.Context, tenantID string, draft *entity.InvoiceDraft) (*entity.SubmissionOutcome, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// Configuration errors are detected before any network call.
	if err := uc.cfg.Validate(); err != nil {
		return failure(entity.FailureConfig, err.Error()), nil
	}

	service := draft.DocumentType.Service()
	lg := uc.log.With().Str("tenant", tenantID).Str("service", string(service)).Logger()

	sess, err := uc.sessions.Ensure(ctx, tenantID, service)
	if err != nil {
		lg.Warn().Err(err).Msg("session handshake failed")
		if errors.Is(err, domain.ErrTransport) {
			return failure(entity.FailureTransport, err.Error()), nil
		}
		return failure(entity.FailureAuth, err.Error()), nil
	}

	docNo := draft.DocumentNumber
	if docNo == "" {
		docNo = uc.generateDocumentNumber()
	}

	doc, err := uc.builder.Build(&infragib.DocumentBuildContext{
		Draft:          draft,
		DocumentNumber: docNo,
		IntegratorCode: uc.cfg.IntegratorCode,
	})
	if err != nil {
		return nil, err
	}

	// Best-effort operator side channel; never blocks the submission.
	infragib.DumpDocument(uc.cfg.DebugDumpDir, docNo, doc.XML, uc.log)

	raw, err := uc.exchange.SendDocument(ctx, sess, infragib.SubmitRequest{
		VKN:            pkggib.ExtractDigits(draft.Supplier.TaxID),
		DocumentType:   docTypeCodeFor(draft.DocumentType),
		DocumentNumber: docNo,
		ContentB64:     base64.StdEncoding.EncodeToString(doc.XML),
		Fingerprint:    doc.Fingerprint,
		IntegratorCode: uc.cfg.IntegratorCode,
	})
	if err != nil {
		// A transport error says nothing about what the backend did with the
		// document; success is never inferred from it.
		lg.Error().Err(err).Str("document_no", docNo).Msg("send document transport failure")
		out := failure(entity.FailureTransport, err.Error())
		out.DocumentNumber = docNo
		out.Fingerprint = doc.Fingerprint
		return out, nil
	}

	out := uc.outcomeFromResponse(tenantID, service, docNo, raw)
	out.DocumentNumber = docNo
	out.Fingerprint = doc.Fingerprint
	if out.ETTN == "" {
		out.ETTN = doc.ETTN
	}

	lg.Info().
		Str("document_no", docNo).
		Bool("accepted", out.Accepted).
		Bool("unconfirmed", out.Unconfirmed).
		Str("failure", string(out.Failure)).
		Msg("submission finished")
	return out, nil
}

// outcomeFromResponse applies the interpretation precedence of the exchange
// protocol: fault beats result code, result code beats identifiers, and a
// structurally recognizable response with no strong identifier still counts
// as accepted-unconfirmed (the caller reconciles it via CheckStatus later).
func (uc *UseCase) outcomeFromResponse(tenantID string, service pkggib.Service, docNo string, raw []byte) *entity.SubmissionOutcome {
	parsed := uc.interp.Interpret(raw)

	if parsed.Fault.Present {
		uc.dropIfSessionFault(tenantID, service, parsed.Fault.Value)
		return failure(entity.FailureFault, parsed.Fault.Value)
	}

	// A well-formed response can still carry a business rejection; that is
	// not a fault and surfaces with the backend's own code and wording.
	if parsed.ResultCode.Present && !pkggib.IsSuccessResultCode(parsed.ResultCode.Value) {
		text := parsed.ResultText.Or("")
		if text == "" {
			text = "result code " + parsed.ResultCode.Value
		}
		out := failure(entity.FailureRejected, text)
		out.ErrorText = parsed.ResultCode.Value + ": " + text
		return out
	}

	if parsed.ETTN.Present || parsed.DocumentNumber.Present {
		return &entity.SubmissionOutcome{
			Accepted:    true,
			DocumentID:  parsed.DocumentNumber.Or(docNo),
			ETTN:        parsed.ETTN.Or(""),
			DocumentURL: parsed.DocumentURL.Or(""),
		}
	}

	// No strong identifier. Degraded success: treat as "accepted, identifier
	// pending" with a placeholder id rather than failing a submission the
	// backend may well have taken.
	return &entity.SubmissionOutcome{
		Accepted:    true,
		Unconfirmed: true,
		DocumentID:  placeholderPrefix + uuid.NewString(),
		DocumentURL: parsed.DocumentURL.Or(""),
	}
}

// isSessionFault reports whether a fault text points at an expired or
// invalid session rather than a document problem.
func isSessionFault(faultText string) bool {
	t := strings.ToLower(faultText)
	return strings.Contains(t, "session") || strings.Contains(t, "oturum")
}

// dropIfSessionFault invalidates the cached session when the fault text
// points at an expired or invalid session, so the next call re-authenticates
// instead of replaying a dead cookie.
func (uc *UseCase) dropIfSessionFault(tenantID string, service pkggib.Service, faultText string) {
	if isSessionFault(faultText) {
		uc.sessions.Drop(tenantID, service)
	}
}

// generateDocumentNumber builds a placeholder document number of the form
// <prefix>-<token>. The token is the current unix-nano in base 36: unique
// enough for a per-process placeholder and roughly monotonic.
func (uc *UseCase) generateDocumentNumber() string {
	prefix := uc.cfg.DocumentPrefix
	if prefix == "" {
		prefix = "POS"
	}
	return prefix + "-" + strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
}

func docTypeCodeFor(t entity.DocumentType) string {
	if t == entity.DocumentTypeEArchive {
		return pkggib.DocTypeArchiveUBL
	}
	return pkggib.DocTypeInvoiceUBL
}

func failure(kind entity.FailureKind, text string) *entity.SubmissionOutcome {
	return &entity.SubmissionOutcome{
		Accepted:  false,
		Failure:   kind,
		ErrorText: text,
	}
}
