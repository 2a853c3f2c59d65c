package einvoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
)

// CheckStatus queries the backend for the current state of a previously
// submitted document. A document the backend does not know yet is an expected
// transient state, not an error: it yields an empty snapshot with a nil
// error, so pollers can tell "still propagating" apart from "call failed".
func (uc *UseCase) CheckStatus(ctx context.Context, tenantID, documentNumber string, docType entity.DocumentType) (*entity.StatusSnapshot, error) {
	if documentNumber == "" {
		return nil, fmt.Errorf("%w: document number is required", domain.ErrInvalidDraft)
	}
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidDraft, docType)
	}
	if err := uc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingConfig, err)
	}

	service := docType.Service()
	sess, err := uc.sessions.Ensure(ctx, tenantID, service)
	if err != nil {
		return nil, err
	}

	raw, err := uc.exchange.GetStatus(ctx, sess, infragib.StatusRequest{
		VKN:            uc.cfg.VKN,
		DocumentType:   docTypeCodeFor(docType),
		DocumentNumber: documentNumber,
		IntegratorCode: uc.cfg.IntegratorCode,
	})
	if err != nil {
		return nil, err
	}

	parsed := uc.interp.Interpret(raw)
	if parsed.Fault.Present {
		text := strings.TrimSpace(parsed.Fault.Value)
		if isSessionFault(text) {
			uc.sessions.Drop(tenantID, service)
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionExpired, text)
		}
		return nil, fmt.Errorf("status query fault: %s", text)
	}

	snap := &entity.StatusSnapshot{DocumentNumber: documentNumber}
	if parsed.NotFound() {
		return snap, nil
	}

	snap.StatusCode = parsed.Status.Or(parsed.ResultCode.Or(""))
	snap.StatusText = parsed.ResultText.Or("")
	snap.ETTN = parsed.ETTN.Or("")
	snap.DocumentURL = parsed.DocumentURL.Or("")

	uc.log.Debug().
		Str("tenant", tenantID).
		Str("document_no", documentNumber).
		Str("status", snap.StatusCode).
		Msg("status snapshot")
	return snap, nil
}
