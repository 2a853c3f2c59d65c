package einvoice

import (
	"context"

	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
)

// DocumentBuilder produces the canonical UBL document for a draft.
type DocumentBuilder interface {
	Build(ctx *infragib.DocumentBuildContext) (*entity.CanonicalDocument, error)
}

// SessionProvider hands out (tenant, service)-scoped sessions, authenticating
// lazily, and invalidates them on expiry.
type SessionProvider interface {
	Ensure(ctx context.Context, tenant string, service pkggib.Service) (*infragib.Session, error)
	Drop(tenant string, service pkggib.Service)
}

// DocumentExchange is the outbound port to the GIB backends. Implementations
// return the raw response body; interpretation happens upstream. For tests a
// canned-response fake is injected.
type DocumentExchange interface {
	SendDocument(ctx context.Context, sess *infragib.Session, req infragib.SubmitRequest) ([]byte, error)
	GetStatus(ctx context.Context, sess *infragib.Session, req infragib.StatusRequest) ([]byte, error)
}

// ResponseInterpreter normalizes a raw response body into explicit fields.
type ResponseInterpreter interface {
	Interpret(raw []byte) infragib.ParsedResponse
}
