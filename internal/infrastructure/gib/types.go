// Package gib implements the UBL-TR document builder, the session store and
// the wire client for the GIB integrator backends.
package gib

import (
	"time"

	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
)

// DocumentBuildContext carries everything the builder needs for one document.
type DocumentBuildContext struct {
	Draft          *entity.InvoiceDraft
	DocumentNumber string // caller-supplied or generated upstream
	IntegratorCode string

	// Optional overrides. Production leaves them zero and the builder
	// generates a fresh ETTN and uses the current time; tests pin them to
	// make output byte-reproducible.
	ETTN      string
	IssueTime *time.Time
}

// SubmitRequest is the per-call metadata of the "send document" operation.
type SubmitRequest struct {
	VKN            string // submitting party tax id
	DocumentType   string // document type code (FATURA_UBL / EARSIV_UBL)
	DocumentNumber string
	ContentB64     string // base64-encoded canonical document
	Fingerprint    string // content digest transmitted for integrity checking
	IntegratorCode string
}

// StatusRequest is the per-call metadata of the status-query operation.
type StatusRequest struct {
	VKN            string
	DocumentType   string
	DocumentNumber string
	IntegratorCode string
}
