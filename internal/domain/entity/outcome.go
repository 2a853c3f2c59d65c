package entity

import "time"

// FailureKind classifies why a submission did not confirm. One value per
// class of the integration error taxonomy; FailureNone for accepted
// documents (including accepted-unconfirmed, see Unconfirmed).
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureConfig    FailureKind = "CONFIG"    // required configuration missing
	FailureTransport FailureKind = "TRANSPORT" // connection/timeout/DNS
	FailureAuth      FailureKind = "AUTH"      // handshake yielded no session
	FailureFault     FailureKind = "FAULT"     // explicit protocol fault element
	FailureRejected  FailureKind = "REJECTED"  // well-formed business rejection
)

// CanonicalDocument is the serialized UBL representation of a draft plus its
// freshly generated identifiers. Immutable once produced.
type CanonicalDocument struct {
	ETTN        string    // unique document identifier (UUID)
	IssuedAt    time.Time // issue timestamp rendered into the document
	XML         []byte    // serialized UBL bytes
	Fingerprint string    // content digest of XML (integrity + idempotency key)
}

// SubmissionOutcome is the result of exactly one submit call; it is never
// mutated afterwards.
type SubmissionOutcome struct {
	Accepted bool
	// Unconfirmed marks a degraded success: the backend showed signs of
	// acceptance but returned no strong identifier. DocumentID then holds a
	// locally generated placeholder and the caller must poll status later.
	Unconfirmed    bool
	DocumentID     string // remote document identifier (may be a placeholder)
	DocumentNumber string // number the document was submitted under
	ETTN           string // service-assigned unique transaction number
	DocumentURL    string // optional document-view URL
	Fingerprint    string // content fingerprint sent with the document
	Failure        FailureKind
	ErrorText      string // fault text, rejection code/text or transport detail
}

// StatusSnapshot is the point-in-time result of a status query. It is
// re-fetched on every call; nothing caches it here.
type StatusSnapshot struct {
	DocumentNumber string
	StatusCode     string
	StatusText     string
	ETTN           string
	DocumentURL    string
}

// Empty reports whether the backend had no data for the document, an
// expected transient state for a recent submission, not a failure.
func (s *StatusSnapshot) Empty() bool {
	return s == nil || (s.StatusCode == "" && s.StatusText == "" && s.ETTN == "" && s.DocumentURL == "")
}
