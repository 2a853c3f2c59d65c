package dto

import "github.com/shopspring/decimal"

// PartyRequest identifies one side of the invoice. TaxID is a 10-digit VKN
// for organizations or an 11-digit TCKN for persons.
type PartyRequest struct {
	TaxID   string `json:"tax_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Email   string `json:"email,omitempty"`
}

// InvoiceLineRequest one invoice line.
type InvoiceLineRequest struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"` // free-form; mapped to a UN/ECE code
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// SubmitInvoiceRequest body for POST /api/einvoice/invoices.
// DocumentNumber is optional; a placeholder number is generated when empty.
type SubmitInvoiceRequest struct {
	DocumentType   string               `json:"document_type"` // EFATURA|EARSIV
	DocumentNumber string               `json:"document_number,omitempty"`
	Supplier       PartyRequest         `json:"supplier"`
	Customer       PartyRequest         `json:"customer"`
	Lines          []InvoiceLineRequest `json:"lines"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TaxTotal       decimal.Decimal      `json:"tax_total"`
	GrandTotal     decimal.Decimal      `json:"grand_total"`
}

// SubmitInvoiceResponse the normalized submission outcome.
// When accepted && unconfirmed the backend gave no strong identifier and
// document_id holds a PENDING- placeholder; poll the status endpoint.
type SubmitInvoiceResponse struct {
	Accepted       bool   `json:"accepted"`
	Unconfirmed    bool   `json:"unconfirmed,omitempty"`
	DocumentID     string `json:"document_id,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	ETTN           string `json:"ettn,omitempty"`
	DocumentURL    string `json:"document_url,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	FailureKind    string `json:"failure_kind,omitempty"` // CONFIG|TRANSPORT|AUTH|FAULT|REJECTED
	Error          string `json:"error,omitempty"`
}

// StatusResponse body for GET /api/einvoice/invoices/:number/status.
// All fields except document_number empty means the backend does not know
// the document yet.
type StatusResponse struct {
	DocumentNumber string `json:"document_number"`
	StatusCode     string `json:"status_code,omitempty"`
	StatusText     string `json:"status_text,omitempty"`
	ETTN           string `json:"ettn,omitempty"`
	DocumentURL    string `json:"document_url,omitempty"`
}
