package entity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/pkg/gib"
)

// DocumentType selects which GIB track an invoice travels through.
type DocumentType string

const (
	// DocumentTypeEInvoice: recipient is a registered e-Fatura user; goes
	// through the connector with a cookie session.
	DocumentTypeEInvoice DocumentType = "EFATURA"
	// DocumentTypeEArchive: everyone else; goes through the e-Arşiv document
	// service with an embedded credential block.
	DocumentTypeEArchive DocumentType = "EARSIV"
)

// Service resolves the backend service for this document type. Callers never
// pick the service directly; the document type decides.
func (t DocumentType) Service() gib.Service {
	if t == DocumentTypeEArchive {
		return gib.ServiceEArchive
	}
	return gib.ServiceEInvoice
}

// Valid reports whether the document type is one of the two known tracks.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeEInvoice || t == DocumentTypeEArchive
}

// Party identifies one side of the invoice. TaxID length decides the UBL
// party-block structure: exactly 11 digits is a natural person (TCKN),
// anything else an organization (VKN).
type Party struct {
	TaxID   string
	Name    string
	Address string
	City    string
	Country string
	Email   string
}

// InvoiceLine is one ordered line item of a draft.
type InvoiceLine struct {
	Name      string
	Quantity  decimal.Decimal
	Unit      string // free text; mapped through the gib unit catalogue
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal // percent
}

// ExtendedAmount returns quantity × unit price.
func (l InvoiceLine) ExtendedAmount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// InvoiceDraft is the internal invoice representation handed to the gateway
// by the surrounding POS application. It is never persisted here.
type InvoiceDraft struct {
	Supplier Party
	Customer Party
	Lines    []InvoiceLine

	Subtotal   decimal.Decimal // net, before tax
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal

	DocumentType DocumentType
	// DocumentNumber is optional; when empty the gateway generates a
	// placeholder of the form <prefix>-<token>.
	DocumentNumber string
}

// validateParty checks one side of the invoice: tax id and name present, and
// the id well-formed for its kind. An 11-digit id must pass the TCKN
// checksum; anything else must be a 10-digit VKN. The party-block branching
// in the document builder still goes by length alone; this rejects ids the
// backend would bounce before a document is built for them.
func validateParty(role string, p Party) error {
	if p.TaxID == "" || p.Name == "" {
		return fmt.Errorf("%w: %s tax id and name are required", domain.ErrInvalidDraft, role)
	}
	var err error
	if gib.IsPersonalID(p.TaxID) {
		err = gib.ValidateTCKN(p.TaxID)
	} else {
		err = gib.ValidateVKN(p.TaxID)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidDraft, role, err)
	}
	return nil
}

// Validate checks the draft's structural invariants: a known document type,
// well-formed party identifiers, at least one line, per-line extended
// amounts matching quantity × price, and grand total equal to subtotal plus
// tax total at two decimals.
func (d *InvoiceDraft) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil draft", domain.ErrInvalidDraft)
	}
	if !d.DocumentType.Valid() {
		return fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidDraft, d.DocumentType)
	}
	if err := validateParty("supplier", d.Supplier); err != nil {
		return err
	}
	if err := validateParty("customer", d.Customer); err != nil {
		return err
	}
	if len(d.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", domain.ErrInvalidDraft)
	}
	var lineSum decimal.Decimal
	for i, l := range d.Lines {
		if l.Quantity.Sign() <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", domain.ErrInvalidDraft, i+1)
		}
		if l.UnitPrice.Sign() < 0 {
			return fmt.Errorf("%w: line %d unit price must not be negative", domain.ErrInvalidDraft, i+1)
		}
		lineSum = lineSum.Add(l.ExtendedAmount())
	}
	if !lineSum.Round(2).Equal(d.Subtotal.Round(2)) {
		return fmt.Errorf("%w: subtotal %s does not match line sum %s",
			domain.ErrInvalidDraft, d.Subtotal.StringFixed(2), lineSum.StringFixed(2))
	}
	if !d.Subtotal.Add(d.TaxTotal).Round(2).Equal(d.GrandTotal.Round(2)) {
		return fmt.Errorf("%w: grand total %s does not equal subtotal %s + tax %s",
			domain.ErrInvalidDraft, d.GrandTotal.StringFixed(2),
			d.Subtotal.StringFixed(2), d.TaxTotal.StringFixed(2))
	}
	return nil
}
