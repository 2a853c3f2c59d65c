package gib

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
)

// Official UBL 2.1 namespaces used by the UBL-TR 1.2 invoice.
const (
	// Default namespace (UBL Invoice)
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	// Common Aggregate Components
	NsCac = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	// Common Basic Components
	NsCbc = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	currencyTRY = "TRY"
	// UBL-TR customization identifier required by GIB.
	customizationTR = "TR1.2"
	invoiceTypeSale = "SATIS"
	// KDV (VAT) tax type code from UBL-TR code list 11.
	taxTypeCodeKDV = "0015"
)

// UBLBuilderService builds the UBL-TR invoice XML for a draft.
// Two calls with identical draft content and identical overrides produce
// byte-identical output; without overrides only the ETTN and the issue
// date/time fields differ.
type UBLBuilderService struct{}

// NewUBLBuilderService creates the service.
func NewUBLBuilderService() *UBLBuilderService {
	return &UBLBuilderService{}
}

// Build generates the canonical document for a draft: serialized UBL bytes,
// a fresh ETTN and issue timestamp (unless pinned in the context), and the
// content fingerprint of the byte representation.
func (s *UBLBuilderService) Build(ctx *DocumentBuildContext) (*entity.CanonicalDocument, error) {
	if ctx == nil || ctx.Draft == nil {
		return nil, fmt.Errorf("gib: draft missing from build context")
	}
	if ctx.DocumentNumber == "" {
		return nil, fmt.Errorf("gib: document number missing from build context")
	}
	draft := ctx.Draft

	ettn := ctx.ETTN
	if ettn == "" {
		ettn = uuid.NewString()
	}
	issuedAt := time.Now()
	if ctx.IssueTime != nil {
		issuedAt = *ctx.IssueTime
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "Invoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsInvoice},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// ---- cbc: mandatory invoice header elements
	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", customizationTR)
	writeCbc(enc, "ProfileID", profileFor(draft.DocumentType))
	writeCbc(enc, "ID", ctx.DocumentNumber)
	writeCbc(enc, "UUID", ettn)
	writeCbc(enc, "IssueDate", issuedAt.Format("2006-01-02"))
	writeCbc(enc, "IssueTime", issuedAt.Format("15:04:05"))
	writeCbc(enc, "InvoiceTypeCode", invoiceTypeSale)
	writeCbc(enc, "DocumentCurrencyCode", currencyTRY)
	writeCbc(enc, "LineCountNumeric", strconv.Itoa(len(draft.Lines)))

	// ---- cac:AccountingSupplierParty
	if err := s.writeSupplierParty(enc, &draft.Supplier); err != nil {
		return nil, err
	}
	// ---- cac:AccountingCustomerParty (person vs organization block)
	if err := s.writeCustomerParty(enc, &draft.Customer); err != nil {
		return nil, err
	}
	// ---- cac:TaxTotal
	if err := s.writeTaxTotal(enc, draft); err != nil {
		return nil, err
	}
	// ---- cac:LegalMonetaryTotal
	if err := s.writeLegalMonetaryTotal(enc, draft); err != nil {
		return nil, err
	}
	// ---- cac:InvoiceLine per draft line
	for i, line := range draft.Lines {
		if err := s.writeInvoiceLine(enc, i+1, line); err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	xmlBytes := buf.Bytes()
	fingerprint, err := Fingerprint(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("gib: fingerprint canonical document: %w", err)
	}

	return &entity.CanonicalDocument{
		ETTN:        ettn,
		IssuedAt:    issuedAt,
		XML:         xmlBytes,
		Fingerprint: fingerprint,
	}, nil
}

func profileFor(t entity.DocumentType) string {
	if t == entity.DocumentTypeEArchive {
		return pkggib.ProfileArchive
	}
	return pkggib.ProfileBasic
}

func (s *UBLBuilderService) writeSupplierParty(enc *xml.Encoder, p *entity.Party) error {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "AccountingSupplierParty"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Party"}})

	writePartyIdentification(enc, "VKN", pkggib.ExtractDigits(p.TaxID))

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})
	writeCbc(enc, "Name", p.Name)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})

	writePostalAddress(enc, p)

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Party"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "AccountingSupplierParty"}})
	return nil
}

// writeCustomerParty branches structurally on the identifier: exactly 11
// digits means a natural person (TCKN scheme, cac:Person with the free-text
// name split into first/family), anything else an organization (VKN scheme,
// cac:PartyName).
func (s *UBLBuilderService) writeCustomerParty(enc *xml.Encoder, p *entity.Party) error {
	person := pkggib.IsPersonalID(p.TaxID)

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "AccountingCustomerParty"}})
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Party"}})

	scheme := "VKN"
	if person {
		scheme = "TCKN"
	}
	writePartyIdentification(enc, scheme, pkggib.ExtractDigits(p.TaxID))

	if !person {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})
		writeCbc(enc, "Name", p.Name)
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyName"}})
	}

	writePostalAddress(enc, p)

	if person {
		first, family := pkggib.SplitPersonName(p.Name)
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Person"}})
		writeCbc(enc, "FirstName", first)
		writeCbc(enc, "FamilyName", family)
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Person"}})
	}

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Party"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "AccountingCustomerParty"}})
	return nil
}

func (s *UBLBuilderService) writeTaxTotal(enc *xml.Encoder, d *entity.InvoiceDraft) error {
	percent := "0"
	if d.Subtotal.IsPositive() {
		percent = d.TaxTotal.Div(d.Subtotal).Mul(decimal.NewFromInt(100)).Round(0).String()
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxTotal"}})
	writeCbcAmount(enc, "TaxAmount", formatDecimal(d.TaxTotal), currencyTRY)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxSubtotal"}})
	writeCbcAmount(enc, "TaxableAmount", formatDecimal(d.Subtotal), currencyTRY)
	writeCbcAmount(enc, "TaxAmount", formatDecimal(d.TaxTotal), currencyTRY)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxCategory"}})
	writeCbc(enc, "Percent", percent)
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "TaxScheme"}})
	writeCbc(enc, "Name", "KDV")
	writeCbc(enc, "TaxTypeCode", taxTypeCodeKDV)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxScheme"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxCategory"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxSubtotal"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "TaxTotal"}})
	return nil
}

func (s *UBLBuilderService) writeLegalMonetaryTotal(enc *xml.Encoder, d *entity.InvoiceDraft) error {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "LegalMonetaryTotal"}})
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(d.Subtotal), currencyTRY)
	writeCbcAmount(enc, "TaxExclusiveAmount", formatDecimal(d.Subtotal), currencyTRY)
	writeCbcAmount(enc, "TaxInclusiveAmount", formatDecimal(d.GrandTotal), currencyTRY)
	writeCbcAmount(enc, "PayableAmount", formatDecimal(d.GrandTotal), currencyTRY)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "LegalMonetaryTotal"}})
	return nil
}

func (s *UBLBuilderService) writeInvoiceLine(enc *xml.Encoder, lineNum int, line entity.InvoiceLine) error {
	unitCode := pkggib.UnitCode(line.Unit)

	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "InvoiceLine"}})
	writeCbc(enc, "ID", strconv.Itoa(lineNum))
	writeCbcWithAttr(enc, "InvoicedQuantity", formatDecimal(line.Quantity), "unitCode", unitCode)
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(line.ExtendedAmount()), currencyTRY)

	// cac:Item
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Item"}})
	name := line.Name
	if name == "" {
		name = "Kalem " + strconv.Itoa(lineNum)
	}
	writeCbc(enc, "Name", name)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Item"}})

	// cac:Price
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Price"}})
	writeCbcAmount(enc, "PriceAmount", formatDecimal(line.UnitPrice), currencyTRY)
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Price"}})

	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "InvoiceLine"}})
	return nil
}

// ── token-writer helpers ──────────────────────────────────────────────────────

func writeCbc(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCbc, Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeCbcAmount(enc *xml.Encoder, local, value, currency string) {
	attr := []xml.Attr{}
	if currency != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "currencyID"}, Value: currency})
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCbc, Local: local}, Attr: attr})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeCbcWithAttr(enc *xml.Encoder, local, value, attrLocal, attrValue string) {
	_ = enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Space: NsCbc, Local: local},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrLocal}, Value: attrValue}},
	})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writePartyIdentification(enc *xml.Encoder, schemeID, id string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})
	_ = enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Space: NsCbc, Local: "ID"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "schemeID"}, Value: schemeID}},
	})
	_ = enc.EncodeToken(xml.CharData(id))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: "ID"}})
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PartyIdentification"}})
}

func writePostalAddress(enc *xml.Encoder, p *entity.Party) {
	if p.Address == "" && p.City == "" && p.Country == "" {
		return
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "PostalAddress"}})
	if p.Address != "" {
		writeCbc(enc, "StreetName", p.Address)
	}
	if p.City != "" {
		writeCbc(enc, "CityName", p.City)
	}
	if p.Country != "" {
		_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: "Country"}})
		writeCbc(enc, "Name", p.Country)
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "Country"}})
	}
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: "PostalAddress"}})
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
