package gib_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
)

const (
	testETTN = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
)

var testIssueTime = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func orgDraft() *entity.InvoiceDraft {
	return &entity.InvoiceDraft{
		Supplier: entity.Party{TaxID: "1234567890", Name: "Örnek Market A.Ş.", City: "İstanbul", Country: "Türkiye"},
		Customer: entity.Party{TaxID: "9876543210", Name: "Alıcı Ltd. Şti."},
		Lines: []entity.InvoiceLine{
			{Name: "Su 0.5L", Quantity: decimal.NewFromInt(4), Unit: "adet", UnitPrice: decimal.NewFromFloat(5.00), TaxRate: decimal.NewFromInt(20)},
		},
		Subtotal:     decimal.NewFromFloat(20.00),
		TaxTotal:     decimal.NewFromFloat(4.00),
		GrandTotal:   decimal.NewFromFloat(24.00),
		DocumentType: entity.DocumentTypeEInvoice,
	}
}

func buildWith(t *testing.T, draft *entity.InvoiceDraft) *entity.CanonicalDocument {
	t.Helper()
	doc, err := infragib.NewUBLBuilderService().Build(&infragib.DocumentBuildContext{
		Draft:          draft,
		DocumentNumber: "POS-2026-000001",
		ETTN:           testETTN,
		IssueTime:      &testIssueTime,
	})
	require.NoError(t, err)
	return doc
}

// Two builds of the same draft with pinned ETTN and issue time must produce
// byte-identical XML and therefore the same fingerprint. This is what makes
// the fingerprint usable as a duplicate-submission check.
func TestBuild_Deterministic(t *testing.T) {
	doc1 := buildWith(t, orgDraft())
	doc2 := buildWith(t, orgDraft())

	assert.Equal(t, doc1.XML, doc2.XML, "same draft content must serialize identically")
	assert.Equal(t, doc1.Fingerprint, doc2.Fingerprint)
}

func TestBuild_FreshIdentifiersWhenNotPinned(t *testing.T) {
	doc, err := infragib.NewUBLBuilderService().Build(&infragib.DocumentBuildContext{
		Draft:          orgDraft(),
		DocumentNumber: "POS-2026-000002",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ETTN, "a fresh ETTN must be generated")
	assert.Len(t, doc.ETTN, 36, "ETTN is a canonical UUID string")
	assert.False(t, doc.IssuedAt.IsZero())
}

func TestBuild_HeaderFields(t *testing.T) {
	xml := string(buildWith(t, orgDraft()).XML)

	assert.Contains(t, xml, ">TEMELFATURA<", "e-Fatura drafts carry the basic profile")
	assert.Contains(t, xml, ">TR1.2<")
	assert.Contains(t, xml, ">POS-2026-000001<")
	assert.Contains(t, xml, ">"+testETTN+"<")
	assert.Contains(t, xml, ">2026-03-15<")
	assert.Contains(t, xml, ">14:30:00<")
	assert.Contains(t, xml, `currencyID="TRY"`)
	assert.Contains(t, xml, ">0015<", "KDV tax type code from the UBL-TR code list")
}

func TestBuild_ArchiveProfile(t *testing.T) {
	draft := orgDraft()
	draft.DocumentType = entity.DocumentTypeEArchive
	xml := string(buildWith(t, draft).XML)
	assert.Contains(t, xml, ">EARSIVFATURA<")
}

// The customer party block branches on the identifier: a 10-digit VKN gets
// PartyName, an 11-digit TCKN gets a Person block with the name split.
func TestBuild_OrganizationCustomer(t *testing.T) {
	xml := string(buildWith(t, orgDraft()).XML)
	assert.Contains(t, xml, `schemeID="VKN">9876543210<`)
	assert.NotContains(t, xml, "FirstName")
}

func TestBuild_PersonCustomer(t *testing.T) {
	draft := orgDraft()
	draft.Customer = entity.Party{TaxID: "12345678950", Name: "Ayşe Yılmaz"}
	xml := string(buildWith(t, draft).XML)

	assert.Contains(t, xml, `schemeID="TCKN">12345678950<`)
	assert.Contains(t, xml, ">Ayşe<")
	assert.Contains(t, xml, ">Yılmaz<")
}

func TestBuild_SingleTokenPersonNameGetsFallbackFamilyName(t *testing.T) {
	draft := orgDraft()
	draft.Customer = entity.Party{TaxID: "12345678950", Name: "Madonna"}
	xml := string(buildWith(t, draft).XML)
	assert.Contains(t, xml, ">-<", "family name falls back so the person block is never empty")
}

// Reserved XML characters in free-text fields must arrive escaped; product
// names straight off a POS routinely contain ampersands and quotes.
func TestBuild_EscapesReservedCharacters(t *testing.T) {
	draft := orgDraft()
	draft.Customer.Name = `Kaya & Oğulları <Ltd> "Şti"`
	draft.Lines[0].Name = "Çay 1kg 'özel' & <taze>"
	xml := string(buildWith(t, draft).XML)

	assert.Contains(t, xml, "Kaya &amp; Oğulları &lt;Ltd&gt;")
	assert.Contains(t, xml, "&lt;taze&gt;")
	assert.NotContains(t, xml, "<Ltd>")
	assert.NotContains(t, xml, "<taze>")
}

func TestBuild_LineAmountsAndUnits(t *testing.T) {
	draft := orgDraft()
	draft.Lines[0].Unit = "KİLO"
	xml := string(buildWith(t, draft).XML)

	assert.Contains(t, xml, `unitCode="KGM"`, "Turkish-cased unit names map to UN/ECE codes")
	assert.Contains(t, xml, ">20.00<", "line extension amount at two decimals")
	assert.Contains(t, xml, ">5.00<", "unit price at two decimals")
}

func TestBuild_UnknownUnitDefaultsToPiece(t *testing.T) {
	draft := orgDraft()
	draft.Lines[0].Unit = "furlong"
	xml := string(buildWith(t, draft).XML)
	assert.Contains(t, xml, `unitCode="C62"`)
}

func TestBuild_MissingDraftOrNumber(t *testing.T) {
	svc := infragib.NewUBLBuilderService()

	_, err := svc.Build(nil)
	assert.Error(t, err)

	_, err = svc.Build(&infragib.DocumentBuildContext{DocumentNumber: "POS-1"})
	assert.Error(t, err)

	_, err = svc.Build(&infragib.DocumentBuildContext{Draft: orgDraft()})
	assert.Error(t, err, "document number is required before building")
}
