// Package gib contains catalogues and validations aligned to the UBL-TR 1.2
// code lists used by the GIB (Gelir İdaresi Başkanlığı) e-invoicing tracks.
package gib

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Service tracks. Two parallel backends with separate sessions/credentials:
// e-Fatura (registered recipients, connector endpoint) and e-Arşiv (everyone
// else, document-service endpoint).
// =============================================================================

// Service selects which GIB backend a document travels through.
type Service string

const (
	ServiceEInvoice Service = "efatura" // connector document exchange, cookie session
	ServiceEArchive Service = "earsiv"  // document service, credential block per call
)

// =============================================================================
// UBL-TR profile identifiers (cbc:ProfileID). The profile tag differs by
// document type; the archive track uses its own profile.
// =============================================================================

const (
	ProfileBasic      = "TEMELFATURA"  // e-Fatura, basic scenario
	ProfileCommercial = "TICARIFATURA" // e-Fatura, commercial scenario (accept/reject)
	ProfileArchive    = "EARSIVFATURA" // e-Arşiv
)

// =============================================================================
// Document type codes sent on the exchange envelope.
// =============================================================================

const (
	DocTypeInvoiceUBL = "FATURA_UBL"
	DocTypeArchiveUBL = "EARSIV_UBL"
)

// =============================================================================
// UBL-TR Code List 6 - units of measure (UN/ECE Recommendation 20, @unitCode).
// Free-text POS units are mapped here; anything unknown falls back to C62.
// =============================================================================

const (
	UnitPiece       = "C62" // adet (default)
	UnitKilogram    = "KGM" // kilogram
	UnitGram        = "GRM" // gram
	UnitTon         = "TNE" // ton
	UnitLitre       = "LTR" // litre
	UnitMillilitre  = "MLT" // mililitre
	UnitMetre       = "MTR" // metre
	UnitCentimetre  = "CMT" // santimetre
	UnitSquareMetre = "MTK" // metrekare
	UnitCubicMetre  = "MTQ" // metreküp
	UnitPackage     = "PA"  // paket
	UnitBox         = "BX"  // kutu
	UnitDozen       = "DZN" // düzine
	UnitHour        = "HUR" // saat
	UnitDay         = "DAY" // gün
	UnitMonth       = "MON" // ay
)

// unitCodeTable maps normalized free-text unit names to UN/ECE codes.
// Keys are lowercased with Turkish casing rules (ADET -> adet, KİLO -> kilo).
var unitCodeTable = map[string]string{
	"adet": UnitPiece, "ad": UnitPiece, "piece": UnitPiece, "pcs": UnitPiece,
	"kg": UnitKilogram, "kilo": UnitKilogram, "kilogram": UnitKilogram,
	"gr": UnitGram, "gram": UnitGram,
	"ton": UnitTon,
	"lt": UnitLitre, "litre": UnitLitre, "l": UnitLitre,
	"ml": UnitMillilitre, "mililitre": UnitMillilitre,
	"mt": UnitMetre, "metre": UnitMetre, "m": UnitMetre,
	"cm": UnitCentimetre, "santim": UnitCentimetre,
	"m2": UnitSquareMetre, "metrekare": UnitSquareMetre,
	"m3": UnitCubicMetre, "metreküp": UnitCubicMetre,
	"paket": UnitPackage, "pk": UnitPackage,
	"kutu": UnitBox, "koli": UnitBox,
	"düzine": UnitDozen,
	"saat":   UnitHour, "sa": UnitHour,
	"gün": UnitDay,
	"ay":  UnitMonth,
}

var turkishLower = cases.Lower(language.Turkish)

// UnitCode maps a free-text unit-of-measure string to its UN/ECE code.
// Unknown or empty units map to C62 (piece). Matching is case-insensitive
// with Turkish casing rules, so "ADET" and "adet" resolve identically.
func UnitCode(unit string) string {
	key := turkishLower.String(strings.TrimSpace(unit))
	if code, ok := unitCodeTable[key]; ok {
		return code
	}
	return UnitPiece
}

// =============================================================================
// Result codes. The backends answer well-formed responses whose result code
// signals acceptance or business rejection; these codes count as success.
// =============================================================================

var successResultCodes = map[string]bool{
	"0": true, "1": true, "ok": true, "success": true,
	// ASCII and Turkish spellings; "BASARILI" lowercases to "basarılı" under
	// Turkish casing rules (I -> ı), so both dotted and dotless forms appear.
	"basarili": true, "basarılı": true, "başarılı": true,
}

// IsSuccessResultCode reports whether a result code signals acceptance.
// Comparison is case-insensitive with Turkish casing rules.
func IsSuccessResultCode(code string) bool {
	return successResultCodes[turkishLower.String(strings.TrimSpace(code))]
}
