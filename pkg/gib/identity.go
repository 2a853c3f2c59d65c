package gib

import (
	"fmt"
	"strings"
	"unicode"
)

// Identifier lengths: a VKN (organization tax number) has 10 digits, a TCKN
// (natural-person national id) has 11. The party-block structure of a UBL
// document branches on this length alone.
const (
	VKNLength  = 10
	TCKNLength = 11
)

// FallbackFamilyName is emitted when a natural person's free-text name has no
// separable remainder after the first token.
const FallbackFamilyName = "-"

// IsPersonalID reports whether the identifier selects the natural-person
// party block: exactly 11 digits after stripping separators.
func IsPersonalID(taxID string) bool {
	return len(ExtractDigits(taxID)) == TCKNLength
}

// ValidateTCKN validates a TCKN with the official checksum: the 10th digit is
// ((odd-position sum * 7) - even-position sum) mod 10 and the 11th digit is
// the sum of the first ten digits mod 10. The first digit must not be zero.
func ValidateTCKN(taxID string) error {
	digits := ExtractDigits(taxID)
	if len(digits) != TCKNLength {
		return fmt.Errorf("gib: TCKN must have %d digits, got %d", TCKNLength, len(digits))
	}
	if digits[0] == '0' {
		return fmt.Errorf("gib: TCKN must not start with 0")
	}
	var odd, even, total int
	for i := 0; i < 9; i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 {
			odd += d // positions 1,3,5,7,9
		} else {
			even += d // positions 2,4,6,8
		}
	}
	d10 := ((odd*7 - even) % 10 + 10) % 10
	if int(digits[9]-'0') != d10 {
		return fmt.Errorf("gib: TCKN checksum digit 10 mismatch: expected %d, got %c", d10, digits[9])
	}
	for i := 0; i < 10; i++ {
		total += int(digits[i] - '0')
	}
	if int(digits[10]-'0') != total%10 {
		return fmt.Errorf("gib: TCKN checksum digit 11 mismatch: expected %d, got %c", total%10, digits[10])
	}
	return nil
}

// ValidateVKN validates that an organization tax number has exactly 10 digits.
func ValidateVKN(taxID string) error {
	digits := ExtractDigits(taxID)
	if len(digits) != VKNLength {
		return fmt.Errorf("gib: VKN must have %d digits, got %d", VKNLength, len(digits))
	}
	return nil
}

// SplitPersonName splits a free-text person name into first name (first
// token) and family name (remainder). A name with no separable remainder
// gets FallbackFamilyName so the person block is never structurally empty.
func SplitPersonName(fullName string) (first, family string) {
	fields := strings.Fields(fullName)
	switch len(fields) {
	case 0:
		return "", FallbackFamilyName
	case 1:
		return fields[0], FallbackFamilyName
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// ExtractDigits returns only the decimal digits of s, dropping separators
// like dots, dashes and spaces.
func ExtractDigits(s string) string {
	var out []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
