// Package docfed validates Brazilian federal document numbers: CPF for
// individuals, CNPJ for companies. Canonical formatting characters
// (dot, dash, slash) are ignored; any other non-digit invalidates the
// input.
package docfed

import "backoffice-service/internal/model"

// Validate checks num against the format selected by the person type.
func Validate(num string, personType model.PersonType) bool {
	switch personType {
	case model.PersonIndividual:
		return ValidCPF(num)
	case model.PersonCompany:
		return ValidCNPJ(num)
	}
	return false
}

// ValidCPF reports whether num is a well-formed CPF with correct check
// digits.
func ValidCPF(num string) bool {
	digits, ok := parseDigits(num)
	if !ok || len(digits) != 11 || allSame(digits) {
		return false
	}

	d1 := cpfCheckDigit(digits[:9], 10)
	d2 := cpfCheckDigit(digits[:10], 11)
	return digits[9] == d1 && digits[10] == d2
}

// ValidCNPJ reports whether num is a well-formed CNPJ with correct check
// digits.
func ValidCNPJ(num string) bool {
	digits, ok := parseDigits(num)
	if !ok || len(digits) != 14 || allSame(digits) {
		return false
	}

	d1 := cnpjCheckDigit(digits[:12])
	d2 := cnpjCheckDigit(digits[:13])
	return digits[12] == d1 && digits[13] == d2
}

// parseDigits extracts the digits, skipping canonical formatting runes.
// Any other character makes the whole input invalid instead of silently
// shrinking it.
func parseDigits(s string) ([]int, bool) {
	var out []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			out = append(out, int(r-'0'))
		case r == '.' || r == '-' || r == '/':
		default:
			return nil, false
		}
	}
	return out, true
}

func allSame(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

func cpfCheckDigit(digits []int, startWeight int) int {
	sum := 0
	weight := startWeight
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

func cnpjCheckDigit(digits []int) int {
	weights := cnpjWeights[len(cnpjWeights)-len(digits):]
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
