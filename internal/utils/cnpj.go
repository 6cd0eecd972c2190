package utils

import (
	"math/rand"
	"regexp"
	"strconv"
)

var (
	nonDigits = regexp.MustCompile(`\D`)

	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// CleanDocument removes all non-numeric characters from a CPF or CNPJ
func CleanDocument(doc string) string {
	return nonDigits.ReplaceAllString(doc, "")
}

// FormatCNPJ formats CNPJ with dots, slash and dash (XX.XXX.XXX/XXXX-XX)
func FormatCNPJ(cnpj string) string {
	cleaned := CleanDocument(cnpj)
	if len(cleaned) != 14 {
		return cnpj
	}

	return cleaned[:2] + "." + cleaned[2:5] + "." + cleaned[5:8] + "/" + cleaned[8:12] + "-" + cleaned[12:14]
}

// IsValidCNPJ validates CNPJ using the official check-digit algorithm
func IsValidCNPJ(cnpj string) bool {
	cleaned := CleanDocument(cnpj)
	if len(cleaned) != 14 || isAllSameDigit(cleaned) {
		return false
	}

	digits, ok := toDigits(cleaned)
	if !ok {
		return false
	}

	return mod11Digit(digits[:12], cnpjFirstWeights) == digits[12] &&
		mod11Digit(digits[:13], cnpjSecondWeights) == digits[13]
}

// GenerateCNPJ generates a random CNPJ with valid check digits. The branch
// number is always 0001 (head office).
func GenerateCNPJ() string {
	digits := make([]int, 0, 14)
	for i := 0; i < 8; i++ {
		digits = append(digits, rand.Intn(10))
	}
	digits = append(digits, 0, 0, 0, 1)

	digits = append(digits, mod11Digit(digits, cnpjFirstWeights))
	digits = append(digits, mod11Digit(digits, cnpjSecondWeights))

	return fromDigits(digits)
}

// CNPJRoot returns the root CNPJ (first 8 digits) shared by all branches
func CNPJRoot(cnpj string) string {
	cleaned := CleanDocument(cnpj)
	if len(cleaned) != 14 {
		return ""
	}
	return cleaned[:8]
}

// IsHeadOffice reports whether the CNPJ belongs to the matriz (branch 0001)
func IsHeadOffice(cnpj string) bool {
	cleaned := CleanDocument(cnpj)
	return len(cleaned) == 14 && cleaned[8:12] == "0001"
}

// mod11Digit computes a check digit: weighted sum mod 11, remainders below 2
// map to zero.
func mod11Digit(digits []int, weights []int) int {
	sum := 0
	for i, digit := range digits {
		sum += digit * weights[i]
	}

	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

func isAllSameDigit(s string) bool {
	if len(s) == 0 {
		return false
	}

	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

func toDigits(s string) ([]int, bool) {
	digits := make([]int, len(s))
	for i, char := range s {
		digit, err := strconv.Atoi(string(char))
		if err != nil {
			return nil, false
		}
		digits[i] = digit
	}
	return digits, true
}

func fromDigits(digits []int) string {
	buf := make([]byte, len(digits))
	for i, d := range digits {
		buf[i] = byte('0' + d)
	}
	return string(buf)
}
