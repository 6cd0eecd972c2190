package utils

import (
	"fmt"
	"math/rand"

	"github.com/nexconsult/investigacao-api/internal/models"
)

var (
	cpfFirstWeights  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfSecondWeights = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
)

// FormatCPF formats CPF as XXX.XXX.XXX-XX
func FormatCPF(cpf string) string {
	cleaned := CleanDocument(cpf)
	if len(cleaned) != 11 {
		return cpf
	}
	return cleaned[:3] + "." + cleaned[3:6] + "." + cleaned[6:9] + "-" + cleaned[9:]
}

// IsValidCPF validates CPF check digits
func IsValidCPF(cpf string) bool {
	cleaned := CleanDocument(cpf)
	if len(cleaned) != 11 || isAllSameDigit(cleaned) {
		return false
	}

	digits, ok := toDigits(cleaned)
	if !ok {
		return false
	}

	return mod11Digit(digits[:9], cpfFirstWeights) == digits[9] &&
		mod11Digit(digits[:10], cpfSecondWeights) == digits[10]
}

// GenerateCPF generates a random CPF with valid check digits
func GenerateCPF() string {
	digits := make([]int, 0, 11)
	for i := 0; i < 9; i++ {
		digits = append(digits, rand.Intn(10))
	}
	// 000000000-00 style sequences are rejected by IsValidCPF
	if isAllSameDigit(fromDigits(digits)) {
		digits[0] = (digits[0] + 1) % 10
	}

	digits = append(digits, mod11Digit(digits, cpfFirstWeights))
	digits = append(digits, mod11Digit(digits, cpfSecondWeights))

	return fromDigits(digits)
}

// DetectTargetType infers PF/PJ from a document and validates it
func DetectTargetType(document string) (models.TargetType, string, error) {
	cleaned := CleanDocument(document)
	switch len(cleaned) {
	case 11:
		if !IsValidCPF(cleaned) {
			return "", cleaned, fmt.Errorf("invalid CPF %q", document)
		}
		return models.TargetPF, cleaned, nil
	case 14:
		if !IsValidCNPJ(cleaned) {
			return "", cleaned, fmt.Errorf("invalid CNPJ %q", document)
		}
		return models.TargetPJ, cleaned, nil
	default:
		return "", cleaned, fmt.Errorf("document must have 11 (CPF) or 14 (CNPJ) digits, got %d", len(cleaned))
	}
}

// MaskDocument hides the middle digits for audit trails (***.456.789-** style)
func MaskDocument(document string) string {
	cleaned := CleanDocument(document)
	switch len(cleaned) {
	case 11:
		return "***." + cleaned[3:6] + "." + cleaned[6:9] + "-**"
	case 14:
		return "**." + cleaned[2:5] + "." + cleaned[5:8] + "/****-**"
	default:
		return "***"
	}
}
