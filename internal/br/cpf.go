// Package br holds Brazilian document helpers (CPF/RG normalization,
// masking and checksum validation).
package br

import "strings"

// Digits strips everything but 0-9 from a document string.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks the two CPF verification digits. Input may be masked or
// raw; it must hold exactly 11 digits and not be a same-digit sequence
// (111.111.111-11 passes the checksum but is not a valid CPF).
func ValidCPF(cpf string) bool {
	digits := Digits(cpf)
	if len(digits) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	if cpfCheckDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return cpfCheckDigit(digits, 10) == int(digits[10]-'0')
}

func cpfCheckDigit(digits string, length int) int {
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * (length + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// MaskCPF formats 11 digits as 000.000.000-00. Inputs with a different
// digit count are returned untouched.
func MaskCPF(cpf string) string {
	digits := Digits(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}

// MaskRG formats 9 digits as 00.000.000-0. RG issuance varies by state, so
// anything else is returned untouched.
func MaskRG(rg string) string {
	digits := Digits(rg)
	if len(digits) != 9 {
		return rg
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "-" + digits[8:9]
}
