// Package checksum validates bank identifiers before they are stored.
package checksum

import (
	"math/big"
	"strings"
)

// Well-formed numbers that pass the checksum but are only ever used as test input.
var blacklistedRoutingNumbers = map[string]struct{}{
	"000000000": {},
	"111111111": {},
	"123456789": {},
	"999999999": {},
}

// ValidRoutingNumber checks a US ABA routing number: nine digits, not a known
// placeholder, and 3-7-1 weighted digit sum divisible by 10.
func ValidRoutingNumber(s string) bool {
	if len(s) != 9 {
		return false
	}
	if _, bad := blacklistedRoutingNumbers[s]; bad {
		return false
	}

	weights := [3]int{3, 7, 1}
	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * weights[i%3]
	}
	return sum%10 == 0
}

// NormalizeIBAN strips spaces and upper-cases the value.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// ValidIBAN applies the ISO 13616 mod-97 check after normalization.
func ValidIBAN(s string) bool {
	iban := NormalizeIBAN(s)
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	if !isLetter(iban[0]) || !isLetter(iban[1]) || !isDigit(iban[2]) || !isDigit(iban[3]) {
		return false
	}

	rearranged := iban[4:] + iban[:4]

	var digits strings.Builder
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case isDigit(c):
			digits.WriteByte(c)
		case isLetter(c):
			digits.WriteString(itoa(int(c-'A') + 10))
		default:
			return false
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }

func itoa(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
