package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// IAccountNumberGenerator produces candidate account numbers. Candidates are
// not guaranteed to be free; AccountService checks them against the store.
type IAccountNumberGenerator interface {
	Next() (string, error)
}

// IBANGenerator produces French-format IBANs (FRkk BBBBB GGGGG CCCCCCCCCCC KK)
// for a fixed bank and branch code with a random 11-digit account part.
type IBANGenerator struct {
	BankCode   string
	BranchCode string
	random     io.Reader
}

func NewIBANGenerator(bankCode, branchCode string) (*IBANGenerator, error) {
	if !isDigits(bankCode, 5) {
		return nil, fmt.Errorf("bank code must be 5 digits, got %q", bankCode)
	}
	if !isDigits(branchCode, 5) {
		return nil, fmt.Errorf("branch code must be 5 digits, got %q", branchCode)
	}
	return &IBANGenerator{BankCode: bankCode, BranchCode: branchCode, random: rand.Reader}, nil
}

var accountPartLimit = big.NewInt(100_000_000_000)

func (g *IBANGenerator) Next() (string, error) {
	n, err := rand.Int(g.random, accountPartLimit)
	if err != nil {
		return "", fmt.Errorf("could not draw account number: %w", err)
	}
	accountPart := fmt.Sprintf("%011d", n.Int64())
	bban := g.BankCode + g.BranchCode + accountPart + ribKey(g.BankCode, g.BranchCode, accountPart)
	return "FR" + ibanCheckDigits("FR", bban) + bban, nil
}

// ribKey computes the 2-digit French RIB key for numeric codes.
func ribKey(bank, branch, account string) string {
	b, _ := strconv.ParseInt(bank, 10, 64)
	g, _ := strconv.ParseInt(branch, 10, 64)
	c, _ := strconv.ParseInt(account, 10, 64)
	key := 97 - ((89*b + 15*g + 3*c) % 97)
	return fmt.Sprintf("%02d", key)
}

// ibanCheckDigits computes the ISO 13616 check digits for country and bban.
func ibanCheckDigits(country, bban string) string {
	return fmt.Sprintf("%02d", 98-ibanMod97(bban+country+"00"))
}

// ValidIBAN reports whether s has valid ISO 13616 check digits.
func ValidIBAN(s string) bool {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(s) < 5 {
		return false
	}
	return ibanMod97(s[4:]+s[:4]) == 1
}

// ibanMod97 computes the remainder of the numeric form of s (letters mapped to
// 10..35) modulo 97, digit by digit.
func ibanMod97(s string) int {
	rem := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			rem = (rem*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return -1
		}
	}
	return rem
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
