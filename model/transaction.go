package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the category of a monetary movement.
type Kind string

const (
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindTransfer   Kind = "TRANSFER"
	KindPayment    Kind = "PAYMENT"
	KindFee        Kind = "FEE"
	KindInterest   Kind = "INTEREST"
	KindRefund     Kind = "REFUND"
)

var kinds = map[Kind]struct{}{
	KindDeposit:    {},
	KindWithdrawal: {},
	KindTransfer:   {},
	KindPayment:    {},
	KindFee:        {},
	KindInterest:   {},
	KindRefund:     {},
}

// ParseKind normalizes s (trimmed, upper-cased) and reports whether it names a known kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := kinds[k]
	return k, ok
}

// Side is the role an account plays in a transaction.
type Side string

const (
	SideSource      Side = "SOURCE"
	SideDestination Side = "DESTINATION"
)

// Transaction is an immutable ledger record. Empty account ids mean the side is unset.
type Transaction struct {
	ID                   string          `json:"id"`
	Kind                 Kind            `json:"kind"`
	Amount               decimal.Decimal `json:"amount"`
	SourceAccountID      string          `json:"source_account_id,omitempty"`
	DestinationAccountID string          `json:"destination_account_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (t *Transaction) IsSource(accountID string) bool {
	return t.SourceAccountID != "" && t.SourceAccountID == accountID
}

func (t *Transaction) IsDestination(accountID string) bool {
	return t.DestinationAccountID != "" && t.DestinationAccountID == accountID
}

// EffectOn returns the signed contribution of t to the balance of accountID:
// -amount when it is the source, +amount when it is the destination, zero otherwise.
func (t *Transaction) EffectOn(accountID string) decimal.Decimal {
	switch {
	case t.IsSource(accountID):
		return t.Amount.Neg()
	case t.IsDestination(accountID):
		return t.Amount
	default:
		return decimal.Zero
	}
}

// Counterparty returns the account on the other side of t as seen from accountID.
func (t *Transaction) Counterparty(accountID string) string {
	if t.IsSource(accountID) {
		return t.DestinationAccountID
	}
	if t.IsDestination(accountID) {
		return t.SourceAccountID
	}
	return ""
}

// Before orders transactions by creation time, then by id.
func (t *Transaction) Before(other *Transaction) bool {
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return t.CreatedAt.Before(other.CreatedAt)
	}
	return t.ID < other.ID
}
