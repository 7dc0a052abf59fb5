package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Statement is computed on demand from the ledger and never stored.
type Statement struct {
	Reference      string           `json:"reference"`
	Period         string           `json:"period"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	Account        StatementAccount `json:"account"`
	Owner          *StatementOwner  `json:"owner,omitempty"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
	Variation      decimal.Decimal  `json:"variation"`
	Lines          []StatementLine  `json:"lines"`
	Totals         StatementTotals  `json:"totals"`
}

type StatementAccount struct {
	ID     string        `json:"id"`
	Number string        `json:"number"`
	Label  string        `json:"label,omitempty"`
	Status AccountStatus `json:"status"`
}

type StatementOwner struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// StatementLine is one in-window transaction as seen from the statement's account.
type StatementLine struct {
	TransactionID       string          `json:"transaction_id"`
	Reference           string          `json:"reference"`
	Date                time.Time       `json:"date"`
	Kind                Kind            `json:"kind"`
	Direction           Direction       `json:"direction"`
	Amount              decimal.Decimal `json:"amount"`
	RunningBalance      decimal.Decimal `json:"running_balance"`
	CounterpartyAccount string          `json:"counterparty_account,omitempty"`
	CounterpartyName    string          `json:"counterparty_name,omitempty"`
	Description         string          `json:"description"`
}

type StatementTotals struct {
	TransactionCount int             `json:"transaction_count"`
	TotalCredits     decimal.Decimal `json:"total_credits"`
	TotalDebits      decimal.Decimal `json:"total_debits"`
	DepositCount     int             `json:"deposit_count"`
	DepositTotal     decimal.Decimal `json:"deposit_total"`
	WithdrawalCount  int             `json:"withdrawal_count"`
	WithdrawalTotal  decimal.Decimal `json:"withdrawal_total"`
	TransferCount    int             `json:"transfer_count"`
	TransferTotal    decimal.Decimal `json:"transfer_total"`
	PaymentCount     int             `json:"payment_count"`
	PaymentTotal     decimal.Decimal `json:"payment_total"`
	MinAmount        decimal.Decimal `json:"min_amount"`
	MaxAmount        decimal.Decimal `json:"max_amount"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
}
