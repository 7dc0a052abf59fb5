// file: model/movement.go

package model

import "github.com/shopspring/decimal"

// Movement is a monetary movement waiting to be posted. Each kind has its own
// type carrying only the account references that kind uses.
type Movement interface {
	Legs() Legs
}

// Legs is the uniform view of a movement: the account debited and the account
// credited. An empty id means no account on that side.
type Legs struct {
	Kind   Kind
	Amount decimal.Decimal
	Debit  string
	Credit string
}

type Deposit struct {
	Destination string
	Amount      decimal.Decimal
}

func (m Deposit) Legs() Legs {
	return Legs{Kind: KindDeposit, Amount: m.Amount, Credit: m.Destination}
}

type Refund struct {
	Destination string
	Amount      decimal.Decimal
}

func (m Refund) Legs() Legs {
	return Legs{Kind: KindRefund, Amount: m.Amount, Credit: m.Destination}
}

type Withdrawal struct {
	Source string
	Amount decimal.Decimal
}

func (m Withdrawal) Legs() Legs {
	return Legs{Kind: KindWithdrawal, Amount: m.Amount, Debit: m.Source}
}

type Transfer struct {
	Source      string
	Destination string
	Amount      decimal.Decimal
}

func (m Transfer) Legs() Legs {
	return Legs{Kind: KindTransfer, Amount: m.Amount, Debit: m.Source, Credit: m.Destination}
}

type Payment struct {
	Source      string
	Destination string
	Amount      decimal.Decimal
}

func (m Payment) Legs() Legs {
	return Legs{Kind: KindPayment, Amount: m.Amount, Debit: m.Source, Credit: m.Destination}
}

// NewMovement builds the variant for kind, keeping only the account references
// that kind uses. It returns false for kinds that cannot be posted directly.
func NewMovement(kind Kind, amount decimal.Decimal, source, destination string) (Movement, bool) {
	switch kind {
	case KindDeposit:
		return Deposit{Destination: destination, Amount: amount}, true
	case KindRefund:
		return Refund{Destination: destination, Amount: amount}, true
	case KindWithdrawal:
		return Withdrawal{Source: source, Amount: amount}, true
	case KindTransfer:
		return Transfer{Source: source, Destination: destination, Amount: amount}, true
	case KindPayment:
		return Payment{Source: source, Destination: destination, Amount: amount}, true
	default:
		return nil, false
	}
}

// DebitRequired reports whether the kind must name a source account.
func (l Legs) DebitRequired() bool {
	switch l.Kind {
	case KindWithdrawal, KindTransfer, KindPayment:
		return true
	}
	return false
}

// CreditRequired reports whether the kind must name a destination account.
func (l Legs) CreditRequired() bool {
	switch l.Kind {
	case KindDeposit, KindRefund, KindTransfer, KindPayment:
		return true
	}
	return false
}
