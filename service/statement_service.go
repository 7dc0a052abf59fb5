package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const periodDateLayout = "02/01/2006"

// StatementService reconstructs account history for a period. The opening
// balance is derived by replaying the ledger backwards from the current
// balance, so the balance and the history must be read together.
type StatementService struct {
	accountRepo repository.IAccountRepository
	history     repository.IAccountHistoryReader
	clients     *ClientDirectory
	access      accessPolicy

	now          func() time.Time
	newReference func(time.Time) string
}

// NewStatementService creates a StatementService. accountRepo resolves
// counterparties; history supplies the account and its ledger as one snapshot.
func NewStatementService(accountRepo repository.IAccountRepository, history repository.IAccountHistoryReader, clients *ClientDirectory) *StatementService {
	return &StatementService{
		accountRepo:  accountRepo,
		history:      history,
		clients:      clients,
		access:       accessPolicy{clients: clients},
		now:          func() time.Time { return time.Now().UTC() },
		newReference: statementReference,
	}
}

func statementReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("REL-%s-%s", at.Format("20060102"), suffix)
}

// BuildStatementFor builds a statement after checking that the caller may read
// the account.
func (s *StatementService) BuildStatementFor(ctx context.Context, accountID string, start, end time.Time, role model.Role, identity string) (*model.Statement, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	account, history, err := s.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, account, role, identity); err != nil {
		return nil, err
	}
	return s.build(ctx, account, history, start, end)
}

// BuildStatement builds the statement of accountID over [start, end].
func (s *StatementService) BuildStatement(ctx context.Context, accountID string, start, end time.Time) (*model.Statement, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	account, history, err := s.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, account, history, start, end)
}

func (s *StatementService) snapshot(ctx context.Context, accountID string) (*model.Account, []*model.Transaction, error) {
	account, history, err := s.history.GetAccountWithHistory(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		logger.Log.WithError(err).WithField("account_id", accountID).Error("Failed to load account history")
		return nil, nil, storageFailure(err)
	}
	return account, history, nil
}

func (s *StatementService) build(ctx context.Context, account *model.Account, history []*model.Transaction, start, end time.Time) (*model.Statement, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"start":      start,
		"end":        end,
	})
	log.Info("Building account statement")

	deltaSinceStart := decimal.Zero
	var window []*model.Transaction
	for _, t := range history {
		if t.CreatedAt.Before(start) {
			continue
		}
		deltaSinceStart = deltaSinceStart.Add(t.EffectOn(account.ID))
		if !t.CreatedAt.After(end) {
			window = append(window, t)
		}
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Before(window[j]) })

	opening := account.Balance.Sub(deltaSinceStart)

	counterparties, err := s.counterparties(ctx, account.ID, window)
	if err != nil {
		log.WithError(err).Error("Failed to resolve counterparties")
		return nil, err
	}

	lines := make([]model.StatementLine, 0, len(window))
	running := opening
	for _, t := range window {
		running = running.Add(t.EffectOn(account.ID))
		lines = append(lines, newStatementLine(account.ID, t, running, counterparties[t.Counterparty(account.ID)]))
	}

	generatedAt := s.now()
	statement := &model.Statement{
		Reference:   s.newReference(generatedAt),
		Period:      fmt.Sprintf("From %s to %s", start.Format(periodDateLayout), end.Format(periodDateLayout)),
		GeneratedAt: generatedAt,
		Start:       start,
		End:         end,
		Account: model.StatementAccount{
			ID:     account.ID,
			Number: account.Number,
			Label:  account.Label,
			Status: account.Status,
		},
		OpeningBalance: opening,
		ClosingBalance: running,
		Variation:      running.Sub(opening),
		Lines:          lines,
		Totals:         summarize(account.ID, window),
	}

	owner, err := s.clients.GetClient(ctx, account.OwnerID)
	switch {
	case err == nil:
		statement.Owner = &model.StatementOwner{
			ID:      owner.ID,
			Name:    owner.DisplayName(),
			Email:   owner.Email,
			Phone:   owner.Phone,
			Address: owner.Address,
		}
	case errors.Is(err, ErrClientNotFound):
		log.Warn("Statement account has no owner record")
	default:
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"reference": statement.Reference,
		"lines":     len(lines),
	}).Info("Account statement built")
	return statement, nil
}

type counterparty struct {
	number string
	name   string
}

// counterparties resolves the number and owner name of every other account
// appearing in window. Owners that cannot be found leave the name blank.
func (s *StatementService) counterparties(ctx context.Context, accountID string, window []*model.Transaction) (map[string]counterparty, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range window {
		id := t.Counterparty(accountID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	result := make(map[string]counterparty, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	accounts, err := s.accountRepo.GetAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, storageFailure(err)
	}

	names := make(map[string]string)
	for _, acc := range accounts {
		name, ok := names[acc.OwnerID]
		if !ok {
			owner, err := s.clients.GetClient(ctx, acc.OwnerID)
			switch {
			case err == nil:
				name = owner.DisplayName()
			case errors.Is(err, ErrClientNotFound):
			default:
				return nil, err
			}
			names[acc.OwnerID] = name
		}
		result[acc.ID] = counterparty{number: acc.Number, name: name}
	}
	return result, nil
}

func newStatementLine(accountID string, t *model.Transaction, running decimal.Decimal, cp counterparty) model.StatementLine {
	direction := model.DirectionCredit
	if t.IsSource(accountID) {
		direction = model.DirectionDebit
	}
	return model.StatementLine{
		TransactionID:       t.ID,
		Reference:           "TRX-" + t.ID,
		Date:                t.CreatedAt,
		Kind:                t.Kind,
		Direction:           direction,
		Amount:              t.Amount,
		RunningBalance:      running,
		CounterpartyAccount: cp.number,
		CounterpartyName:    cp.name,
		Description:         describe(t.Kind, direction, cp.number),
	}
}

func describe(kind model.Kind, direction model.Direction, counterpartyNumber string) string {
	switch kind {
	case model.KindDeposit:
		return "Cash deposit"
	case model.KindWithdrawal:
		return "Cash withdrawal"
	case model.KindTransfer:
		if direction == model.DirectionDebit {
			return strings.TrimSpace("Outgoing transfer to " + counterpartyNumber)
		}
		return strings.TrimSpace("Incoming transfer from " + counterpartyNumber)
	case model.KindPayment:
		if direction == model.DirectionDebit {
			return "Payment sent"
		}
		return "Payment received"
	case model.KindRefund:
		return "Refund"
	default:
		return "Transaction"
	}
}

// summarize aggregates the in-window transactions. Deposit and refund totals
// count credits to the account, withdrawal and transfer totals count debits,
// and the payment total counts every payment in either direction.
func summarize(accountID string, window []*model.Transaction) model.StatementTotals {
	totals := model.StatementTotals{
		TransactionCount: len(window),
		TotalCredits:     decimal.Zero,
		TotalDebits:      decimal.Zero,
		DepositTotal:     decimal.Zero,
		WithdrawalTotal:  decimal.Zero,
		TransferTotal:    decimal.Zero,
		PaymentTotal:     decimal.Zero,
		MinAmount:        decimal.Zero,
		MaxAmount:        decimal.Zero,
		AverageAmount:    decimal.Zero,
	}
	if len(window) == 0 {
		return totals
	}

	sum := decimal.Zero
	totals.MinAmount = window[0].Amount
	totals.MaxAmount = window[0].Amount
	for _, t := range window {
		debit := t.IsSource(accountID)
		credit := t.IsDestination(accountID)

		sum = sum.Add(t.Amount)
		totals.MinAmount = decimal.Min(totals.MinAmount, t.Amount)
		totals.MaxAmount = decimal.Max(totals.MaxAmount, t.Amount)
		if debit {
			totals.TotalDebits = totals.TotalDebits.Add(t.Amount)
		}
		if credit {
			totals.TotalCredits = totals.TotalCredits.Add(t.Amount)
		}

		switch t.Kind {
		case model.KindDeposit, model.KindRefund:
			totals.DepositCount++
			if credit {
				totals.DepositTotal = totals.DepositTotal.Add(t.Amount)
			}
		case model.KindWithdrawal:
			totals.WithdrawalCount++
			if debit {
				totals.WithdrawalTotal = totals.WithdrawalTotal.Add(t.Amount)
			}
		case model.KindTransfer:
			totals.TransferCount++
			if debit {
				totals.TransferTotal = totals.TransferTotal.Add(t.Amount)
			}
		case model.KindPayment:
			totals.PaymentCount++
			totals.PaymentTotal = totals.PaymentTotal.Add(t.Amount)
		}
	}
	// DivRound rounds half away from zero, which is half-up for positive sums.
	totals.AverageAmount = sum.DivRound(decimal.NewFromInt(int64(len(window))), 2)
	return totals
}
