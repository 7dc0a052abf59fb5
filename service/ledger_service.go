package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultRetryInterval = 10 * time.Millisecond

// LedgerOptions tunes how the ledger retries a unit of work that lost a
// concurrency race.
type LedgerOptions struct {
	MaxRetries           int
	RetryInitialInterval time.Duration
}

// LedgerService posts monetary movements. Each movement locks the accounts it
// touches, checks funds, updates balances and appends one transaction record
// in a single unit of work.
type LedgerService struct {
	store       repository.ILedgerStore
	accountRepo repository.IAccountRepository
	access      accessPolicy
	opts        LedgerOptions

	now   func() time.Time
	newID func() string
}

func NewLedgerService(store repository.ILedgerStore, accountRepo repository.IAccountRepository, clients *ClientDirectory, opts LedgerOptions) *LedgerService {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = defaultRetryInterval
	}
	return &LedgerService{
		store:       store,
		accountRepo: accountRepo,
		access:      accessPolicy{clients: clients},
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return ulid.Make().String() },
	}
}

// Execute validates and posts a movement of the given kind. Only the account
// references the kind uses are kept; the others are ignored.
func (s *LedgerService) Execute(ctx context.Context, kind model.Kind, amount decimal.Decimal, sourceAccountID, destinationAccountID string) (*model.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	movement, ok := model.NewMovement(kind, amount, sourceAccountID, destinationAccountID)
	if !ok {
		return nil, ErrUnsupportedTransactionKind
	}
	return s.Apply(ctx, movement)
}

// ExecuteFor is Execute on behalf of a caller. Privileged roles may post any
// movement. Other callers may only move money out of an account they own.
func (s *LedgerService) ExecuteFor(ctx context.Context, role model.Role, identity string, kind model.Kind, amount decimal.Decimal, sourceAccountID, destinationAccountID string) (*model.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	movement, ok := model.NewMovement(kind, amount, sourceAccountID, destinationAccountID)
	if !ok {
		return nil, ErrUnsupportedTransactionKind
	}
	legs := movement.Legs()
	if err := validateLegs(legs); err != nil {
		return nil, err
	}

	if !role.IsPrivileged() {
		if !legs.DebitRequired() {
			logger.Log.WithFields(logrus.Fields{"kind": kind, "identity": identity}).Warn("Client role attempted a credit-only movement")
			return nil, ErrAccessDenied
		}
		source, err := s.accountRepo.GetAccountByID(ctx, legs.Debit)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return nil, ErrSourceAccountNotFound
			}
			return nil, storageFailure(err)
		}
		if err := s.access.authorize(ctx, source, role, identity); err != nil {
			return nil, err
		}
	}

	return s.post(ctx, legs)
}

// Apply posts an already-built movement.
func (s *LedgerService) Apply(ctx context.Context, movement model.Movement) (*model.Transaction, error) {
	legs := movement.Legs()
	if err := validateAmount(legs.Amount); err != nil {
		return nil, err
	}
	if err := validateLegs(legs); err != nil {
		return nil, err
	}
	return s.post(ctx, legs)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

func validateLegs(legs model.Legs) error {
	if legs.DebitRequired() && legs.Debit == "" {
		return ErrSourceAccountNotFound
	}
	if legs.CreditRequired() && legs.Credit == "" {
		return ErrDestinationAccountNotFound
	}
	if legs.Debit != "" && legs.Debit == legs.Credit {
		return ErrSameAccount
	}
	return nil
}

// post runs the unit of work, retrying it from scratch when the store reports
// a concurrency conflict. Validation errors are never retried.
func (s *LedgerService) post(ctx context.Context, legs model.Legs) (*model.Transaction, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"kind":                   legs.Kind,
		"amount":                 legs.Amount.StringFixed(2),
		"source_account_id":      legs.Debit,
		"destination_account_id": legs.Credit,
	})
	log.Info("Posting movement")

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryInitialInterval

	var (
		transaction *model.Transaction
		attempt     int
	)
	operation := func() error {
		attempt++
		t, err := s.postOnce(ctx, legs)
		if err != nil {
			if errors.Is(err, ErrConcurrencyConflict) {
				log.WithField("attempt", attempt).Warn("Concurrency conflict, retrying movement")
				return err
			}
			return backoff.Permanent(err)
		}
		transaction = t
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.opts.MaxRetries)), ctx))
	if err != nil {
		log.WithError(err).Warn("Movement rejected")
		return nil, err
	}

	log.WithField("transaction_id", transaction.ID).Info("Movement posted successfully")
	return transaction, nil
}

func (s *LedgerService) postOnce(ctx context.Context, legs model.Legs) (*model.Transaction, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	defer uow.Rollback()

	accounts, err := lockAccounts(ctx, uow, legs)
	if err != nil {
		return nil, err
	}
	source := accounts[legs.Debit]
	destination := accounts[legs.Credit]

	if (source != nil && !source.IsActive()) || (destination != nil && !destination.IsActive()) {
		return nil, ErrAccountInactive
	}
	if source != nil && source.Balance.LessThan(legs.Amount) {
		return nil, ErrInsufficientFunds
	}

	if source != nil {
		source.Balance = source.Balance.Sub(legs.Amount)
		if err := uow.UpdateAccountBalance(ctx, source); err != nil {
			return nil, storageError(err)
		}
	}
	if destination != nil {
		destination.Balance = destination.Balance.Add(legs.Amount)
		if err := uow.UpdateAccountBalance(ctx, destination); err != nil {
			return nil, storageError(err)
		}
	}

	transaction := &model.Transaction{
		ID:                   s.newID(),
		Kind:                 legs.Kind,
		Amount:               legs.Amount,
		SourceAccountID:      legs.Debit,
		DestinationAccountID: legs.Credit,
		CreatedAt:            ledgerTimestamp(s.now()),
	}
	if err := uow.CreateTransaction(ctx, transaction); err != nil {
		return nil, storageError(err)
	}
	if err := uow.Commit(); err != nil {
		return nil, storageError(err)
	}
	return transaction, nil
}

// ledgerTimestamp normalizes t to UTC at microsecond precision, the
// resolution of a PostgreSQL TIMESTAMPTZ, so the time returned to the caller
// is exactly the time stored.
func ledgerTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// lockAccounts locks every account named by legs in ascending id order and
// returns them keyed by id. A missing source is reported before a missing
// destination.
func lockAccounts(ctx context.Context, uow repository.IUnitOfWork, legs model.Legs) (map[string]*model.Account, error) {
	var ids []string
	for _, id := range []string{legs.Debit, legs.Credit} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	accounts := make(map[string]*model.Account, len(ids))
	missing := make(map[string]bool)
	for _, id := range ids {
		acc, err := uow.GetAccountForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				missing[id] = true
				continue
			}
			return nil, storageError(err)
		}
		accounts[id] = acc
	}

	if missing[legs.Debit] {
		return nil, ErrSourceAccountNotFound
	}
	if missing[legs.Credit] {
		return nil, ErrDestinationAccountNotFound
	}
	return accounts, nil
}

// storageError passes concurrency conflicts through so they can be retried and
// marks everything else as a storage failure.
func storageError(err error) error {
	if errors.Is(err, ErrConcurrencyConflict) {
		return err
	}
	return storageFailure(err)
}
