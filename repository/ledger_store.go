package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-ledger-api/logger"
	"go-ledger-api/model"
)

// LedgerStore opens PostgreSQL transactions for ledger mutations.
type LedgerStore struct {
	DB           *sql.DB
	accounts     *AccountRepository
	transactions *TransactionRepository
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{
		DB:           db,
		accounts:     NewAccountRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

// Begin starts a database transaction. Row locks taken through the returned
// unit of work are held until Commit or Rollback.
func (s *LedgerStore) Begin(ctx context.Context) (IUnitOfWork, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to begin ledger transaction")
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx, accounts: s.accounts, transactions: s.transactions}, nil
}

// GetAccountWithHistory reads the account and its full history inside one
// read-only REPEATABLE READ transaction, so both come from the same snapshot.
func (s *LedgerStore) GetAccountWithHistory(ctx context.Context, accountID string) (*model.Account, []*model.Transaction, error) {
	log := logger.Log.WithField("account_id", accountID)

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		log.WithError(err).Error("Failed to begin snapshot transaction")
		return nil, nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := s.accounts.getAccountByID(ctx, tx, accountID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.transactions.historyOf(ctx, tx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("Failed to close snapshot transaction")
		return nil, nil, classifyError(err)
	}
	return account, history, nil
}

// UnitOfWork is a tx-bound writer over the account and transaction tables.
type UnitOfWork struct {
	tx           *sql.Tx
	accounts     *AccountRepository
	transactions *TransactionRepository
}

func (u *UnitOfWork) GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error) {
	return u.accounts.GetAccountForUpdate(ctx, u.tx, id)
}

func (u *UnitOfWork) UpdateAccountBalance(ctx context.Context, account *model.Account) error {
	return u.accounts.UpdateAccountBalance(ctx, u.tx, account)
}

func (u *UnitOfWork) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	return u.transactions.CreateTransaction(ctx, u.tx, transaction)
}

func (u *UnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		logger.Log.WithError(err).Error("Failed to commit ledger transaction")
		return classifyError(err)
	}
	return nil
}

func (u *UnitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Log.WithError(err).Error("Failed to roll back ledger transaction")
		return err
	}
	return nil
}
