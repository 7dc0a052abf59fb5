// file: repository/repository.go

package repository

import (
	"context"
	"errors"
	"time"

	"go-ledger-api/model"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// IAccountRepository defines the read side of the account store.
type IAccountRepository interface {
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountsByIDs(ctx context.Context, ids []string) ([]*model.Account, error)
	AccountNumberExists(ctx context.Context, number string) (bool, error)
	CreateAccount(ctx context.Context, account *model.Account) error
}

// ITransactionRepository defines the read side of the transaction ledger.
type ITransactionRepository interface {
	// GetTransactionsByAccountID returns every transaction where the account is
	// source or destination, oldest first.
	GetTransactionsByAccountID(ctx context.Context, accountID string) ([]*model.Transaction, error)
	// GetTransactionsByAccountSide returns the transactions where the account
	// plays the given side and created_at is within [start, end], oldest first.
	GetTransactionsByAccountSide(ctx context.Context, accountID string, side model.Side, start, end time.Time) ([]*model.Transaction, error)
}

// IAccountHistoryReader reads an account together with its full history from
// one consistent view: every returned transaction is reflected in the returned
// balance and no reflected transaction is missing. A missing account returns
// ErrRecordNotFound.
type IAccountHistoryReader interface {
	GetAccountWithHistory(ctx context.Context, accountID string) (*model.Account, []*model.Transaction, error)
}

// IClientRepository defines the contract for client (account owner) lookups.
type IClientRepository interface {
	GetClientByID(ctx context.Context, id string) (*model.Client, error)
}

// ILedgerStore opens units of work for ledger mutations.
type ILedgerStore interface {
	Begin(ctx context.Context) (IUnitOfWork, error)
}

// IUnitOfWork groups the writes of a single ledger operation. Nothing is
// visible to readers until Commit succeeds. Rollback after Commit is a no-op.
type IUnitOfWork interface {
	// GetAccountForUpdate loads the account and holds a lock on it until the
	// unit of work ends.
	GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error)
	// UpdateAccountBalance persists account.Balance if account.Version still
	// matches the stored version, then increments account.Version. A mismatch
	// returns ErrConcurrencyConflict.
	UpdateAccountBalance(ctx context.Context, account *model.Account) error
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	Commit() error
	Rollback() error
}
