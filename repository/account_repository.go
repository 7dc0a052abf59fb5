package repository

import (
	"context"
	"database/sql"
	"errors"

	"go-ledger-api/logger"
	"go-ledger-api/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const accountColumns = `id, number, label, owner_id, balance, status, version, created_at, updated_at`

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	err := row.Scan(&acc.ID, &acc.Number, &acc.Label, &acc.OwnerID, &acc.Balance, &acc.Status, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// CreateAccount adds a new account to the database.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":     account.ID,
		"account_number": account.Number,
		"owner_id":       account.OwnerID,
	})
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (id, number, label, owner_id, balance, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING version, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, account.ID, account.Number, account.Label, account.OwnerID, account.Balance, account.Status).
		Scan(&account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

// GetAccountByID retrieves a single account without locking it.
func (r *AccountRepository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getAccountByID(ctx, r.DB, id)
}

func (r *AccountRepository) getAccountByID(ctx context.Context, q queryer, id string) (*model.Account, error) {
	log := logger.Log.WithField("account_id", id)
	log.Debug("Executing query to get account by ID")

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	acc, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		log.WithError(err).Error("Failed to execute get account by ID query")
		return nil, err
	}
	return acc, nil
}

// GetAccountsByIDs retrieves the accounts matching ids. Unknown ids are skipped.
func (r *AccountRepository) GetAccountsByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	log := logger.Log.WithField("account_count", len(ids))
	log.Debug("Executing query to get accounts by IDs")

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		log.WithError(err).Error("Failed to execute query for accounts by IDs")
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan account row")
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// AccountNumberExists reports whether an account already uses number.
func (r *AccountRepository) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE number = $1)`
	if err := r.DB.QueryRowContext(ctx, query, number).Scan(&exists); err != nil {
		logger.Log.WithError(err).WithField("account_number", number).Error("Failed to check account number")
		return false, err
	}
	return exists, nil
}

// GetAccountForUpdate loads an account and takes a row lock held until tx ends.
func (r *AccountRepository) GetAccountForUpdate(ctx context.Context, tx *sql.Tx, accountID string) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get account for update")

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	acc, err := scanAccount(tx.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("Account not found for update")
			return nil, ErrRecordNotFound
		}
		log.WithError(err).Error("Failed to execute get account for update query")
		return nil, classifyError(err)
	}
	return acc, nil
}

// UpdateAccountBalance writes the new balance guarded by the version the
// account was read at.
func (r *AccountRepository) UpdateAccountBalance(ctx context.Context, tx *sql.Tx, account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":  account.ID,
		"new_balance": account.Balance.StringFixed(2),
		"version":     account.Version,
	})
	log.Info("Executing query to update account balance")

	query := `UPDATE accounts SET balance = $1, version = version + 1, updated_at = NOW() WHERE id = $2 AND version = $3`
	res, err := tx.ExecContext(ctx, query, account.Balance, account.ID, account.Version)
	if err != nil {
		log.WithError(err).Error("Failed to execute update account balance query")
		return classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Warn("Account version changed since it was read")
		return ErrConcurrencyConflict
	}
	account.Version++
	return nil
}
