package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-ledger-api/logger"
	"go-ledger-api/model"

	"github.com/sirupsen/logrus"
)

const transactionColumns = `id, kind, amount, source_account_id, destination_account_id, created_at`

// TransactionRepository implements ITransactionRepository.
type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// CreateTransaction inserts an immutable transaction record inside tx.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *sql.Tx, transaction *model.Transaction) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id":         transaction.ID,
		"kind":                   transaction.Kind,
		"source_account_id":      transaction.SourceAccountID,
		"destination_account_id": transaction.DestinationAccountID,
		"amount":                 transaction.Amount.StringFixed(2),
	})
	log.Info("Executing query to create a new transaction")

	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query,
		transaction.ID,
		transaction.Kind,
		transaction.Amount,
		nullableID(transaction.SourceAccountID),
		nullableID(transaction.DestinationAccountID),
		transaction.CreatedAt,
	)
	if err != nil {
		log.WithError(err).Error("Failed to execute create transaction query")
		return classifyError(err)
	}
	return nil
}

// GetTransactionsByAccountID retrieves the full history of an account in either role.
func (r *TransactionRepository) GetTransactionsByAccountID(ctx context.Context, accountID string) ([]*model.Transaction, error) {
	return r.historyOf(ctx, r.DB, accountID)
}

func (r *TransactionRepository) historyOf(ctx context.Context, q queryer, accountID string) ([]*model.Transaction, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get transactions by account ID")

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY created_at ASC, id ASC`

	return r.query(ctx, q, log, query, accountID)
}

// GetTransactionsByAccountSide retrieves the transactions where the account
// plays side, restricted to [start, end].
func (r *TransactionRepository) GetTransactionsByAccountSide(ctx context.Context, accountID string, side model.Side, start, end time.Time) ([]*model.Transaction, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"side":       side,
		"start":      start,
		"end":        end,
	})
	log.Info("Executing query to get transactions by account side and period")

	var column string
	switch side {
	case model.SideSource:
		column = "source_account_id"
	case model.SideDestination:
		column = "destination_account_id"
	default:
		return nil, fmt.Errorf("unknown account side %q", side)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + column + ` = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC, id ASC`

	return r.query(ctx, r.DB, log, query, accountID, start, end)
}

func (r *TransactionRepository) query(ctx context.Context, q queryer, log *logrus.Entry, query string, args ...any) ([]*model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for transactions")
		return nil, err
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var (
			t           model.Transaction
			source      sql.NullString
			destination sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Kind, &t.Amount, &source, &destination, &t.CreatedAt); err != nil {
			log.WithError(err).Error("Failed to scan transaction row")
			return nil, err
		}
		t.SourceAccountID = source.String
		t.DestinationAccountID = destination.String
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		log.WithError(err).Error("Failed while iterating transaction rows")
		return nil, err
	}
	return transactions, nil
}
