package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"go-ledger-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionRowColumns = []string{"id", "kind", "amount", "source_account_id", "destination_account_id", "created_at"}

func TestLedgerStore_TransferUnitOfWork(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1 FOR UPDATE`)).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow("A", "N-A", "", "cli-alice", "100.00", "ACTIVE", 7, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET balance = $1`)).
		WithArgs(decimal.RequireFromString("70.00"), "A", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions (` + transactionColumns + `)`)).
		WithArgs("01HX", model.KindWithdrawal, decimal.RequireFromString("30.00"), "A", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	acc, err := uow.GetAccountForUpdate(ctx, "A")
	require.NoError(t, err)
	acc.Balance = acc.Balance.Sub(decimal.RequireFromString("30.00"))
	require.NoError(t, uow.UpdateAccountBalance(ctx, acc))
	require.NoError(t, uow.CreateTransaction(ctx, &model.Transaction{
		ID:              "01HX",
		Kind:            model.KindWithdrawal,
		Amount:          decimal.RequireFromString("30.00"),
		SourceAccountID: "A",
		CreatedAt:       now,
	}))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback(), "rollback after commit is a no-op")

	assert.Equal(t, int64(8), acc.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_RollbackOnMissingAccount(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("Z").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.GetAccountForUpdate(ctx, "Z")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	require.NoError(t, uow.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_DeadlockOnLock(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs("A").
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.GetAccountForUpdate(ctx, "A")
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	require.NoError(t, uow.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_BeginAndCommitFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("begin", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many clients"))

		_, err := NewLedgerStore(db).Begin(ctx)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit serialization failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

		uow, err := NewLedgerStore(db).Begin(ctx)
		require.NoError(t, err)

		assert.ErrorIs(t, uow.Commit(), ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerStore_GetAccountWithHistory(t *testing.T) {
	t.Run("reads both inside one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)
		t1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
			WithArgs("A").
			WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow("A", "N-A", "", "cli-alice", "120.00", "ACTIVE", 2, t1, t1))
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE source_account_id = $1 OR destination_account_id = $1`)).
			WithArgs("A").
			WillReturnRows(sqlmock.NewRows(transactionRowColumns).
				AddRow("01A", "DEPOSIT", "50.00", nil, "A", t1).
				AddRow("01B", "TRANSFER", "30.00", "A", "B", t1.Add(time.Minute)))
		mock.ExpectCommit()

		account, history, err := store.GetAccountWithHistory(context.Background(), "A")

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("120.00").Equal(account.Balance))
		require.Len(t, history, 2)
		assert.Equal(t, "01B", history[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).WithArgs("Z").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := store.GetAccountWithHistory(context.Background(), "Z")

		assert.ErrorIs(t, err, ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, _, err := store.GetAccountWithHistory(context.Background(), "A")

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetTransactionsByAccountID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	t1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE source_account_id = $1 OR destination_account_id = $1`)).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("01A", "DEPOSIT", "50.00", nil, "A", t1).
			AddRow("01B", "TRANSFER", "30.00", "A", "B", t1.Add(time.Minute)))

	txs, err := repo.GetTransactionsByAccountID(context.Background(), "A")

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Empty(t, txs[0].SourceAccountID)
	assert.Equal(t, "A", txs[0].DestinationAccountID)
	assert.Equal(t, model.KindTransfer, txs[1].Kind)
	assert.True(t, decimal.RequireFromString("-30.00").Equal(txs[1].EffectOn("A")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_GetTransactionsByAccountSide(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE destination_account_id = $1 AND created_at BETWEEN $2 AND $3`)).
		WithArgs("B", start, end).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).AddRow("01B", "TRANSFER", "30.00", "A", "B", start))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE source_account_id = $1 AND created_at BETWEEN $2 AND $3`)).
		WithArgs("B", start, end).
		WillReturnError(errors.New("connection reset"))

	incoming, err := repo.GetTransactionsByAccountSide(context.Background(), "B", model.SideDestination, start, end)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	_, err = repo.GetTransactionsByAccountSide(context.Background(), "B", model.SideSource, start, end)
	assert.Error(t, err)

	_, err = repo.GetTransactionsByAccountSide(context.Background(), "B", model.Side("BOTH"), start, end)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
