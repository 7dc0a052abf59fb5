package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository"

	"github.com/sirupsen/logrus"
)

// QueryService answers read-only questions about the ledger.
type QueryService struct {
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	access          accessPolicy
}

func NewQueryService(accountRepo repository.IAccountRepository, transactionRepo repository.ITransactionRepository, clients *ClientDirectory) *QueryService {
	return &QueryService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		access:          accessPolicy{clients: clients},
	}
}

// ListForAccount returns the transactions in which the account is source or
// destination, with creation time in [start, end], oldest first.
func (s *QueryService) ListForAccount(ctx context.Context, accountID string, start, end time.Time, role model.Role, identity string) ([]*model.Transaction, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"start":      start,
		"end":        end,
		"role":       role,
	})

	if start.After(end) {
		return nil, ErrInvalidRange
	}
	account, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, account, role, identity); err != nil {
		return nil, err
	}

	outgoing, err := s.transactionRepo.GetTransactionsByAccountSide(ctx, accountID, model.SideSource, start, end)
	if err != nil {
		log.WithError(err).Error("Failed to load outgoing transactions")
		return nil, storageFailure(err)
	}
	incoming, err := s.transactionRepo.GetTransactionsByAccountSide(ctx, accountID, model.SideDestination, start, end)
	if err != nil {
		log.WithError(err).Error("Failed to load incoming transactions")
		return nil, storageFailure(err)
	}

	result := mergeTransactions(outgoing, incoming)
	log.WithField("count", len(result)).Info("Listed account transactions")
	return result, nil
}

// mergeTransactions returns the union of the given lists without duplicate
// ids, ordered by creation time then id.
func mergeTransactions(lists ...[]*model.Transaction) []*model.Transaction {
	seen := make(map[string]struct{})
	merged := make([]*model.Transaction, 0)
	for _, list := range lists {
		for _, t := range list {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			merged = append(merged, t)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return merged
}

func loadAccount(ctx context.Context, repo repository.IAccountRepository, accountID string) (*model.Account, error) {
	account, err := repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		logger.Log.WithError(err).WithField("account_id", accountID).Error("Failed to load account")
		return nil, storageFailure(err)
	}
	return account, nil
}
