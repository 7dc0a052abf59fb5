// file: service/account_service.go

package service

import (
	"context"
	"errors"

	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultNumberAttempts = 10

// AccountService opens accounts and serves account lookups.
type AccountService struct {
	repo        repository.IAccountRepository
	clients     *ClientDirectory
	access      accessPolicy
	numbers     IAccountNumberGenerator
	maxAttempts int
	newID       func() string
}

func NewAccountService(repo repository.IAccountRepository, clients *ClientDirectory, numbers IAccountNumberGenerator, maxAttempts int) *AccountService {
	if maxAttempts <= 0 {
		maxAttempts = defaultNumberAttempts
	}
	return &AccountService{
		repo:        repo,
		clients:     clients,
		access:      accessPolicy{clients: clients},
		numbers:     numbers,
		maxAttempts: maxAttempts,
		newID:       uuid.NewString,
	}
}

// OpenAccount creates an active, zero-balance account for an existing client.
func (s *AccountService) OpenAccount(ctx context.Context, ownerID, label string) (*model.Account, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"label":    label,
	})

	if _, err := s.clients.GetClient(ctx, ownerID); err != nil {
		return nil, err
	}

	number, err := s.allocateNumber(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to allocate account number")
		return nil, err
	}

	account := &model.Account{
		ID:      s.newID(),
		Number:  number,
		Label:   label,
		OwnerID: ownerID,
		Balance: decimal.Zero,
		Status:  model.AccountStatusActive,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		log.WithError(err).Error("Failed to create account")
		return nil, storageFailure(err)
	}

	log.WithFields(logrus.Fields{
		"account_id":     account.ID,
		"account_number": account.Number,
	}).Info("Account opened successfully")
	return account, nil
}

// allocateNumber draws candidates until one is not used by any account.
func (s *AccountService) allocateNumber(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		candidate, err := s.numbers.Next()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.AccountNumberExists(ctx, candidate)
		if err != nil {
			return "", storageFailure(err)
		}
		if !exists {
			return candidate, nil
		}
		logger.Log.WithField("attempt", attempt).Debug("Account number already taken")
	}
	return "", ErrAccountNumberExhausted
}

// GetAccount returns an account the caller is allowed to see.
func (s *AccountService) GetAccount(ctx context.Context, accountID string, role model.Role, identity string) (*model.Account, error) {
	account, err := loadAccount(ctx, s.repo, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, account, role, identity); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			logger.Log.WithField("account_id", accountID).Warn("Permission denied for accessing account")
		}
		return nil, err
	}
	return account, nil
}
