package service

import (
	"errors"
	"fmt"

	"go-ledger-api/repository"
)

var (
	ErrInvalidAmount              = errors.New("amount must be a positive value with at most two decimals")
	ErrUnsupportedTransactionKind = errors.New("unsupported transaction kind")
	ErrAccountNotFound            = errors.New("account not found")
	ErrSourceAccountNotFound      = fmt.Errorf("source %w", ErrAccountNotFound)
	ErrDestinationAccountNotFound = fmt.Errorf("destination %w", ErrAccountNotFound)
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrInvalidRange               = errors.New("start must not be after end")
	ErrAccessDenied               = errors.New("access to this account is denied")
	ErrSameAccount                = errors.New("source and destination accounts must differ")
	ErrAccountInactive            = errors.New("account is inactive")
	ErrClientNotFound             = errors.New("client not found")
	ErrAccountNumberExhausted     = errors.New("could not allocate a free account number")
	ErrStorageFailure             = errors.New("storage failure")

	// ErrConcurrencyConflict is returned once the ledger has exhausted its retries.
	ErrConcurrencyConflict = repository.ErrConcurrencyConflict
)

func storageFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}
