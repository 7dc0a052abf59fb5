package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	pqSerializationFailure pq.ErrorCode = "40001"
	pqDeadlockDetected     pq.ErrorCode = "40P01"
)

// classifyError maps PostgreSQL errors that mean "retry the whole unit of
// work" to ErrConcurrencyConflict. Other errors are returned unchanged.
func classifyError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConcurrencyConflict, pqErr.Message)
		}
	}
	return err
}
