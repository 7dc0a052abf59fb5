package handler

import (
	"errors"
	"net/http"

	"go-ledger-api/common"
	"go-ledger-api/service"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps a service error to the HTTP error sent to the client.
// Unknown errors become a 500 carrying fallback as the message.
func serviceError(err error, fallback string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, service.ErrClientNotFound):
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrAccessDenied):
		return common.NewAppError(http.StatusForbidden, err.Error(), err)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnsupportedTransactionKind),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrSameAccount),
		errors.Is(err, service.ErrAccountInactive):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrConcurrencyConflict):
		return common.NewAppError(http.StatusConflict, "The account is busy, please retry", err)
	case errors.Is(err, service.ErrAccountNumberExhausted):
		return common.NewAppError(http.StatusServiceUnavailable, err.Error(), err)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}
