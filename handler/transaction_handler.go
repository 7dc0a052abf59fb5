package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go-ledger-api/common"
	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransactionHandler holds dependencies for transaction-related handlers.
type TransactionHandler struct {
	ledger  *service.LedgerService
	queries *service.QueryService
}

// NewTransactionHandler creates a new TransactionHandler with its dependencies.
func NewTransactionHandler(ledger *service.LedgerService, queries *service.QueryService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, queries: queries}
}

// ExecuteTransaction godoc
// @Summary      Post a monetary movement
// @Description  Posts a DEPOSIT, WITHDRAWAL, TRANSFER, PAYMENT or REFUND. Clients may only move money out of an account they own; agents may post any movement.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transaction body model.ExecuteTransactionRequest true "Movement to post"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Invalid amount, unsupported kind, insufficient funds or inactive account"
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      403  {object}  common.AppError "Forbidden: caller does not own the source account"
// @Failure      404  {object}  common.AppError "Source or destination account not found"
// @Failure      409  {object}  common.AppError "Concurrent update, retry later"
// @Failure      500  {object}  common.AppError "Internal server error while posting the movement"
// @Router       /api/transactions [post]
func (h *TransactionHandler) ExecuteTransaction(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ExecuteTransactionRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	role, email, appErr := callerFrom(r.Context())
	if appErr != nil {
		return appErr
	}

	kind, ok := model.ParseKind(req.Kind)
	if !ok {
		return serviceError(service.ErrUnsupportedTransactionKind, "")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, service.ErrInvalidAmount.Error(), err)
	}

	logger.Log.WithFields(logrus.Fields{
		"kind":  kind,
		"email": email,
		"role":  role,
	}).Info("Execute transaction request received")

	transaction, err := h.ledger.ExecuteFor(r.Context(), role, email, kind, amount, req.SourceAccountID, req.DestinationAccountID)
	if err != nil {
		return serviceError(err, "Could not process transaction")
	}

	writeJSON(w, http.StatusCreated, transaction)
	return nil
}

// ListTransactionsForAccount godoc
// @Summary      List account transactions for a period
// @Description  Returns the transactions where the account is source or destination, with creation time within [start, end], oldest first.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path string true "Account ID"
// @Param        start query string true "Period start (RFC 3339)"
// @Param        end query string true "Period end (RFC 3339)"
// @Success      200  {array}   model.Transaction
// @Failure      400  {object}  common.AppError "Invalid period"
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      403  {object}  common.AppError "Forbidden: caller does not own the account"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error while retrieving transactions"
// @Router       /api/accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListTransactionsForAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	role, email, appErr := callerFrom(r.Context())
	if appErr != nil {
		return appErr
	}

	start, end, appErr := parsePeriod(r)
	if appErr != nil {
		return appErr
	}

	transactions, err := h.queries.ListForAccount(r.Context(), r.PathValue("accountId"), start, end, role, email)
	if err != nil {
		return serviceError(err, "Could not retrieve transactions")
	}

	writeJSON(w, http.StatusOK, transactions)
	return nil
}

// parsePeriod reads the mandatory RFC 3339 start and end query parameters.
func parsePeriod(r *http.Request) (time.Time, time.Time, *common.AppError) {
	query := r.URL.Query()
	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, common.NewAppError(http.StatusBadRequest, "Query parameter 'start' must be an RFC 3339 timestamp", err)
	}
	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, common.NewAppError(http.StatusBadRequest, "Query parameter 'end' must be an RFC 3339 timestamp", err)
	}
	return start, end, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).WithField("status_code", status).Warn("Failed to write JSON response")
	}
}
