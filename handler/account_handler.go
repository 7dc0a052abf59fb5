package handler

import (
	"net/http"

	"go-ledger-api/common"
	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/service"

	"github.com/sirupsen/logrus"
)

type AccountHandler struct {
	accounts   *service.AccountService
	statements *service.StatementService
}

func NewAccountHandler(accounts *service.AccountService, statements *service.StatementService) *AccountHandler {
	return &AccountHandler{accounts: accounts, statements: statements}
}

// OpenAccount godoc
// @Summary      Open an account
// @Description  Opens an active, zero-balance account with a freshly allocated IBAN for an existing client. Agents only.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        account body model.OpenAccountRequest true "Owner and label"
// @Success      201  {object}  model.Account
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError "Client not found"
// @Failure      503  {object}  common.AppError "No free account number could be allocated"
// @Router       /api/accounts [post]
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.OpenAccountRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"owner_id": req.OwnerID,
		"email":    r.Context().Value(UserEmailKey),
	}).Info("Open account request received")

	account, err := h.accounts.OpenAccount(r.Context(), req.OwnerID, req.Label)
	if err != nil {
		return serviceError(err, "Could not open account")
	}

	writeJSON(w, http.StatusCreated, account)
	return nil
}

// GetAccount godoc
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path string true "Account ID"
// @Success      200  {object}  model.Account
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	role, email, appErr := callerFrom(r.Context())
	if appErr != nil {
		return appErr
	}

	account, err := h.accounts.GetAccount(r.Context(), r.PathValue("accountId"), role, email)
	if err != nil {
		return serviceError(err, "Could not retrieve account")
	}

	writeJSON(w, http.StatusOK, account)
	return nil
}

// GetStatement godoc
// @Summary      Build an account statement
// @Description  Reconstructs the opening balance, running balances and totals of an account over [start, end].
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path string true "Account ID"
// @Param        start query string true "Period start (RFC 3339)"
// @Param        end query string true "Period end (RFC 3339)"
// @Success      200  {object}  model.Statement
// @Failure      400  {object}  common.AppError "Invalid period"
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Failure      500  {object}  common.AppError
// @Router       /api/accounts/{accountId}/statement [get]
func (h *AccountHandler) GetStatement(w http.ResponseWriter, r *http.Request) *common.AppError {
	role, email, appErr := callerFrom(r.Context())
	if appErr != nil {
		return appErr
	}

	start, end, appErr := parsePeriod(r)
	if appErr != nil {
		return appErr
	}

	statement, err := h.statements.BuildStatementFor(r.Context(), r.PathValue("accountId"), start, end, role, email)
	if err != nil {
		return serviceError(err, "Could not build statement")
	}

	writeJSON(w, http.StatusOK, statement)
	return nil
}
