package router

import (
	"net/http"

	_ "go-ledger-api/docs"
	"go-ledger-api/handler"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter registers every route. Handlers left nil have their routes
// skipped, which lets tests mount only what they exercise.
func NewRouter(healthHandler *handler.HealthHandler, transactionHandler *handler.TransactionHandler, accountHandler *handler.AccountHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if transactionHandler != nil {
		mux.Handle("POST /api/transactions", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(transactionHandler.ExecuteTransaction)))
		mux.Handle("GET /api/accounts/{accountId}/transactions", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(transactionHandler.ListTransactionsForAccount)))
	}

	if accountHandler != nil {
		mux.Handle("POST /api/accounts", handler.AuthMiddleware(handler.PrivilegedMiddleware(handler.ErrorHandlingMiddleware(accountHandler.OpenAccount))))
		mux.Handle("GET /api/accounts/{accountId}", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(accountHandler.GetAccount)))
		mux.Handle("GET /api/accounts/{accountId}/statement", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(accountHandler.GetStatement)))
	}

	return mux
}
