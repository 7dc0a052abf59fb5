// file: router/router_test.go

package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"go-ledger-api/app"
	"go-ledger-api/config"
	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func TestMain(m *testing.M) {
	logger.Init()
	if err := config.LoadConfig("../"); err != nil {
		logger.Log.Fatalf("could not load config: %v", err)
	}
	config.AppConfig.JWT.SecretKey = testSecret
	config.AppConfig.Ledger.RetryInitialInterval = time.Millisecond
	os.Exit(m.Run())
}

// --- Test Helper Functions ---

func newTestApp(t *testing.T) *app.TestApp {
	t.Helper()
	store := memory.NewStore()
	store.AddClient(model.Client{ID: "cli-alice", FirstName: "Alice", LastName: "Martin", Email: "alice@example.com"})
	store.AddClient(model.Client{ID: "cli-bob", FirstName: "Bob", LastName: "Durand", Email: "bob@example.com"})
	store.AddAccount(model.Account{ID: "A", Number: "FR7630004000010000000000101", OwnerID: "cli-alice", Balance: decimal.RequireFromString("100.00"), Status: model.AccountStatusActive})
	store.AddAccount(model.Account{ID: "B", Number: "FR7630004000010000000000202", OwnerID: "cli-bob", Balance: decimal.Zero, Status: model.AccountStatusActive})

	testApp, err := app.NewTestApp(app.MemoryStores(store), nil)
	require.NoError(t, err)
	return testApp
}

func tokenFor(t *testing.T, email string, role model.Role) string {
	t.Helper()
	claims := model.AppClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, testApp *app.TestApp, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	testApp.Router.ServeHTTP(rr, req)
	return rr
}

func periodQuery(start, end time.Time) string {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	return q.Encode()
}

// --- Test Suites ---

func TestHealthCheck(t *testing.T) {
	testApp := newTestApp(t)

	rr := do(t, testApp, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"API is healthy and running"}`, rr.Body.String())
}

func TestAuthentication(t *testing.T) {
	testApp := newTestApp(t)

	t.Run("missing header", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		claims := model.AppClaims{Email: "alice@example.com", Role: model.RoleClient}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		rr := do(t, testApp, http.MethodGet, "/api/accounts/A", forged, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := model.AppClaims{
			Email:            "alice@example.com",
			Role:             model.RoleClient,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		rr := do(t, testApp, http.MethodGet, "/api/accounts/A", expired, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestExecuteTransaction(t *testing.T) {
	testApp := newTestApp(t)
	agent := tokenFor(t, "agent@bank.example", model.RoleAgentAdmin)
	alice := tokenFor(t, "alice@example.com", model.RoleClient)
	bob := tokenFor(t, "bob@example.com", model.RoleClient)

	t.Run("agent deposit", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/transactions", agent,
			`{"kind":"deposit","amount":"50.00","destination_account_id":"A"}`)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var tx model.Transaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tx))
		assert.Equal(t, model.KindDeposit, tx.Kind)
		assert.NotEmpty(t, tx.ID)
		assert.Empty(t, tx.SourceAccountID)
	})

	t.Run("owner transfer", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/transactions", alice,
			`{"kind":"TRANSFER","amount":"30.00","source_account_id":"A","destination_account_id":"B"}`)
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	tests := []struct {
		name   string
		token  string
		body   string
		status int
	}{
		{"other client's account", bob, `{"kind":"WITHDRAWAL","amount":"1.00","source_account_id":"A"}`, http.StatusForbidden},
		{"client deposit", alice, `{"kind":"DEPOSIT","amount":"1.00","destination_account_id":"A"}`, http.StatusForbidden},
		{"insufficient funds", alice, `{"kind":"WITHDRAWAL","amount":"1000.00","source_account_id":"A"}`, http.StatusBadRequest},
		{"negative amount", agent, `{"kind":"DEPOSIT","amount":"-5","destination_account_id":"A"}`, http.StatusBadRequest},
		{"three decimals", agent, `{"kind":"DEPOSIT","amount":"1.005","destination_account_id":"A"}`, http.StatusBadRequest},
		{"unknown kind", agent, `{"kind":"LOAN","amount":"1.00","destination_account_id":"A"}`, http.StatusBadRequest},
		{"fee is not postable", agent, `{"kind":"FEE","amount":"1.00","source_account_id":"A"}`, http.StatusBadRequest},
		{"unknown field", agent, `{"kind":"DEPOSIT","amount":"1.00","destination_account_id":"A","currency":"EUR"}`, http.StatusBadRequest},
		{"unknown source", agent, `{"kind":"WITHDRAWAL","amount":"1.00","source_account_id":"Z"}`, http.StatusNotFound},
		{"unknown destination", agent, `{"kind":"TRANSFER","amount":"1.00","source_account_id":"A","destination_account_id":"Z"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, testApp, http.MethodPost, "/api/transactions", tt.token, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	account, err := testApp.Stores.Accounts.GetAccountByID(t.Context(), "A")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120.00").Equal(account.Balance), account.Balance.String())
}

func TestListTransactionsForAccount(t *testing.T) {
	testApp := newTestApp(t)
	agent := tokenFor(t, "agent@bank.example", model.RoleSuperAdmin)
	alice := tokenFor(t, "alice@example.com", model.RoleClient)
	bob := tokenFor(t, "bob@example.com", model.RoleClient)
	from := time.Now().Add(-time.Hour)

	require.Equal(t, http.StatusCreated, do(t, testApp, http.MethodPost, "/api/transactions", agent,
		`{"kind":"DEPOSIT","amount":"10.00","destination_account_id":"A"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, testApp, http.MethodPost, "/api/transactions", alice,
		`{"kind":"PAYMENT","amount":"4.00","source_account_id":"A","destination_account_id":"B"}`).Code)

	query := periodQuery(from, time.Now().Add(time.Hour))

	t.Run("owner sees both sides", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A/transactions?"+query, alice, "")

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var txs []model.Transaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &txs))
		require.Len(t, txs, 2)
		assert.Equal(t, model.KindDeposit, txs[0].Kind)
		assert.Equal(t, model.KindPayment, txs[1].Kind)
	})

	t.Run("empty window returns an empty array", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A/transactions?"+periodQuery(from.Add(-48*time.Hour), from.Add(-24*time.Hour)), alice, "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("not the owner", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A/transactions?"+query, bob, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing period", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A/transactions", alice, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("reversed period", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/A/transactions?"+periodQuery(time.Now(), from), agent, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		rr := do(t, testApp, http.MethodGet, "/api/accounts/Z/transactions?"+query, agent, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAccounts(t *testing.T) {
	testApp := newTestApp(t)
	agent := tokenFor(t, "agent@bank.example", model.RoleAgentAdmin)
	alice := tokenFor(t, "alice@example.com", model.RoleClient)
	bob := tokenFor(t, "bob@example.com", model.RoleClient)

	t.Run("client cannot open accounts", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/accounts", alice, `{"owner_id":"cli-alice"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("agent opens an account", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/accounts", agent, `{"owner_id":"cli-bob","label":"Savings"}`)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var account model.Account
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
		assert.True(t, strings.HasPrefix(account.Number, "FR"))
		assert.Len(t, account.Number, 27)
		assert.True(t, account.Balance.IsZero())
		assert.Equal(t, model.AccountStatusActive, account.Status)

		rr = do(t, testApp, http.MethodGet, "/api/accounts/"+account.ID, bob, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unknown owner", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/accounts", agent, `{"owner_id":"nobody"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing owner", func(t *testing.T) {
		rr := do(t, testApp, http.MethodPost, "/api/accounts", agent, `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get account access", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(t, testApp, http.MethodGet, "/api/accounts/A", alice, "").Code)
		assert.Equal(t, http.StatusForbidden, do(t, testApp, http.MethodGet, "/api/accounts/A", bob, "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, testApp, http.MethodGet, "/api/accounts/Z", agent, "").Code)
	})
}

func TestGetStatement(t *testing.T) {
	testApp := newTestApp(t)
	agent := tokenFor(t, "agent@bank.example", model.RoleAgentAdmin)
	alice := tokenFor(t, "alice@example.com", model.RoleClient)
	from := time.Now().Add(-time.Hour)

	require.Equal(t, http.StatusCreated, do(t, testApp, http.MethodPost, "/api/transactions", agent,
		`{"kind":"DEPOSIT","amount":"50.00","destination_account_id":"A"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, testApp, http.MethodPost, "/api/transactions", alice,
		`{"kind":"TRANSFER","amount":"30.00","source_account_id":"A","destination_account_id":"B"}`).Code)

	rr := do(t, testApp, http.MethodGet, "/api/accounts/A/statement?"+periodQuery(from, time.Now().Add(time.Hour)), alice, "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var statement model.Statement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statement))
	assert.True(t, decimal.RequireFromString("100.00").Equal(statement.OpeningBalance), statement.OpeningBalance.String())
	assert.True(t, decimal.RequireFromString("120.00").Equal(statement.ClosingBalance), statement.ClosingBalance.String())
	require.Len(t, statement.Lines, 2)
	assert.Equal(t, model.DirectionCredit, statement.Lines[0].Direction)
	assert.Equal(t, model.DirectionDebit, statement.Lines[1].Direction)
	assert.Equal(t, "Durand Bob", statement.Lines[1].CounterpartyName)
	require.NotNil(t, statement.Owner)
	assert.Equal(t, "Martin Alice", statement.Owner.Name)

	bob := tokenFor(t, "bob@example.com", model.RoleClient)
	rr = do(t, testApp, http.MethodGet, "/api/accounts/A/statement?"+periodQuery(from, time.Now()), bob, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
