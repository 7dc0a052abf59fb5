package app

import (
	"net/http"

	"go-ledger-api/service"
)

// TestApp exposes the wired router and services for end-to-end tests.
type TestApp struct {
	Stores   Stores
	Services *Services
	Router   http.Handler
}

// NewTestApp wires the application over the given stores without starting a
// server. It reads config.AppConfig, so callers load or set it first.
func NewTestApp(stores Stores, cache service.ICacheClient) (*TestApp, error) {
	services, err := NewServices(stores, cache)
	if err != nil {
		return nil, err
	}
	return &TestApp{
		Stores:   stores,
		Services: services,
		Router:   NewRouter(stores, services),
	}, nil
}
