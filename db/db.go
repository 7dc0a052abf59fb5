package db

import (
	"database/sql"
	"fmt"

	"go-ledger-api/config"
	"go-ledger-api/logger"

	_ "github.com/lib/pq"
)

// ConnectionString builds the lib/pq keyword/value DSN from the database config.
func ConnectionString(withPassword bool) string {
	cfg := config.AppConfig.Database
	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Name, cfg.SSLMode)
	if withPassword {
		connStr += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return connStr
}

func Connect() (*sql.DB, error) {
	logger.Log.WithField("connection", ConnectionString(false)).Info("Attempting to connect to the database")

	db, err := sql.Open("postgres", ConnectionString(true))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = db.Ping(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping database")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}
