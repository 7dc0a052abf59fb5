package repository

import (
	"context"
	"database/sql"
	"errors"

	"go-ledger-api/logger"
	"go-ledger-api/model"
)

type ClientRepository struct {
	DB *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{DB: db}
}

// GetClientByID retrieves the owner record used for authorization and statements.
func (r *ClientRepository) GetClientByID(ctx context.Context, id string) (*model.Client, error) {
	client := &model.Client{}
	query := `SELECT id, first_name, last_name, email, phone, address, created_at FROM clients WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&client.ID, &client.FirstName, &client.LastName, &client.Email, &client.Phone, &client.Address, &client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		logger.Log.WithError(err).WithField("client_id", id).Error("Failed to execute get client by ID query")
		return nil, err
	}
	return client, nil
}
