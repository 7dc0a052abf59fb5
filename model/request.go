// file: model/request.go

package model

// ExecuteTransactionRequest is the payload for posting a movement. Amount is a
// decimal string so no precision is lost in JSON decoding. Which account ids
// are required depends on the kind; that is checked by the ledger, not here.
type ExecuteTransactionRequest struct {
	Kind                 string `json:"kind" validate:"required,max=32"`
	Amount               string `json:"amount" validate:"required,numeric"`
	SourceAccountID      string `json:"source_account_id,omitempty" validate:"omitempty,max=64"`
	DestinationAccountID string `json:"destination_account_id,omitempty" validate:"omitempty,max=64"`
}

// OpenAccountRequest defines the payload for opening a new account for an existing client.
type OpenAccountRequest struct {
	OwnerID string `json:"owner_id" validate:"required,max=64"`
	Label   string `json:"label,omitempty" validate:"omitempty,max=100"`
}
