package model

import (
	"strings"
	"time"
)

// Client is the owner of one or more accounts.
type Client struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns "<last name> <first name>", the form printed on statements.
func (c *Client) DisplayName() string {
	return strings.TrimSpace(c.LastName + " " + c.FirstName)
}
