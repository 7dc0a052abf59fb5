package service

import (
	"context"
	"errors"
	"strings"

	"go-ledger-api/logger"
	"go-ledger-api/model"

	"github.com/sirupsen/logrus"
)

// accessPolicy decides whether a caller may act on an account. Privileged
// roles may act on any account; everyone else must be the account owner,
// matched on email without regard to case.
type accessPolicy struct {
	clients *ClientDirectory
}

func (p accessPolicy) authorize(ctx context.Context, account *model.Account, role model.Role, identity string) error {
	if role.IsPrivileged() {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"role":       role,
		"identity":   identity,
	})

	if strings.TrimSpace(identity) == "" {
		log.Warn("Access denied: no caller identity")
		return ErrAccessDenied
	}

	owner, err := p.clients.GetClient(ctx, account.OwnerID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			log.Warn("Access denied: account owner not found")
			return ErrAccessDenied
		}
		return err
	}

	if !strings.EqualFold(owner.Email, identity) {
		log.Warn("Access denied: caller does not own the account")
		return ErrAccessDenied
	}
	return nil
}
