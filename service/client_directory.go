package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-ledger-api/logger"
	"go-ledger-api/model"
	"go-ledger-api/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultClientTTL = 10 * time.Minute

// ClientDirectory resolves account owners. Lookups go through Redis when a
// cache client is configured (cache-aside), and concurrent misses for the same
// client share a single repository call.
type ClientDirectory struct {
	repo  repository.IClientRepository
	cache ICacheClient
	ttl   time.Duration
	group singleflight.Group
}

// NewClientDirectory creates a directory. cache may be nil, in which case every
// lookup hits the repository.
func NewClientDirectory(repo repository.IClientRepository, cache ICacheClient, ttl time.Duration) *ClientDirectory {
	if ttl <= 0 {
		ttl = defaultClientTTL
	}
	return &ClientDirectory{repo: repo, cache: cache, ttl: ttl}
}

func clientCacheKey(id string) string {
	return fmt.Sprintf("clients:%s", id)
}

// GetClient returns the client with the given id, or ErrClientNotFound.
func (d *ClientDirectory) GetClient(ctx context.Context, id string) (*model.Client, error) {
	if client, ok := d.fromCache(ctx, id); ok {
		return client, nil
	}

	// The shared lookup outlives any single caller: a cancelled request must
	// not fail the other callers waiting on the same id.
	lookupCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(id, func() (interface{}, error) {
		client, err := d.repo.GetClientByID(lookupCtx, id)
		if err != nil {
			return nil, err
		}
		d.store(lookupCtx, client)
		return client, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, storageFailure(err)
	}

	client := *v.(*model.Client)
	return &client, nil
}

// Invalidate drops the cached copy of a client.
func (d *ClientDirectory) Invalidate(ctx context.Context, id string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Del(ctx, clientCacheKey(id)).Err(); err != nil {
		logger.Log.WithError(err).WithField("client_id", id).Warn("Failed to invalidate cached client")
	}
}

func (d *ClientDirectory) fromCache(ctx context.Context, id string) (*model.Client, bool) {
	if d.cache == nil {
		return nil, false
	}
	log := logger.Log.WithField("client_id", id)

	cached, err := d.cache.Get(ctx, clientCacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("Client cache read failed, falling back to repository")
		}
		return nil, false
	}

	var client model.Client
	if err := json.Unmarshal([]byte(cached), &client); err != nil {
		log.WithError(err).Warn("Discarding undecodable cached client")
		return nil, false
	}
	log.Debug("Client cache hit")
	return &client, true
}

func (d *ClientDirectory) store(ctx context.Context, client *model.Client) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(client)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, clientCacheKey(client.ID), data, d.ttl).Err(); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"client_id": client.ID,
			"ttl":       d.ttl,
		}).WithError(err).Warn("Failed to cache client")
	}
}
