package cron

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/pkg/redis"
)

// Locker guards a named job so only one worker runs it at a time.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error)
}

// RedisLock implements Locker with a SETNX marker holding an owner token.
// Release only deletes the key when this worker still owns it, so an
// expired lock taken over by another worker is never clobbered.
type RedisLock struct {
	redis *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{redis: client}
}

func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := redis.Key("cron", "lock", name)
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, ttl)
	if err != nil || !ok {
		return nil, false, err
	}

	release := func() {
		current, found, err := l.redis.Get(context.Background(), key)
		if err != nil || !found || current != token {
			return
		}
		_ = l.redis.Del(context.Background(), key)
	}
	return release, true, nil
}

// NopLocker always grants the lock. Used in single-process setups and tests.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
