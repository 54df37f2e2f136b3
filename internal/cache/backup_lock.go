package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/catalog-s3/internal/config"
)

const (
	backupLockKey     = "catalog:backup:lock"
	defaultBackupLock = 30 * time.Minute
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only while it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// BackupLock serializes backup runs. TryAcquire never blocks: ok is false
// when another run holds the lock.
type BackupLock interface {
	TryAcquire(ctx context.Context) (release func(context.Context), ok bool, err error)
}

type redisBackupLock struct {
	client *redis.Client
	ttl    time.Duration
}

type localBackupLock struct {
	mu sync.Mutex
}

// NewBackupLock returns a Redis lock shared by every instance when the cache
// is enabled, and an in-process lock otherwise. The Redis lock is renewed
// every ttl/3 while held, so ttl only bounds how long a crashed holder
// blocks other runs.
func NewBackupLock(cfg config.CacheConfig, ttl time.Duration) (BackupLock, error) {
	if !cfg.Enabled {
		return NewLocalBackupLock(), nil
	}

	client, _, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return newRedisBackupLock(client, ttl), nil
}

func newRedisBackupLock(client *redis.Client, ttl time.Duration) *redisBackupLock {
	if ttl <= 0 {
		ttl = defaultBackupLock
	}
	return &redisBackupLock{client: client, ttl: ttl}
}

func NewLocalBackupLock() BackupLock {
	return &localBackupLock{}
}

func (l *redisBackupLock) TryAcquire(ctx context.Context) (func(context.Context), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, backupLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(token, stop, done)

	return l.releaseFunc(token, stop, done), true, nil
}

// releaseFunc stops renewal and deletes the key if it still holds token.
func (l *redisBackupLock) releaseFunc(token string, stop chan<- struct{}, done <-chan struct{}) func(context.Context) {
	var once sync.Once
	return func(ctx context.Context) {
		once.Do(func() {
			close(stop)
			<-done
			if err := releaseScript.Run(ctx, l.client, []string{backupLockKey}, token).Err(); err != nil {
				log.Warn().Err(err).Dur("ttl", l.ttl).Msg("backup lock: release failed, the lock expires after its ttl")
			}
		})
	}
}

func (l *redisBackupLock) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			renewed, err := renewScript.Run(ctx, l.client, []string{backupLockKey}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("backup lock: renewal failed")
				continue
			}
			if renewed == 0 {
				log.Warn().Msg("backup lock: lost before the run finished")
				return
			}
		}
	}
}

func (l *localBackupLock) TryAcquire(ctx context.Context) (func(context.Context), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	release := func(context.Context) {
		once.Do(l.mu.Unlock)
	}
	return release, true, nil
}
