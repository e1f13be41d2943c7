package session

import (
	"context"
	"errors"
	"fmt"

	"dish-suggester/internal/infrastructure/config"
)

var (
	// ErrSessionNotFound session 不存在或已過期
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreFull 儲存空間已滿
	ErrStoreFull = errors.New("session store is full")
)

// Store session 快照儲存
type Store interface {
	Get(ctx context.Context, id string) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewStore 依設定建立 session 儲存
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		return NewRedisStore(ctx, cfg)
	case config.SessionStoreMemory, "":
		return NewMemoryStore(cfg.Session), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Session.Store)
	}
}
