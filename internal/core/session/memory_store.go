package session

import (
	"context"
	"sync"
	"time"

	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 記憶體 session 儲存，具 TTL、定期清理與 LRU 淘汰
type MemoryStore struct {
	config config.SessionConfig
	mu     sync.Mutex
	store  map[string]storeEntry
	stats  storeStats
	done   chan struct{}
	once   sync.Once
}

// storeEntry 儲存條目
type storeEntry struct {
	snapshot    *Snapshot
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// storeStats 儲存統計
type storeStats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

// NewMemoryStore 創建記憶體儲存並啟動清理協程
func NewMemoryStore(cfg config.SessionConfig) *MemoryStore {
	s := &MemoryStore{
		config: cfg,
		store:  make(map[string]storeEntry),
		done:   make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go s.startCleanup()
	}

	common.LogInfo("Session 儲存已初始化",
		zap.Int("max_sessions", cfg.MaxSessions),
		zap.Duration("ttl", cfg.TTL),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	return s
}

// Get 取得 session 快照，存取時延長存活時間
func (s *MemoryStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.store[id]
	if !exists {
		s.stats.misses++
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		delete(s.store, id)
		s.stats.evictions++
		s.stats.misses++
		return nil, ErrSessionNotFound
	}

	entry.lastAccess = now
	entry.accessCount++
	entry.expiresAt = now.Add(s.config.TTL)
	s.store[id] = entry
	s.stats.hits++

	return entry.snapshot.Clone(), nil
}

// Save 儲存 session 快照
func (s *MemoryStore) Save(ctx context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.store[snapshot.ID]
	if !exists && s.config.MaxSessions > 0 && len(s.store) >= s.config.MaxSessions {
		evicted := s.cleanup()
		common.LogInfo("Session 清理執行", zap.Int("evicted", evicted))

		if len(s.store) >= s.config.MaxSessions {
			s.evictLRU()
		}

		if len(s.store) >= s.config.MaxSessions {
			s.stats.errors++
			common.LogWarn("Session 儲存已滿", zap.Int("size", len(s.store)))
			return ErrStoreFull
		}
	}

	now := time.Now()
	entry.snapshot = snapshot.Clone()
	entry.expiresAt = now.Add(s.config.TTL)
	entry.lastAccess = now
	s.store[snapshot.ID] = entry

	return nil
}

// Delete 刪除 session
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, id)
	return nil
}

// startCleanup 啟動清理過期 session 的協程
func (s *MemoryStore) startCleanup() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.cleanup()
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// cleanup 清理過期的 session，呼叫端需持有鎖
func (s *MemoryStore) cleanup() int {
	now := time.Now()
	count := 0

	for id, entry := range s.store {
		if now.After(entry.expiresAt) {
			delete(s.store, id)
			count++
			s.stats.evictions++
		}
	}

	if count > 0 {
		common.LogInfo("Cleaned up expired sessions",
			zap.Int("count", count),
			zap.Int64("total_evictions", s.stats.evictions),
			zap.Int("remaining_size", len(s.store)),
		)
	}

	return count
}

// evictLRU 淘汰最少使用的 session，呼叫端需持有鎖
func (s *MemoryStore) evictLRU() {
	var oldestID string
	var oldestAccess time.Time
	var lowestAccessCount int

	for id, entry := range s.store {
		if oldestID == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestID = id
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestID != "" {
		delete(s.store, oldestID)
		s.stats.evictions++
		common.LogInfo("Session 已淘汰(LRU)", zap.String("session_id", oldestID))
	}
}

// Stats 取得儲存統計
func (s *MemoryStore) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratio := 0.0
	if total := s.stats.hits + s.stats.misses; total > 0 {
		ratio = float64(s.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"size":      len(s.store),
		"max_size":  s.config.MaxSessions,
		"hits":      s.stats.hits,
		"misses":    s.stats.misses,
		"evictions": s.stats.evictions,
		"errors":    s.stats.errors,
		"hit_ratio": ratio,
	}
}

// Close 停止清理協程並清空儲存
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = make(map[string]storeEntry)
	common.LogInfo("Session 儲存已關閉",
		zap.Int64("hits", s.stats.hits),
		zap.Int64("misses", s.stats.misses),
		zap.Int64("evictions", s.stats.evictions),
	)
	return nil
}
