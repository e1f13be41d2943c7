package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dish-suggester/internal/core/dish"
	"dish-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrSuggestionInFlight 同一 session 已有推薦請求進行中
	ErrSuggestionInFlight = errors.New("a suggestion is already in progress for this session")
	// ErrStaleRequest 請求已被較新的請求取代，結果不會套用
	ErrStaleRequest = errors.New("suggestion request was superseded by a newer one")
)

// Suggester 推薦器
type Suggester interface {
	RequestSuggestion(ctx context.Context, tod dish.TimeOfDay, excludedDishNames []string) (*dish.SuggestionResponse, error)
}

// Manager 管理 session 生命週期，並序列化同一 session 的推薦請求
type Manager struct {
	store     Store
	suggester Suggester
	now       func() time.Time

	mu       sync.Mutex
	locks    map[string]*sessionLock
	inflight map[string]inflightRequest
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type inflightRequest struct {
	requestID string
	cancel    context.CancelFunc
}

// NewManager 創建 session 管理器，now 為 nil 時使用 time.Now
func NewManager(store Store, suggester Suggester, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:     store,
		suggester: suggester,
		now:       now,
		locks:     make(map[string]*sessionLock),
		inflight:  make(map[string]inflightRequest),
	}
}

// Create 建立新的 session
func (m *Manager) Create(ctx context.Context) (*Snapshot, error) {
	tracker := NewTracker(common.GenerateUUID())
	snapshot := tracker.Snapshot()
	if err := m.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	common.LogDebug("Session created", zap.String("session_id", snapshot.ID))
	return snapshot, nil
}

// Get 取得 session 狀態
func (m *Manager) Get(ctx context.Context, id string) (*Snapshot, error) {
	return m.store.Get(ctx, id)
}

// Delete 取消進行中的請求並刪除 session
func (m *Manager) Delete(ctx context.Context, id string) error {
	l := m.lock(id)
	defer m.unlock(id, l)

	m.mu.Lock()
	if req, ok := m.inflight[id]; ok {
		req.cancel()
		delete(m.inflight, id)
	}
	m.mu.Unlock()

	return m.store.Delete(ctx, id)
}

// Suggest 為 session 取得下一道推薦。
// Idle 時開始第一次請求，Displaying/Failed 時重新推薦；
// Loading 時除非 force 為 true，否則回傳 ErrSuggestionInFlight。
func (m *Manager) Suggest(ctx context.Context, id string, force bool) (*dish.SuggestionResponse, *Snapshot, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticket, err := m.begin(ctx, id, force, cancel)
	if err != nil {
		return nil, nil, err
	}

	tod := dish.CurrentTimeOfDay(m.now)
	resp, suggestErr := m.suggester.RequestSuggestion(callCtx, tod, ticket.Excluded)

	return m.finish(ctx, id, ticket, resp, suggestErr)
}

// begin 在 session 鎖內切換至 Loading、儲存並登記進行中的請求
func (m *Manager) begin(ctx context.Context, id string, force bool, cancel context.CancelFunc) (Ticket, error) {
	l := m.lock(id)
	defer m.unlock(id, l)

	snapshot, err := m.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	tracker, err := Restore(snapshot)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	var ticket Ticket
	switch tracker.State() {
	case StateIdle:
		ticket, err = tracker.Start()
	case StateLoading:
		// 沒有本程序的進行中請求時，視為遺留的 Loading 狀態直接取代
		if !force && m.hasInflight(id) {
			return Ticket{}, ErrSuggestionInFlight
		}
		ticket, err = tracker.Supersede()
	default:
		ticket, err = tracker.Reroll()
	}
	if err != nil {
		return Ticket{}, err
	}

	if err := m.store.Save(ctx, tracker.Snapshot()); err != nil {
		return Ticket{}, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	if prev, ok := m.inflight[id]; ok {
		prev.cancel()
	}
	m.inflight[id] = inflightRequest{requestID: ticket.RequestID, cancel: cancel}
	m.mu.Unlock()

	return ticket, nil
}

// finish 在 session 鎖內套用結果；非最新請求的結果會被忽略
func (m *Manager) finish(ctx context.Context, id string, ticket Ticket, resp *dish.SuggestionResponse, suggestErr error) (*dish.SuggestionResponse, *Snapshot, error) {
	l := m.lock(id)
	defer m.unlock(id, l)

	m.mu.Lock()
	if req, ok := m.inflight[id]; ok && req.requestID == ticket.RequestID {
		delete(m.inflight, id)
	}
	m.mu.Unlock()

	// 請求本身的 context 可能已取消，仍需寫回狀態
	storeCtx := context.WithoutCancel(ctx)

	snapshot, err := m.store.Get(storeCtx, id)
	if err != nil {
		return nil, nil, err
	}
	tracker, err := Restore(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	var applied bool
	if suggestErr != nil {
		applied = tracker.OnFailure(ticket.RequestID, suggestErr)
	} else {
		applied = tracker.OnSuccess(ticket.RequestID, resp)
	}
	if !applied {
		common.LogInfo("Ignoring stale suggestion result",
			zap.String("session_id", id),
			zap.String("request_id", ticket.RequestID),
		)
		return nil, tracker.Snapshot(), ErrStaleRequest
	}

	snapshot = tracker.Snapshot()
	if err := m.store.Save(storeCtx, snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}

	if suggestErr != nil {
		return nil, snapshot, suggestErr
	}
	return snapshot.Current, snapshot, nil
}

func (m *Manager) hasInflight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[id]
	return ok
}

func (m *Manager) lock(id string) *sessionLock {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) unlock(id string, l *sessionLock) {
	l.mu.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.mu.Unlock()
}

// Close 取消所有進行中的請求並關閉儲存
func (m *Manager) Close() error {
	m.mu.Lock()
	for id, req := range m.inflight {
		req.cancel()
		delete(m.inflight, id)
	}
	m.mu.Unlock()

	return m.store.Close()
}
