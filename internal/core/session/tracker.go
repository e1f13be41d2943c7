package session

import (
	"errors"
	"fmt"
	"time"

	"dish-suggester/internal/core/dish"
	"dish-suggester/internal/pkg/common"
)

// State 推薦狀態
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateDisplaying State = "displaying"
	StateFailed     State = "failed"
)

var (
	// ErrInvalidTransition 目前狀態不允許此操作
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// Ticket 一次推薦請求的憑證，只有最新的 RequestID 能更新狀態
type Ticket struct {
	RequestID string
	Excluded  []string
}

// Tracker 單一 session 的推薦狀態機與排除清單。
// Tracker 本身不保證併發安全，由 Manager 以 session 鎖序列化存取。
type Tracker struct {
	id             string
	state          State
	excluded       []string
	current        *dish.SuggestionResponse
	lastSuccessful *dish.SuggestionResponse
	lastError      string
	pendingID      string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewTracker 創建 Idle 狀態的 Tracker
func NewTracker(id string) *Tracker {
	now := time.Now()
	return &Tracker{
		id:        id,
		state:     StateIdle,
		excluded:  []string{},
		createdAt: now,
		updatedAt: now,
	}
}

// ID 回傳 session ID
func (t *Tracker) ID() string { return t.id }

// State 回傳目前狀態
func (t *Tracker) State() State { return t.state }

// Current 回傳目前顯示中的推薦，非 Displaying 時為 nil
func (t *Tracker) Current() *dish.SuggestionResponse { return t.current.Clone() }

// LastSuccessful 回傳最近一次成功的推薦
func (t *Tracker) LastSuccessful() *dish.SuggestionResponse { return t.lastSuccessful.Clone() }

// LastError 回傳最近一次失敗的訊息
func (t *Tracker) LastError() string { return t.lastError }

// PendingRequestID 回傳進行中的請求 ID
func (t *Tracker) PendingRequestID() string { return t.pendingID }

// Excluded 回傳排除清單的複本
func (t *Tracker) Excluded() []string {
	return append([]string{}, t.excluded...)
}

// Start Idle → Loading，以目前（初始為空）的排除清單發出請求
func (t *Tracker) Start() (Ticket, error) {
	if t.state != StateIdle {
		return Ticket{}, fmt.Errorf("start from %s: %w", t.state, ErrInvalidTransition)
	}
	return t.begin(), nil
}

// Reroll Displaying/Failed → Loading，沿用累積的排除清單
func (t *Tracker) Reroll() (Ticket, error) {
	if t.state != StateDisplaying && t.state != StateFailed {
		return Ticket{}, fmt.Errorf("reroll from %s: %w", t.state, ErrInvalidTransition)
	}
	return t.begin(), nil
}

// Supersede 在 Loading 中重新發出請求，舊請求的結果將被忽略
func (t *Tracker) Supersede() (Ticket, error) {
	if t.state != StateLoading {
		return Ticket{}, fmt.Errorf("supersede from %s: %w", t.state, ErrInvalidTransition)
	}
	return t.begin(), nil
}

func (t *Tracker) begin() Ticket {
	t.state = StateLoading
	t.pendingID = common.GenerateUUID()
	t.touch()
	return Ticket{RequestID: t.pendingID, Excluded: t.Excluded()}
}

// OnSuccess 套用成功結果；requestID 不是最新請求時忽略並回傳 false
func (t *Tracker) OnSuccess(requestID string, resp *dish.SuggestionResponse) bool {
	if !t.accepts(requestID) || resp == nil {
		return false
	}
	t.state = StateDisplaying
	t.current = resp.Clone()
	t.lastSuccessful = resp.Clone()
	t.lastError = ""
	t.pendingID = ""
	if !dish.ContainsDish(t.excluded, resp.DishName) {
		t.excluded = append(t.excluded, resp.DishName)
	}
	t.touch()
	return true
}

// OnFailure 套用失敗結果；排除清單與最近一次成功的推薦保持不變
func (t *Tracker) OnFailure(requestID string, err error) bool {
	if !t.accepts(requestID) {
		return false
	}
	t.state = StateFailed
	t.current = nil
	t.lastError = "unknown error"
	if err != nil {
		t.lastError = err.Error()
	}
	t.pendingID = ""
	t.touch()
	return true
}

func (t *Tracker) accepts(requestID string) bool {
	return t.state == StateLoading && requestID != "" && requestID == t.pendingID
}

func (t *Tracker) touch() {
	t.updatedAt = time.Now()
}

// Snapshot 可序列化的 Tracker 狀態
type Snapshot struct {
	ID                string                   `json:"id"`
	State             State                    `json:"state"`
	ExcludedDishNames []string                 `json:"excluded_dish_names"`
	Current           *dish.SuggestionResponse `json:"current,omitempty"`
	LastSuccessful    *dish.SuggestionResponse `json:"last_successful,omitempty"`
	LastError         string                   `json:"last_error,omitempty"`
	PendingRequestID  string                   `json:"pending_request_id,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// Clone 深拷貝
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.ExcludedDishNames = append([]string{}, s.ExcludedDishNames...)
	out.Current = s.Current.Clone()
	out.LastSuccessful = s.LastSuccessful.Clone()
	return &out
}

// Snapshot 匯出目前狀態
func (t *Tracker) Snapshot() *Snapshot {
	return &Snapshot{
		ID:                t.id,
		State:             t.state,
		ExcludedDishNames: t.Excluded(),
		Current:           t.current.Clone(),
		LastSuccessful:    t.lastSuccessful.Clone(),
		LastError:         t.lastError,
		PendingRequestID:  t.pendingID,
		CreatedAt:         t.createdAt,
		UpdatedAt:         t.updatedAt,
	}
}

// Restore 由快照還原 Tracker
func Restore(s *Snapshot) (*Tracker, error) {
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("snapshot has no session id")
	}
	switch s.State {
	case StateIdle, StateDisplaying, StateFailed:
	case StateLoading:
		if s.PendingRequestID == "" {
			return nil, fmt.Errorf("loading snapshot has no pending request id")
		}
	default:
		return nil, fmt.Errorf("unknown session state %q", s.State)
	}

	t := &Tracker{
		id:             s.ID,
		state:          s.State,
		excluded:       make([]string, 0, len(s.ExcludedDishNames)),
		current:        s.Current.Clone(),
		lastSuccessful: s.LastSuccessful.Clone(),
		lastError:      s.LastError,
		pendingID:      s.PendingRequestID,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
	for _, name := range s.ExcludedDishNames {
		if !dish.ContainsDish(t.excluded, name) {
			t.excluded = append(t.excluded, name)
		}
	}
	if t.state != StateLoading {
		t.pendingID = ""
	}
	return t, nil
}
