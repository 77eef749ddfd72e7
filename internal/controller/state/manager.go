package state

import (
	"errors"
	"sync"

	"github.com/Freeeeeet/telemed_bot/internal/booking"
)

// ErrNoBookingSession у пользователя нет активного мастера записи
var ErrNoBookingSession = errors.New("no booking session")

// session мастер записи одного пользователя. Мастер не потокобезопасен,
// поэтому все обращения идут под mu
type session struct {
	mu   sync.Mutex
	orch *booking.Orchestrator
}

// Manager управляет состояниями пользователей
type Manager struct {
	mu       sync.RWMutex
	states   map[int64]*UserData // telegramID -> UserData
	sessions map[int64]*session  // telegramID -> мастер записи
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states:   make(map[int64]*UserData),
		sessions: make(map[int64]*session),
	}
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState устанавливает состояние пользователя
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	if _, exists := sm.states[telegramID]; !exists {
		sm.states[telegramID] = &UserData{
			State: state,
			Data:  make(map[string]interface{}),
		}
	} else {
		sm.states[telegramID].State = state
	}
}

// GetData получает временные данные пользователя
func (sm *Manager) GetData(telegramID int64, key string) (interface{}, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return nil, false
}

// GetString строковое значение из временных данных
func (sm *Manager) GetString(telegramID int64, key string) (string, bool) {
	v, ok := sm.GetData(telegramID, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetData устанавливает временные данные пользователя
func (sm *Manager) SetData(telegramID int64, key string, value interface{}) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.states[telegramID]; !exists {
		sm.states[telegramID] = &UserData{
			State: StateNone,
			Data:  make(map[string]interface{}),
		}
	}
	sm.states[telegramID].Data[key] = value
}

// ClearState очищает состояние и данные пользователя. Мастер записи не трогает
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// StartBooking заводит новый мастер записи, заменяя предыдущий
func (sm *Manager) StartBooking(telegramID int64, orch *booking.Orchestrator) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions[telegramID] = &session{orch: orch}
}

// Booking выполняет fn над мастером записи пользователя
func (sm *Manager) Booking(telegramID int64, fn func(*booking.Orchestrator) error) error {
	sm.mu.RLock()
	s, ok := sm.sessions[telegramID]
	sm.mu.RUnlock()
	if !ok {
		return ErrNoBookingSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.orch)
}

// HasBooking есть ли у пользователя активный мастер записи
func (sm *Manager) HasBooking(telegramID int64) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, ok := sm.sessions[telegramID]
	return ok
}

// EndBooking завершает мастер записи
func (sm *Manager) EndBooking(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, telegramID)
}

// Reset сбрасывает и диалог, и мастер записи
func (sm *Manager) Reset(telegramID int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, hadState := sm.states[telegramID]
	_, hadSession := sm.sessions[telegramID]
	delete(sm.states, telegramID)
	delete(sm.sessions, telegramID)
	return hadState || hadSession
}
