// Пакет upload — конечный автомат стадий приёма одного файла.
//
// Жизненный цикл: uploading → processing → complete | error.
// Из uploading допустим переход сразу в error (сбой передачи, отмена).
// complete и error — конечные состояния.
//
// Прогресс передачи (0..100) монотонно не убывает и меняется только
// в стадии uploading. Потокобезопасен через sync.RWMutex.
package upload

import (
	"fmt"
	"sync"
	"time"
)

// Status — стадия приёма файла.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Коды ошибок автомата.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidProgress   = "INVALID_PROGRESS"
)

// TransitionRecord — запись о смене стадии.
type TransitionRecord struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// State — снимок состояния автомата.
type State struct {
	Status   Status
	Progress int
	Error    string
}

// validTransitions — матрица допустимых переходов.
var validTransitions = map[Status]map[Status]bool{
	StatusUploading:  {StatusProcessing: true, StatusError: true},
	StatusProcessing: {StatusComplete: true, StatusError: true},
	StatusComplete:   {},
	StatusError:      {},
}

// StateMachine — автомат стадий одного файла.
type StateMachine struct {
	mu       sync.RWMutex
	current  Status
	progress int
	errMsg   string
	history  []TransitionRecord
}

// NewStateMachine создаёт автомат в стадии uploading с прогрессом 0.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StatusUploading,
		history: make([]TransitionRecord, 0, 3),
	}
}

// Current возвращает снимок текущего состояния.
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return State{Status: sm.current, Progress: sm.progress, Error: sm.errMsg}
}

// IsTerminal возвращает true для complete и error.
func (sm *StateMachine) IsTerminal() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return isTerminal(sm.current)
}

// SetProgress обновляет прогресс передачи.
//
// Ошибки:
//   - INVALID_TRANSITION — автомат не в стадии uploading
//   - INVALID_PROGRESS — значение вне 0..100 или меньше текущего
func (sm *StateMachine) SetProgress(percent int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current != StatusUploading {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("прогресс нельзя менять в стадии %s", sm.current),
		}
	}
	if percent < 0 || percent > 100 {
		return &TransitionError{
			Code:    CodeInvalidProgress,
			Message: fmt.Sprintf("прогресс %d вне диапазона 0..100", percent),
		}
	}
	if percent < sm.progress {
		return &TransitionError{
			Code:    CodeInvalidProgress,
			Message: fmt.Sprintf("прогресс не может уменьшаться: %d → %d", sm.progress, percent),
		}
	}
	sm.progress = percent
	return nil
}

// TransitionTo выполняет переход в указанную стадию.
// Переход в processing фиксирует прогресс на 100.
// Для перехода в error используйте Fail.
func (sm *StateMachine) TransitionTo(target Status) error {
	if target == StatusError {
		return sm.Fail("")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.checkTransition(target); err != nil {
		return err
	}
	if target == StatusProcessing {
		sm.progress = 100
	}
	sm.apply(target)
	return nil
}

// Fail переводит автомат в error с сообщением.
// Пустое сообщение заменяется на "Загрузка не удалась".
func (sm *StateMachine) Fail(message string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.checkTransition(StatusError); err != nil {
		return err
	}
	if message == "" {
		message = "Загрузка не удалась"
	}
	sm.errMsg = message
	sm.apply(StatusError)
	return nil
}

// History возвращает историю переходов (копия).
func (sm *StateMachine) History() []TransitionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]TransitionRecord, len(sm.history))
	copy(result, sm.history)
	return result
}

func (sm *StateMachine) checkTransition(target Status) error {
	if !isValidStatus(target) {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимая стадия: %q", target),
		}
	}
	if !validTransitions[sm.current][target] {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("переход %s → %s недопустим", sm.current, target),
		}
	}
	return nil
}

func (sm *StateMachine) apply(target Status) {
	sm.history = append(sm.history, TransitionRecord{
		From:      sm.current,
		To:        target,
		Timestamp: time.Now().UTC(),
	})
	sm.current = target
}

// TransitionError — ошибка перехода между стадиями.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION, INVALID_PROGRESS)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusComplete, StatusError:
		return true
	default:
		return false
	}
}

func isTerminal(s Status) bool {
	return s == StatusComplete || s == StatusError
}
