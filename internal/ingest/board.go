// board.go — панель загрузок: последнее состояние каждого принятого
// файла по событиям конвейера.
package ingest

import (
	"sync"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/upload"
)

// Entry — строка панели загрузок.
type Entry struct {
	Ref       string        `json:"ref"`
	BatchID   string        `json:"batch_id"`
	Name      string        `json:"name"`
	Status    upload.Status `json:"status"`
	Progress  int           `json:"progress"`
	Error     string        `json:"error,omitempty"`
	RecordID  string        `json:"record_id,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Board собирает состояние загрузок из событий EventStage.
// Отклонённые файлы на панель не попадают.
type Board struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string

	unsubscribe func()
}

// NewBoard создаёт панель и подписывает её на события конвейера.
func NewBoard(p *Pipeline) *Board {
	b := &Board{entries: make(map[string]*Entry)}
	b.unsubscribe = p.Subscribe(b.apply)
	return b
}

// Close отписывает панель от конвейера.
func (b *Board) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

func (b *Board) apply(ev Event) {
	if ev.Kind != EventStage {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[ev.Ref]
	if !ok {
		e = &Entry{Ref: ev.Ref, BatchID: ev.BatchID, Name: ev.Name}
		b.entries[ev.Ref] = e
		b.order = append(b.order, ev.Ref)
	}
	// Конечную стадию не перезаписываем запоздавшим событием.
	if e.Status == upload.StatusComplete || e.Status == upload.StatusError {
		return
	}
	e.Status = ev.Status
	if ev.Progress > e.Progress {
		e.Progress = ev.Progress
	}
	e.Error = ev.Error
	if ev.RecordID != "" {
		e.RecordID = ev.RecordID
	}
	e.UpdatedAt = ev.At
}

// List возвращает строки в порядке появления.
func (b *Board) List() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(b.order))
	for _, ref := range b.order {
		out = append(out, *b.entries[ref])
	}
	return out
}

// ClearCompleted убирает строки в стадии complete и возвращает их число.
func (b *Board) ClearCompleted() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.order[:0]
	removed := 0
	for _, ref := range b.order {
		if b.entries[ref].Status == upload.StatusComplete {
			delete(b.entries, ref)
			removed++
			continue
		}
		kept = append(kept, ref)
	}
	b.order = kept
	return removed
}
