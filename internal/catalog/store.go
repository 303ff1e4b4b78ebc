// Пакет catalog — авторитетное in-memory хранилище каталога файлов.
//
// Store владеет коллекцией записей, поисковым запросом, производным
// представлением поиска, набором выбранных записей и указателем
// предпросмотра. Каждая операция — один атомарный переход под
// эксклюзивной блокировкой; чтение идёт под RLock и возвращает копии.
//
// Не персистентный: состояние живёт только в рамках сессии.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/media-catalog/internal/broker"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
)

var (
	// ErrNotFound — запись с указанным ID отсутствует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalidCategory — категория вне допустимого набора.
	ErrInvalidCategory = errors.New("недопустимая категория")
	// ErrInvalidFacet — фасет вне допустимого набора.
	ErrInvalidFacet = errors.New("недопустимый фасет")
	// ErrInvalidUpdate — некорректные поля обновления.
	ErrInvalidUpdate = errors.New("некорректное обновление")
)

// Prometheus метрики каталога
var (
	// recordsTotal — текущее количество записей по категориям.
	recordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mc_records_total",
			Help: "Текущее количество записей каталога",
		},
		[]string{"category"},
	)

	// operationsTotal — количество операций каталога.
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_operations_total",
			Help: "Общее количество операций каталога",
		},
		[]string{"operation", "result"},
	)
)

// Releaser освобождает дескрипторы blob-хранилища удалённых записей.
type Releaser interface {
	Release(handle string) error
}

// Change — событие об изменении состояния каталога.
type Change struct {
	Operation string   `json:"operation"`
	IDs       []string `json:"ids,omitempty"`
}

// FacetCounts — счётчики для боковой панели.
type FacetCounts struct {
	All        int                    `json:"all"`
	Favorites  int                    `json:"favorites"`
	Categories map[model.Category]int `json:"categories"`
}

// Store — потокобезопасное хранилище каталога.
type Store struct {
	mu       sync.RWMutex
	state    *State
	notifier notify.Notifier
	releaser Releaser
	changes  *broker.Broker[Change]
	logger   *slog.Logger
}

// New создаёт пустой каталог.
// notifier и releaser могут быть nil (например, в тестах).
func New(notifier notify.Notifier, releaser Releaser, logger *slog.Logger) *Store {
	return &Store{
		state:    newState(),
		notifier: notifier,
		releaser: releaser,
		changes:  broker.New[Change]("catalog.changes", logger),
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// Dispatch применяет операцию как один атомарный переход.
// После снятия блокировки освобождает дескрипторы удалённых записей,
// отправляет уведомление и событие Change.
func (s *Store) Dispatch(op Operation) (Outcome, error) {
	s.mu.Lock()
	out, err := reduce(s.state, op)
	if err == nil && out.recompute {
		s.state.recomputeFiltered()
	}
	// Gauge выставляется под блокировкой, в порядке применения операций.
	if err == nil && out.changed {
		counts := s.state.categoryCounts()
		for _, c := range model.Categories {
			recordsTotal.WithLabelValues(string(c)).Set(float64(counts[c]))
		}
	}
	s.mu.Unlock()

	if err != nil {
		operationsTotal.WithLabelValues(op.Name(), "error").Inc()
		s.logger.Debug("Операция отклонена",
			slog.String("operation", op.Name()),
			slog.String("error", err.Error()),
		)
		return out, err
	}
	operationsTotal.WithLabelValues(op.Name(), "ok").Inc()

	for _, id := range out.Skipped {
		s.logger.Warn("Запись с существующим ID пропущена", slog.String("id", id))
	}

	s.release(out.released)

	if out.notice != nil && s.notifier != nil {
		s.notifier.Notify(out.notice.kind, out.notice.title, out.notice.message)
	}

	if out.changed {
		s.changes.Publish(Change{Operation: op.Name(), IDs: out.IDs})
	}

	return out, nil
}

// release освобождает дескрипторы. Ошибки логируются: запись уже удалена,
// осиротевшие байты подберёт GC.
func (s *Store) release(handles []string) {
	if s.releaser == nil {
		return
	}
	for _, h := range handles {
		if err := s.releaser.Release(h); err != nil {
			s.logger.Error("Ошибка освобождения blob",
				slog.String("handle", h),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Subscribe подписывает обработчик на изменения каталога.
func (s *Store) Subscribe(handler func(Change)) (unsubscribe func()) {
	return s.changes.Subscribe(handler)
}

// --- Операции ---

// AddRecords добавляет записи и возвращает число добавленных.
func (s *Store) AddRecords(records ...*model.FileRecord) int {
	out, _ := s.Dispatch(AddRecordsOp{Records: records})
	return out.Affected
}

// DeleteRecords удаляет записи и возвращает число удалённых.
func (s *Store) DeleteRecords(ids ...string) int {
	out, _ := s.Dispatch(DeleteRecordsOp{IDs: ids})
	return out.Affected
}

// ToggleFavorite переключает избранное и возвращает новое значение флага.
func (s *Store) ToggleFavorite(id string) (bool, error) {
	out, err := s.Dispatch(ToggleFavoriteOp{ID: id})
	return out.Favorite, err
}

// Recategorize назначает категорию и возвращает число затронутых записей.
func (s *Store) Recategorize(ids []string, category model.Category) (int, error) {
	out, err := s.Dispatch(RecategorizeOp{IDs: ids, Category: category})
	return out.Affected, err
}

// UpdateRecord применяет частичное обновление и возвращает копию записи.
func (s *Store) UpdateRecord(id string, name *string, tags *[]string) (*model.FileRecord, error) {
	if _, err := s.Dispatch(UpdateRecordOp{ID: id, NewName: name, NewTags: tags}); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// SetSearchQuery задаёт поисковый запрос.
func (s *Store) SetSearchQuery(query string) {
	_, _ = s.Dispatch(SetSearchQueryOp{Query: query})
}

// SetPreviewed задаёт запись предпросмотра ("" — сбросить).
func (s *Store) SetPreviewed(id string) error {
	_, err := s.Dispatch(SetPreviewedOp{ID: id})
	return err
}

// ToggleSelection переключает выбор записи.
func (s *Store) ToggleSelection(id string) error {
	_, err := s.Dispatch(ToggleSelectionOp{ID: id})
	return err
}

// ClearSelection очищает выбор.
func (s *Store) ClearSelection() {
	_, _ = s.Dispatch(ClearSelectionOp{})
}

// --- Чтение ---

// Get возвращает копию записи.
func (s *Store) Get(id string) (*model.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.state.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// All возвращает копии всех записей в порядке добавления.
func (s *Store) All() []*model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.state.records)
}

// Filtered возвращает копию производного представления поиска.
func (s *Store) Filtered() []*model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.state.filtered)
}

// RecordsByCategory возвращает записи фасета из всей коллекции.
func (s *Store) RecordsByCategory(facet model.Facet) ([]*model.FileRecord, error) {
	f, err := model.ParseFacet(string(facet))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFacet, facet)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.FileRecord, 0)
	for _, rec := range s.state.records {
		if f.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}
	return result, nil
}

// Query возвращает текущий поисковый запрос.
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.query
}

// Selection возвращает выбранные ID в порядке выбора.
func (s *Store) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.state.selection))
	copy(result, s.state.selection)
	return result
}

// Previewed возвращает копию записи предпросмотра или nil.
func (s *Store) Previewed() *model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.previewID == "" {
		return nil
	}
	return s.state.byID[s.state.previewID].Clone()
}

// Count возвращает количество записей.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.records)
}

// FacetCounts возвращает счётчики фасетов.
func (s *Store) FacetCounts() FacetCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := FacetCounts{
		All:        len(s.state.records),
		Categories: s.state.categoryCounts(),
	}
	for _, rec := range s.state.records {
		if rec.IsFavorite {
			fc.Favorites++
		}
	}
	return fc
}

// Handles возвращает множество дескрипторов, принадлежащих живым записям.
func (s *Store) Handles() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]struct{}, len(s.state.records)*2)
	for _, rec := range s.state.records {
		for _, h := range rec.Handles() {
			result[h] = struct{}{}
		}
	}
	return result
}

// categoryCounts считает записи по категориям. Вызывается под блокировкой.
func (s *State) categoryCounts() map[model.Category]int {
	counts := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = 0
	}
	for _, rec := range s.records {
		counts[rec.Category]++
	}
	return counts
}

func cloneAll(records []*model.FileRecord) []*model.FileRecord {
	result := make([]*model.FileRecord, len(records))
	for i, rec := range records {
		result[i] = rec.Clone()
	}
	return result
}
