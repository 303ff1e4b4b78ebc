// state.go — состояние каталога и производное представление поиска.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// State — состояние каталога. Изменяется только через reduce
// под эксклюзивной блокировкой Store.
type State struct {
	// records — коллекция в порядке добавления
	records []*model.FileRecord
	// byID — индекс по ID
	byID map[string]*model.FileRecord
	// selection — выбранные ID в порядке выбора
	selection []string
	// previewID — ID записи в предпросмотре ("" — нет)
	previewID string
	// query — нормализованный (обрезанный) поисковый запрос
	query string
	// filtered — производное представление: записи, подходящие под query
	filtered []*model.FileRecord
}

// newState создаёт пустое состояние.
func newState() *State {
	return &State{
		byID: make(map[string]*model.FileRecord),
	}
}

// recomputeFiltered пересчитывает представление из (records, query).
// Пустой запрос — вся коллекция в порядке добавления.
func (s *State) recomputeFiltered() {
	if s.query == "" {
		s.filtered = append(s.filtered[:0], s.records...)
		return
	}

	m := newMatcher(s.query)
	filtered := make([]*model.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		if m.matches(rec) {
			filtered = append(filtered, rec)
		}
	}
	s.filtered = filtered
}

// isSelected проверяет, выбрана ли запись.
func (s *State) isSelected(id string) bool {
	for _, v := range s.selection {
		if v == id {
			return true
		}
	}
	return false
}

// pruneSelection удаляет из выбора ID, которых нет в коллекции.
func (s *State) pruneSelection() {
	kept := s.selection[:0]
	for _, id := range s.selection {
		if _, ok := s.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	s.selection = kept
}

// matcher — регистронезависимое сравнение подстрок с Unicode case folding.
type matcher struct {
	caser  cases.Caser
	needle string
}

func newMatcher(query string) *matcher {
	m := &matcher{caser: cases.Fold()}
	m.needle = m.fold(query)
	return m
}

func (m *matcher) fold(s string) string {
	return m.caser.String(norm.NFC.String(s))
}

// matches — совпадение по имени, любому тегу или названию категории.
func (m *matcher) matches(rec *model.FileRecord) bool {
	if strings.Contains(m.fold(rec.Name), m.needle) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(m.fold(tag), m.needle) {
			return true
		}
	}
	return strings.Contains(m.fold(string(rec.Category)), m.needle)
}
