// Пакет viewstate — независимое хранилище состояния представления:
// активный фасет, раскладка, свёрнутая боковая панель, видимость
// панели загрузки. Не зависит от каталога.
package viewstate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// Layout — раскладка списка файлов.
type Layout string

const (
	LayoutGrid Layout = "grid"
	LayoutList Layout = "list"
)

// ParseLayout преобразует строку в Layout.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutGrid, LayoutList:
		return l, nil
	default:
		return "", fmt.Errorf("недопустимая раскладка: %q, допустимые: grid, list", s)
	}
}

// View — снимок состояния представления.
type View struct {
	ActiveFacet        model.Facet `json:"active_facet"`
	Layout             Layout      `json:"layout"`
	SidebarCollapsed   bool        `json:"sidebar_collapsed"`
	UploadPanelVisible bool        `json:"upload_panel_visible"`
}

// Patch — частичное обновление. nil-поля не изменяются.
type Patch struct {
	ActiveFacet        *string `json:"active_facet,omitempty"`
	Layout             *string `json:"layout,omitempty"`
	SidebarCollapsed   *bool   `json:"sidebar_collapsed,omitempty"`
	UploadPanelVisible *bool   `json:"upload_panel_visible,omitempty"`
}

// Defaults возвращает начальное состояние: all, grid, панель развёрнута,
// панель загрузки скрыта.
func Defaults() View {
	return View{
		ActiveFacet: model.FacetAll,
		Layout:      LayoutGrid,
	}
}

// Store — потокобезопасное хранилище состояния представления.
type Store struct {
	mu   sync.RWMutex
	view View
}

// New создаёт хранилище с начальным состоянием.
func New() *Store {
	return &Store{view: Defaults()}
}

// Get возвращает снимок состояния.
func (s *Store) Get() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetActiveFacet задаёт активный фасет.
func (s *Store) SetActiveFacet(facet string) error {
	f, err := model.ParseFacet(facet)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.view.ActiveFacet = f
	s.mu.Unlock()
	return nil
}

// SetLayout задаёт раскладку.
func (s *Store) SetLayout(layout string) error {
	l, err := ParseLayout(layout)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.view.Layout = l
	s.mu.Unlock()
	return nil
}

// ToggleSidebar переключает боковую панель и возвращает новое значение.
func (s *Store) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SidebarCollapsed = !s.view.SidebarCollapsed
	return s.view.SidebarCollapsed
}

// SetUploadPanelVisible показывает или скрывает панель загрузки.
func (s *Store) SetUploadPanelVisible(visible bool) {
	s.mu.Lock()
	s.view.UploadPanelVisible = visible
	s.mu.Unlock()
}

// Apply атомарно применяет частичное обновление.
// При ошибке валидации состояние не меняется.
func (s *Store) Apply(p Patch) (View, error) {
	var (
		facet  model.Facet
		layout Layout
		err    error
	)
	if p.ActiveFacet != nil {
		if facet, err = model.ParseFacet(*p.ActiveFacet); err != nil {
			return View{}, err
		}
	}
	if p.Layout != nil {
		if layout, err = ParseLayout(*p.Layout); err != nil {
			return View{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ActiveFacet != nil {
		s.view.ActiveFacet = facet
	}
	if p.Layout != nil {
		s.view.Layout = layout
	}
	if p.SidebarCollapsed != nil {
		s.view.SidebarCollapsed = *p.SidebarCollapsed
	}
	if p.UploadPanelVisible != nil {
		s.view.UploadPanelVisible = *p.UploadPanelVisible
	}
	return s.view, nil
}
