// operations.go — операции каталога и функция перехода reduce.
//
// Каждая операция — отдельный тип. reduce применяет ровно одну операцию
// к состоянию и возвращает Outcome: сколько записей затронуто, какое
// уведомление отправить и какие дескрипторы освободить. Побочные эффекты
// выполняет Store после снятия блокировки.
package catalog

import (
	"fmt"
	"strings"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
)

// Operation — операция над каталогом.
type Operation interface {
	// Name — имя операции для метрик и логов.
	Name() string
}

// AddRecordsOp добавляет записи. Записи с уже существующим ID пропускаются.
type AddRecordsOp struct {
	Records []*model.FileRecord
}

// DeleteRecordsOp удаляет записи по ID. Неизвестные ID игнорируются.
type DeleteRecordsOp struct {
	IDs []string
}

// ToggleFavoriteOp переключает флаг избранного.
type ToggleFavoriteOp struct {
	ID string
}

// RecategorizeOp назначает категорию записям. Неизвестные ID игнорируются.
type RecategorizeOp struct {
	IDs      []string
	Category model.Category
}

// UpdateRecordOp переименовывает запись и/или заменяет теги.
// nil-поля не изменяются.
type UpdateRecordOp struct {
	ID      string
	NewName *string
	NewTags *[]string
}

// SetSearchQueryOp задаёт поисковый запрос.
type SetSearchQueryOp struct {
	Query string
}

// SetPreviewedOp задаёт запись для предпросмотра ("" — сбросить).
type SetPreviewedOp struct {
	ID string
}

// ToggleSelectionOp добавляет запись в выбор или убирает из него.
type ToggleSelectionOp struct {
	ID string
}

// ClearSelectionOp очищает выбор.
type ClearSelectionOp struct{}

func (AddRecordsOp) Name() string      { return "add_records" }
func (DeleteRecordsOp) Name() string   { return "delete_records" }
func (ToggleFavoriteOp) Name() string  { return "toggle_favorite" }
func (RecategorizeOp) Name() string    { return "recategorize" }
func (UpdateRecordOp) Name() string    { return "update_record" }
func (SetSearchQueryOp) Name() string  { return "set_search_query" }
func (SetPreviewedOp) Name() string    { return "set_previewed" }
func (ToggleSelectionOp) Name() string { return "toggle_selection" }
func (ClearSelectionOp) Name() string  { return "clear_selection" }

// notice — уведомление, которое Store отправит после перехода.
type notice struct {
	kind    notify.Kind
	title   string
	message string
}

// Outcome — результат применения операции.
type Outcome struct {
	// Affected — число записей, к которым операция реально применена
	Affected int
	// IDs — ID затронутых записей
	IDs []string
	// Favorite — новое значение флага (только ToggleFavoriteOp)
	Favorite bool
	// Skipped — ID, пропущенные при добавлении как дубликаты
	Skipped []string

	notice    *notice
	released  []string
	recompute bool
	changed   bool
}

// reduce применяет операцию к состоянию. При ошибке состояние не меняется.
func reduce(s *State, op Operation) (Outcome, error) {
	switch op := op.(type) {
	case AddRecordsOp:
		return s.addRecords(op), nil
	case DeleteRecordsOp:
		return s.deleteRecords(op), nil
	case ToggleFavoriteOp:
		return s.toggleFavorite(op)
	case RecategorizeOp:
		return s.recategorize(op)
	case UpdateRecordOp:
		return s.updateRecord(op)
	case SetSearchQueryOp:
		return s.setSearchQuery(op), nil
	case SetPreviewedOp:
		return s.setPreviewed(op)
	case ToggleSelectionOp:
		return s.toggleSelection(op)
	case ClearSelectionOp:
		s.selection = nil
		return Outcome{changed: true}, nil
	default:
		return Outcome{}, fmt.Errorf("неизвестная операция каталога: %T", op)
	}
}

func (s *State) addRecords(op AddRecordsOp) Outcome {
	out := Outcome{}
	if len(op.Records) == 0 {
		return out
	}

	for _, rec := range op.Records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, exists := s.byID[rec.ID]; exists {
			out.Skipped = append(out.Skipped, rec.ID)
			continue
		}

		copied := rec.Clone()
		copied.Tags = model.NormalizeTags(copied.Tags)
		if !copied.Category.IsValid() {
			copied.Category = model.InferCategory(copied.ContentType)
		}

		s.records = append(s.records, copied)
		s.byID[copied.ID] = copied
		out.IDs = append(out.IDs, copied.ID)
	}

	out.Affected = len(out.IDs)
	if out.Affected > 0 {
		out.recompute = true
		out.changed = true
		out.notice = &notice{
			kind:    notify.KindSuccess,
			title:   "Файлы загружены",
			message: fmt.Sprintf("%d файл(ов) добавлено", out.Affected),
		}
	}
	return out
}

func (s *State) deleteRecords(op DeleteRecordsOp) Outcome {
	out := Outcome{}

	remove := make(map[string]struct{}, len(op.IDs))
	for _, id := range op.IDs {
		if _, ok := s.byID[id]; ok {
			remove[id] = struct{}{}
		}
	}

	if len(remove) > 0 {
		kept := make([]*model.FileRecord, 0, len(s.records)-len(remove))
		for _, rec := range s.records {
			if _, ok := remove[rec.ID]; ok {
				out.IDs = append(out.IDs, rec.ID)
				out.released = append(out.released, rec.Handles()...)
				delete(s.byID, rec.ID)
				continue
			}
			kept = append(kept, rec)
		}
		s.records = kept
		s.pruneSelection()
		if _, ok := remove[s.previewID]; ok {
			s.previewID = ""
		}
		out.recompute = true
		out.changed = true
	}

	out.Affected = len(out.IDs)
	out.notice = &notice{
		kind:    notify.KindSuccess,
		title:   "Файлы удалены",
		message: fmt.Sprintf("%d файл(ов) удалено", out.Affected),
	}
	return out
}

func (s *State) toggleFavorite(op ToggleFavoriteOp) (Outcome, error) {
	rec, ok := s.byID[op.ID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, op.ID)
	}

	rec.IsFavorite = !rec.IsFavorite

	title := "Удалено из избранного"
	if rec.IsFavorite {
		title = "Добавлено в избранное"
	}
	return Outcome{
		Affected: 1,
		IDs:      []string{rec.ID},
		Favorite: rec.IsFavorite,
		changed:  true,
		notice:   &notice{kind: notify.KindSuccess, title: title, message: rec.Name},
	}, nil
}

func (s *State) recategorize(op RecategorizeOp) (Outcome, error) {
	if !op.Category.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidCategory, op.Category)
	}

	out := Outcome{}
	seen := make(map[string]struct{}, len(op.IDs))
	for _, id := range op.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec, ok := s.byID[id]
		if !ok {
			continue
		}
		rec.Category = op.Category
		out.IDs = append(out.IDs, id)
	}
	out.Affected = len(out.IDs)

	if out.Affected == 0 {
		out.notice = &notice{
			kind:    notify.KindWarning,
			title:   "Категория не изменена",
			message: "Ни один из выбранных файлов не найден",
		}
		return out, nil
	}

	out.recompute = true
	out.changed = true
	out.notice = &notice{
		kind:    notify.KindSuccess,
		title:   "Категория изменена",
		message: fmt.Sprintf("%d файл(ов) перемещено в %s", out.Affected, op.Category),
	}
	return out, nil
}

func (s *State) updateRecord(op UpdateRecordOp) (Outcome, error) {
	rec, ok := s.byID[op.ID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, op.ID)
	}

	var name string
	if op.NewName != nil {
		name = strings.TrimSpace(*op.NewName)
		if name == "" {
			return Outcome{}, fmt.Errorf("%w: имя не может быть пустым", ErrInvalidUpdate)
		}
	}

	if op.NewName != nil {
		rec.Name = name
	}
	if op.NewTags != nil {
		rec.Tags = model.NormalizeTags(*op.NewTags)
	}

	return Outcome{
		Affected:  1,
		IDs:       []string{rec.ID},
		recompute: true,
		changed:   true,
	}, nil
}

func (s *State) setSearchQuery(op SetSearchQueryOp) Outcome {
	s.query = strings.TrimSpace(op.Query)
	return Outcome{recompute: true, changed: true}
}

func (s *State) setPreviewed(op SetPreviewedOp) (Outcome, error) {
	if op.ID != "" {
		if _, ok := s.byID[op.ID]; !ok {
			return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, op.ID)
		}
	}
	s.previewID = op.ID
	return Outcome{changed: true}, nil
}

func (s *State) toggleSelection(op ToggleSelectionOp) (Outcome, error) {
	if _, ok := s.byID[op.ID]; !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, op.ID)
	}

	if s.isSelected(op.ID) {
		kept := s.selection[:0]
		for _, id := range s.selection {
			if id != op.ID {
				kept = append(kept, id)
			}
		}
		s.selection = kept
	} else {
		s.selection = append(s.selection, op.ID)
	}
	return Outcome{Affected: 1, IDs: []string{op.ID}, changed: true}, nil
}
