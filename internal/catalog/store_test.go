package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
	"github.com/bigkaa/goartstore/media-catalog/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// recordingNotifier запоминает отправленные уведомления.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(kind notify.Kind, title, message string) notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	note := notify.Notification{Kind: kind, Title: title, Message: message}
	n.sent = append(n.sent, note)
	return note
}

func (n *recordingNotifier) last() notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return notify.Notification{}
	}
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// recordingReleaser запоминает освобождённые дескрипторы.
type recordingReleaser struct {
	mu       sync.Mutex
	released []string
}

func (r *recordingReleaser) Release(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, handle)
	return nil
}

func newTestStore() (*Store, *recordingNotifier, *recordingReleaser) {
	n := &recordingNotifier{}
	r := &recordingReleaser{}
	return New(n, r, testLogger()), n, r
}

// rec создаёт тестовую запись.
func rec(id, name string, category model.Category, tags ...string) *model.FileRecord {
	return &model.FileRecord{
		ID:          id,
		Name:        name,
		Size:        1024,
		ContentType: "application/octet-stream",
		DateAdded:   time.Now().UTC(),
		Location:    "blob-" + id,
		Category:    category,
		Tags:        tags,
	}
}

func ids(records []*model.FileRecord) []string {
	result := make([]string, len(records))
	for i, r := range records {
		result[i] = r.ID
	}
	return result
}

// expectedFiltered — эталонный фильтр для сравнения с производным представлением.
func expectedFiltered(all []*model.FileRecord, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]string, 0)
	for _, r := range all {
		if q == "" || strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(string(r.Category)), q) ||
			func() bool {
				for _, t := range r.Tags {
					if strings.Contains(strings.ToLower(t), q) {
						return true
					}
				}
				return false
			}() {
			result = append(result, r.ID)
		}
	}
	return result
}

// TestAddRecords проверяет добавление и уведомление.
func TestAddRecords(t *testing.T) {
	s, n, _ := newTestStore()

	added := s.AddRecords(rec("a", "a.png", model.CategoryImages), rec("b", "b.mp3", model.CategoryAudio))
	if added != 2 {
		t.Errorf("ожидалось 2 добавленных, получено %d", added)
	}
	if s.Count() != 2 {
		t.Errorf("ожидалось 2 записи, получено %d", s.Count())
	}
	if got := ids(s.All()); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ожидался порядок добавления [a b], получено %v", got)
	}

	last := n.last()
	if last.Kind != notify.KindSuccess || last.Message != "2 файл(ов) добавлено" {
		t.Errorf("неожиданное уведомление: %+v", last)
	}
}

// TestAddRecords_Empty проверяет, что пустой ввод не даёт уведомления.
func TestAddRecords_Empty(t *testing.T) {
	s, n, _ := newTestStore()

	if added := s.AddRecords(); added != 0 {
		t.Errorf("ожидалось 0, получено %d", added)
	}
	if n.count() != 0 {
		t.Errorf("пустое добавление не должно уведомлять, отправлено %d", n.count())
	}
}

// TestAddRecords_DuplicateSkipped проверяет, что существующий ID не перезаписывается.
func TestAddRecords_DuplicateSkipped(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "original.png", model.CategoryImages))

	out, err := s.Dispatch(AddRecordsOp{Records: []*model.FileRecord{rec("a", "dup.png", model.CategoryImages)}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Affected != 0 || len(out.Skipped) != 1 {
		t.Errorf("ожидался пропуск дубликата, получено %+v", out)
	}

	got, _ := s.Get("a")
	if got.Name != "original.png" {
		t.Errorf("запись перезаписана: %q", got.Name)
	}
}

// TestAddRecords_CopyOnWrite проверяет, что внешние изменения не влияют на каталог.
func TestAddRecords_CopyOnWrite(t *testing.T) {
	s, _, _ := newTestStore()
	r := rec("a", "a.png", model.CategoryImages, "x")
	s.AddRecords(r)

	r.Name = "changed"
	r.Tags[0] = "changed"

	got, _ := s.Get("a")
	if got.Name != "a.png" || got.Tags[0] != "x" {
		t.Errorf("каталог разделяет память с вызывающим кодом: %+v", got)
	}

	got.Name = "mutated"
	again, _ := s.Get("a")
	if again.Name != "a.png" {
		t.Error("Get должен возвращать копию")
	}
}

// TestAddRecords_InvalidCategoryInferred проверяет вывод категории при пустом значении.
func TestAddRecords_InvalidCategoryInferred(t *testing.T) {
	s, _, _ := newTestStore()
	r := rec("a", "a.mp4", "")
	r.ContentType = "video/mp4"
	s.AddRecords(r)

	got, _ := s.Get("a")
	if got.Category != model.CategoryVideos {
		t.Errorf("ожидалась категория videos, получено %q", got.Category)
	}
}

// TestDeleteRecords_PrunesSelectionAndPreview — пример из описания удаления:
// add A,B,C; select {A,C}; preview B; delete {B,C} ⇒ collection={A}, selection={A}, preview=nil.
func TestDeleteRecords_PrunesSelectionAndPreview(t *testing.T) {
	s, n, r := newTestStore()
	s.AddRecords(
		rec("A", "a.txt", model.CategoryDocuments),
		rec("B", "b.txt", model.CategoryDocuments),
		rec("C", "c.txt", model.CategoryDocuments),
	)
	_ = s.ToggleSelection("A")
	_ = s.ToggleSelection("C")
	_ = s.SetPreviewed("B")

	deleted := s.DeleteRecords("B", "C")
	if deleted != 2 {
		t.Errorf("ожидалось 2 удалённых, получено %d", deleted)
	}

	if got := ids(s.All()); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("коллекция: ожидалось [A], получено %v", got)
	}
	if got := ids(s.Filtered()); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("представление: ожидалось [A], получено %v", got)
	}
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("выбор: ожидалось [A], получено %v", got)
	}
	if s.Previewed() != nil {
		t.Error("предпросмотр должен быть сброшен")
	}

	if !reflect.DeepEqual(r.released, []string{"blob-B", "blob-C"}) {
		t.Errorf("ожидалось освобождение [blob-B blob-C], получено %v", r.released)
	}
	if n.last().Message != "2 файл(ов) удалено" {
		t.Errorf("неожиданное уведомление: %+v", n.last())
	}
}

// TestDeleteRecords_ActualCount проверяет подсчёт только реально удалённых.
func TestDeleteRecords_ActualCount(t *testing.T) {
	s, n, r := newTestStore()
	a := rec("a", "a.png", model.CategoryImages)
	a.Thumbnail = "thumb-a"
	s.AddRecords(a)

	deleted := s.DeleteRecords("a", "missing", "a")
	if deleted != 1 {
		t.Errorf("ожидалось 1 удалённая, получено %d", deleted)
	}
	if n.last().Message != "1 файл(ов) удалено" {
		t.Errorf("уведомление должно содержать фактическое число: %+v", n.last())
	}
	if !reflect.DeepEqual(r.released, []string{"blob-a", "thumb-a"}) {
		t.Errorf("должны освобождаться байты и миниатюра: %v", r.released)
	}

	// Повторное удаление ничего не освобождает
	s.DeleteRecords("a")
	if len(r.released) != 2 {
		t.Errorf("повторное удаление освободило дескрипторы: %v", r.released)
	}
}

// TestToggleFavorite_Involution проверяет возврат к исходному значению.
func TestToggleFavorite_Involution(t *testing.T) {
	s, n, _ := newTestStore()
	s.AddRecords(rec("a", "song.mp3", model.CategoryAudio))

	fav, err := s.ToggleFavorite("a")
	if err != nil || !fav {
		t.Fatalf("первое переключение: fav=%v err=%v", fav, err)
	}
	if n.last().Title != "Добавлено в избранное" || n.last().Message != "song.mp3" {
		t.Errorf("неожиданное уведомление: %+v", n.last())
	}

	fav, err = s.ToggleFavorite("a")
	if err != nil || fav {
		t.Fatalf("второе переключение: fav=%v err=%v", fav, err)
	}
	if n.last().Title != "Удалено из избранного" {
		t.Errorf("неожиданное уведомление: %+v", n.last())
	}

	got, _ := s.Get("a")
	if got.IsFavorite {
		t.Error("двойное переключение должно вернуть исходное значение")
	}
}

// TestToggleFavorite_Unknown проверяет отсутствие эффекта для неизвестного ID.
func TestToggleFavorite_Unknown(t *testing.T) {
	s, n, _ := newTestStore()

	_, err := s.ToggleFavorite("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if n.count() != 0 {
		t.Error("неизвестный ID не должен давать уведомление")
	}
}

// TestSearch_CaseInsensitive проверяет поиск по имени, тегам и категории.
func TestSearch_CaseInsensitive(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(
		rec("1", "Photo.JPG", model.CategoryImages),
		rec("2", "notes.txt", model.CategoryDocuments, "Работа"),
		rec("3", "track.mp3", model.CategoryAudio),
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"jpg", []string{"1"}},
		{"  PHOTO ", []string{"1"}},
		{"работа", []string{"2"}},
		{"AUDIO", []string{"3"}},
		{"docu", []string{"2"}},
		{"zzz", []string{}},
		{"", []string{"1", "2", "3"}},
		{"   ", []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		s.SetSearchQuery(tt.query)
		if got := ids(s.Filtered()); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("query %q: ожидалось %v, получено %v", tt.query, tt.want, got)
		}
	}

	s.SetSearchQuery("  jpg  ")
	if s.Query() != "jpg" {
		t.Errorf("запрос должен храниться обрезанным, получено %q", s.Query())
	}
}

// TestSearch_UnicodeFolding проверяет сравнение с учётом Unicode case folding.
func TestSearch_UnicodeFolding(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("1", "STRASSE.txt", model.CategoryDocuments))

	s.SetSearchQuery("straße")
	if got := ids(s.Filtered()); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("ожидалось совпадение по case folding, получено %v", got)
	}
}

// TestFilteredNeverStale проверяет, что представление всегда равно filter(коллекция, запрос)
// для случайной последовательности операций.
func TestFilteredNeverStale(t *testing.T) {
	s, _, _ := newTestStore()
	rng := rand.New(rand.NewSource(42))
	names := []string{"photo.jpg", "Report.PDF", "song.mp3", "clip.mp4", "notes.txt"}
	categories := model.Categories
	queries := []string{"", "p", "PDF", "o", "  mp ", "images", "zzz"}

	next := 0
	for step := 0; step < 300; step++ {
		switch rng.Intn(5) {
		case 0, 1:
			next++
			s.AddRecords(rec(fmt.Sprintf("r%d", next), names[rng.Intn(len(names))], categories[rng.Intn(len(categories))]))
		case 2:
			all := s.All()
			if len(all) > 0 {
				s.DeleteRecords(all[rng.Intn(len(all))].ID)
			}
		case 3:
			s.SetSearchQuery(queries[rng.Intn(len(queries))])
		case 4:
			all := s.All()
			if len(all) > 0 {
				_, _ = s.Recategorize([]string{all[rng.Intn(len(all))].ID}, categories[rng.Intn(len(categories))])
			}
		}

		want := expectedFiltered(s.All(), s.Query())
		if got := ids(s.Filtered()); !reflect.DeepEqual(got, want) {
			t.Fatalf("шаг %d: представление устарело: ожидалось %v, получено %v", step, want, got)
		}
	}
}

// TestRecategorize_IgnoresUnknown проверяет частичное применение к существующим ID.
func TestRecategorize_IgnoresUnknown(t *testing.T) {
	s, n, _ := newTestStore()
	s.AddRecords(rec("X", "x.bin", model.CategoryOther))

	affected, err := s.Recategorize([]string{"X", "Y"}, model.CategoryDocuments)
	if err != nil {
		t.Fatalf("Recategorize: %v", err)
	}
	if affected != 1 {
		t.Errorf("ожидалась 1 затронутая запись, получено %d", affected)
	}

	got, _ := s.Get("X")
	if got.Category != model.CategoryDocuments {
		t.Errorf("категория X не изменена: %q", got.Category)
	}
	if _, err := s.Get("Y"); !errors.Is(err, ErrNotFound) {
		t.Error("Y не должен появиться в каталоге")
	}
	if n.last().Message != "1 файл(ов) перемещено в documents" {
		t.Errorf("неожиданное уведомление: %+v", n.last())
	}
}

// TestRecategorize_NothingMatched проверяет предупреждение при отсутствии совпадений.
func TestRecategorize_NothingMatched(t *testing.T) {
	s, n, _ := newTestStore()

	affected, err := s.Recategorize([]string{"missing"}, model.CategoryImages)
	if err != nil || affected != 0 {
		t.Fatalf("affected=%d err=%v", affected, err)
	}
	if n.last().Kind != notify.KindWarning {
		t.Errorf("ожидалось предупреждение, получено %+v", n.last())
	}
}

// TestRecategorize_InvalidCategory проверяет отклонение категории вне набора.
func TestRecategorize_InvalidCategory(t *testing.T) {
	s, n, _ := newTestStore()
	s.AddRecords(rec("a", "a.bin", model.CategoryOther))
	before := n.count()

	_, err := s.Recategorize([]string{"a"}, model.Category("music"))
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("ожидалась ErrInvalidCategory, получено %v", err)
	}
	if n.count() != before {
		t.Error("отклонённая операция не должна уведомлять")
	}
}

// TestRecordsByCategory_RoundTrip проверяет выборку до и после смены категории.
func TestRecordsByCategory_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "a.png", model.CategoryImages), rec("b", "b.mp3", model.CategoryAudio))

	images, err := s.RecordsByCategory(model.Facet(model.CategoryImages))
	if err != nil {
		t.Fatalf("RecordsByCategory: %v", err)
	}
	if got := ids(images); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("images: ожидалось [a], получено %v", got)
	}

	_, _ = s.Recategorize([]string{"a"}, model.CategoryDocuments)

	images, _ = s.RecordsByCategory(model.Facet(model.CategoryImages))
	if len(images) != 0 {
		t.Errorf("запись не должна оставаться в старой категории: %v", ids(images))
	}
	docs, _ := s.RecordsByCategory(model.Facet(model.CategoryDocuments))
	if got := ids(docs); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("documents: ожидалось [a], получено %v", got)
	}
}

// TestRecordsByCategory_Facets проверяет фасеты all и favorites.
func TestRecordsByCategory_Facets(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "a.png", model.CategoryImages), rec("b", "b.mp3", model.CategoryAudio))
	_, _ = s.ToggleFavorite("b")

	all, _ := s.RecordsByCategory(model.FacetAll)
	if len(all) != 2 {
		t.Errorf("all: ожидалось 2, получено %d", len(all))
	}
	favs, _ := s.RecordsByCategory(model.FacetFavorites)
	if got := ids(favs); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("favorites: ожидалось [b], получено %v", got)
	}
	if _, err := s.RecordsByCategory(model.Facet("music")); !errors.Is(err, ErrInvalidFacet) {
		t.Errorf("ожидалась ErrInvalidFacet, получено %v", err)
	}
}

// TestSelection проверяет переключение и очистку выбора.
func TestSelection(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "a", model.CategoryOther), rec("b", "b", model.CategoryOther))

	_ = s.ToggleSelection("b")
	_ = s.ToggleSelection("a")
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("ожидался порядок выбора [b a], получено %v", got)
	}

	_ = s.ToggleSelection("b")
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ожидалось [a], получено %v", got)
	}

	if err := s.ToggleSelection("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("выбор неизвестного ID: ожидалась ErrNotFound, получено %v", err)
	}

	s.ClearSelection()
	if len(s.Selection()) != 0 {
		t.Error("выбор должен быть пуст")
	}
}

// TestSetPreviewed проверяет установку и сброс предпросмотра.
func TestSetPreviewed(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "a.png", model.CategoryImages))

	if err := s.SetPreviewed("a"); err != nil {
		t.Fatalf("SetPreviewed: %v", err)
	}
	if p := s.Previewed(); p == nil || p.ID != "a" {
		t.Errorf("ожидался предпросмотр a, получено %+v", p)
	}
	if err := s.SetPreviewed("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
	if p := s.Previewed(); p == nil || p.ID != "a" {
		t.Error("ошибка не должна менять предпросмотр")
	}
	if err := s.SetPreviewed(""); err != nil || s.Previewed() != nil {
		t.Errorf("сброс предпросмотра: err=%v", err)
	}
}

// TestUpdateRecord проверяет переименование и замену тегов.
func TestUpdateRecord(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "old.txt", model.CategoryDocuments))
	s.SetSearchQuery("vacation")

	tags := []string{" vacation ", "2026", "vacation"}
	name := "  new.txt "
	got, err := s.UpdateRecord("a", &name, &tags)
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if got.Name != "new.txt" {
		t.Errorf("ожидалось имя new.txt, получено %q", got.Name)
	}
	if !reflect.DeepEqual(got.Tags, []string{"vacation", "2026"}) {
		t.Errorf("теги не нормализованы: %v", got.Tags)
	}
	if len(s.Filtered()) != 1 {
		t.Error("представление должно учитывать новые теги")
	}

	empty := "  "
	if _, err := s.UpdateRecord("a", &empty, nil); !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("пустое имя: ожидалась ErrInvalidUpdate, получено %v", err)
	}
	if _, err := s.UpdateRecord("missing", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestFacetCounts проверяет счётчики боковой панели.
func TestFacetCounts(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(
		rec("a", "a", model.CategoryImages),
		rec("b", "b", model.CategoryImages),
		rec("c", "c", model.CategoryAudio),
	)
	_, _ = s.ToggleFavorite("c")

	fc := s.FacetCounts()
	if fc.All != 3 || fc.Favorites != 1 {
		t.Errorf("неожиданные счётчики: %+v", fc)
	}
	if fc.Categories[model.CategoryImages] != 2 || fc.Categories[model.CategoryVideos] != 0 {
		t.Errorf("неожиданные счётчики категорий: %v", fc.Categories)
	}
}

// TestHandles проверяет множество живых дескрипторов.
func TestHandles(t *testing.T) {
	s, _, _ := newTestStore()
	a := rec("a", "a", model.CategoryImages)
	a.Thumbnail = "thumb-a"
	s.AddRecords(a, rec("b", "b", model.CategoryOther))

	h := s.Handles()
	for _, want := range []string{"blob-a", "thumb-a", "blob-b"} {
		if _, ok := h[want]; !ok {
			t.Errorf("дескриптор %s отсутствует", want)
		}
	}
}

// TestSubscribe_Changes проверяет события изменений.
func TestSubscribe_Changes(t *testing.T) {
	s, _, _ := newTestStore()

	var got []Change
	unsub := s.Subscribe(func(c Change) { got = append(got, c) })
	defer unsub()

	s.AddRecords(rec("a", "a", model.CategoryOther))
	_, _ = s.ToggleFavorite("missing")
	s.DeleteRecords("a")

	if len(got) != 2 {
		t.Fatalf("ожидалось 2 события, получено %d: %+v", len(got), got)
	}
	if got[0].Operation != "add_records" || got[1].Operation != "delete_records" {
		t.Errorf("неожиданные события: %+v", got)
	}
}

// TestConcurrentOperations проверяет потокобезопасность.
func TestConcurrentOperations(t *testing.T) {
	s, _, _ := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", i)
			s.AddRecords(rec(id, id+".png", model.CategoryImages))
			_, _ = s.ToggleFavorite(id)
		}(i)
		go func() {
			defer wg.Done()
			s.SetSearchQuery("png")
			_ = s.Filtered()
		}()
		go func() {
			defer wg.Done()
			_ = s.FacetCounts()
			_ = s.All()
		}()
	}
	wg.Wait()

	if s.Count() != 20 {
		t.Errorf("ожидалось 20 записей, получено %d", s.Count())
	}
}

// TestDispatch_UpdateRecordOp проверяет прямую отправку операции обновления.
func TestDispatch_UpdateRecordOp(t *testing.T) {
	s, _, _ := newTestStore()
	s.AddRecords(rec("a", "old.txt", model.CategoryDocuments))

	var got []Change
	unsub := s.Subscribe(func(c Change) { got = append(got, c) })
	defer unsub()

	name := "renamed.txt"
	tags := []string{"work"}
	op := UpdateRecordOp{ID: "a", NewName: &name, NewTags: &tags}
	if op.Name() != "update_record" {
		t.Errorf("неожиданное имя операции: %s", op.Name())
	}
	if _, err := s.Dispatch(op); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	r, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Name != "renamed.txt" || !reflect.DeepEqual(r.Tags, []string{"work"}) {
		t.Errorf("запись не обновлена: %+v", r)
	}

	// nil-поля не меняют запись.
	if _, err := s.Dispatch(UpdateRecordOp{ID: "a"}); err != nil {
		t.Fatalf("Dispatch без полей: %v", err)
	}
	if r, _ := s.Get("a"); r.Name != "renamed.txt" {
		t.Errorf("имя не должно меняться: %q", r.Name)
	}

	if len(got) == 0 || got[0].Operation != "update_record" {
		t.Errorf("ожидалось событие update_record: %+v", got)
	}
}

// TestRecordsGauge_Concurrent проверяет, что после параллельных операций
// gauge записей совпадает с фактическим числом записей по категориям.
func TestRecordsGauge_Concurrent(t *testing.T) {
	s, _, _ := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("img%d", i)
			s.AddRecords(rec(id, id+".png", model.CategoryImages))
		}(i)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc%d", i)
			s.AddRecords(rec(id, id+".txt", model.CategoryDocuments))
			if i%2 == 0 {
				s.DeleteRecords(id)
			}
		}(i)
	}
	wg.Wait()

	counts := s.FacetCounts().Categories
	for _, c := range []model.Category{model.CategoryImages, model.CategoryDocuments} {
		got := testutil.ToFloat64(recordsTotal.WithLabelValues(string(c)))
		if int(got) != counts[c] {
			t.Errorf("gauge %s = %v, записей %d", c, got, counts[c])
		}
	}
	if counts[model.CategoryImages] != 50 || counts[model.CategoryDocuments] != 25 {
		t.Errorf("неожиданные счётчики: %v", counts)
	}
}
