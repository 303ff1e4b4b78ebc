// category.go — категории файлов и фасеты навигации.
package model

import (
	"fmt"
	"strings"
)

// Category — категория файла. Фиксированный набор значений.
type Category string

const (
	CategoryImages    Category = "images"
	CategoryVideos    Category = "videos"
	CategoryAudio     Category = "audio"
	CategoryDocuments Category = "documents"
	CategoryOther     Category = "other"
)

// Categories — все категории в порядке отображения в боковой панели.
var Categories = []Category{
	CategoryImages,
	CategoryVideos,
	CategoryAudio,
	CategoryDocuments,
	CategoryOther,
}

// Facet — выбор навигации: все файлы, избранное или конкретная категория.
type Facet string

const (
	FacetAll       Facet = "all"
	FacetFavorites Facet = "favorites"
)

// IsValid проверяет, входит ли категория в допустимый набор.
func (c Category) IsValid() bool {
	switch c {
	case CategoryImages, CategoryVideos, CategoryAudio, CategoryDocuments, CategoryOther:
		return true
	default:
		return false
	}
}

// ParseCategory преобразует строку в Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("недопустимая категория: %q, допустимые: images, videos, audio, documents, other", s)
	}
	return c, nil
}

// ParseFacet преобразует строку в Facet. Пустая строка — FacetAll.
func ParseFacet(s string) (Facet, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return FacetAll, nil
	case Facet(s) == FacetAll, Facet(s) == FacetFavorites:
		return Facet(s), nil
	case Category(s).IsValid():
		return Facet(s), nil
	default:
		return "", fmt.Errorf("недопустимый фасет: %q", s)
	}
}

// Matches проверяет, попадает ли запись в фасет.
func (f Facet) Matches(r *FileRecord) bool {
	switch f {
	case FacetAll:
		return true
	case FacetFavorites:
		return r.IsFavorite
	default:
		return r.Category == Category(f)
	}
}

// InferCategory определяет начальную категорию по заявленному MIME-типу.
//
//	image/*          → images
//	video/*          → videos
//	audio/*          → audio
//	*pdf*, text/*    → documents
//	остальное        → other
func InferCategory(contentType string) Category {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImages
	case strings.HasPrefix(ct, "video/"):
		return CategoryVideos
	case strings.HasPrefix(ct, "audio/"):
		return CategoryAudio
	case strings.Contains(ct, "pdf"), strings.HasPrefix(ct, "text/"):
		return CategoryDocuments
	default:
		return CategoryOther
	}
}
