// dto.go — JSON-представления доменных моделей.
package handlers

import (
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/catalog"
	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// fileResponse — запись каталога в ответе API.
type fileResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	DateModified time.Time         `json:"date_modified"`
	DateAdded    time.Time         `json:"date_added"`
	Category     model.Category    `json:"category"`
	Tags         []string          `json:"tags"`
	IsFavorite   bool              `json:"is_favorite"`
	Checksum     string            `json:"checksum,omitempty"`
	Metadata     *metadataResponse `json:"metadata,omitempty"`
	ContentURL   string            `json:"content_url"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
}

// metadataResponse — плоское представление варианта метаданных.
// Заполняются только поля, относящиеся к Kind.
type metadataResponse struct {
	Kind            model.MetadataKind `json:"kind"`
	Width           int                `json:"width,omitempty"`
	Height          int                `json:"height,omitempty"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	SampleRate      int                `json:"sample_rate,omitempty"`
	Channels        int                `json:"channels,omitempty"`
	Bitrate         int                `json:"bitrate,omitempty"`
	Lines           int                `json:"lines,omitempty"`
	Encoding        string             `json:"encoding,omitempty"`
}

type listResponse struct {
	Items []fileResponse `json:"items"`
	Total int            `json:"total"`
}

type facetsResponse struct {
	catalog.FacetCounts
	Active model.Facet `json:"active"`
}

func toFileResponse(r *model.FileRecord) fileResponse {
	resp := fileResponse{
		ID:           r.ID,
		Name:         r.Name,
		Size:         r.Size,
		ContentType:  r.ContentType,
		DateModified: r.DateModified,
		DateAdded:    r.DateAdded,
		Category:     r.Category,
		Tags:         r.Tags,
		IsFavorite:   r.IsFavorite,
		Checksum:     r.Checksum,
		Metadata:     toMetadataResponse(r.Metadata),
		ContentURL:   "/api/v1/files/" + r.ID + "/content",
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if r.Thumbnail != "" {
		resp.ThumbnailURL = "/api/v1/files/" + r.ID + "/thumbnail"
	}
	return resp
}

func toFileResponses(records []*model.FileRecord) []fileResponse {
	items := make([]fileResponse, 0, len(records))
	for _, r := range records {
		items = append(items, toFileResponse(r))
	}
	return items
}

func toMetadataResponse(m model.Metadata) *metadataResponse {
	switch v := m.(type) {
	case model.ImageMetadata:
		return &metadataResponse{Kind: v.Kind(), Width: v.Width, Height: v.Height}
	case model.AudioMetadata:
		return &metadataResponse{
			Kind:            v.Kind(),
			DurationSeconds: v.Duration.Seconds(),
			SampleRate:      v.SampleRate,
			Channels:        v.Channels,
			Bitrate:         v.Bitrate,
		}
	case model.VideoMetadata:
		return &metadataResponse{
			Kind:            v.Kind(),
			DurationSeconds: v.Duration.Seconds(),
			Width:           v.Width,
			Height:          v.Height,
		}
	case model.DocumentMetadata:
		return &metadataResponse{Kind: v.Kind(), Lines: v.Lines, Encoding: v.Encoding}
	default:
		return nil
	}
}
