// metadata.go — извлечённые метаданные файла (tagged variant).
// Набор полей зависит от вида медиа; отсутствие метаданных — nil.
package model

import "time"

// MetadataKind — тег варианта метаданных.
type MetadataKind string

const (
	MetadataImage    MetadataKind = "image"
	MetadataAudio    MetadataKind = "audio"
	MetadataVideo    MetadataKind = "video"
	MetadataDocument MetadataKind = "document"
)

// Metadata — закрытый набор вариантов метаданных.
// Реализуется только типами этого пакета.
type Metadata interface {
	Kind() MetadataKind
	isMetadata()
}

// ImageMetadata — размеры изображения в пикселях.
type ImageMetadata struct {
	Width  int
	Height int
}

// AudioMetadata — параметры аудиопотока.
// Нулевое значение поля означает, что оно не было определено.
type AudioMetadata struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Bitrate    int
}

// VideoMetadata — длительность и размер кадра.
type VideoMetadata struct {
	Duration time.Duration
	Width    int
	Height   int
}

// DocumentMetadata — сведения о текстовом документе.
type DocumentMetadata struct {
	Lines    int
	Encoding string
}

func (ImageMetadata) Kind() MetadataKind    { return MetadataImage }
func (AudioMetadata) Kind() MetadataKind    { return MetadataAudio }
func (VideoMetadata) Kind() MetadataKind    { return MetadataVideo }
func (DocumentMetadata) Kind() MetadataKind { return MetadataDocument }

func (ImageMetadata) isMetadata()    {}
func (AudioMetadata) isMetadata()    {}
func (VideoMetadata) isMetadata()    {}
func (DocumentMetadata) isMetadata() {}
