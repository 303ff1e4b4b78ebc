// text.go — число строк и кодировка текстового документа.
package extract

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// textSampleSize — объём выборки для проверки UTF-8.
const textSampleSize = 4096

const (
	encodingUTF8    = "utf-8"
	encodingUTF16LE = "utf-16le"
	encodingUTF16BE = "utf-16be"
	encodingUnknown = "unknown"
)

func probeText(r io.Reader) (*Result, error) {
	br := bufio.NewReaderSize(r, textSampleSize)
	sample, err := br.Peek(textSampleSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	enc, decoder := detectEncoding(sample)
	var src io.Reader = br
	if decoder != nil {
		src = transform.NewReader(br, decoder)
	}

	lines, err := countLines(src)
	if err != nil {
		return nil, err
	}

	if enc == "" {
		enc = encodingUnknown
		if utf8.Valid(trimIncompleteRune(sample)) {
			enc = encodingUTF8
		}
	}

	return &Result{Metadata: model.DocumentMetadata{Lines: lines, Encoding: enc}}, nil
}

// detectEncoding определяет кодировку по BOM.
// Без BOM возвращает пустую строку и nil декодер.
func detectEncoding(sample []byte) (string, transform.Transformer) {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return encodingUTF8, unicode.UTF8BOM.NewDecoder()
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		return encodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return encodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	default:
		return "", nil
	}
}

// countLines считает строки. Последняя строка без перевода строки тоже учитывается.
func countLines(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	lines := 0
	var last byte
	total := 0

	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
			total += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}

	if total > 0 && last != '\n' {
		lines++
	}
	return lines, nil
}

// trimIncompleteRune отбрасывает обрезанную выборкой последнюю руну.
func trimIncompleteRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && i < len(b); i++ {
		start := len(b) - 1 - i
		if utf8.RuneStart(b[start]) {
			if !utf8.FullRune(b[start:]) {
				return b[:start]
			}
			break
		}
	}
	return b
}
