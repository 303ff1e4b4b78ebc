// mp4.go — длительность и размер кадра из ISO BMFF (MP4/MOV).
// Читаются только боксы moov/mvhd и moov/trak/tkhd.
package extract

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

var errMalformedBox = errors.New("повреждённый бокс")

// box — заголовок бокса: тип, начало и размер полезной нагрузки.
type box struct {
	typ   string
	start int64
	size  int64
}

func probeMP4(r io.ReadSeeker) (*Result, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	moov, err := findBox(r, 0, end, "moov")
	if err != nil {
		return nil, err
	}

	var meta model.VideoMetadata
	haveHeader := false

	if _, err := r.Seek(moov.start, io.SeekStart); err != nil {
		return nil, err
	}
	moovEnd := moov.start + moov.size
	for {
		b, err := nextBox(r, moovEnd)
		if err != nil {
			break
		}
		switch b.typ {
		case "mvhd":
			d, err := readMVHD(r, b)
			if err != nil {
				return nil, err
			}
			meta.Duration = d
			haveHeader = true
		case "trak":
			if meta.Width == 0 {
				if w, h, err := readTrackSize(r, b); err == nil {
					meta.Width, meta.Height = w, h
				}
			}
		}
		if _, err := r.Seek(b.start+b.size, io.SeekStart); err != nil {
			return nil, err
		}
	}

	if !haveHeader {
		return nil, errors.New("бокс mvhd не найден")
	}
	return &Result{Metadata: meta}, nil
}

// nextBox читает заголовок бокса с текущей позиции, не выходя за end.
func nextBox(r io.ReadSeeker, end int64) (box, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return box{}, err
	}
	if end-pos < 8 {
		return box{}, io.EOF
	}

	var h [8]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return box{}, err
	}
	size := int64(binary.BigEndian.Uint32(h[0:4]))
	typ := string(h[4:8])
	hdr := int64(8)

	switch size {
	case 1:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return box{}, err
		}
		size = int64(binary.BigEndian.Uint64(ext[:]))
		hdr = 16
	case 0:
		size = end - pos
	}

	if size < hdr || pos+size > end {
		return box{}, errMalformedBox
	}
	return box{typ: typ, start: pos + hdr, size: size - hdr}, nil
}

// findBox ищет бокс типа typ среди соседей в диапазоне [start, end).
func findBox(r io.ReadSeeker, start, end int64, typ string) (box, error) {
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return box{}, err
	}
	for {
		b, err := nextBox(r, end)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return box{}, errors.New("бокс " + typ + " не найден")
			}
			return box{}, err
		}
		if b.typ == typ {
			return b, nil
		}
		if _, err := r.Seek(b.start+b.size, io.SeekStart); err != nil {
			return box{}, err
		}
	}
}

// readPayload читает до limit байт полезной нагрузки бокса.
func readPayload(r io.ReadSeeker, b box, limit int64) ([]byte, error) {
	if _, err := r.Seek(b.start, io.SeekStart); err != nil {
		return nil, err
	}
	n := min(b.size, limit)
	p := make([]byte, n)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, err
	}
	return p, nil
}

func readMVHD(r io.ReadSeeker, b box) (time.Duration, error) {
	p, err := readPayload(r, b, 32)
	if err != nil {
		return 0, err
	}

	var timescale uint32
	var duration uint64
	switch {
	case len(p) >= 20 && p[0] == 0:
		timescale = binary.BigEndian.Uint32(p[12:16])
		duration = uint64(binary.BigEndian.Uint32(p[16:20]))
	case len(p) >= 32 && p[0] == 1:
		timescale = binary.BigEndian.Uint32(p[20:24])
		duration = binary.BigEndian.Uint64(p[24:32])
	default:
		return 0, errMalformedBox
	}
	if timescale == 0 {
		return 0, errMalformedBox
	}
	return time.Duration(float64(duration) / float64(timescale) * float64(time.Second)), nil
}

// readTrackSize возвращает размер кадра из tkhd внутри trak.
// Аудиодорожки имеют нулевой размер.
func readTrackSize(r io.ReadSeeker, trak box) (int, int, error) {
	tkhd, err := findBox(r, trak.start, trak.start+trak.size, "tkhd")
	if err != nil {
		return 0, 0, err
	}
	p, err := readPayload(r, tkhd, 96)
	if err != nil {
		return 0, 0, err
	}

	var off int
	switch {
	case len(p) >= 84 && p[0] == 0:
		off = 76
	case len(p) >= 96 && p[0] == 1:
		off = 88
	default:
		return 0, 0, errMalformedBox
	}
	w := int(binary.BigEndian.Uint32(p[off:off+4]) >> 16)
	h := int(binary.BigEndian.Uint32(p[off+4:off+8]) >> 16)
	return w, h, nil
}
