// wav.go — параметры аудио из RIFF/WAVE заголовка.
package extract

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/bigkaa/goartstore/media-catalog/internal/domain/model"
)

// maxRIFFChunks — ограничение обхода чанков для повреждённых файлов.
const maxRIFFChunks = 64

func probeWAV(r io.ReadSeeker) (*Result, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, errors.New("нет сигнатуры RIFF/WAVE")
	}

	var (
		meta     model.AudioMetadata
		byteRate uint32
		haveFmt  bool
	)

	for i := 0; i < maxRIFFChunks; i++ {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			break
		}
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])
		skip := int64(size) + int64(size%2)

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("короткий чанк fmt")
			}
			var f [16]byte
			if _, err := io.ReadFull(r, f[:]); err != nil {
				return nil, err
			}
			meta.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
			meta.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			byteRate = binary.LittleEndian.Uint32(f[8:12])
			meta.Bitrate = int(byteRate) * 8
			haveFmt = true
			skip -= 16
		case "data":
			if !haveFmt {
				return nil, errors.New("чанк data до чанка fmt")
			}
			if byteRate > 0 {
				meta.Duration = time.Duration(uint64(size) * uint64(time.Second) / uint64(byteRate))
			}
			return &Result{Metadata: meta}, nil
		}

		if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
			return nil, err
		}
	}

	if !haveFmt {
		return nil, errors.New("чанк fmt не найден")
	}
	return &Result{Metadata: meta}, nil
}
