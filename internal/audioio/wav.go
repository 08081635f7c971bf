// Package audioio measures and assembles the WAV artifacts of a
// synthesis run. Durations are always derived from decoded frame counts,
// never estimated from text length.
package audioio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
)

// Duration returns the measured length in seconds and the sample rate of
// a WAV file.
func Duration(path string) (float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	return measure(wav.NewDecoder(f))
}

// DurationBytes measures an in-memory WAV.
func DurationBytes(data []byte) (float64, int, error) {
	return measure(wav.NewDecoder(bytes.NewReader(data)))
}

// measure counts decoded PCM frames. The container-level duration the
// decoder reports includes header bytes and carries no sample rate, so
// the data chunk itself is the only trustworthy source.
func measure(d *wav.Decoder) (float64, int, error) {
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 || buf.Format.NumChannels == 0 {
		return 0, 0, fmt.Errorf("wav carries no format information")
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	return float64(frames) / float64(buf.Format.SampleRate), buf.Format.SampleRate, nil
}

// Part is one chunk of the final track with its requested surrounding
// silence.
type Part struct {
	Path           string
	PreSilenceSec  float64
	PostSilenceSec float64
}

// Concat decodes each part, inserts zero-amplitude PCM silence of the
// requested durations at the track sample rate, and writes the combined
// mono track to outPath. All parts must be mono and share one sample
// rate; a mismatch is an error, not a resample.
func Concat(outPath string, parts []Part) (float64, int, error) {
	if len(parts) == 0 {
		return 0, 0, fmt.Errorf("no audio parts to concatenate")
	}

	var data []int
	sampleRate := 0
	bitDepth := 16

	for _, p := range parts {
		buf, rate, depth, err := decodeMono(p.Path)
		if err != nil {
			return 0, 0, err
		}
		if sampleRate == 0 {
			sampleRate = rate
			bitDepth = depth
		} else if rate != sampleRate {
			return 0, 0, fmt.Errorf("sample rate mismatch: %s is %d Hz, track is %d Hz", p.Path, rate, sampleRate)
		}

		data = append(data, silenceFrames(p.PreSilenceSec, sampleRate)...)
		data = append(data, buf...)
		data = append(data, silenceFrames(p.PostSilenceSec, sampleRate)...)
	}

	if err := writeMono(outPath, data, sampleRate, bitDepth); err != nil {
		return 0, 0, err
	}

	total := float64(len(data)) / float64(sampleRate)
	log.Debug().
		Str("path", outPath).
		Int("sample_rate", sampleRate).
		Float64("duration_sec", total).
		Msg("Concatenated track written")
	return total, sampleRate, nil
}

func decodeMono(path string) ([]int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open chunk wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, 0, 0, fmt.Errorf("chunk %s is not mono (%d channels)", path, buf.Format.NumChannels)
	}
	return buf.Data, buf.Format.SampleRate, int(d.BitDepth), nil
}

func silenceFrames(seconds float64, sampleRate int) []int {
	if seconds <= 0 {
		return nil
	}
	return make([]int, int(seconds*float64(sampleRate)+0.5))
}

func writeMono(path string, data []int, sampleRate, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   data,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write pcm data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// PCMToWAV wraps headerless 16-bit little-endian mono PCM (the format
// Polly emits for OutputFormat=pcm) into an encoded WAV.
func PCMToWAV(raw []byte, sampleRate int) ([]byte, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("pcm stream has odd length %d", len(raw))
	}
	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	var ws writeSeekBuffer
	enc := wav.NewEncoder(&ws, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   data,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode pcm data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	return ws.buf, nil
}

// writeSeekBuffer is the minimal io.WriteSeeker the wav encoder needs to
// patch chunk sizes after writing.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		grown := make([]byte, need)
		copy(grown, w.buf)
		w.buf = grown
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = w.pos + int(offset)
	case io.SeekEnd:
		next = len(w.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	w.pos = next
	return int64(next), nil
}

// WriteWAVFile persists already-encoded WAV bytes, creating the file only
// after synthesis succeeded.
func WriteWAVFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write wav file: %w", err)
	}
	return nil
}
