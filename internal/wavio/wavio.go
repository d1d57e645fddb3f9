// Package wavio reads and writes the PCM16 WAV files exchanged with the
// audio-extraction and diarization collaborators. Only what the pipeline
// needs is implemented: 16-bit PCM, mono preferred (multi-channel input is
// downmixed), with linear resampling when the rate differs from the
// expected one.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Sample rates the pipeline works with. Extraction produces 44.1 kHz; an
// earlier variant produced 16 kHz. Anything else is resampled on the fly.
const (
	RateDefault = 44100
	RateLegacy  = 16000
)

// Sentinel errors.
var (
	// ErrNotWAV indicates the file is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("not a WAV file")

	// ErrUnsupportedFormat indicates the WAV is not 16-bit integer PCM.
	ErrUnsupportedFormat = errors.New("unsupported WAV format (need 16-bit PCM)")
)

// Audio holds decoded mono PCM16 samples.
type Audio struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the audio length in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Slice returns the samples between start and end (seconds). The range is
// clamped to the available samples; an inverted or out-of-range request
// yields an empty slice.
func (a Audio) Slice(start, end float64) []int16 {
	lo := int(start * float64(a.SampleRate))
	hi := int(end * float64(a.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(a.Samples) {
		hi = len(a.Samples)
	}
	if lo >= hi {
		return nil
	}
	return a.Samples[lo:hi]
}

// ReadFile decodes a WAV file into mono PCM16 samples.
// Multi-channel audio is downmixed by averaging.
func ReadFile(path string) (Audio, error) {
	f, err := os.Open(path) // #nosec G304 -- paths come from the dataset layout
	if err != nil {
		return Audio{}, err
	}
	defer func() { _ = f.Close() }()

	return decode(f)
}

// decode parses a RIFF/WAVE stream.
func decode(r io.Reader) (Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Audio{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Audio{}, ErrNotWAV
	}

	var (
		sampleRate int
		channels   int
		haveFmt    bool
	)

	// Walk chunks until the data chunk; fmt must precede data.
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return Audio{}, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
			}
			return Audio{}, err
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Audio{}, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
			}
			if size < 16 {
				return Audio{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != 1 || bitsPerSample != 16 {
				return Audio{}, fmt.Errorf("%w: format=%d bits=%d",
					ErrUnsupportedFormat, audioFormat, bitsPerSample)
			}
			if channels < 1 {
				return Audio{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return Audio{}, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			raw := make([]byte, size)
			n, err := io.ReadFull(r, raw)
			if err != nil && err != io.ErrUnexpectedEOF {
				return Audio{}, err
			}
			raw = raw[:n-n%2] // tolerate truncated tail
			samples := decodeSamples(raw, channels)
			return Audio{SampleRate: sampleRate, Samples: samples}, nil

		default:
			// Skip unknown chunks (LIST, fact, ...). Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return Audio{}, fmt.Errorf("%w: truncated %s chunk", ErrNotWAV, id)
			}
		}
	}
}

// decodeSamples converts little-endian PCM16 bytes to mono samples,
// averaging across channels.
func decodeSamples(raw []byte, channels int) []int16 {
	total := len(raw) / 2
	if channels <= 1 {
		out := make([]int16, total)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out
	}

	frames := total / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(int16(binary.LittleEndian.Uint16(raw[(i*channels+c)*2:])))
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// WriteFile writes mono PCM16 samples as a WAV file.
func WriteFile(path string, a Audio) error {
	// #nosec G302 G304 -- clip files with standard permissions under the data dir
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	writeErr := encode(f, a)
	closeErr := f.Close()
	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return closeErr
}

// encode writes the canonical 44-byte header followed by the sample data.
func encode(w io.Writer, a Audio) error {
	dataSize := uint32(len(a.Samples) * 2)
	rate := uint32(a.SampleRate)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:28], rate)
	binary.LittleEndian.PutUint32(hdr[28:32], rate*2) // byte rate
	binary.LittleEndian.PutUint16(hdr[32:34], 2)      // block align
	binary.LittleEndian.PutUint16(hdr[34:36], 16)     // bits per sample
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, len(a.Samples)*2)
	for i, s := range a.Samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	_, err := w.Write(buf)
	return err
}

// ToFloat32 converts PCM16 samples to float32 in [-1, 1].
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	return Normalize(out)
}

// Normalize scales samples into [-1, 1] by dividing by 32768 when any
// magnitude exceeds 1.0 (16-bit assumption). Inputs already in range are
// passed through unchanged.
func Normalize(samples []float32) []float32 {
	exceeds := false
	for _, s := range samples {
		if s > 1.0 || s < -1.0 {
			exceeds = true
			break
		}
	}
	if !exceeds {
		return samples
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / 32768.0
	}
	return out
}

// Resample converts audio to the target sample rate using linear
// interpolation. Returns the input unchanged when rates already match.
func Resample(a Audio, targetRate int) Audio {
	if a.SampleRate == targetRate || a.SampleRate == 0 || len(a.Samples) == 0 {
		return Audio{SampleRate: targetRate, Samples: a.Samples}
	}

	ratio := float64(a.SampleRate) / float64(targetRate)
	n := int(math.Round(float64(len(a.Samples)) / ratio))
	if n < 1 {
		n = 1
	}

	out := make([]int16, n)
	for i := range out {
		pos := float64(i) * ratio
		lo := int(pos)
		if lo >= len(a.Samples)-1 {
			out[i] = a.Samples[len(a.Samples)-1]
			continue
		}
		frac := pos - float64(lo)
		v := float64(a.Samples[lo])*(1-frac) + float64(a.Samples[lo+1])*frac
		out[i] = int16(math.Round(v))
	}
	return Audio{SampleRate: targetRate, Samples: out}
}
