package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
)

// Extraction parameters. The downstream pipeline expects mono PCM16 at
// 44.1 kHz with metadata stripped.
const (
	extractCodec      = "pcm_s16le"
	extractSampleRate = "44100"
	extractChannels   = "1"
)

// Extractor extracts audio tracks from video files.
type Extractor struct {
	tools Tools
	cmd   commandRunner
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorRunner sets the command runner (for testing).
func WithExtractorRunner(r commandRunner) ExtractorOption {
	return func(e *Extractor) { e.cmd = r }
}

// NewExtractor creates an Extractor using the resolved tools.
func NewExtractor(tools Tools, opts ...ExtractorOption) *Extractor {
	e := &Extractor{tools: tools, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// probeStreams is the shape of ffprobe's -of json stream listing.
type probeStreams struct {
	Streams []struct {
		Index int `json:"index"`
		Tags  struct {
			Language string `json:"language"`
		} `json:"tags"`
	} `json:"streams"`
}

// EnglishStreamIndex probes a video and returns the index of its
// English-tagged audio stream.
func (e *Extractor) EnglishStreamIndex(ctx context.Context, videoPath string) (int, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index:stream_tags=language",
		"-of", "json",
		videoPath,
	}
	out, err := e.cmd.Output(ctx, e.tools.FFprobe, args)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	var probe probeStreams
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("ffprobe %s: invalid JSON: %w", videoPath, err)
	}

	for _, s := range probe.Streams {
		if s.Tags.Language == "eng" {
			return s.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoEnglishAudio, videoPath)
}

// ExtractEnglishAudio extracts the English audio track of a video into a
// mono 44.1 kHz PCM16 WAV, stripping all metadata.
func (e *Extractor) ExtractEnglishAudio(ctx context.Context, videoPath, wavPath string) error {
	idx, err := e.EnglishStreamIndex(ctx, videoPath)
	if err != nil {
		return err
	}

	args := []string{
		"-i", videoPath,
		"-map", fmt.Sprintf("0:%d", idx),
		"-acodec", extractCodec,
		"-ar", extractSampleRate,
		"-ac", extractChannels,
		"-map_metadata", "-1",
		"-y", wavPath,
	}
	out, err := e.cmd.CombinedOutput(ctx, e.tools.FFmpeg, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrExtractFailed, videoPath, err, string(out))
	}
	return nil
}
