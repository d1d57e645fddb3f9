// Package ffmpeg wraps the FFmpeg-family binaries the pipeline shells out
// to: ffmpeg for audio-track extraction and resampling, ffprobe for stream
// inspection, ffplay for interactive clip playback.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
)

// Environment variables overriding binary discovery.
const (
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
	EnvFFplayPath  = "FFPLAY_PATH"
)

// Tools holds resolved paths to the binaries the pipeline uses.
type Tools struct {
	FFmpeg  string
	FFprobe string
	FFplay  string
}

// Resolve locates the FFmpeg-family binaries, preferring environment
// overrides over PATH lookup. Only the binaries the caller asks for are
// required: pass needPlay=false for non-interactive stages so a headless
// box without ffplay still works.
func Resolve(needPlay bool) (Tools, error) {
	var t Tools
	var err error

	if t.FFmpeg, err = resolveOne(EnvFFmpegPath, "ffmpeg"); err != nil {
		return Tools{}, err
	}
	if t.FFprobe, err = resolveOne(EnvFFprobePath, "ffprobe"); err != nil {
		return Tools{}, err
	}
	if needPlay {
		if t.FFplay, err = resolveOne(EnvFFplayPath, "ffplay"); err != nil {
			return Tools{}, err
		}
	}
	return t, nil
}

// resolveOne resolves a single binary via env override then PATH.
func resolveOne(envVar, name string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s=%s: %v", ErrNotFound, envVar, p, err)
		}
		return p, nil
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not in PATH", ErrNotFound, name)
	}
	return p, nil
}
