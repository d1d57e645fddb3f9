package ffmpeg

import "errors"

// ErrNotFound indicates a required FFmpeg-family binary is not installed.
var ErrNotFound = errors.New("ffmpeg binary not found")

// ErrNoEnglishAudio indicates a video carries no English-tagged audio track.
var ErrNoEnglishAudio = errors.New("no English audio track found")

// ErrExtractFailed indicates FFmpeg failed to extract an audio track.
var ErrExtractFailed = errors.New("audio extraction failed")

// ErrPlaybackFailed indicates ffplay could not play a clip.
var ErrPlaybackFailed = errors.New("playback failed")
