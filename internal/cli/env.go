// Package cli implements the crossvoice commands.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"crossvoice/internal/apierr"
	"crossvoice/internal/config"
	"crossvoice/internal/embed"
	"crossvoice/internal/ffmpeg"
	"crossvoice/internal/verify"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options.
type Env struct {
	// I/O and environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Factories for domain objects
	ConfigLoader  ConfigLoader
	ToolsResolver ToolsResolver
	Backends      BackendProvider
	Players       PlayerFactory
}

// ConfigLoader loads user configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// ToolsResolver locates the FFmpeg-family binaries.
type ToolsResolver interface {
	Resolve(needPlay bool) (ffmpeg.Tools, error)
}

// BackendProvider acquires an embedding backend from the configuration.
type BackendProvider interface {
	Acquire(ctx context.Context, cfg config.Config) (embed.Backend, error)
}

// PlayerFactory creates audio players.
type PlayerFactory interface {
	NewPlayer(tools ffmpeg.Tools) verify.Player
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdin sets the input reader.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) { e.Stdin = r }
}

// WithStdout sets the output writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the error writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithToolsResolver sets the FFmpeg tools resolver.
func WithToolsResolver(r ToolsResolver) EnvOption {
	return func(e *Env) { e.ToolsResolver = r }
}

// WithBackendProvider sets the embedding backend provider.
func WithBackendProvider(p BackendProvider) EnvOption {
	return func(e *Env) { e.Backends = p }
}

// WithPlayerFactory sets the player factory.
func WithPlayerFactory(f PlayerFactory) EnvOption {
	return func(e *Env) { e.Players = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Getenv:        os.Getenv,
		ConfigLoader:  &defaultConfigLoader{},
		ToolsResolver: &defaultToolsResolver{},
		Backends:      &defaultBackendProvider{},
		Players:       &defaultPlayerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

type defaultToolsResolver struct{}

func (defaultToolsResolver) Resolve(needPlay bool) (ffmpeg.Tools, error) {
	return ffmpeg.Resolve(needPlay)
}

// Backend acquisition retry policy.
var acquireRetry = apierr.Backoff{
	Tries:   4,
	Initial: time.Second,
	Cap:     10 * time.Second,
}

type defaultBackendProvider struct{}

func (defaultBackendProvider) Acquire(ctx context.Context, cfg config.Config) (embed.Backend, error) {
	var candidates []embed.Backend
	if cfg.EmbedServer != "" {
		candidates = append(candidates, embed.NewHTTPBackend(cfg.EmbedServer))
	}
	if cfg.EmbedBinary != "" {
		candidates = append(candidates, embed.NewExecBackend(config.ExpandPath(cfg.EmbedBinary)))
	}
	return embed.Acquire(ctx, acquireRetry, candidates...)
}

type defaultPlayerFactory struct{}

func (defaultPlayerFactory) NewPlayer(tools ffmpeg.Tools) verify.Player {
	return ffmpeg.NewPlayer(tools)
}
