// Package config loads user configuration and resolves the dataset
// directory layout shared by every pipeline stage.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config keys.
const (
	KeyDataDir     = "data-dir"
	KeyEmbedServer = "embed-server"
	KeyEmbedBinary = "embed-binary"
)

// Environment variable fallbacks.
const (
	EnvDataDir     = "CROSSVOICE_DATA_DIR"
	EnvEmbedServer = "CROSSVOICE_EMBED_SERVER"
	EnvEmbedBinary = "CROSSVOICE_EMBED_BINARY"
)

// Config holds user configuration loaded from ~/.config/crossvoice/config.
type Config struct {
	// DataDir is the root under which the dataset layout lives.
	DataDir string
	// EmbedServer is the base URL of the batch embedding service.
	EmbedServer string
	// EmbedBinary is the path to the per-item embedding extractor binary.
	EmbedBinary string
}

// Layout is the on-disk dataset layout rooted at a data directory.
// Directory names match what the diarization and export collaborators
// expect (videos/, wavs/, jsons/, embeddings/, targeted/).
type Layout struct {
	Root          string
	VideoDir      string
	WavDir        string
	JSONDir       string
	EmbeddingsDir string
	TargetedDir   string
	MappingFile   string
	GlobalFile    string
	SummaryFile   string
}

// NewLayout derives the dataset layout from a root directory.
func NewLayout(root string) Layout {
	root = filepath.Clean(ExpandPath(root))
	return Layout{
		Root:          root,
		VideoDir:      filepath.Join(root, "videos"),
		WavDir:        filepath.Join(root, "wavs"),
		JSONDir:       filepath.Join(root, "jsons"),
		EmbeddingsDir: filepath.Join(root, "embeddings"),
		TargetedDir:   filepath.Join(root, "targeted"),
		MappingFile:   filepath.Join(root, "mappings.csv"),
		GlobalFile:    filepath.Join(root, "global_mappings.csv"),
		SummaryFile:   filepath.Join(root, "speaker_summary.csv"),
	}
}

// Ensure creates the layout's directories if they do not exist.
func (l Layout) Ensure() error {
	for _, d := range []string{l.VideoDir, l.WavDir, l.JSONDir, l.EmbeddingsDir, l.TargetedDir} {
		if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user data dir
			return fmt.Errorf("cannot create directory %s: %w", d, err)
		}
	}
	return nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/crossvoice.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crossvoice"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "crossvoice"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	if data, err := parseFile(p); err == nil {
		cfg.DataDir = data[KeyDataDir]
		cfg.EmbedServer = data[KeyEmbedServer]
		cfg.EmbedBinary = data[KeyEmbedBinary]
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = os.Getenv(EnvDataDir)
	}
	if cfg.EmbedServer == "" {
		cfg.EmbedServer = os.Getenv(EnvEmbedServer)
	}
	if cfg.EmbedBinary == "" {
		cfg.EmbedBinary = os.Getenv(EnvEmbedBinary)
	}

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		data[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}

	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for key, value := range data {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// ValidDataDir checks if a directory path is valid for use as data-dir.
// Returns nil if valid, or an error describing the problem.
func ValidDataDir(d string) error {
	if d == "" {
		return fmt.Errorf("data-dir cannot be empty")
	}

	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user data dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	return nil
}
