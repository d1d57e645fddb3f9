package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"crossvoice/internal/config"
)

// validConfigKeys lists all supported configuration keys.
var validConfigKeys = []string{
	config.KeyDataDir,
	config.KeyEmbedServer,
	config.KeyEmbedBinary,
}

// ConfigCmd creates the config command with subcommands.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/crossvoice/config.
Settings can also be overridden via environment variables.

Supported settings:
  data-dir      Dataset root directory (env: CROSSVOICE_DATA_DIR)
  embed-server  Embedding server base URL (env: CROSSVOICE_EMBED_SERVER)
  embed-binary  Embedding binary path (env: CROSSVOICE_EMBED_BINARY)`,
		Example: `  crossvoice config set data-dir ~/datasets/show
  crossvoice config get data-dir
  crossvoice config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  crossvoice config set data-dir ~/datasets/show
  crossvoice config set embed-server http://localhost:9090`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Example: `  crossvoice config get data-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Example: `  crossvoice config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

func runConfigSet(env *Env, key, value string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
	}

	switch key {
	case config.KeyDataDir:
		expanded := config.ExpandPath(value)
		if err := config.ValidDataDir(expanded); err != nil {
			return fmt.Errorf("invalid data-dir: %w", err)
		}
		value = expanded
	case config.KeyEmbedBinary:
		value = config.ExpandPath(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Environment variable fallbacks.
	if value == "" {
		switch key {
		case config.KeyDataDir:
			value = env.Getenv(config.EnvDataDir)
		case config.KeyEmbedServer:
			value = env.Getenv(config.EnvEmbedServer)
		case config.KeyEmbedBinary:
			value = env.Getenv(config.EnvEmbedBinary)
		}
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	envVars := map[string]string{
		config.KeyDataDir:     config.EnvDataDir,
		config.KeyEmbedServer: config.EnvEmbedServer,
		config.KeyEmbedBinary: config.EnvEmbedBinary,
	}
	for key, envVar := range envVars {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(envVar); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range validConfigKeys {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range validConfigKeys {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
		}
	}
	return nil
}

func isValidConfigKey(key string) bool {
	return slices.Contains(validConfigKeys, key)
}
