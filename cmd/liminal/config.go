package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liminalbooks/liminal/internal/config"
)

// loadConfig layers defaults, the optional JSON config file and LIMINAL_*
// environment variables. The file is validated as written and the merged
// result is validated again after decoding.
func loadConfig() (config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve home dir: %w", err)
	}
	for key, value := range config.Defaults(home) {
		viper.SetDefault(key, value)
	}
	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"llm.model", "llm.base_url", "llm.api_key", "llm.api_key_env"} {
		if err := viper.BindEnv(key); err != nil {
			return config.Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	explicit := viper.GetString("config")
	path := explicit
	if path == "" {
		path = defaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := validateConfigFile(path); err != nil {
			return config.Config{}, err
		}
		viper.SetConfigFile(path)
		viper.SetConfigType("json")
		if err := viper.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if explicit != "" || !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	merged, err := settingsOf(cfg)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ValidateSettings(merged); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func validateConfigFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return config.ValidateSettings(v.AllSettings())
}

func settingsOf(cfg config.Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect liminal configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey != "" {
				cfg.LLM.APIKey = "***"
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	})
	return cmd
}
