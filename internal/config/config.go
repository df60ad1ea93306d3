// Package config loads and validates the molscope configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: MOLSCOPE_CHAT__MODEL sets chat.model.
const EnvPrefix = "MOLSCOPE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MOLSCOPE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// A .env beside the config file may hold API keys and overrides. Variables
	// already set in the environment win.
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", dotenv, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps MOLSCOPE_RCSB__FILES_URL to rcsb.files_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	for name, u := range map[string]string{
		"rcsb.files_url":  c.RCSB.FilesURL,
		"rcsb.data_url":   c.RCSB.DataURL,
		"rcsb.search_url": c.RCSB.SearchURL,
	} {
		if u == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s %q must be an http(s) URL", name, u)
		}
	}
	if c.RCSB.TimeoutSeconds < 0 || c.RCSB.CacheSize < 0 || c.RCSB.CacheTTLSeconds < 0 {
		return fmt.Errorf("rcsb timeout and cache settings must be non-negative")
	}

	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must be non-negative")
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be at least 1")
	}
	if c.Search.Rows < 1 {
		return fmt.Errorf("search.rows must be at least 1")
	}

	if _, err := chainstyle.ParseKind(c.Viewer.Style); err != nil {
		return fmt.Errorf("viewer.style: %w", err)
	}
	if c.Viewer.NarrowWidth < 0 {
		return fmt.Errorf("viewer.narrow_width must be non-negative")
	}

	if c.Chat.Provider == "" {
		return fmt.Errorf("chat.provider is required")
	}
	if !validProviders[c.Chat.Provider] {
		return fmt.Errorf("invalid chat.provider %q: must be one of openai, openrouter, ollama", c.Chat.Provider)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model is required")
	}
	if c.Chat.MaxTurns < 0 || c.Chat.RPM < 0 {
		return fmt.Errorf("chat.max_turns and chat.rpm must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// DatabasePath is where load history and chat transcripts are stored.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "molscope.db")
}

// StructuresDir is where prefetched structure files are written.
func (c *Config) StructuresDir() string {
	return filepath.Join(c.DataDir, "structures")
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
