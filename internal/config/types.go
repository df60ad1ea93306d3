package config

import "time"

// ProviderType identifies a chat completion provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level molscope configuration, corresponding to .molscope.yml.
type Config struct {
	RCSB     RCSBConfig     `yaml:"rcsb" koanf:"rcsb"`
	Search   SearchConfig   `yaml:"search" koanf:"search"`
	Viewer   ViewerConfig   `yaml:"viewer" koanf:"viewer"`
	Chat     ChatConfig     `yaml:"chat" koanf:"chat"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Examples ExamplesConfig `yaml:"examples" koanf:"examples"`
	DataDir  string         `yaml:"data_dir" koanf:"data_dir"`
}

// RCSBConfig points at the structure, metadata and search services.
type RCSBConfig struct {
	FilesURL        string `yaml:"files_url" koanf:"files_url"`
	DataURL         string `yaml:"data_url" koanf:"data_url"`
	SearchURL       string `yaml:"search_url" koanf:"search_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	CacheSize       int    `yaml:"cache_size" koanf:"cache_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" koanf:"cache_ttl_seconds"`
}

// Timeout returns the per-request timeout.
func (c RCSBConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long entry metadata stays cached.
func (c RCSBConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SearchConfig tunes the search dropdown.
type SearchConfig struct {
	DebounceMS     int `yaml:"debounce_ms" koanf:"debounce_ms"`
	MinQueryLength int `yaml:"min_query_length" koanf:"min_query_length"`
	Rows           int `yaml:"rows" koanf:"rows"`
}

// Debounce returns the keystroke debounce window.
func (c SearchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ViewerConfig holds viewer defaults.
type ViewerConfig struct {
	Style       string `yaml:"style" koanf:"style"`
	NarrowWidth int    `yaml:"narrow_width" koanf:"narrow_width"`
}

// ChatConfig selects the chat completion backend.
type ChatConfig struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	MaxTurns int          `yaml:"max_turns" koanf:"max_turns"`
	RPM      int          `yaml:"rpm" koanf:"rpm"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file" koanf:"file"`
}

// ExamplesConfig lists globs of local structure files offered as examples.
type ExamplesConfig struct {
	Paths []string `yaml:"paths" koanf:"paths"`
}
