package config

// FileName is the default config file name.
const FileName = ".molscope.yml"

// defaultModels is the model used when only a provider is chosen.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOllama:     "llama3",
}

// DefaultModel returns the default chat model for a provider.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RCSB: RCSBConfig{
			FilesURL:        "https://files.rcsb.org",
			DataURL:         "https://data.rcsb.org/rest/v1",
			SearchURL:       "https://search.rcsb.org",
			TimeoutSeconds:  30,
			CacheSize:       256,
			CacheTTLSeconds: 600,
		},
		Search: SearchConfig{
			DebounceMS:     500,
			MinQueryLength: 2,
			Rows:           10,
		},
		Viewer: ViewerConfig{
			Style:       "stick",
			NarrowWidth: 768,
		},
		Chat: ChatConfig{
			Provider: ProviderOpenAI,
			Model:    DefaultModel(ProviderOpenAI),
			MaxTurns: 10,
			RPM:      20,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		DataDir: ".molscope",
	}
}
