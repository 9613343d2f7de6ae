// Package config loads shoptalk configuration from a JSON file backend
// with SHOPTALK_* environment overrides.
package config

import (
	"fmt"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Gateway   GatewayConfig
	Retrieval RetrievalConfig
	Reranking RerankingConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL     string
	EmbedModel  string
	DetectModel string // local-number detection fallback; empty disables it
	RerankModel string
}

type StorageConfig struct {
	DataDir string
}

type GatewayConfig struct {
	OpenRouterAPIKey  string
	AnswerModel       string
	RequestsPerSecond float64
}

type RetrievalConfig struct {
	TopK             int
	MaxContextTokens int
}

type RerankingConfig struct {
	Enabled   bool
	Timeout   string // duration string, e.g. "10s"
	Threshold float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			EmbedModel:  "nomic-embed-text",
			DetectModel: "phi3.5",
			RerankModel: "phi3.5",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Gateway: GatewayConfig{
			AnswerModel:       "anthropic/claude-sonnet-4",
			RequestsPerSecond: 2,
		},
		Retrieval: RetrievalConfig{
			TopK:             8,
			MaxContextTokens: 4000,
		},
		Reranking: RerankingConfig{
			Enabled:   true,
			Timeout:   "10s",
			Threshold: 0.3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend
// ($XDG_CONFIG_HOME/shoptalk/config.json), then applies SHOPTALK_*
// environment overrides. Load never requires secrets: stop, status, and
// the client commands must work without the gateway key.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

// LoadForServe is Load plus the serve-time requirements: the answer
// pipeline cannot run without the OpenRouter API key.
func LoadForServe() (Config, error) {
	return loadForServeWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	return cfg, nil
}

func loadForServeWith(b Backend) (Config, error) {
	cfg, err := loadWith(b)
	if err != nil {
		return Config{}, err
	}
	if cfg.Gateway.OpenRouterAPIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenRouter API key; set SHOPTALK_OPENROUTER_API_KEY")
	}
	return cfg, nil
}
