package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SHOPTALK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SHOPTALK_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "SHOPTALK_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "ollama.detect_model", typ: kString, env: "SHOPTALK_OLLAMA_DETECT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.DetectModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.DetectModel },
	},
	{
		key: "ollama.rerank_model", typ: kString, env: "SHOPTALK_OLLAMA_RERANK_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.RerankModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.RerankModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SHOPTALK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "gateway.openrouter_api_key", typ: kString, env: "SHOPTALK_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gateway.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.OpenRouterAPIKey },
	},
	{
		key: "gateway.answer_model", typ: kString, env: "SHOPTALK_GATEWAY_ANSWER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.AnswerModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.AnswerModel },
	},
	{
		key: "gateway.requests_per_second", typ: kFloat, env: "SHOPTALK_GATEWAY_REQUESTS_PER_SECOND",
		apply:   func(cfg *Config, v any) { cfg.Gateway.RequestsPerSecond = v.(float64) },
		extract: func(cfg Config) any { return cfg.Gateway.RequestsPerSecond },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "SHOPTALK_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "retrieval.max_context_tokens", typ: kInt, env: "SHOPTALK_RETRIEVAL_MAX_CONTEXT_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.MaxContextTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.MaxContextTokens },
	},
	{
		key: "reranking.enabled", typ: kBool, env: "SHOPTALK_RERANKING_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Reranking.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Reranking.Enabled },
	},
	{
		key: "reranking.timeout", typ: kString, env: "SHOPTALK_RERANKING_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Reranking.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Reranking.Timeout },
	},
	{
		key: "reranking.threshold", typ: kFloat, env: "SHOPTALK_RERANKING_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Reranking.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Reranking.Threshold },
	},
	{
		key: "log.level", typ: kString, env: "SHOPTALK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
