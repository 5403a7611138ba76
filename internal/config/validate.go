package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Model provider
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Sprintf("LLM_API_KEY is required for provider %q", c.LLM.Provider))
		}
	case "ollama":
		if c.LLM.OllamaHost == "" {
			errs = append(errs, "OLLAMA_HOST is required for provider \"ollama\"")
		}
	default:
		errs = append(errs, fmt.Sprintf("LLM_PROVIDER must be openai, ollama or gemini, got %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("LLM_TEMPERATURE must be within [0, 2], got %.2f", c.LLM.Temperature))
	}

	// Similarity index
	switch c.Index.Backend {
	case "postgres":
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("INDEX_BACKEND must be postgres or memory, got %q", c.Index.Backend))
	}
	if c.Index.Dimension <= 0 {
		errs = append(errs, fmt.Sprintf("EMBEDDING_DIMENSION must be positive, got %d", c.Index.Dimension))
	}
	if c.Index.Table == c.Index.CompanyTable {
		errs = append(errs, fmt.Sprintf("INDEX_COMPANY_TABLE must differ from INDEX_TABLE, both are %q", c.Index.Table))
	}

	// Retrieval and prompt budgets
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("RETRIEVAL_THRESHOLD must be within [0, 1], got %.2f", c.Retrieval.Threshold))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Sprintf("RETRIEVAL_TOP_K must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.MaxQueries <= 0 {
		errs = append(errs, fmt.Sprintf("RETRIEVAL_MAX_QUERIES must be positive, got %d", c.Retrieval.MaxQueries))
	}
	if c.Prompt.MaxTokens <= 0 {
		errs = append(errs, fmt.Sprintf("PROMPT_MAX_TOKENS must be positive, got %d", c.Prompt.MaxTokens))
	}

	// Conversation memory
	switch c.Memory.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Sprintf("MEMORY_BACKEND must be redis or memory, got %q", c.Memory.Backend))
	}
	if c.Memory.Capacity <= 0 {
		errs = append(errs, fmt.Sprintf("MEMORY_CAPACITY must be positive, got %d", c.Memory.Capacity))
	}
	if c.Memory.SummaryTokens <= 0 {
		errs = append(errs, fmt.Sprintf("MEMORY_SUMMARY_TOKENS must be positive, got %d", c.Memory.SummaryTokens))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Web search key: warn only, retrieval falls through to the synthetic answer
	if c.Search.SerperAPIKey == "" {
		slog.Warn("SERPER_API_KEY is empty, web search fallback is disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
