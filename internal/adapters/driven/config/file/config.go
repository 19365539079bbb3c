// Package file loads application settings from a TOML config file with
// environment variable overlay.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// DefaultFileName is the config file name looked up in the working
// directory when no explicit path is given.
const DefaultFileName = "corpora.toml"

// Environment variables that overlay file settings. API keys are only
// ever read from the environment, never persisted to the config file.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvAnthropicKey  = "ANTHROPIC_API_KEY"
	EnvOllamaBaseURL = "OLLAMA_BASE_URL"
	EnvStorageDir    = "CORPORA_STORAGE_DIR"
)

// fileSettings mirrors the TOML layout of the config file.
type fileSettings struct {
	Storage struct {
		Dir string `toml:"dir"`
	} `toml:"storage"`

	Embedding struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url"`
	} `toml:"embedding"`

	LLM struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url"`
	} `toml:"llm"`

	Query struct {
		TopK         int    `toml:"top_k"`
		ResponseMode string `toml:"response_mode"`
		ContextChars int    `toml:"context_chars"`
		MemoryBudget int    `toml:"memory_budget"`
	} `toml:"query"`

	Batch struct {
		ItemIntervalMS int `toml:"item_interval_ms"`
	} `toml:"batch"`
}

// Load reads settings from the given path, falling back to defaults for
// anything unset, then applies environment overrides. An empty path uses
// DefaultFileName in the working directory; a missing file is not an
// error, defaults plus environment apply.
func Load(path string) (domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fs fileSettings
		if err := toml.Unmarshal(data, &fs); err != nil {
			return settings, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, path, err)
		}
		applyFile(&settings, fs)

	case os.IsNotExist(err):
		if explicit {
			return settings, fmt.Errorf("%w: config file not found: %s", domain.ErrConfiguration, path)
		}

	default:
		return settings, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
	}

	applyEnv(&settings)

	if err := validate(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// applyFile copies non-zero file values over the defaults.
func applyFile(settings *domain.AppSettings, fs fileSettings) {
	if fs.Storage.Dir != "" {
		settings.Storage.Dir = fs.Storage.Dir
	}

	if fs.Embedding.Provider != "" {
		settings.Embedding.Provider = domain.AIProvider(fs.Embedding.Provider)
	}
	if fs.Embedding.Model != "" {
		settings.Embedding.Model = fs.Embedding.Model
	}
	if fs.Embedding.BaseURL != "" {
		settings.Embedding.BaseURL = fs.Embedding.BaseURL
	}

	if fs.LLM.Provider != "" {
		settings.LLM.Provider = domain.AIProvider(fs.LLM.Provider)
	}
	if fs.LLM.Model != "" {
		settings.LLM.Model = fs.LLM.Model
	}
	if fs.LLM.BaseURL != "" {
		settings.LLM.BaseURL = fs.LLM.BaseURL
	}

	if fs.Query.TopK > 0 {
		settings.Query.TopK = fs.Query.TopK
	}
	if fs.Query.ResponseMode != "" {
		settings.Query.ResponseMode = domain.ResponseMode(fs.Query.ResponseMode)
	}
	if fs.Query.ContextChars > 0 {
		settings.Query.ContextChars = fs.Query.ContextChars
	}
	if fs.Query.MemoryBudget > 0 {
		settings.Query.MemoryBudget = fs.Query.MemoryBudget
	}

	if fs.Batch.ItemIntervalMS != 0 {
		settings.Batch.ItemIntervalMS = fs.Batch.ItemIntervalMS
	}
}

// applyEnv overlays environment variables on top of file settings.
func applyEnv(settings *domain.AppSettings) {
	if dir := os.Getenv(EnvStorageDir); dir != "" {
		settings.Storage.Dir = dir
	}
	if url := os.Getenv(EnvOllamaBaseURL); url != "" {
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = url
		}
		if settings.LLM.Provider == domain.AIProviderOllama {
			settings.LLM.BaseURL = url
		}
	}

	switch settings.Embedding.Provider {
	case domain.AIProviderOpenAI:
		settings.Embedding.APIKey = os.Getenv(EnvOpenAIKey)
	}

	switch settings.LLM.Provider {
	case domain.AIProviderOpenAI:
		settings.LLM.APIKey = os.Getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		settings.LLM.APIKey = os.Getenv(EnvAnthropicKey)
	}
}

// validate rejects settings the services cannot work with.
func validate(settings domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q",
			domain.ErrConfiguration, settings.LLM.Provider)
	}
	if !settings.Query.ResponseMode.IsValid() {
		return fmt.Errorf("%w: unknown response mode %q",
			domain.ErrConfiguration, settings.Query.ResponseMode)
	}
	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		return fmt.Errorf("%w: %s embedding provider needs %s set",
			domain.ErrConfiguration, settings.Embedding.Provider, EnvOpenAIKey)
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		env := EnvOpenAIKey
		if settings.LLM.Provider == domain.AIProviderAnthropic {
			env = EnvAnthropicKey
		}
		return fmt.Errorf("%w: %s LLM provider needs %s set",
			domain.ErrConfiguration, settings.LLM.Provider, env)
	}
	return nil
}

// ArtifactPaths returns the expected index artifact locations under the
// storage directory.
func ArtifactPaths(dir string) (fragmentsDB, vectorsBin, metaJSON string) {
	return filepath.Join(dir, "fragments.db"),
		filepath.Join(dir, "vectors.bin"),
		filepath.Join(dir, "index_meta.json")
}
