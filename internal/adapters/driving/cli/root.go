// Package cli implements the corpora command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/ai"
	configfile "github.com/corpora-labs/corpora-cli/internal/adapters/driven/config/file"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/index/flat"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/sqlite"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose bool
	flagStorage string
	flagConfig  string
)

// settings holds the resolved application settings for the invocation.
var settings domain.AppSettings

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Query a persisted document corpus with retrieval-augmented answers",
	Long: `corpora answers questions against a locally persisted document index.
It retrieves the most similar fragments, synthesises an answer with an
LLM provider, and cites the source fragments it used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		// API keys commonly live in a local .env file.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not load .env: %v", err)
		}

		loaded, err := configfile.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagStorage != "" {
			loaded.Storage.Dir = flagStorage
		}
		settings = loaded

		logger.Debug("storage dir: %s", settings.Storage.Dir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagStorage, "storage", "", "index storage directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default corpora.toml if present)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// artifacts bundles the opened persisted index.
type artifacts struct {
	store *sqlite.Store
	index *flat.Index
	paths []string
}

func (a *artifacts) close() {
	if a.index != nil {
		a.index.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// openArtifacts opens the persisted fragment store and vector index.
// Missing artifacts are a configuration error, not a reason to create
// an empty index.
func openArtifacts() (*artifacts, error) {
	fragmentsDB, vectorsBin, metaJSON := configfile.ArtifactPaths(settings.Storage.Dir)

	for _, path := range []string{fragmentsDB, vectorsBin} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: missing index artifact %s", domain.ErrConfiguration, path)
		}
	}

	logger.Section("Opening index")
	store, err := sqlite.NewStore(fragmentsDB)
	if err != nil {
		return nil, err
	}

	index, err := flat.Load(vectorsBin)
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Debug("index loaded: %d vectors, %d dimensions", index.Count(), index.Dimensions())

	return &artifacts{
		store: store,
		index: index,
		paths: []string{fragmentsDB, vectorsBin, metaJSON},
	}, nil
}

// engine bundles the fully wired query pipeline.
type engine struct {
	arts      *artifacts
	embedding driven.EmbeddingService
	llm       driven.LLMService
	queries   *services.QueryService
}

func (e *engine) close() {
	if e.llm != nil {
		e.llm.Close()
	}
	if e.embedding != nil {
		e.embedding.Close()
	}
	if e.arts != nil {
		e.arts.close()
	}
}

// openEngine opens the artifacts and wires the AI providers into a
// query service. Provider or dimension problems abort startup, and so
// does an index whose embeddings do not line up with the stored
// fragments: querying an inconsistent index would silently degrade.
func openEngine() (*engine, error) {
	arts, err := openArtifacts()
	if err != nil {
		return nil, err
	}

	if err := services.CrossValidate(context.Background(), arts.store, arts.index); err != nil {
		arts.close()
		return nil, err
	}

	logger.Section("Connecting providers")
	embedding, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		arts.close()
		return nil, err
	}
	logger.Debug("embedding provider: %s (%s)", settings.Embedding.Provider, embedding.ModelName())

	if embedding.Dimensions() != arts.index.Dimensions() {
		embedding.Close()
		arts.close()
		return nil, fmt.Errorf("%w: model %s produces %d dimensions, index holds %d",
			domain.ErrDimensionMismatch, settings.Embedding.Model,
			embedding.Dimensions(), arts.index.Dimensions())
	}

	llm, err := ai.CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		embedding.Close()
		arts.close()
		return nil, err
	}
	logger.Debug("LLM provider: %s (%s)", settings.LLM.Provider, llm.ModelName())

	retriever := services.NewRetriever(arts.store, arts.index, embedding)
	synthesizer := services.NewSynthesizer(llm, services.SynthesizerConfig{
		ContextChars: settings.Query.ContextChars,
	})

	return &engine{
		arts:      arts,
		embedding: embedding,
		llm:       llm,
		queries:   services.NewQueryService(retriever, synthesizer),
	}, nil
}

// queryOptions builds QueryOptions from command flags, validating the
// mode. Flags left unset fall back to the configured [query] defaults,
// then the package defaults.
func queryOptions(topK int, mode string) (domain.QueryOptions, error) {
	opts := domain.QueryOptions{TopK: topK}
	if mode != "" {
		opts.Mode = domain.ResponseMode(mode)
		if !opts.Mode.IsValid() {
			return opts, fmt.Errorf("%w: unknown response mode %q (use %s or %s)",
				domain.ErrConfiguration, mode,
				domain.ResponseModeCompact, domain.ResponseModeTreeSummarize)
		}
	}
	return opts.WithDefaults(configuredQueryDefaults()), nil
}

// configuredQueryDefaults exposes the resolved [query] settings as
// QueryOptions for layering under flag and per-prompt overrides.
func configuredQueryDefaults() domain.QueryOptions {
	return domain.QueryOptions{
		TopK: settings.Query.TopK,
		Mode: settings.Query.ResponseMode,
	}
}
