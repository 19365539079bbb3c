package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure BatchRunner implements the interface.
var _ driving.BatchService = (*BatchRunner)(nil)

// DefaultItemInterval paces batch items to stay polite to the
// generation API. There is deliberately no retry or backoff: transient
// generation failures become error records, per the documented contract.
const DefaultItemInterval = 500 * time.Millisecond

// BatchRunnerConfig tunes the batch runner.
type BatchRunnerConfig struct {
	// ItemInterval is the minimum spacing between item starts.
	// Zero takes DefaultItemInterval; negative disables pacing.
	ItemInterval time.Duration

	// Defaults fills query options a prompt leaves unset. The zero
	// value falls through to the package defaults.
	Defaults domain.QueryOptions
}

// BatchRunner processes prompts sequentially, appending one durable
// record per prompt. A failing item never aborts the run; subsequent
// prompts are still processed (partial-failure isolation).
type BatchRunner struct {
	queries  *QueryService
	log      driven.ResultLog
	limiter  *rate.Limiter
	defaults domain.QueryOptions
}

// NewBatchRunner creates a batch runner writing to the given result log.
func NewBatchRunner(queries *QueryService, log driven.ResultLog, cfg BatchRunnerConfig) *BatchRunner {
	interval := cfg.ItemInterval
	if interval == 0 {
		interval = DefaultItemInterval
	}

	var limiter *rate.Limiter
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &BatchRunner{
		queries:  queries,
		log:      log,
		limiter:  limiter,
		defaults: cfg.Defaults,
	}
}

// Run processes prompts in input order. Each record is appended to the
// log immediately after it is computed, so a crash mid-run loses at most
// the in-flight item. Run errors only on infrastructure failures (the
// log itself, or context cancellation between items).
func (r *BatchRunner) Run(
	ctx context.Context, prompts []domain.BatchPrompt,
) ([]domain.QueryResult, domain.BatchSummary, error) {
	logger.Section("Batch Run")
	logger.Info("Processing %d prompts", len(prompts))

	results := make([]domain.QueryResult, 0, len(prompts))
	summary := domain.BatchSummary{ByCategory: make(map[string]int)}

	for i, prompt := range prompts {
		if r.limiter != nil && i > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				return results, summary, fmt.Errorf("pacing wait: %w", err)
			}
		}

		record := r.processOne(ctx, i, prompt)

		if err := r.log.Append(record); err != nil {
			// Losing the log defeats the point of the run. Abort.
			return results, summary, fmt.Errorf("append result %s: %w", record.PromptID, err)
		}

		results = append(results, record)
		summary.Total++
		if record.Status == domain.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.ByCategory[prompt.Category()]++

		logger.Info("[%d/%d] %s: %s (%.3fs)",
			i+1, len(prompts), record.PromptID, record.Status, record.DurationSeconds)
	}

	logger.Section("Batch Complete")
	logger.Info("Total: %d, succeeded: %d, failed: %d", summary.Total, summary.Succeeded, summary.Failed)

	return results, summary, nil
}

// processOne runs the pipeline for a single prompt, converting any
// pipeline error into an error record at the item boundary.
func (r *BatchRunner) processOne(ctx context.Context, position int, prompt domain.BatchPrompt) domain.QueryResult {
	opts := domain.QueryOptions{TopK: prompt.TopK, Mode: prompt.Mode}.WithDefaults(r.defaults)

	record := domain.QueryResult{
		PromptID:      resolvePromptID(prompt, position),
		Prompt:        prompt.Prompt,
		TopK:          opts.TopK,
		Mode:          opts.Mode,
		Sources:       []domain.Citation{},
		InputMetadata: prompt.Metadata,
	}

	start := time.Now()
	answer, err := r.queries.Query(ctx, prompt.Prompt, opts)
	record.Duration = time.Since(start)
	record.DurationSeconds = record.Duration.Seconds()
	record.Timestamp = time.Now().UTC()

	if err != nil {
		record.Status = domain.StatusError
		record.ErrorMessage = err.Error()
		logger.Warn("Prompt %s failed: %v", record.PromptID, err)
		return record
	}

	record.Status = domain.StatusSuccess
	record.Response = answer.Text
	record.Sources = answer.Citations
	return record
}

// resolvePromptID synthesises a deterministic id from the 1-based
// position when the caller did not supply one.
func resolvePromptID(prompt domain.BatchPrompt, position int) string {
	if prompt.ID != "" {
		return prompt.ID
	}
	return fmt.Sprintf("prompt_%d", position+1)
}
