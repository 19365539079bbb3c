package driving

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// BatchService processes an ordered list of prompts, logging one durable
// record per prompt regardless of individual failures.
type BatchService interface {
	// Run processes prompts in order. The returned records mirror what
	// was appended to the result log; Summary aggregates them. Run only
	// returns an error for infrastructure failures (e.g. the log itself),
	// never for per-item pipeline errors.
	Run(ctx context.Context, prompts []domain.BatchPrompt) ([]domain.QueryResult, domain.BatchSummary, error)
}
