package driven

import "github.com/corpora-labs/corpora-cli/internal/core/domain"

// ResultLog is a durable, append-only sink for batch query results.
// Each record is flushed before the next batch item starts, so a crash
// mid-run loses at most the in-flight item.
type ResultLog interface {
	// Append writes one record and syncs it to durable storage.
	Append(record domain.QueryResult) error

	// Close releases the underlying log.
	Close() error
}
