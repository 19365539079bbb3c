package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrConfiguration indicates missing credentials or storage paths.
	// Fatal at startup, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrCorruptIndex indicates the persisted embedding index is
	// inconsistent: declared vector count does not match its payload,
	// vector dimensions vary across records, or an embedding id does not
	// resolve to exactly one fragment. Never silently patched.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrFragmentNotFound indicates a requested fragment id is absent
	// from the document store.
	ErrFragmentNotFound = errors.New("fragment not found")

	// ErrReferenceNotFound indicates a requested document reference is absent.
	ErrReferenceNotFound = errors.New("document reference not found")

	// ErrDimensionMismatch indicates the embedding function output does not
	// match the index dimension. Fatal: it means a model/index version skew.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyResponse indicates the pipeline completed but the generated
	// answer was empty or whitespace-only. Reported, not retried; this
	// usually points at a misconfiguration rather than absent content.
	ErrEmptyResponse = errors.New("empty response from generation")

	// ErrNoContext indicates retrieval produced zero candidates, so no
	// generation call was made.
	ErrNoContext = errors.New("no relevant fragments retrieved")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// SynthesisError wraps a generation capability failure. The synthesizer
// never retries; callers decide how to surface it (the chat loop reports
// it, the batch runner records a failed result).
type SynthesisError struct {
	// Strategy is the response mode that was executing.
	Strategy string

	// Err is the underlying generation failure.
	Err error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis (%s): %v", e.Strategy, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}
