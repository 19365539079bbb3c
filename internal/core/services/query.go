package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService answers single questions: retrieve, synthesise, cite.
type QueryService struct {
	retriever   *Retriever
	synthesizer *Synthesizer
}

// NewQueryService creates a query service.
func NewQueryService(retriever *Retriever, synthesizer *Synthesizer) *QueryService {
	return &QueryService{
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// Query runs the retrieval-augmented pipeline for one question.
func (s *QueryService) Query(
	ctx context.Context, question string, opts domain.QueryOptions,
) (*domain.Answer, error) {
	return s.query(ctx, question, opts, nil)
}

// query is the shared pipeline; history may be nil.
func (s *QueryService) query(
	ctx context.Context,
	question string,
	opts domain.QueryOptions,
	history []domain.ChatTurn,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrConfiguration)
	}
	opts = opts.Normalised()

	retrieval, err := s.retriever.Retrieve(ctx, question, opts.TopK)
	if err != nil {
		return nil, err
	}

	text, err := s.synthesizer.Synthesize(ctx, question, retrieval.Fragments, opts.Mode, history)
	if err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, len(retrieval.Fragments))
	for _, rf := range retrieval.Fragments {
		citations = append(citations, domain.NewCitation(rf))
	}

	logger.Info("Answered with %d citations (%d dropped)", len(citations), retrieval.Dropped)

	return &domain.Answer{
		Text:      text,
		Citations: citations,
		Dropped:   retrieval.Dropped,
	}, nil
}
