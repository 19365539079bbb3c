package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Default synthesis budgets.
const (
	// DefaultContextChars caps the context block of a single compact call.
	DefaultContextChars = 8000

	// DefaultGroupFragments is the per-call fragment budget for
	// tree_summarize grouping.
	DefaultGroupFragments = 10

	// DefaultMaxTokens bounds each generation call.
	DefaultMaxTokens = 4000
)

const answerSystemPrompt = `You are a research assistant answering questions from an ingested document corpus.
Answer using ONLY the provided context. Cite source names and page labels where possible.
If the context does not contain the answer, say so clearly instead of speculating.`

const groupSummaryPrompt = `Summarise the following context so it can answer the question below.
Keep every fact, figure and source attribution that could be relevant.

Question: %s

Context:
%s

Summary:`

// SynthesizerConfig tunes synthesis budgets. Zero values take defaults.
// Configuration is passed in at construction; there is no process-wide
// mutable settings object.
type SynthesizerConfig struct {
	// ContextChars is the compact-mode context size budget.
	ContextChars int

	// GroupFragments is the tree_summarize per-call fragment budget.
	GroupFragments int

	// MaxTokens bounds each generation call.
	MaxTokens int

	// Temperature for generation calls.
	Temperature float64
}

func (c SynthesizerConfig) normalised() SynthesizerConfig {
	if c.ContextChars <= 0 {
		c.ContextChars = DefaultContextChars
	}
	if c.GroupFragments <= 0 {
		c.GroupFragments = DefaultGroupFragments
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// Synthesizer turns ranked fragments and a question into a final answer
// using one of the response-mode strategies.
type Synthesizer struct {
	llm driven.LLMService
	cfg SynthesizerConfig
}

// NewSynthesizer creates a synthesizer over the given generation service.
func NewSynthesizer(llm driven.LLMService, cfg SynthesizerConfig) *Synthesizer {
	return &Synthesizer{llm: llm, cfg: cfg.normalised()}
}

// Synthesize produces the final answer text. history may be nil for
// single-shot queries. Generation failures are wrapped in
// *domain.SynthesisError and never retried here; an empty candidate list
// returns domain.ErrNoContext without invoking the generation capability.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	question string,
	fragments []domain.RankedFragment,
	mode domain.ResponseMode,
	history []domain.ChatTurn,
) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	if len(fragments) == 0 {
		return "", domain.ErrNoContext
	}

	logger.Section("Synthesis")
	logger.Debug("Mode: %s, fragments: %d, history turns: %d", mode, len(fragments), len(history))

	var (
		answer string
		err    error
	)
	switch mode {
	case domain.ResponseModeTreeSummarize:
		answer, err = s.treeSummarize(ctx, question, fragments, history)
	case domain.ResponseModeCompact:
		answer, err = s.compact(ctx, question, fragments, history)
	default:
		return "", fmt.Errorf("unknown response mode %q", mode)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(answer) == "" {
		// Completed but unusable. Distinct from failure: usually a
		// misconfigured model, not "no relevant content".
		return "", domain.ErrEmptyResponse
	}

	return answer, nil
}

// compact stuffs ranked fragments, most relevant first, into a single
// context block within the size budget and makes one generation call.
func (s *Synthesizer) compact(
	ctx context.Context,
	question string,
	fragments []domain.RankedFragment,
	history []domain.ChatTurn,
) (string, error) {
	block := s.contextBlock(fragments)
	logger.Debug("Compact context: %d chars", len(block))

	answer, err := s.answerCall(ctx, question, block, history)
	if err != nil {
		return "", &domain.SynthesisError{Strategy: domain.ResponseModeCompact.String(), Err: err}
	}
	return answer, nil
}

// treeSummarize partitions fragments into groups within the per-call
// budget, summarises each group, and reduces recursively until the
// remaining summaries fit one final answering call. Trades latency
// (multiple calls) for coverage when the candidate set is large.
func (s *Synthesizer) treeSummarize(
	ctx context.Context,
	question string,
	fragments []domain.RankedFragment,
	history []domain.ChatTurn,
) (string, error) {
	texts := make([]string, len(fragments))
	for i, rf := range fragments {
		texts[i] = fragmentContext(rf)
	}

	level := 0
	for len(texts) > s.cfg.GroupFragments {
		level++
		groups := groupTexts(texts, s.cfg.GroupFragments)
		logger.Debug("Tree level %d: %d texts -> %d groups", level, len(texts), len(groups))

		summaries := make([]string, 0, len(groups))
		for _, group := range groups {
			prompt := fmt.Sprintf(groupSummaryPrompt, question, strings.Join(group, "\n\n"))
			summary, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
				MaxTokens:   s.cfg.MaxTokens,
				Temperature: s.cfg.Temperature,
			})
			if err != nil {
				return "", &domain.SynthesisError{
					Strategy: domain.ResponseModeTreeSummarize.String(),
					Err:      err,
				}
			}
			summaries = append(summaries, summary)
		}
		texts = summaries
	}

	answer, err := s.answerCall(ctx, question, strings.Join(texts, "\n\n"), history)
	if err != nil {
		return "", &domain.SynthesisError{
			Strategy: domain.ResponseModeTreeSummarize.String(),
			Err:      err,
		}
	}
	return answer, nil
}

// answerCall makes the final generation call: system prompt with the
// context block, prior conversation turns, then the question.
func (s *Synthesizer) answerCall(
	ctx context.Context,
	question, contextBlock string,
	history []domain.ChatTurn,
) (string, error) {
	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{
		Role:    "system",
		Content: answerSystemPrompt + "\n\nContext:\n" + contextBlock,
	})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: question})

	return s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
}

// contextBlock packs fragments most-relevant-first within the size
// budget. The top fragment is always included even if it alone exceeds
// the budget, so an answer is never synthesised from nothing.
func (s *Synthesizer) contextBlock(fragments []domain.RankedFragment) string {
	var b strings.Builder
	for i, rf := range fragments {
		entry := fragmentContext(rf)
		if i > 0 && b.Len()+len(entry)+2 > s.cfg.ContextChars {
			logger.Debug("Context budget reached after %d of %d fragments", i, len(fragments))
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
	}
	return b.String()
}

// fragmentContext renders one fragment with its source attribution.
func fragmentContext(rf domain.RankedFragment) string {
	location := rf.Fragment.Location
	if location == "" {
		location = domain.LocationUnknown
	}
	return fmt.Sprintf("[%s, page %s]\n%s", rf.Fragment.SourceName, location, rf.Fragment.Text)
}

// groupTexts splits texts into consecutive groups of at most size.
func groupTexts(texts []string, size int) [][]string {
	groups := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		groups = append(groups, texts[start:end])
	}
	return groups
}
