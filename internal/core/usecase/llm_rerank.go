package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

const rerankExcerptLimit = 600

// LLMReranker reorders an already narrowed candidate set using the language model.
// The model's answer is advisory: ids it invents are ignored and candidates it
// leaves out keep their vector order after the ones it mentions.
type LLMReranker struct {
	llm    ports.LanguageModel
	logger *slog.Logger
}

func NewLLMReranker(llm ports.LanguageModel, logger *slog.Logger) *LLMReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMReranker{llm: llm, logger: logger}
}

func (r *LLMReranker) Rerank(ctx context.Context, query string, reviews []domain.Review) ([]domain.Review, error) {
	if len(reviews) < 2 {
		return reviews, nil
	}

	respText, err := r.llm.Complete(ctx, rerankInstruction, buildRerankPrompt(query, reviews))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrLanguageModelUnavailable, "llm rerank", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(extractJSONArray(respText)), &ids); err != nil {
		r.logger.Warn("llm_rerank_unparsable", "candidates", len(reviews), "error", err)
		return reviews, nil
	}
	return applyRerankOrder(reviews, ids), nil
}

func buildRerankPrompt(query string, reviews []domain.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nReviews:\n", strings.TrimSpace(query))
	for _, review := range reviews {
		text := review.SearchText()
		if runes := []rune(text); len(runes) > rerankExcerptLimit {
			text = string(runes[:rerankExcerptLimit])
		}
		text = strings.ReplaceAll(text, "\n", " ")
		fmt.Fprintf(&b, "- id=%s: %s\n", review.ID, text)
	}
	return b.String()
}

func applyRerankOrder(reviews []domain.Review, ids []string) []domain.Review {
	byID := make(map[string]int, len(reviews))
	for i, review := range reviews {
		byID[review.ID] = i
	}

	used := make([]bool, len(reviews))
	out := make([]domain.Review, 0, len(reviews))
	for _, id := range ids {
		i, ok := byID[strings.TrimSpace(id)]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, reviews[i])
	}
	for i, review := range reviews {
		if !used[i] {
			out = append(out, review)
		}
	}
	return out
}
