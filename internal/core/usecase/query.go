package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

// QueryUseCase is the entry point behind every surface that resolves questions.
type QueryUseCase struct {
	retriever *HybridRetriever
	observer  ports.RetrievalObserver
	logger    *slog.Logger
}

func NewQueryUseCase(retriever *HybridRetriever, observer ports.RetrievalObserver, logger *slog.Logger) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		retriever: retriever,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *QueryUseCase) ResolveQuery(ctx context.Context, query string) (domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	started := time.Now()

	parsed, result, err := uc.retriever.retrieve(ctx, query)
	elapsed := time.Since(started)
	if err != nil {
		uc.observe(parsed.QueryType, "error", elapsed, 0)
		uc.logger.Warn("query_failed",
			"query_type", string(parsed.QueryType),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return domain.RetrievalResult{}, err
	}

	uc.observe(parsed.QueryType, "ok", elapsed, len(result.Reviews))
	uc.logger.Info("query_resolved",
		"query_type", string(parsed.QueryType),
		"reviews", len(result.Reviews),
		"places", len(result.Places),
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

func (uc *QueryUseCase) observe(queryType domain.QueryType, status string, elapsed time.Duration, reviews int) {
	if uc.observer == nil {
		return
	}
	if queryType == "" {
		queryType = "unclassified"
	}
	uc.observer.ObserveQuery(queryType, status, elapsed.Seconds(), reviews)
}
