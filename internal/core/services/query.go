package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.QueryService = (*QueryOrchestrator)(nil)

// QueryOrchestrator answers questions over approved documents.
// It implements the query flow:
//  1. Validate the question
//  2. Embed it
//  3. Retrieve visible chunks above the similarity threshold
//  4. Synthesize an answer (skipped when nothing was retrieved)
//  5. Persist the QueryRecord with its citations
type QueryOrchestrator struct {
	embedder    *EmbeddingClient
	retriever   *Retriever
	synthesizer *AnswerSynthesizer
	store       driven.QueryStore
	topK        int
	threshold   *float64
	logger      *slog.Logger
}

// QueryOrchestratorConfig holds dependencies for QueryOrchestrator.
type QueryOrchestratorConfig struct {
	Embedder    *EmbeddingClient
	Retriever   *Retriever
	Synthesizer *AnswerSynthesizer
	Store       driven.QueryStore
	TopK        int      // 0 uses the retriever default
	Threshold   *float64 // nil uses the retriever default
	Logger      *slog.Logger
}

// NewQueryOrchestrator creates a new query orchestrator.
func NewQueryOrchestrator(cfg QueryOrchestratorConfig) *QueryOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QueryOrchestrator{
		embedder:    cfg.Embedder,
		retriever:   cfg.Retriever,
		synthesizer: cfg.Synthesizer,
		store:       cfg.Store,
		topK:        cfg.TopK,
		threshold:   cfg.Threshold,
		logger:      logger.With("component", "query"),
	}
}

// Answer runs the full query pipeline for one question.
func (o *QueryOrchestrator) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	// Step 1: Validate
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	start := time.Now()
	logger := o.logger.With("user_id", req.Scope.UserID)

	// Step 2: Embed the question
	vectors, err := o.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, o.queryFailed(ctx, logger, "embed question", err)
	}

	// Step 3: Retrieve
	results, err := o.retriever.Retrieve(ctx, RetrievalRequest{
		Vector:     vectors[0],
		Scope:      req.Scope,
		Department: req.Department,
		TopK:       o.topK,
		Threshold:  o.threshold,
	})
	if err != nil {
		return nil, o.queryFailed(ctx, logger, "retrieve", err)
	}

	// Nothing cleared the threshold: record the miss without calling the generator.
	if len(results) == 0 {
		rec := o.newRecord(req, question)
		rec.Answer = domain.NoAnswerText
		rec.Success = false
		if err := o.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("save query record: %w", err)
		}
		logger.Info("query answered without sources", "query_id", rec.ID)
		return &domain.QueryResult{Record: rec, Message: domain.NoResultsMessage}, nil
	}

	// Step 4: Synthesize
	answer, err := o.synthesizer.Synthesize(ctx, question, results)
	if err != nil {
		return nil, o.queryFailed(ctx, logger, "generate answer", err)
	}

	stats := domain.ComputeSimilarityStats(results)

	// Step 5: Persist
	rec := o.newRecord(req, question)
	rec.Answer = answer.Text
	rec.ContextText = domain.FormatContext(results)
	rec.TokensUsed = answer.TokensUsed
	rec.LatencyMs = time.Since(start).Milliseconds()
	rec.Success = true
	rec.ChunksRetrieved = len(results)
	rec.AvgSimilarity = stats.Avg
	rec.Citations = domain.CitationsFrom(results)

	if err := o.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save query record: %w", err)
	}

	logger.Info("query answered",
		"query_id", rec.ID,
		"chunks", rec.ChunksRetrieved,
		"tokens", rec.TokensUsed,
		"latency_ms", rec.LatencyMs,
	)

	return &domain.QueryResult{Record: rec, Stats: stats}, nil
}

// Get returns a stored query to its asker or an admin.
func (o *QueryOrchestrator) Get(ctx context.Context, principal *domain.AuthContext, id string) (*domain.QueryRecord, error) {
	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && rec.UserID != principal.UserID {
		return nil, domain.ErrForbidden
	}
	return rec, nil
}

// History lists the principal's own queries, newest first. Admins see
// their own history too; other users' records are reached through Get.
func (o *QueryOrchestrator) History(ctx context.Context, principal *domain.AuthContext, req driving.QueryHistoryRequest) ([]*domain.QueryRecord, error) {
	limit, offset := pageBounds(req.Limit, req.Offset)
	records, err := o.store.ListByUser(ctx, driven.QueryFilter{
		UserID: principal.UserID,
		Search: strings.TrimSpace(req.Search),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return records, nil
}

func (o *QueryOrchestrator) newRecord(req domain.QueryRequest, question string) *domain.QueryRecord {
	return &domain.QueryRecord{
		ID:         uuid.NewString(),
		UserID:     req.Scope.UserID,
		Question:   question,
		Department: req.Department,
		Citations:  []domain.Citation{},
		CreatedAt:  time.Now(),
	}
}

// queryFailed logs a pipeline failure and wraps it. Caller cancellation is
// returned as-is so it is not reported as a service failure.
func (o *QueryOrchestrator) queryFailed(ctx context.Context, logger *slog.Logger, step string, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		logger.Info("query cancelled", "step", step)
		return err
	}
	logger.Error("query failed", "step", step, "error", err)
	return fmt.Errorf("%w: %s: %w", domain.ErrQueryFailed, step, err)
}
