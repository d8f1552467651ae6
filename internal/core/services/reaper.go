package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.MaintenanceService = (*StaleRevisionReaper)(nil)

const reapBatchSize = 100

// ReaperConfig holds configuration for StaleRevisionReaper.
type ReaperConfig struct {
	Revisions         driven.RevisionStore
	UploadTimeout     time.Duration // UPLOADED longer than this is expired (default: 1h)
	ProcessingTimeout time.Duration // PROCESSING longer than this is failed (default: 30m)
	Logger            *slog.Logger
}

// StaleRevisionReaper fails revisions whose worker never started or died
// mid-pipeline, so they can be reprocessed.
type StaleRevisionReaper struct {
	revisions         driven.RevisionStore
	uploadTimeout     time.Duration
	processingTimeout time.Duration
	logger            *slog.Logger
}

// NewStaleRevisionReaper creates a reaper.
func NewStaleRevisionReaper(cfg ReaperConfig) *StaleRevisionReaper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = time.Hour
	}
	processingTimeout := cfg.ProcessingTimeout
	if processingTimeout <= 0 {
		processingTimeout = 30 * time.Minute
	}

	return &StaleRevisionReaper{
		revisions:         cfg.Revisions,
		uploadTimeout:     uploadTimeout,
		processingTimeout: processingTimeout,
		logger:            logger.With("component", "reaper"),
	}
}

// ReapStale moves stale revisions to FAILED and returns how many it moved.
// A revision that changes state concurrently is skipped.
func (r *StaleRevisionReaper) ReapStale(ctx context.Context) (int, error) {
	now := time.Now()

	expired, err := r.reap(ctx, domain.StateUploaded, now.Add(-r.uploadTimeout), func(rev *domain.DocumentRevision) (domain.Transition, error) {
		u, err := rev.Uploaded()
		if err != nil {
			return domain.Transition{}, err
		}
		return u.Expire(domain.StaleUploadMessage), nil
	})
	if err != nil {
		return expired, err
	}

	failed, err := r.reap(ctx, domain.StateProcessing, now.Add(-r.processingTimeout), func(rev *domain.DocumentRevision) (domain.Transition, error) {
		p, err := rev.Processing()
		if err != nil {
			return domain.Transition{}, err
		}
		return p.Fail(fmt.Sprintf("Processing exceeded %s without completing", r.processingTimeout)), nil
	})
	total := expired + failed
	if total > 0 {
		r.logger.Info("reaped stale revisions", "expired_uploads", expired, "failed_processing", failed)
	}
	return total, err
}

func (r *StaleRevisionReaper) reap(ctx context.Context, state domain.ProcessingState, olderThan time.Time, transition func(*domain.DocumentRevision) (domain.Transition, error)) (int, error) {
	stale, err := r.revisions.ListStale(ctx, state, olderThan, reapBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale %s revisions: %w", state, err)
	}

	moved := 0
	for _, rev := range stale {
		t, err := transition(rev)
		if err != nil {
			continue
		}
		if err := r.revisions.ApplyTransition(ctx, t); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return moved, fmt.Errorf("reap revision %s: %w", rev.ID, err)
		}
		r.logger.Warn("revision reaped", "revision_id", rev.ID, "from", t.From(), "updated_at", rev.UpdatedAt)
		moved++
	}
	return moved, nil
}
