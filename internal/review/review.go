// Package review holds the moderator follow-up queue for uploads that were
// flagged rather than cleanly passed or blocked. The scan pipeline itself
// never persists anything; callers submit verdicts here for human review.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/errors"
)

// Statuses of a review record.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Record is one flagged upload awaiting moderator follow-up.
type Record struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	FileName    string    `json:"file_name"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason"`
	Score       int       `json:"score"`
	ResolvedBy  string    `json:"resolved_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository is the persistence boundary for review records.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*Record, int, error)
	UpdateStatus(ctx context.Context, id, status, resolvedBy string) error
}

// Service exposes the review queue operations.
type Service struct {
	log  *zap.Logger
	repo Repository
}

// NewService creates a review Service.
func NewService(log *zap.Logger, repo Repository) *Service {
	return &Service{
		log:  log.With(zap.String("module", "review")),
		repo: repo,
	}
}

// Submit queues a flagged upload for review.
func (s *Service) Submit(ctx context.Context, contentHash, fileName, userID, reason string, score int) (*Record, error) {
	rec := &Record{
		ID:          uuid.NewString(),
		ContentHash: contentHash,
		FileName:    fileName,
		UserID:      userID,
		Status:      StatusPending,
		Reason:      reason,
		Score:       score,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to submit review record", err,
			zap.String("content_hash", contentHash))
	}
	s.log.Info("upload queued for review",
		zap.String("review_id", rec.ID),
		zap.String("content_hash", contentHash),
		zap.String("reason", reason),
	)
	return rec, nil
}

// ListPending returns pending review records, newest first.
func (s *Service) ListPending(ctx context.Context, page, pageSize int) ([]*Record, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	records, total, err := s.repo.ListByStatus(ctx, StatusPending, page, pageSize)
	if err != nil {
		return nil, 0, errors.LogWithError(ctx, s.log, "failed to list pending reviews", err)
	}
	return records, total, nil
}

// Approve resolves a record as acceptable content.
func (s *Service) Approve(ctx context.Context, id, moderator string) error {
	return s.resolve(ctx, id, StatusApproved, moderator)
}

// Reject resolves a record as disallowed content.
func (s *Service) Reject(ctx context.Context, id, moderator string) error {
	return s.resolve(ctx, id, StatusRejected, moderator)
}

func (s *Service) resolve(ctx context.Context, id, status, moderator string) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return errors.LogWithError(ctx, s.log, "failed to load review record", err,
			zap.String("review_id", id))
	}
	if rec.Status != StatusPending {
		return errors.ErrReviewResolved
	}
	if err := s.repo.UpdateStatus(ctx, id, status, moderator); err != nil {
		return errors.LogWithError(ctx, s.log, "failed to resolve review record", err,
			zap.String("review_id", id))
	}
	s.log.Info("review record resolved",
		zap.String("review_id", id),
		zap.String("status", status),
		zap.String("moderator", moderator),
	)
	return nil
}
