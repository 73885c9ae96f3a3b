// Package imagesafety implements the image-intake safety policy: a 0-100
// composite score built from local heuristics and the visual classifier.
// This policy is deliberately separate from the reputation-based verdict and
// the two are never merged; see DESIGN.md.
package imagesafety

import (
	"bytes"
	"context"
	"image"
	"time"

	// Register decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/brightpath/safescan/internal/scan/sanitize"
	"github.com/brightpath/safescan/internal/scan/vision"
	"github.com/brightpath/safescan/pkg/metrics"
)

// Scoring policy constants.
const (
	safeThreshold   = 70
	reviewThreshold = 80

	minDimension   = 32
	maxAspectRatio = 10.0
	maxFileSize    = 15 << 20

	deductTinyDimensions = 40
	deductExtremeAspect  = 25
	deductOversized      = 20
	deductNoMetadata     = 10
	deductUndecodable    = 30

	cleanBonus = 2
	reviewCap  = 75
	maxScore   = 100
)

// Result is the outcome of the image safety check.
type Result struct {
	Safe                         bool     `json:"safe"`
	Score                        int      `json:"score"`
	Reasons                      []string `json:"reasons"`
	FlaggedForReview             bool     `json:"flagged_for_review"`
	GuardianNotificationRequired bool     `json:"guardian_notification_required"`
}

// Classifier is the visual classification capability. Nil means the
// classifier is not configured and only local heuristics apply.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (vision.Scores, error)
}

// Scorer computes composite image safety scores.
type Scorer struct {
	classifier Classifier
	log        *zap.Logger
}

// NewScorer creates a Scorer. classifier may be nil.
func NewScorer(classifier Classifier, log *zap.Logger) *Scorer {
	return &Scorer{
		classifier: classifier,
		log:        log.With(zap.String("module", "imagesafety")),
	}
}

// Check scores the image. The score starts at 100 and only decreases, apart
// from a small bonus for a clean classifier pass; it is clamped at 0.
func (s *Scorer) Check(ctx context.Context, data []byte) Result {
	started := time.Now()
	score := maxScore
	var reasons []string

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err != nil:
		score -= deductUndecodable
		reasons = append(reasons, "image could not be decoded")
	default:
		if cfg.Width < minDimension || cfg.Height < minDimension {
			score -= deductTinyDimensions
			reasons = append(reasons, "image dimensions suspiciously small")
		}
		if ratio(cfg.Width, cfg.Height) > maxAspectRatio {
			score -= deductExtremeAspect
			reasons = append(reasons, "extreme aspect ratio")
		}
	}

	if len(data) > maxFileSize {
		score -= deductOversized
		reasons = append(reasons, "file larger than expected for a photo")
	}

	if !sanitize.HasEXIF(data) {
		score -= deductNoMetadata
		reasons = append(reasons, "no camera metadata present")
	}

	classifierFailed := false
	if s.classifier != nil {
		scores, err := s.classifier.Classify(ctx, data)
		if err != nil {
			// Fail open for this one signal: the image is flagged for
			// review, not blocked.
			classifierFailed = true
			reasons = append(reasons, "visual classifier unavailable, manual review required")
		} else {
			cat, conf := scores.Max()
			switch {
			case conf >= vision.CriticalThreshold:
				score = 0
				reasons = append(reasons, vision.BlockReason(cat))
			case conf >= vision.ReviewThreshold:
				if score > reviewCap {
					score = reviewCap
				}
				reasons = append(reasons, "classifier flagged "+string(cat)+" for review")
			default:
				if score+cleanBonus <= maxScore {
					score += cleanBonus
				} else {
					score = maxScore
				}
			}
		}
	}

	if score < 0 {
		score = 0
	}

	res := Result{
		Safe:                         score >= safeThreshold,
		Score:                        score,
		Reasons:                      reasons,
		FlaggedForReview:             score < reviewThreshold || classifierFailed,
		GuardianNotificationRequired: score < safeThreshold,
	}

	metrics.ObserveScan("image_safety", res.Safe, started)
	if !res.Safe {
		s.log.Info("image failed safety check",
			zap.Int("score", res.Score),
			zap.Strings("reasons", res.Reasons),
		)
	}
	return res
}

func ratio(w, h int) float64 {
	if w == 0 || h == 0 {
		return 0
	}
	r := float64(w) / float64(h)
	if r < 1 {
		r = 1 / r
	}
	return r
}
