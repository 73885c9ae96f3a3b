package imagesafety

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/internal/scan/vision"
)

// makePNG encodes a white image of the given dimensions.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// fakeClassifier returns scripted scores or an error.
type fakeClassifier struct {
	scores vision.Scores
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte) (vision.Scores, error) {
	if f.err != nil {
		return vision.NewScores(), f.err
	}
	return f.scores, nil
}

func scoresWith(c vision.Category, conf float64) vision.Scores {
	s := vision.NewScores()
	s.Raise(c, conf)
	return s
}

func TestCheckHeuristicsOnly(t *testing.T) {
	tests := []struct {
		name           string
		data           []byte
		expectSafe     bool
		expectFlagged  bool
		expectGuardian bool
		reasonContains string
	}{
		{
			name:          "normal photo without camera metadata",
			data:          makePNG(t, 640, 480),
			expectSafe:    true,
			expectFlagged: false, // 90
		},
		{
			name:           "tiny dimensions",
			data:           makePNG(t, 8, 8),
			expectSafe:     false,
			expectFlagged:  true,
			expectGuardian: true,
			reasonContains: "suspiciously small",
		},
		{
			name:           "extreme aspect ratio",
			data:           makePNG(t, 520, 40),
			expectSafe:     false,
			expectFlagged:  true,
			expectGuardian: true,
			reasonContains: "aspect ratio",
		},
		{
			name:           "undecodable bytes",
			data:           []byte("definitely not an image"),
			expectSafe:     false,
			expectFlagged:  true,
			expectGuardian: true,
			reasonContains: "could not be decoded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(nil, zap.NewNop())
			res := s.Check(context.Background(), tt.data)

			assert.Equal(t, tt.expectSafe, res.Safe)
			assert.Equal(t, tt.expectFlagged, res.FlaggedForReview)
			assert.Equal(t, tt.expectGuardian, res.GuardianNotificationRequired)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
			if tt.reasonContains != "" {
				found := false
				for _, r := range res.Reasons {
					if bytes.Contains([]byte(r), []byte(tt.reasonContains)) {
						found = true
					}
				}
				assert.True(t, found, "reasons %v missing %q", res.Reasons, tt.reasonContains)
			}
		})
	}
}

func TestCheckOversizedFile(t *testing.T) {
	img := makePNG(t, 320, 240)
	padded := append(img, bytes.Repeat([]byte{0x00}, 16<<20)...)

	s := NewScorer(nil, zap.NewNop())
	res := s.Check(context.Background(), padded)

	// 100 - 20 (oversized) - 10 (no metadata) = 70: still safe, flagged.
	assert.True(t, res.Safe)
	assert.True(t, res.FlaggedForReview)
	assert.Equal(t, 70, res.Score)
}

func TestCheckClassifierBlocks(t *testing.T) {
	fc := &fakeClassifier{scores: scoresWith(vision.CategoryExplicitNudity, 95)}
	s := NewScorer(fc, zap.NewNop())

	res := s.Check(context.Background(), makePNG(t, 640, 480))
	assert.False(t, res.Safe)
	assert.Equal(t, 0, res.Score)
	assert.True(t, res.GuardianNotificationRequired)
	assert.Contains(t, res.Reasons, "explicit content detected")
}

func TestCheckClassifierFlagsForReview(t *testing.T) {
	fc := &fakeClassifier{scores: scoresWith(vision.CategoryAlcohol, 65)}
	s := NewScorer(fc, zap.NewNop())

	res := s.Check(context.Background(), makePNG(t, 640, 480))
	// Score capped at 75: safe but flagged, no guardian notification.
	assert.True(t, res.Safe)
	assert.Equal(t, 75, res.Score)
	assert.True(t, res.FlaggedForReview)
	assert.False(t, res.GuardianNotificationRequired)
}

func TestCheckClassifierCleanBonus(t *testing.T) {
	fc := &fakeClassifier{scores: vision.NewScores()}
	s := NewScorer(fc, zap.NewNop())

	res := s.Check(context.Background(), makePNG(t, 640, 480))
	// 100 - 10 (no metadata) + 2 (clean bonus) = 92.
	assert.True(t, res.Safe)
	assert.Equal(t, 92, res.Score)
	assert.False(t, res.FlaggedForReview)
}

func TestCheckClassifierFailureFailsOpen(t *testing.T) {
	fc := &fakeClassifier{err: fmt.Errorf("service unavailable")}
	s := NewScorer(fc, zap.NewNop())

	res := s.Check(context.Background(), makePNG(t, 640, 480))
	// The file is not blocked, but it always requires review.
	assert.True(t, res.Safe)
	assert.True(t, res.FlaggedForReview)
	found := false
	for _, r := range res.Reasons {
		if r == "visual classifier unavailable, manual review required" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckScoreNeverNegative(t *testing.T) {
	// Stack every deduction with a blocking classifier outcome.
	fc := &fakeClassifier{scores: scoresWith(vision.CategoryViolence, 99)}
	s := NewScorer(fc, zap.NewNop())

	res := s.Check(context.Background(), []byte("not an image at all"))
	assert.GreaterOrEqual(t, res.Score, 0)
	assert.False(t, res.Safe)
}
