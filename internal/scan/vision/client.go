package vision

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/json"
	"github.com/brightpath/safescan/pkg/metrics"
)

// Thresholds applied by the image safety scorer, not by this client.
const (
	// CriticalThreshold blocks the image outright.
	CriticalThreshold = 85.0
	// ReviewThreshold flags the image for manual follow-up without blocking.
	ReviewThreshold = 60.0
)

// Client submits image bytes to the external visual classifier and maps the
// returned labels into the fixed category set.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zap.Logger
}

// NewClient creates a visual classifier client.
func NewClient(endpoint, apiKey string, log *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 20 * time.Second},
		log:      log.With(zap.String("module", "vision")),
	}
}

// labelResponse mirrors the classifier's payload: a flat list of
// (label, confidence) pairs with confidence in 0-100.
type labelResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// Classify submits the image and returns per-category maximum confidences.
// On transport failure it returns an error alongside empty scores; the
// caller treats that as "no classifier signal" and flags for review rather
// than blocking.
func (c *Client) Classify(ctx context.Context, image []byte) (Scores, error) {
	scores := NewScores()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return scores, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ExternalFailures.WithLabelValues("vision").Inc()
		c.log.Warn("visual classifier unavailable", zap.Error(err))
		return scores, fmt.Errorf("classify image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExternalFailures.WithLabelValues("vision").Inc()
		c.log.Warn("visual classifier returned error", zap.Int("status", resp.StatusCode))
		return scores, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var payload labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ExternalFailures.WithLabelValues("vision").Inc()
		return scores, fmt.Errorf("decode classifier response: %w", err)
	}

	for _, label := range payload.Labels {
		scores.RaiseLabel(label.Name, label.Confidence)
	}
	return scores, nil
}
