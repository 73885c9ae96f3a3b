package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/metrics"
)

const (
	// agreementThreshold is the minimum number of engines that must flag a
	// file malicious before it is blocked. A small absolute count has to
	// agree so one noisy engine cannot block every upload.
	agreementThreshold = 3

	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 10
	defaultPollDeadline = 45 * time.Second
)

// Client drives the hash-lookup → upload → poll → parse protocol against the
// reputation service. All calls go through a circuit breaker so a flapping
// upstream degrades fast; an open breaker still blocks files (fail closed).
type Client struct {
	api     API
	poller  Poller
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewClient creates a reputation client around the given API.
func NewClient(api API, log *zap.Logger) *Client {
	return NewClientWithPoller(api, NewPoller(defaultPollInterval, defaultMaxAttempts, defaultPollDeadline), log)
}

// NewClientWithPoller creates a reputation client with a custom poller,
// used by tests to avoid real sleeps.
func NewClientWithPoller(api API, poller Poller, log *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reputation",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		api:     api,
		poller:  poller,
		breaker: breaker,
		log:     log.With(zap.String("module", "reputation")),
	}
}

// Scan runs the full protocol for the given content hash. A non-nil error
// means the scan could not complete and the caller must treat the file as
// blocked; this path services a child-safety requirement and never fails
// open.
func (c *Client) Scan(ctx context.Context, data []byte, fileName, sha256 string) (*Outcome, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.scanOnce(ctx, data, fileName, sha256)
	})
	if err != nil {
		metrics.ExternalFailures.WithLabelValues("reputation").Inc()
		c.log.Warn("reputation scan failed",
			zap.String("file_name", fileName),
			zap.String("sha256", sha256),
			zap.Error(err),
		)
		return nil, err
	}
	outcome, ok := result.(*Outcome)
	if !ok {
		return nil, fmt.Errorf("unexpected breaker result type %T", result)
	}
	return outcome, nil
}

func (c *Client) scanOnce(ctx context.Context, data []byte, fileName, sha256 string) (*Outcome, error) {
	lookup, err := c.api.LookupHash(ctx, sha256)
	if err != nil {
		return nil, fmt.Errorf("hash lookup: %w", err)
	}
	if lookup.Found {
		c.log.Debug("hash known to reputation service", zap.String("sha256", sha256))
		return c.parse(lookup.Report, ""), nil
	}

	upload, err := c.api.UploadFile(ctx, data, fileName)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	c.log.Info("file uploaded for analysis",
		zap.String("sha256", sha256),
		zap.String("analysis_id", upload.AnalysisID),
	)

	err = c.poller.Wait(ctx, func(ctx context.Context) (bool, error) {
		poll, err := c.api.PollAnalysis(ctx, upload.AnalysisID)
		if err != nil {
			return false, fmt.Errorf("poll analysis: %w", err)
		}
		switch poll.Status {
		case PollCompleted:
			return true, nil
		case PollFailed:
			return false, fmt.Errorf("analysis failed: %s", poll.Detail)
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	report, err := c.api.FetchReport(ctx, sha256)
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}
	return c.parse(report, upload.AnalysisID), nil
}

// parse applies the agreement policy to a report. The file is safe if no
// engine flagged it malicious, or fewer than agreementThreshold engines did.
func (c *Client) parse(report *Report, analysisID string) *Outcome {
	malicious, suspicious := report.Counts()
	safe := malicious == 0 || malicious < agreementThreshold
	return &Outcome{
		Safe:            safe,
		MaliciousCount:  malicious,
		SuspiciousCount: suspicious,
		TotalEngines:    len(report.Engines),
		ThreatNames:     report.ThreatNames(),
		AnalysisID:      analysisID,
		SHA256:          report.SHA256,
	}
}
