package reputation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/errors"
)

// fakeAPI scripts the reputation service's behavior per call.
type fakeAPI struct {
	lookup      LookupResult
	lookupErr   error
	upload      UploadResult
	uploadErr   error
	pollResults []PollResult
	pollErr     error
	pollCalls   int
	report      *Report
	reportErr   error
}

func (f *fakeAPI) LookupHash(ctx context.Context, sha256 string) (LookupResult, error) {
	return f.lookup, f.lookupErr
}

func (f *fakeAPI) UploadFile(ctx context.Context, data []byte, fileName string) (UploadResult, error) {
	return f.upload, f.uploadErr
}

func (f *fakeAPI) PollAnalysis(ctx context.Context, analysisID string) (PollResult, error) {
	if f.pollErr != nil {
		return PollResult{}, f.pollErr
	}
	if f.pollCalls >= len(f.pollResults) {
		return PollResult{Status: PollPending}, nil
	}
	res := f.pollResults[f.pollCalls]
	f.pollCalls++
	return res, nil
}

func (f *fakeAPI) FetchReport(ctx context.Context, sha256 string) (*Report, error) {
	return f.report, f.reportErr
}

func instantPoller() Poller {
	p := NewPoller(time.Millisecond, 10, time.Minute)
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func reportWith(malicious, suspicious, clean int) *Report {
	r := &Report{SHA256: "abc"}
	for i := 0; i < malicious; i++ {
		r.Engines = append(r.Engines, EngineResult{
			Engine:   fmt.Sprintf("engine-m%d", i),
			Category: CategoryMalicious,
			Threat:   fmt.Sprintf("Trojan.Generic.%d", i),
		})
	}
	for i := 0; i < suspicious; i++ {
		r.Engines = append(r.Engines, EngineResult{
			Engine:   fmt.Sprintf("engine-s%d", i),
			Category: CategorySuspicious,
		})
	}
	for i := 0; i < clean; i++ {
		r.Engines = append(r.Engines, EngineResult{
			Engine:   fmt.Sprintf("engine-c%d", i),
			Category: CategoryHarmless,
		})
	}
	return r
}

func TestScanKnownHash(t *testing.T) {
	tests := []struct {
		name           string
		report         *Report
		expectSafe     bool
		expectThreats  int
		expectTotalEng int
	}{
		{
			name:           "zero malicious engines is safe",
			report:         reportWith(0, 0, 50),
			expectSafe:     true,
			expectTotalEng: 50,
		},
		{
			name:           "below agreement threshold is safe",
			report:         reportWith(2, 1, 40),
			expectSafe:     true,
			expectThreats:  2,
			expectTotalEng: 43,
		},
		{
			name:           "at agreement threshold is blocked",
			report:         reportWith(3, 0, 40),
			expectSafe:     false,
			expectThreats:  3,
			expectTotalEng: 43,
		},
		{
			name:           "well above threshold is blocked",
			report:         reportWith(20, 5, 20),
			expectSafe:     false,
			expectThreats:  20,
			expectTotalEng: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{lookup: LookupResult{Found: true, Report: tt.report}}
			c := NewClientWithPoller(api, instantPoller(), zap.NewNop())

			outcome, err := c.Scan(context.Background(), []byte("content"), "file.jpg", "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.expectSafe, outcome.Safe)
			assert.Len(t, outcome.ThreatNames, tt.expectThreats)
			assert.Equal(t, tt.expectTotalEng, outcome.TotalEngines)
		})
	}
}

func TestScanUploadAndPoll(t *testing.T) {
	api := &fakeAPI{
		lookup: LookupResult{Found: false},
		upload: UploadResult{AnalysisID: "analysis-1"},
		pollResults: []PollResult{
			{Status: PollPending, Detail: "queued"},
			{Status: PollPending, Detail: "in-progress"},
			{Status: PollCompleted},
		},
		report: reportWith(0, 0, 30),
	}
	c := NewClientWithPoller(api, instantPoller(), zap.NewNop())

	outcome, err := c.Scan(context.Background(), []byte("new content"), "new.jpg", "def")
	require.NoError(t, err)
	assert.True(t, outcome.Safe)
	assert.Equal(t, "analysis-1", outcome.AnalysisID)
	assert.Equal(t, 3, api.pollCalls)
}

func TestScanPollExhaustionFailsClosed(t *testing.T) {
	api := &fakeAPI{
		lookup: LookupResult{Found: false},
		upload: UploadResult{AnalysisID: "analysis-2"},
		// Never completes.
	}
	c := NewClientWithPoller(api, instantPoller(), zap.NewNop())

	outcome, err := c.Scan(context.Background(), []byte("x"), "x.jpg", "ghi")
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, errors.ErrScanTimeout)
}

func TestScanTransportFailureFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{
			name: "lookup error",
			api:  &fakeAPI{lookupErr: fmt.Errorf("connection refused")},
		},
		{
			name: "upload error",
			api:  &fakeAPI{uploadErr: fmt.Errorf("connection reset")},
		},
		{
			name: "poll error",
			api: &fakeAPI{
				upload:  UploadResult{AnalysisID: "a"},
				pollErr: fmt.Errorf("gateway timeout"),
			},
		},
		{
			name: "report fetch error",
			api: &fakeAPI{
				upload:      UploadResult{AnalysisID: "a"},
				pollResults: []PollResult{{Status: PollCompleted}},
				reportErr:   fmt.Errorf("bad payload"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithPoller(tt.api, instantPoller(), zap.NewNop())
			outcome, err := c.Scan(context.Background(), []byte("x"), "x.jpg", "sha")
			assert.Nil(t, outcome)
			assert.Error(t, err)
		})
	}
}

func TestScanFailedAnalysisFailsClosed(t *testing.T) {
	api := &fakeAPI{
		upload:      UploadResult{AnalysisID: "a"},
		pollResults: []PollResult{{Status: PollFailed, Detail: "engine crash"}},
	}
	c := NewClientWithPoller(api, instantPoller(), zap.NewNop())

	outcome, err := c.Scan(context.Background(), []byte("x"), "x.jpg", "sha")
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	api := &fakeAPI{lookupErr: fmt.Errorf("connection refused")}
	c := NewClientWithPoller(api, instantPoller(), zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := c.Scan(context.Background(), []byte("x"), "x.jpg", "sha")
		require.Error(t, err)
	}

	// The breaker is now open; calls fail fast but still fail closed.
	api.lookupErr = nil
	api.lookup = LookupResult{Found: true, Report: reportWith(0, 0, 10)}
	_, err := c.Scan(context.Background(), []byte("x"), "x.jpg", "sha")
	assert.Error(t, err)
}
