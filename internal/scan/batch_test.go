package scan

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingScanner records the peak number of concurrent ScanFile calls.
type countingScanner struct {
	mu      sync.Mutex
	current int32
	peak    int32
	calls   int32
}

func (c *countingScanner) ScanFile(ctx context.Context, req Request) Verdict {
	cur := atomic.AddInt32(&c.current, 1)
	c.mu.Lock()
	if cur > c.peak {
		c.peak = cur
	}
	c.mu.Unlock()
	defer atomic.AddInt32(&c.current, -1)
	atomic.AddInt32(&c.calls, 1)

	if len(req.Data) == 0 {
		return NewVerdict(false, TypeHeuristic, Details{}, "file is empty")
	}
	return NewVerdict(true, TypeOfflineFallback, Details{}, "")
}

func TestScanBatchCapsConcurrency(t *testing.T) {
	cs := &countingScanner{}
	reqs := make([]Request, 17)
	for i := range reqs {
		reqs[i] = Request{Data: []byte(fmt.Sprintf("file-%d", i)), FileName: fmt.Sprintf("f%d.jpg", i)}
	}

	verdicts := ScanBatch(context.Background(), cs, reqs)
	require.Len(t, verdicts, 17)
	assert.Equal(t, int32(17), cs.calls)
	assert.LessOrEqual(t, cs.peak, int32(batchSize))
	for _, v := range verdicts {
		assert.True(t, v.Safe)
	}
}

func TestScanBatchPerItemFailures(t *testing.T) {
	cs := &countingScanner{}
	reqs := []Request{
		{Data: []byte("good"), FileName: "a.jpg"},
		{FileName: "empty.jpg"}, // fails
		{Data: []byte("good too"), FileName: "b.jpg"},
	}

	verdicts := ScanBatch(context.Background(), cs, reqs)
	require.Len(t, verdicts, 3)
	assert.True(t, verdicts[0].Safe)
	assert.False(t, verdicts[1].Safe)
	assert.True(t, verdicts[2].Safe)
}

func TestScanBatchCancelledMarksRemainderAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(zap.NewNop(), nil, nil, 0)
	reqs := []Request{
		{Data: []byte("x"), FileName: "a.jpg"},
		{Data: []byte("y"), FileName: "b.jpg"},
	}

	verdicts := ScanBatch(ctx, s, reqs)
	require.Len(t, verdicts, 2)
	for _, v := range verdicts {
		assert.False(t, v.Safe, "aborted batch must not report safe by default")
		assert.NotEmpty(t, v.Error)
	}
}

func TestScanBatchEmpty(t *testing.T) {
	verdicts := ScanBatch(context.Background(), &countingScanner{}, nil)
	assert.Empty(t, verdicts)
}

func TestCacheableVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		verdict  Verdict
		expected bool
	}{
		{
			name:     "completed safe verdict",
			verdict:  NewVerdict(true, TypeReputation, Details{}, ""),
			expected: true,
		},
		{
			name:     "reputation block with threats",
			verdict:  NewVerdict(false, TypeReputation, Details{MaliciousCount: 5, ThreatNames: []string{"Trojan"}}, "flagged"),
			expected: true,
		},
		{
			name:     "document script block",
			verdict:  NewVerdict(false, TypeHeuristic, Details{PDFJavaScript: true}, "script"),
			expected: true,
		},
		{
			name:     "aborted scan never cached",
			verdict:  NewVerdict(false, TypeHeuristic, Details{}, "scan aborted"),
			expected: false,
		},
		{
			name:     "transport failure never cached",
			verdict:  NewVerdict(false, TypeReputation, Details{}, "reputation scan failed"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cacheable(tt.verdict))
		})
	}
}
