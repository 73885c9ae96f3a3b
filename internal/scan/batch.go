package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchSize caps concurrent in-flight scans so the external reputation
// service's own concurrency limits are respected.
const batchSize = 5

// FileScanner is implemented by Scanner and CachedScanner.
type FileScanner interface {
	ScanFile(ctx context.Context, req Request) Verdict
}

// ScanBatch scans multiple files. Requests are processed in chunks of
// batchSize: within a chunk scans run in parallel, chunks run sequentially.
// The returned slice is index-aligned with reqs; per-item failures surface
// as failed verdicts. Cancellation stops between chunks and marks the
// remainder aborted rather than safe.
func ScanBatch(ctx context.Context, scanner FileScanner, reqs []Request) []Verdict {
	verdicts := make([]Verdict, len(reqs))

	for start := 0; start < len(reqs); start += batchSize {
		end := start + batchSize
		if end > len(reqs) {
			end = len(reqs)
		}

		if err := ctx.Err(); err != nil {
			for i := start; i < len(reqs); i++ {
				verdicts[i] = NewVerdict(false, TypeHeuristic, Details{}, "scan aborted")
			}
			return verdicts
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				verdicts[i] = scanner.ScanFile(gctx, reqs[i])
				return nil
			})
		}
		// Workers only write disjoint slice slots and never return errors.
		_ = g.Wait()
	}
	return verdicts
}
