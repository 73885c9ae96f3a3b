// Package clamav streams file bytes to a local ClamAV daemon as a
// supplementary detection engine. The reputation service remains the
// fail-closed engine; an unreachable daemon only degrades coverage.
package clamav

import (
	"bytes"
	"context"
	"fmt"

	clamd "github.com/dutchcoders/go-clamd"
	"go.uber.org/zap"
)

// Engine wraps a ClamAV daemon connection.
type Engine struct {
	clam *clamd.Clamd
	log  *zap.Logger
}

// New creates an Engine for the daemon at addr, e.g. "tcp://localhost:3310".
func New(addr string, log *zap.Logger) *Engine {
	return &Engine{
		clam: clamd.NewClamd(addr),
		log:  log.With(zap.String("module", "clamav")),
	}
}

// Ping checks daemon reachability.
func (e *Engine) Ping() error {
	return e.clam.Ping()
}

// ScanBytes streams content to the daemon. It returns whether the daemon
// flagged the content and the threat name if so.
func (e *Engine) ScanBytes(ctx context.Context, data []byte) (infected bool, threat string, err error) {
	abort := make(chan bool)
	defer close(abort)

	results, err := e.clam.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return false, "", fmt.Errorf("clamd scan stream: %w", err)
	}

	select {
	case <-ctx.Done():
		return false, "", ctx.Err()
	case res, ok := <-results:
		if !ok || res == nil {
			return false, "", fmt.Errorf("clamd returned no result")
		}
		if res.Status == clamd.RES_FOUND {
			e.log.Warn("local engine flagged content", zap.String("threat", res.Description))
			return true, res.Description, nil
		}
		return false, "", nil
	}
}
