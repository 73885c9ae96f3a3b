package scan

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath/safescan/internal/scan/docscript"
	"github.com/brightpath/safescan/internal/scan/reputation"
	"github.com/brightpath/safescan/internal/scan/sanitize"
	"github.com/brightpath/safescan/internal/scan/signature"
	"github.com/brightpath/safescan/pkg/errors"
	"github.com/brightpath/safescan/pkg/metrics"
)

// LocalEngine is an optional supplementary detection engine (a local AV
// daemon). A daemon error degrades coverage but does not block the file;
// the reputation path is the fail-closed engine.
type LocalEngine interface {
	ScanBytes(ctx context.Context, data []byte) (infected bool, threat string, err error)
}

// Scanner sequences the safety pipeline: signature inspection, document
// script detection, metadata sanitization, then the reputation scan when a
// credential is configured. Optional capabilities are explicit nilable
// fields, never globals.
type Scanner struct {
	log         *zap.Logger
	reputation  *reputation.Client
	localEngine LocalEngine
	maxFileSize int64
}

// NewScanner creates a Scanner. reputationClient and localEngine may be nil;
// each nil capability is skipped with a degraded-mode log, not an error.
func NewScanner(log *zap.Logger, reputationClient *reputation.Client, localEngine LocalEngine, maxFileSize int64) *Scanner {
	if maxFileSize <= 0 {
		maxFileSize = 32 << 20
	}
	s := &Scanner{
		log:         log.With(zap.String("module", "scan")),
		reputation:  reputationClient,
		localEngine: localEngine,
		maxFileSize: maxFileSize,
	}
	if reputationClient == nil {
		s.log.Warn("reputation credential not configured, scans fall back to local checks only")
	}
	return s
}

// ScanFile runs the full pipeline for one request and always returns a
// structured verdict; it never panics past its boundary. An aborted scan
// yields a failed verdict distinguishable from a completed safe one.
func (s *Scanner) ScanFile(ctx context.Context, req Request) Verdict {
	started := time.Now()
	metrics.ActiveScans.Inc()
	defer metrics.ActiveScans.Dec()

	verdict := s.scanFile(ctx, req)
	metrics.ObserveScan(string(verdict.ScanType), verdict.Safe, started)
	return verdict
}

func (s *Scanner) scanFile(ctx context.Context, req Request) Verdict {
	if len(req.Data) == 0 {
		return NewVerdict(false, TypeHeuristic, Details{}, errors.ErrEmptyFile.Error())
	}
	if int64(len(req.Data)) > s.maxFileSize {
		return NewVerdict(false, TypeHeuristic, Details{}, errors.ErrFileTooLarge.Error())
	}

	if res := signature.Inspect(req.Data, req.FileName); !res.Safe {
		metrics.StageBlocks.WithLabelValues("signature").Inc()
		s.log.Info("file blocked by signature inspection",
			zap.String("file_name", req.FileName),
			zap.String("reason", res.Reason),
		)
		return NewVerdict(false, TypeHeuristic, Details{}, res.Reason)
	}

	if docscript.IsPDF(req.Data, req.MimeType) && docscript.ContainsScript(req.Data) {
		metrics.StageBlocks.WithLabelValues("docscript").Inc()
		s.log.Info("document blocked for embedded script",
			zap.String("file_name", req.FileName),
		)
		return NewVerdict(false, TypeHeuristic, Details{PDFJavaScript: true},
			"document contains embedded script actions")
	}

	data := req.Data
	details := Details{}
	if strings.HasPrefix(strings.ToLower(req.MimeType), "image/") {
		res := sanitize.Strip(data, req.MimeType)
		if res.Success {
			data = res.Cleaned
			details.MetadataStripped = true
		} else {
			// Metadata not verified removed; the file itself still proceeds.
			s.log.Debug("metadata sanitization unavailable",
				zap.String("mime_type", req.MimeType),
				zap.String("reason", res.Err),
			)
		}
	}

	if s.localEngine != nil {
		infected, threat, err := s.localEngine.ScanBytes(ctx, data)
		switch {
		case err != nil:
			s.log.Warn("local engine unavailable, continuing degraded", zap.Error(err))
		case infected:
			metrics.StageBlocks.WithLabelValues("local_engine").Inc()
			details.ThreatNames = append(details.ThreatNames, threat)
			return NewVerdict(false, TypeHeuristic, details, "local engine flagged content")
		}
	}

	if err := ctx.Err(); err != nil {
		return NewVerdict(false, TypeHeuristic, details, errors.ErrScanAborted.Error())
	}

	if s.reputation == nil {
		return NewVerdict(true, TypeOfflineFallback, details, "")
	}

	sha256 := ContentHash(data)
	outcome, err := s.reputation.Scan(ctx, data, req.FileName, sha256)
	if err != nil {
		// Fail closed: network trouble blocks the file.
		msg := "reputation scan failed"
		if ctx.Err() != nil {
			msg = errors.ErrScanAborted.Error()
		}
		return NewVerdict(false, TypeReputation, details, msg)
	}

	details.MaliciousCount = outcome.MaliciousCount
	details.SuspiciousCount = outcome.SuspiciousCount
	details.TotalEngines = outcome.TotalEngines
	details.ThreatNames = append(details.ThreatNames, outcome.ThreatNames...)
	details.ExternalScanID = outcome.AnalysisID

	errMsg := ""
	if !outcome.Safe {
		errMsg = "flagged by reputation engines"
	}
	return NewVerdict(outcome.Safe, TypeReputation, details, errMsg)
}
