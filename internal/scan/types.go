// Package scan implements the upload content-safety pipeline: local
// signature and document-script inspection, metadata sanitization, and
// integration with external reputation and visual classification services.
package scan

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies which policy produced a verdict.
type Type string

const (
	// TypeReputation means the verdict came from the multi-engine reputation service.
	TypeReputation Type = "reputation"
	// TypeHeuristic means the verdict came from local heuristic checks.
	TypeHeuristic Type = "heuristic"
	// TypeOfflineFallback means no reputation credential was configured and
	// only local checks ran.
	TypeOfflineFallback Type = "offline_fallback"
)

// Request is the immutable input to a scan. The pipeline never mutates the
// caller's byte slice.
type Request struct {
	Data     []byte `json:"-"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// Details carries the evidence behind a verdict.
type Details struct {
	MaliciousCount   int      `json:"malicious_count,omitempty"`
	SuspiciousCount  int      `json:"suspicious_count,omitempty"`
	TotalEngines     int      `json:"total_engines,omitempty"`
	MetadataStripped bool     `json:"metadata_stripped,omitempty"`
	PDFJavaScript    bool     `json:"pdf_javascript,omitempty"`
	ThreatNames      []string `json:"threat_names,omitempty"`
	ExternalScanID   string   `json:"external_scan_id,omitempty"`
}

// Verdict is the single pass/fail/review decision for one request. It is
// produced once and never mutated after construction. An unsafe verdict
// always carries a non-empty Error, at least one ThreatName, or
// Details.PDFJavaScript for traceability.
type Verdict struct {
	ScanID    string    `json:"scan_id"`
	Safe      bool      `json:"safe"`
	ScanType  Type      `json:"scan_type"`
	Details   Details   `json:"details"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewVerdict constructs a verdict stamped with a fresh scan ID.
func NewVerdict(safe bool, scanType Type, details Details, errMsg string) Verdict {
	return Verdict{
		ScanID:    uuid.NewString(),
		Safe:      safe,
		ScanType:  scanType,
		Details:   details,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}
