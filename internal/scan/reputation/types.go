// Package reputation integrates with a multi-engine file reputation service
// through its hash-lookup, upload, and analysis-poll protocol. The component
// fails closed: any transport failure or poll exhaustion blocks the file.
package reputation

// EngineCategory is a single engine's classification of a file.
type EngineCategory string

const (
	CategoryHarmless   EngineCategory = "harmless"
	CategoryMalicious  EngineCategory = "malicious"
	CategorySuspicious EngineCategory = "suspicious"
	CategoryUndetected EngineCategory = "undetected"
)

// EngineResult is one engine's verdict inside a report.
type EngineResult struct {
	Engine   string         `json:"engine"`
	Category EngineCategory `json:"category"`
	Threat   string         `json:"threat,omitempty"`
}

// Report holds the per-engine verdicts for a previously analyzed file.
type Report struct {
	SHA256  string         `json:"sha256"`
	Engines []EngineResult `json:"engines"`
}

// Counts tallies malicious and suspicious engine verdicts.
func (r *Report) Counts() (malicious, suspicious int) {
	for _, e := range r.Engines {
		switch e.Category {
		case CategoryMalicious:
			malicious++
		case CategorySuspicious:
			suspicious++
		}
	}
	return malicious, suspicious
}

// ThreatNames collects the threat label from every engine that flagged the
// file malicious, for transparency in the final verdict.
func (r *Report) ThreatNames() []string {
	var names []string
	for _, e := range r.Engines {
		if e.Category == CategoryMalicious && e.Threat != "" {
			names = append(names, e.Threat)
		}
	}
	return names
}

// LookupResult is the tagged outcome of a hash lookup: either the file is
// known (Found with a report) or it has never been scanned.
type LookupResult struct {
	Found  bool
	Report *Report
}

// UploadResult is the tagged outcome of a file upload.
type UploadResult struct {
	AnalysisID string
}

// PollStatus is the analysis state reported by the service.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollCompleted PollStatus = "completed"
	PollFailed    PollStatus = "failed"
)

// PollResult is the tagged outcome of one analysis status query.
type PollResult struct {
	Status PollStatus
	Detail string
}

// Outcome is the parsed scan decision handed back to the orchestrator.
type Outcome struct {
	Safe            bool
	MaliciousCount  int
	SuspiciousCount int
	TotalEngines    int
	ThreatNames     []string
	AnalysisID      string
	SHA256          string
}
