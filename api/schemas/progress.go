// File: api/schemas/progress.go
package schemas

// AnalysisStatus labels a progress frame on the streaming analysis channel.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusScraping   AnalysisStatus = "scraping"
	StatusAnalyzing  AnalysisStatus = "analyzing"
	StatusGenerating AnalysisStatus = "generating"
	StatusComplete   AnalysisStatus = "complete"
	StatusError      AnalysisStatus = "error"
)

// Terminal reports whether this status ends the exchange.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// DefaultTotalSteps is the step count the analyzer reports for a full run.
const DefaultTotalSteps = 7

// ProgressUpdate is one frame of the streaming analysis protocol. Frames
// arrive in send order; a frame with a terminal status is the last one.
type ProgressUpdate struct {
	Status     AnalysisStatus `json:"status"`
	Step       int            `json:"step"`
	TotalSteps int            `json:"total_steps"`
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
}
