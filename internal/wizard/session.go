// File: internal/wizard/session.go
package wizard

import (
	"github.com/google/uuid"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
)

// Phase is the wizard's current position in the workflow.
type Phase string

const (
	PhaseInput     Phase = "input"
	PhaseAnalyzing Phase = "analyzing"
	PhaseReview    Phase = "review"
	PhaseEditor    Phase = "editor"
)

// Progress is the controller's snapshot of streamed analysis progress.
type Progress struct {
	Step    int
	Total   int
	Message string
}

// Session is the process-wide workflow state. All mutation funnels through
// the Controller; observers only ever see copies.
type Session struct {
	Phase     Phase
	TargetURL string
	Progress  Progress

	AnalysisResult   *schemas.AnalysisResult
	GenerationResult *schemas.GenerationResult
	ValidationResult *schemas.ValidationResult
	EditorText       string

	IsAnalyzing  bool
	IsGenerating bool

	Author   string
	UseAI    bool
	AIStatus schemas.AIStatus

	// LastError is the single user-visible signal for the most recent
	// failure; cleared when a new action starts.
	LastError string

	// AttemptID identifies the analysis attempt the session currently
	// belongs to. Async results carrying a different attempt are stale
	// and must be discarded.
	AttemptID uuid.UUID
}

// newSession builds the initial session state around a persisted author.
func newSession(author string) Session {
	return Session{
		Phase:     PhaseInput,
		Progress:  Progress{Total: schemas.DefaultTotalSteps},
		Author:    author,
		AttemptID: uuid.New(),
	}
}
