// File: internal/wizard/controller.go
// Package wizard sequences the phishlet generation workflow: it owns the
// session state, drives the input -> analyzing -> review -> editor phases,
// and absorbs the success/failure transitions of every remote operation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
	"github.com/rtlsec/phishletgen-cli/internal/client"
	"github.com/rtlsec/phishletgen-cli/internal/prefs"
)

// ErrBusy is returned when a submit or generate trigger arrives while a
// previous one is still in flight. The workflow is not re-entrant.
var ErrBusy = errors.New("an operation is already in progress")

// Service is the slice of the transport client the controller drives.
type Service interface {
	AnalyzeStream(ctx context.Context, targetURL string) (<-chan client.AnalysisEvent, error)
	GenerateFromAnalysis(ctx context.Context, req client.GenerateRequest) (*schemas.GenerationResult, error)
	Validate(ctx context.Context, yamlContent string) (*schemas.ValidationResult, error)
	AIStatus(ctx context.Context) (*schemas.AIStatus, error)
}

// Subscriber receives a session copy after every committed mutation.
type Subscriber func(Session)

// Controller is the single mutation surface over the session state.
// All exported methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	session Session
	subs    map[int]Subscriber
	nextSub int

	svc    Service
	prefs  prefs.Store
	logger *zap.Logger

	// cancelAnalysis releases the streaming channel when the controller
	// leaves the analyzing phase before completion.
	cancelAnalysis context.CancelFunc
}

// New builds a Controller with the persisted author name already loaded.
func New(svc Service, store prefs.Store, logger *zap.Logger) *Controller {
	return &Controller{
		session: newSession(store.Author()),
		subs:    make(map[int]Subscriber),
		svc:     svc,
		prefs:   store,
		logger:  logger.Named("wizard"),
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
// Observers run synchronously, after the mutation has fully committed.
func (c *Controller) Subscribe(fn Subscriber) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// mutate applies fn under the lock, then notifies subscribers with the
// committed copy. Each mutation is total: observers never see a partial
// update.
func (c *Controller) mutate(fn func(s *Session)) {
	c.mu.Lock()
	fn(&c.session)
	snapshot, subs := c.commitLocked()
	c.mu.Unlock()

	c.notify(snapshot, subs)
}

// commitLocked captures the state and subscriber list to hand to notify.
// Callers must hold mu.
func (c *Controller) commitLocked() (Session, []Subscriber) {
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return c.session, subs
}

func (c *Controller) notify(snapshot Session, subs []Subscriber) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

// Submit validates the target URL and enters the analyzing phase. Progress
// and the terminal outcome arrive asynchronously; a subscriber observes the
// transition to review (success) or input (failure).
func (c *Controller) Submit(ctx context.Context, targetURL string) error {
	if err := client.ValidateTargetURL(targetURL); err != nil {
		// Input validation never reaches the async error path.
		return err
	}

	c.mu.Lock()
	if c.session.IsAnalyzing || c.session.IsGenerating {
		c.mu.Unlock()
		return ErrBusy
	}
	attempt := uuid.New()
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelAnalysis = cancel

	c.session.Phase = PhaseAnalyzing
	c.session.TargetURL = targetURL
	c.session.AnalysisResult = nil
	c.session.LastError = ""
	c.session.IsAnalyzing = true
	c.session.Progress = Progress{Total: schemas.DefaultTotalSteps}
	c.session.AttemptID = attempt
	snapshot, subs := c.commitLocked()
	c.mu.Unlock()
	c.notify(snapshot, subs)

	events, err := c.svc.AnalyzeStream(streamCtx, targetURL)
	if err != nil {
		cancel()
		c.applyAnalysisError(attempt, err)
		return nil
	}

	go c.consume(attempt, events)
	return nil
}

// consume applies streamed events for one analysis attempt. Events from a
// superseded attempt, or arriving after the terminal transition, are
// dropped without touching state.
func (c *Controller) consume(attempt uuid.UUID, events <-chan client.AnalysisEvent) {
	for ev := range events {
		switch ev.Kind() {
		case client.EventProgress:
			c.applyProgress(attempt, ev.Progress)
		case client.EventResult:
			c.applyAnalysisResult(attempt, ev.Result)
		case client.EventError:
			c.applyAnalysisError(attempt, ev.Err)
		}
	}
	// The channel can close without a terminal event only on
	// cancellation, and cancellation already rewrote the session.
}

func (c *Controller) applyProgress(attempt uuid.UUID, update *schemas.ProgressUpdate) {
	c.mutate(func(s *Session) {
		if s.AttemptID != attempt || s.Phase != PhaseAnalyzing {
			return
		}
		s.Progress = Progress{
			Step:    update.Step,
			Total:   update.TotalSteps,
			Message: update.Message,
		}
	})
}

func (c *Controller) applyAnalysisResult(attempt uuid.UUID, result *schemas.AnalysisResult) {
	c.mutate(func(s *Session) {
		if s.AttemptID != attempt || s.Phase != PhaseAnalyzing {
			return
		}
		s.AnalysisResult = result
		s.IsAnalyzing = false
		s.Phase = PhaseReview
	})
	c.releaseAnalysis()
}

func (c *Controller) applyAnalysisError(attempt uuid.UUID, err error) {
	c.logger.Warn("analysis failed", zap.Error(err))
	c.mutate(func(s *Session) {
		if s.AttemptID != attempt || s.Phase != PhaseAnalyzing {
			return
		}
		s.IsAnalyzing = false
		s.Phase = PhaseInput
		s.LastError = err.Error()
	})
	c.releaseAnalysis()
}

func (c *Controller) releaseAnalysis() {
	c.mu.Lock()
	cancel := c.cancelAnalysis
	c.cancelAnalysis = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Generate requests phishlet generation from the reviewed analysis. It
// blocks until the call finishes; on success the controller enters the
// editor phase with the canonical YAML seeded into the editable text.
func (c *Controller) Generate(ctx context.Context, customName string) error {
	c.mu.Lock()
	if c.session.IsAnalyzing || c.session.IsGenerating {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.session.Phase != PhaseReview || c.session.AnalysisResult == nil {
		c.mu.Unlock()
		return fmt.Errorf("nothing to generate from: no reviewed analysis")
	}
	attempt := c.session.AttemptID
	req := client.GenerateRequest{
		Analysis:   c.session.AnalysisResult,
		Author:     c.session.Author,
		UseAI:      c.session.UseAI && c.session.AIStatus.Enabled && c.session.AIStatus.Connected,
		CustomName: customName,
	}
	c.session.IsGenerating = true
	c.session.LastError = ""
	snapshot, subs := c.commitLocked()
	c.mu.Unlock()
	c.notify(snapshot, subs)

	result, err := c.svc.GenerateFromAnalysis(ctx, req)

	if err != nil {
		c.mutate(func(s *Session) {
			if s.AttemptID != attempt {
				return
			}
			s.IsGenerating = false
			s.LastError = err.Error()
		})
		return err
	}

	c.mutate(func(s *Session) {
		if s.AttemptID != attempt || s.Phase != PhaseReview {
			// Superseded while the call was in flight; drop the result.
			s.IsGenerating = false
			return
		}
		s.GenerationResult = result
		s.EditorText = result.YAMLContent
		s.ValidationResult = nil
		s.IsGenerating = false
		s.Phase = PhaseEditor
	})
	return nil
}

// ValidateText validates the current editable text. The text itself is
// never mutated, and the result is discarded if the text changed while the
// call was in flight.
func (c *Controller) ValidateText(ctx context.Context) (*schemas.ValidationResult, error) {
	c.mu.Lock()
	text := c.session.EditorText
	c.mu.Unlock()

	result, err := c.svc.Validate(ctx, text)
	if err != nil {
		c.mutate(func(s *Session) {
			s.LastError = err.Error()
		})
		return nil, err
	}

	c.mutate(func(s *Session) {
		if s.EditorText != text {
			return
		}
		s.ValidationResult = result
	})
	return result, nil
}

// LoadSaved enters the editor phase with a library entry's content. Any
// previous generation and validation results no longer apply.
func (c *Controller) LoadSaved(saved schemas.SavedPhishlet) {
	c.releaseAnalysis()
	c.mutate(func(s *Session) {
		s.Phase = PhaseEditor
		s.EditorText = saved.YAMLContent
		s.GenerationResult = nil
		s.ValidationResult = nil
		s.IsAnalyzing = false
		s.LastError = ""
		s.AttemptID = uuid.New()
	})
}

// SetEditorText replaces the editable text. Any prior validation result is
// stale from this moment and is dropped.
func (c *Controller) SetEditorText(text string) {
	c.mutate(func(s *Session) {
		if s.EditorText == text {
			return
		}
		s.EditorText = text
		s.ValidationResult = nil
	})
}

// SetAuthor durably persists the author name and updates the session.
func (c *Controller) SetAuthor(name string) error {
	if err := c.prefs.SetAuthor(name); err != nil {
		return fmt.Errorf("persisting author name: %w", err)
	}
	c.mutate(func(s *Session) {
		s.Author = name
	})
	return nil
}

// SetUseAI records the AI-enhancement preference.
func (c *Controller) SetUseAI(v bool) {
	c.mutate(func(s *Session) {
		s.UseAI = v
	})
}

// RefreshAIStatus queries AI availability; an unreachable endpoint
// degrades to disabled rather than erroring.
func (c *Controller) RefreshAIStatus(ctx context.Context) {
	status, err := c.svc.AIStatus(ctx)
	if err != nil {
		c.logger.Warn("AI status check failed, assuming disabled", zap.Error(err))
		status = &schemas.AIStatus{}
	}
	c.mutate(func(s *Session) {
		s.AIStatus = *status
	})
}

// Reset restores every session field to its initial value except the
// author name, which is reloaded from durable storage. Any in-flight
// analysis is released; its late events no longer match the attempt ID.
func (c *Controller) Reset() {
	c.releaseAnalysis()
	author := c.prefs.Author()
	c.mutate(func(s *Session) {
		*s = newSession(author)
	})
}
