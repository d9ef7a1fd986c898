// File: internal/wizard/controller_test.go
package wizard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
	"github.com/rtlsec/phishletgen-cli/internal/client"
	"github.com/rtlsec/phishletgen-cli/internal/prefs"
	"github.com/rtlsec/phishletgen-cli/internal/wizard"
)

// -- Fakes --

type memPrefs struct {
	mu     sync.Mutex
	author string
}

func (m *memPrefs) Author() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.author == "" {
		return prefs.DefaultAuthor
	}
	return m.author
}

func (m *memPrefs) SetAuthor(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.author = name
	return nil
}

type fakeService struct {
	mu           sync.Mutex
	events       chan client.AnalysisEvent
	generateFn   func(client.GenerateRequest) (*schemas.GenerationResult, error)
	validateFn   func(string) (*schemas.ValidationResult, error)
	aiStatus     schemas.AIStatus
	lastGenerate client.GenerateRequest
}

func newFakeService() *fakeService {
	return &fakeService{events: make(chan client.AnalysisEvent, 16)}
}

func (f *fakeService) AnalyzeStream(ctx context.Context, targetURL string) (<-chan client.AnalysisEvent, error) {
	return f.events, nil
}

func (f *fakeService) GenerateFromAnalysis(ctx context.Context, req client.GenerateRequest) (*schemas.GenerationResult, error) {
	f.mu.Lock()
	f.lastGenerate = req
	fn := f.generateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &schemas.GenerationResult{YAMLContent: "name: generated\n"}, nil
}

func (f *fakeService) Validate(ctx context.Context, yamlContent string) (*schemas.ValidationResult, error) {
	f.mu.Lock()
	fn := f.validateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(yamlContent)
	}
	return &schemas.ValidationResult{Valid: true}, nil
}

func (f *fakeService) AIStatus(ctx context.Context) (*schemas.AIStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &f.aiStatus, nil
}

func (f *fakeService) lastGenerateReq() client.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGenerate
}

// -- Helpers --

func newController(t *testing.T) (*wizard.Controller, *fakeService, *memPrefs) {
	t.Helper()
	svc := newFakeService()
	store := &memPrefs{}
	return wizard.New(svc, store, zap.NewNop()), svc, store
}

func waitForPhase(t *testing.T, c *wizard.Controller, phase wizard.Phase) wizard.Session {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == phase
	}, 2*time.Second, 5*time.Millisecond, "controller never reached phase %s", phase)
	return c.Snapshot()
}

const targetURL = "https://mail.example.com/login"

// -- Tests --

func TestSubmitVisitsPhasesInOrder(t *testing.T) {
	c, svc, _ := newController(t)

	var (
		mu     sync.Mutex
		phases []wizard.Phase
	)
	unsubscribe := c.Subscribe(func(s wizard.Session) {
		mu.Lock()
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, c.Submit(context.Background(), targetURL))
	assert.Equal(t, wizard.PhaseAnalyzing, c.Snapshot().Phase)
	assert.True(t, c.Snapshot().IsAnalyzing)

	result := &schemas.AnalysisResult{
		TargetURL:  targetURL,
		BaseDomain: "example.com",
		LoginForms: []schemas.LoginFormInfo{{ActionURL: "/login", Method: "POST"}},
	}
	svc.events <- client.AnalysisEvent{Result: result}
	close(svc.events)

	s := waitForPhase(t, c, wizard.PhaseReview)
	assert.Same(t, result, s.AnalysisResult)
	assert.False(t, s.IsAnalyzing)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []wizard.Phase{wizard.PhaseAnalyzing, wizard.PhaseReview}, phases,
		"analyzing must never be skipped")
}

func TestSubmitRejectsInvalidURLSynchronously(t *testing.T) {
	c, _, _ := newController(t)

	err := c.Submit(context.Background(), "not a url")
	require.ErrorIs(t, err, client.ErrInvalidURL)

	s := c.Snapshot()
	assert.Equal(t, wizard.PhaseInput, s.Phase)
	assert.False(t, s.IsAnalyzing)
	assert.Empty(t, s.LastError, "validation errors never reach the async error path")
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	c, svc, _ := newController(t)

	require.NoError(t, c.Submit(context.Background(), targetURL))
	err := c.Submit(context.Background(), "https://other.example.com/login")
	assert.ErrorIs(t, err, wizard.ErrBusy)

	svc.events <- client.AnalysisEvent{Err: errors.New("boom")}
	close(svc.events)
	waitForPhase(t, c, wizard.PhaseInput)
}

func TestAnalysisFailureReturnsToInput(t *testing.T) {
	c, svc, _ := newController(t)

	require.NoError(t, c.Submit(context.Background(), targetURL))
	svc.events <- client.AnalysisEvent{Err: &client.ServerError{Message: "target unreachable"}}
	close(svc.events)

	s := waitForPhase(t, c, wizard.PhaseInput)
	assert.False(t, s.IsAnalyzing)
	assert.Contains(t, s.LastError, "target unreachable")
	assert.Nil(t, s.AnalysisResult)
}

func TestTerminalOutcomeAppliedAtMostOnce(t *testing.T) {
	c, svc, _ := newController(t)

	require.NoError(t, c.Submit(context.Background(), targetURL))

	// Simulate the race between a streaming completion and a fallback
	// completion: two terminal events for the same attempt.
	first := &schemas.AnalysisResult{BaseDomain: "example.com"}
	second := &schemas.AnalysisResult{BaseDomain: "wrong.example.net"}
	svc.events <- client.AnalysisEvent{Result: first}
	svc.events <- client.AnalysisEvent{Result: second}
	svc.events <- client.AnalysisEvent{Err: errors.New("late stream error")}
	close(svc.events)

	s := waitForPhase(t, c, wizard.PhaseReview)
	// Give the consumer time to (incorrectly) apply the extras.
	time.Sleep(50 * time.Millisecond)
	s = c.Snapshot()
	assert.Equal(t, wizard.PhaseReview, s.Phase)
	assert.Same(t, first, s.AnalysisResult, "only the first terminal outcome may apply")
	assert.Empty(t, s.LastError)
}

func TestProgressUpdatesSnapshotInPlace(t *testing.T) {
	c, svc, _ := newController(t)

	require.NoError(t, c.Submit(context.Background(), targetURL))
	svc.events <- client.AnalysisEvent{Progress: &schemas.ProgressUpdate{
		Status: schemas.StatusScraping, Step: 3, TotalSteps: 7, Message: "Following redirects",
	}}

	require.Eventually(t, func() bool {
		return c.Snapshot().Progress.Step == 3
	}, 2*time.Second, 5*time.Millisecond)

	s := c.Snapshot()
	assert.Equal(t, 7, s.Progress.Total)
	assert.Equal(t, "Following redirects", s.Progress.Message)

	svc.events <- client.AnalysisEvent{Result: &schemas.AnalysisResult{}}
	close(svc.events)
	waitForPhase(t, c, wizard.PhaseReview)
}

func TestLateEventsAfterResetAreDiscarded(t *testing.T) {
	c, svc, _ := newController(t)

	require.NoError(t, c.Submit(context.Background(), targetURL))
	c.Reset()

	s := c.Snapshot()
	require.Equal(t, wizard.PhaseInput, s.Phase)

	// Events from the abandoned attempt arrive late.
	svc.events <- client.AnalysisEvent{Progress: &schemas.ProgressUpdate{Step: 5, TotalSteps: 7}}
	svc.events <- client.AnalysisEvent{Result: &schemas.AnalysisResult{BaseDomain: "stale.example.com"}}
	close(svc.events)

	time.Sleep(50 * time.Millisecond)
	s = c.Snapshot()
	assert.Equal(t, wizard.PhaseInput, s.Phase, "stale terminal event must not resurrect the attempt")
	assert.Nil(t, s.AnalysisResult)
	assert.Zero(t, s.Progress.Step)
}

func runToReview(t *testing.T, c *wizard.Controller, svc *fakeService) {
	t.Helper()
	require.NoError(t, c.Submit(context.Background(), targetURL))
	svc.events <- client.AnalysisEvent{Result: &schemas.AnalysisResult{
		TargetURL:     targetURL,
		BaseDomain:    "example.com",
		SuggestedName: "example",
	}}
	close(svc.events)
	waitForPhase(t, c, wizard.PhaseReview)
}

func TestGenerateSeedsEditorFromCanonicalYAML(t *testing.T) {
	c, svc, _ := newController(t)
	runToReview(t, c, svc)

	svc.generateFn = func(req client.GenerateRequest) (*schemas.GenerationResult, error) {
		return &schemas.GenerationResult{
			YAMLContent: "name: example\nauthor: '@rtlphishletgen'\n",
			Phishlet:    schemas.Phishlet{Name: "example"},
			Warnings:    []string{"No session cookies identified. You must manually add auth_tokens."},
		}, nil
	}

	require.NoError(t, c.Generate(context.Background(), ""))

	s := c.Snapshot()
	assert.Equal(t, wizard.PhaseEditor, s.Phase)
	assert.Equal(t, "name: example\nauthor: '@rtlphishletgen'\n", s.EditorText)
	assert.False(t, s.IsGenerating)
	assert.NotEmpty(t, s.GenerationResult.Warnings)
	assert.Nil(t, s.ValidationResult)
}

func TestGenerateFailureStaysInReview(t *testing.T) {
	c, svc, _ := newController(t)
	runToReview(t, c, svc)

	svc.generateFn = func(req client.GenerateRequest) (*schemas.GenerationResult, error) {
		return nil, &client.ServerError{Status: 500, Message: "generator blew up"}
	}

	err := c.Generate(context.Background(), "")
	require.Error(t, err)

	s := c.Snapshot()
	assert.Equal(t, wizard.PhaseReview, s.Phase)
	assert.False(t, s.IsGenerating)
	assert.Contains(t, s.LastError, "generator blew up")
	assert.Nil(t, s.GenerationResult)
}

func TestGenerateRequiresReviewedAnalysis(t *testing.T) {
	c, _, _ := newController(t)
	err := c.Generate(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, wizard.PhaseInput, c.Snapshot().Phase)
}

func TestGenerateHonorsAIPreferenceOnlyWhenAvailable(t *testing.T) {
	c, svc, _ := newController(t)
	runToReview(t, c, svc)

	c.SetUseAI(true)

	// AI preferred but unavailable: the request must not ask for it.
	require.NoError(t, c.Generate(context.Background(), ""))
	assert.False(t, svc.lastGenerateReq().UseAI)

	// Make AI available and regenerate from the same review state.
	c.Reset()
	svc2 := newFakeService()
	svc2.aiStatus = schemas.AIStatus{Enabled: true, Model: "local-llm", Connected: true}
	c2 := wizard.New(svc2, &memPrefs{}, zap.NewNop())
	c2.RefreshAIStatus(context.Background())
	c2.SetUseAI(true)
	runToReview(t, c2, svc2)
	require.NoError(t, c2.Generate(context.Background(), "custom-name"))

	req := svc2.lastGenerateReq()
	assert.True(t, req.UseAI)
	assert.Equal(t, "custom-name", req.CustomName)
}

func TestValidateTextAgainstCurrentEditorText(t *testing.T) {
	c, svc, _ := newController(t)

	c.LoadSaved(schemas.SavedPhishlet{YAMLContent: "name: edited\n"})

	var validated string
	svc.validateFn = func(text string) (*schemas.ValidationResult, error) {
		validated = text
		return &schemas.ValidationResult{
			Valid:  false,
			Errors: []string{"Missing required section: 'login'"},
		}, nil
	}

	result, err := c.ValidateText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "name: edited\n", validated, "validation runs against the current editable text")
	assert.False(t, result.Valid)

	s := c.Snapshot()
	assert.Equal(t, "name: edited\n", s.EditorText, "validation must not mutate the text")
	require.NotNil(t, s.ValidationResult)
	assert.False(t, s.ValidationResult.Valid)
}

func TestValidateResultDiscardedWhenTextChangedMidFlight(t *testing.T) {
	c, svc, _ := newController(t)
	c.LoadSaved(schemas.SavedPhishlet{YAMLContent: "v1"})

	svc.validateFn = func(text string) (*schemas.ValidationResult, error) {
		// The user edits while the request is in flight.
		c.SetEditorText("v2")
		return &schemas.ValidationResult{Valid: true}, nil
	}

	_, err := c.ValidateText(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c.Snapshot().ValidationResult, "stale validation must not attach to newer text")
}

func TestSetEditorTextDropsStaleValidation(t *testing.T) {
	c, _, _ := newController(t)
	c.LoadSaved(schemas.SavedPhishlet{YAMLContent: "v1"})

	_, err := c.ValidateText(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c.Snapshot().ValidationResult)

	c.SetEditorText("v2")
	assert.Nil(t, c.Snapshot().ValidationResult)
}

func TestAuthorPersistsAcrossReset(t *testing.T) {
	c, _, store := newController(t)

	assert.Equal(t, prefs.DefaultAuthor, c.Snapshot().Author)

	require.NoError(t, c.SetAuthor("@redteam"))
	c.Reset()
	assert.Equal(t, "@redteam", c.Snapshot().Author,
		"reset reloads the persisted author, not the hardcoded default")

	// A fresh controller over the same store also sees it.
	c2 := wizard.New(newFakeService(), store, zap.NewNop())
	assert.Equal(t, "@redteam", c2.Snapshot().Author)
}

func TestResetReinitializesEverythingElse(t *testing.T) {
	c, svc, _ := newController(t)
	runToReview(t, c, svc)
	c.SetUseAI(true)

	c.Reset()

	s := c.Snapshot()
	assert.Equal(t, wizard.PhaseInput, s.Phase)
	assert.Empty(t, s.TargetURL)
	assert.Nil(t, s.AnalysisResult)
	assert.Nil(t, s.GenerationResult)
	assert.Nil(t, s.ValidationResult)
	assert.Empty(t, s.EditorText)
	assert.False(t, s.UseAI)
	assert.False(t, s.IsAnalyzing)
	assert.False(t, s.IsGenerating)
}

func TestLoadSavedEntersEditor(t *testing.T) {
	c, _, _ := newController(t)

	c.LoadSaved(schemas.SavedPhishlet{
		ID:          "pl-1",
		Name:        "example",
		YAMLContent: "name: example\n",
	})

	s := c.Snapshot()
	assert.Equal(t, wizard.PhaseEditor, s.Phase)
	assert.Equal(t, "name: example\n", s.EditorText)
	assert.Nil(t, s.GenerationResult)
	assert.Nil(t, s.ValidationResult)
}
