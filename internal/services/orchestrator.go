package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillbridge/recommender/internal/models"
	"skillbridge/recommender/internal/repositories"
)

// Orchestrator drives the resume-to-recommendation pipeline. It owns one
// state machine per user, mutated only by its own transition methods; the
// HTTP layer reads value-copied snapshots and never touches pipeline
// internals.
//
// At most one pipeline run per user is ever observed: beginning a new run
// cancels the previous run's context and bumps a generation counter, so a
// superseded run's late results are discarded on arrival.
type Orchestrator interface {
	Begin(userID string, file *NormalizedFile) (*RunHandle, error)
	Execute(h *RunHandle)
	FailValidation(userID string, meta models.UploadedFileMeta, verr *ValidationError) (*models.PipelineRun, error)
	Snapshot(userID string) RunSnapshot
	Clear(userID string)

	JobTitles(ctx context.Context) ([]string, error)
	ClearTitleCache()
	TechStackForTitle(ctx context.Context, userID, title string) (*models.StackInsight, error)
}

// RunSnapshot is the read-only view the presentation layer renders from.
type RunSnapshot struct {
	State        string                  `json:"state"`
	Busy         bool                    `json:"busy"`
	RunID        string                  `json:"run_id,omitempty"`
	Skills       []string                `json:"skills,omitempty"`
	Matches      []models.JobMatch       `json:"matches,omitempty"`
	Resume       *models.ResumeReference `json:"resume,omitempty"`
	Stack        *models.StackInsight    `json:"stack,omitempty"`
	FailedStage  string                  `json:"failed_stage,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

// RunHandle ties one accepted run to its cancellation context and
// generation. It is handed to the worker pool for execution.
type RunHandle struct {
	Run    *models.PipelineRun
	userID string
	file   *NormalizedFile
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

const stateIdle = "idle"

type session struct {
	gen    uint64
	cancel context.CancelFunc

	state   string
	busy    bool
	runID   uuid.UUID
	skills  []string
	matches []models.JobMatch
	resume  *models.ResumeReference

	selGen uint64
	stack  *models.StackInsight

	failedStage string
	errMsg      string
}

type orchestrator struct {
	mu       sync.Mutex
	sessions map[string]*session

	titleMu sync.Mutex
	titles  []string

	gateway RecommenderGateway
	bridge  PersistenceBridge
	profile ProfileClient
	advisor AdvisorService
	runs    repositories.RunRepository
}

// NewOrchestrator wires the pipeline stages. bridge may be nil when resume
// persistence is disabled by configuration; advisor may be nil when no API
// key is configured.
func NewOrchestrator(
	gateway RecommenderGateway,
	bridge PersistenceBridge,
	profile ProfileClient,
	advisor AdvisorService,
	runs repositories.RunRepository,
) Orchestrator {
	return &orchestrator{
		sessions: make(map[string]*session),
		gateway:  gateway,
		bridge:   bridge,
		profile:  profile,
		advisor:  advisor,
		runs:     runs,
	}
}

func (o *orchestrator) sessionLocked(userID string) *session {
	s, ok := o.sessions[userID]
	if !ok {
		s = &session{state: stateIdle}
		o.sessions[userID] = s
	}
	return s
}

// resetLocked discards every intermediate result of the previous run in the
// same critical section that starts the next one.
func (s *session) resetLocked() {
	s.gen++
	s.selGen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.runID = uuid.Nil
	s.skills = nil
	s.matches = nil
	s.resume = nil
	s.stack = nil
	s.failedStage = ""
	s.errMsg = ""
}

// Begin starts a new pipeline run for an already-validated file. The
// previous run, if any, is superseded immediately.
func (o *orchestrator) Begin(userID string, file *NormalizedFile) (*RunHandle, error) {
	run := &models.PipelineRun{
		ID:        uuid.New(),
		UserID:    userID,
		Filename:  file.Meta.Filename,
		SizeBytes: file.Meta.SizeBytes,
		MimeType:  file.Meta.MimeType,
		Status:    models.RunUploading,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := o.runs.Create(run); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	s := o.sessionLocked(userID)
	s.resetLocked()
	s.state = string(models.RunUploading)
	s.busy = true
	s.runID = run.ID
	s.cancel = cancel
	gen := s.gen
	o.mu.Unlock()

	return &RunHandle{
		Run:    run,
		userID: userID,
		file:   file,
		ctx:    ctx,
		cancel: cancel,
		gen:    gen,
	}, nil
}

// FailValidation records a run that never left the client: the file failed
// validation, so the state machine goes straight to errored and no external
// service is contacted.
func (o *orchestrator) FailValidation(userID string, meta models.UploadedFileMeta, verr *ValidationError) (*models.PipelineRun, error) {
	msg := verr.Message
	stage := models.StageValidation
	run := &models.PipelineRun{
		ID:           uuid.New(),
		UserID:       userID,
		Filename:     meta.Filename,
		SizeBytes:    meta.SizeBytes,
		MimeType:     meta.MimeType,
		Status:       models.RunErrored,
		FailedStage:  &stage,
		ErrorMessage: &msg,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := o.runs.Create(run); err != nil {
		return nil, err
	}

	o.mu.Lock()
	s := o.sessionLocked(userID)
	s.resetLocked()
	s.state = string(models.RunErrored)
	s.busy = false
	s.runID = run.ID
	s.failedStage = stage
	s.errMsg = msg
	o.mu.Unlock()

	return run, nil
}

// Execute runs the pipeline stages for one accepted run. Meant to be called
// from a worker goroutine.
func (o *orchestrator) Execute(h *RunHandle) {
	defer h.cancel()

	// Stage 1: persist the resume. Its success must never be undone by a
	// later stage failing.
	if o.bridge != nil {
		ref, err := o.bridge.SaveResume(h.ctx, h.userID, h.file)
		if err != nil {
			o.fail(h, models.StageUpload, err)
			return
		}
		if !o.commit(h, func(s *session) { s.resume = ref }) {
			return
		}
		o.runs.UpdateResumeURL(h.Run.ID, ref.URL)
	}

	// Stage 2: extract skills.
	if !o.advance(h, models.RunParsing) {
		return
	}
	skills, err := o.gateway.ParseResume(h.ctx, h.file)
	if err != nil {
		o.fail(h, models.StageParse, err)
		return
	}
	if !o.commit(h, func(s *session) { s.skills = skills }) {
		return
	}
	o.runs.UpdateSkills(h.Run.ID, mustJSON(skills))

	// Stage 3: match jobs. Parsing output is required input here; there is
	// no speculative prefetch.
	if !o.advance(h, models.RunMatching) {
		return
	}
	matches, err := o.gateway.RecommendJobs(h.ctx, skills)
	if err != nil {
		o.fail(h, models.StageMatch, err)
		return
	}
	if !o.commit(h, func(s *session) {
		s.matches = matches
		s.state = string(models.RunReady)
		s.busy = false
	}) {
		return
	}
	o.runs.UpdateMatches(h.Run.ID, mustJSON(matches))
	log.Printf("✅ Pipeline run %s ready with %d matches\n", h.Run.ID, len(matches))
}

// commit applies a state mutation iff the run is still the current one.
// A superseded run is marked as such in the history and its results dropped.
func (o *orchestrator) commit(h *RunHandle, apply func(*session)) bool {
	o.mu.Lock()
	s := o.sessionLocked(h.userID)
	if s.gen != h.gen {
		o.mu.Unlock()
		o.runs.MarkSuperseded(h.Run.ID)
		return false
	}
	apply(s)
	o.mu.Unlock()
	return true
}

func (o *orchestrator) advance(h *RunHandle, status models.RunStatus) bool {
	if !o.commit(h, func(s *session) { s.state = string(status) }) {
		return false
	}
	if err := o.runs.UpdateStatus(h.Run.ID, status); err != nil {
		log.Printf("⚠️  Failed to record %s status for run %s: %v\n", status, h.Run.ID, err)
	}
	return true
}

// fail surfaces a stage failure, keeping whatever was already committed:
// a persisted resume reference survives a downstream recommendation error.
func (o *orchestrator) fail(h *RunHandle, stage string, err error) {
	msg := userFacingMessage(stage, err)
	committed := o.commit(h, func(s *session) {
		s.state = string(models.RunErrored)
		s.busy = false
		s.failedStage = stage
		s.errMsg = msg
	})
	if !committed {
		return
	}
	log.Printf("❌ Pipeline run %s failed at %s: %v\n", h.Run.ID, stage, err)
	if repoErr := o.runs.UpdateError(h.Run.ID, stage, msg); repoErr != nil {
		log.Printf("⚠️  Failed to record error for run %s: %v\n", h.Run.ID, repoErr)
	}
}

func userFacingMessage(stage string, err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Timeout {
		return "the " + stage + " service took too long to respond"
	}
	return err.Error()
}

// Snapshot returns a value copy of the user's pipeline state.
func (o *orchestrator) Snapshot(userID string) RunSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[userID]
	if !ok {
		return RunSnapshot{State: stateIdle}
	}

	snap := RunSnapshot{
		State:        s.state,
		Busy:         s.busy,
		Skills:       append([]string(nil), s.skills...),
		Matches:      append([]models.JobMatch(nil), s.matches...),
		FailedStage:  s.failedStage,
		ErrorMessage: s.errMsg,
	}
	if s.runID != uuid.Nil {
		snap.RunID = s.runID.String()
	}
	if s.resume != nil {
		ref := *s.resume
		snap.Resume = &ref
	}
	if s.stack != nil {
		stack := *s.stack
		snap.Stack = &stack
	}
	return snap
}

// Clear returns the user's state machine to idle, discarding all
// intermediate results. Callable from any state.
func (o *orchestrator) Clear(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[userID]
	if !ok {
		return
	}
	s.resetLocked()
	s.state = stateIdle
	s.busy = false
}

////////////////////////////////////////////////////////////////////////
// Title → tech-stack sub-flow
////////////////////////////////////////////////////////////////////////

// JobTitles returns the known title catalog, fetched once and cached until
// explicitly cleared.
func (o *orchestrator) JobTitles(ctx context.Context) ([]string, error) {
	o.titleMu.Lock()
	if o.titles != nil {
		cached := append([]string(nil), o.titles...)
		o.titleMu.Unlock()
		return cached, nil
	}
	o.titleMu.Unlock()

	titles, err := o.gateway.ListJobTitles(ctx)
	if err != nil {
		return nil, err
	}

	o.titleMu.Lock()
	o.titles = titles
	o.titleMu.Unlock()
	return append([]string(nil), titles...), nil
}

func (o *orchestrator) ClearTitleCache() {
	o.titleMu.Lock()
	o.titles = nil
	o.titleMu.Unlock()
}

// TechStackForTitle fetches the expected stack for a title and reconciles it
// against the user's recorded stack. Last selection wins: a slower earlier
// selection never overwrites the stored insight of a later one.
func (o *orchestrator) TechStackForTitle(ctx context.Context, userID, title string) (*models.StackInsight, error) {
	// Starting a selection discards the previous title's insight in the same
	// critical section, so a failed fetch never leaves a stale stack visible.
	o.mu.Lock()
	s := o.sessionLocked(userID)
	s.selGen++
	s.stack = nil
	sel := s.selGen
	o.mu.Unlock()

	rec, err := o.gateway.TechStackForTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	var current []string
	if o.profile != nil {
		profile, err := o.profile.GetProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		current = profile.TechStack
	}

	diff := ReconcileTechStack(rec.Technologies, current)
	insight := &models.StackInsight{
		Title:        rec.Title,
		Technologies: rec.Technologies,
		AlreadyHave:  diff.AlreadyHave,
		ToLearn:      diff.ToLearn,
	}

	if o.advisor != nil {
		plan, err := o.advisor.LearningPlan(ctx, diff, title)
		if err != nil {
			log.Printf("⚠️  Learning plan generation failed: %v\n", err)
		} else {
			insight.LearningPlan = plan
		}
	}

	o.mu.Lock()
	if s.selGen == sel {
		stored := *insight
		s.stack = &stored
	}
	o.mu.Unlock()

	return insight, nil
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️  Failed to encode run payload: %v\n", err)
		return "null"
	}
	return string(data)
}
