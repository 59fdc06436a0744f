package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillbridge/recommender/internal/models"
)

// stubOrchestrator records executed handles; the happy-path semantics live in
// the orchestrator tests, the worker only needs something to call.
type stubOrchestrator struct {
	executed chan uuid.UUID
}

func (s *stubOrchestrator) Begin(string, *NormalizedFile) (*RunHandle, error) { return nil, nil }
func (s *stubOrchestrator) Execute(h *RunHandle)                              { s.executed <- h.Run.ID }
func (s *stubOrchestrator) FailValidation(string, models.UploadedFileMeta, *ValidationError) (*models.PipelineRun, error) {
	return nil, nil
}
func (s *stubOrchestrator) Snapshot(string) RunSnapshot { return RunSnapshot{} }
func (s *stubOrchestrator) Clear(string)                {}
func (s *stubOrchestrator) JobTitles(context.Context) ([]string, error) {
	return nil, nil
}
func (s *stubOrchestrator) ClearTitleCache() {}
func (s *stubOrchestrator) TechStackForTitle(context.Context, string, string) (*models.StackInsight, error) {
	return nil, nil
}

func newHandle() *RunHandle {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunHandle{
		Run:    &models.PipelineRun{ID: uuid.New()},
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestWorkerExecutesEnqueuedRuns(t *testing.T) {
	orch := &stubOrchestrator{executed: make(chan uuid.UUID, 10)}
	w := NewWorker(orch, 2)
	w.Start()
	defer w.Stop()

	handles := []*RunHandle{newHandle(), newHandle(), newHandle()}
	want := make(map[uuid.UUID]bool)
	for _, h := range handles {
		require.True(t, w.Enqueue(h))
		want[h.Run.ID] = true
	}

	got := make(map[uuid.UUID]bool)
	for range handles {
		select {
		case id := <-orch.executed:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for runs to execute")
		}
	}
	assert.Equal(t, want, got)
}

func TestWorkerRejectsEnqueueAfterStop(t *testing.T) {
	orch := &stubOrchestrator{executed: make(chan uuid.UUID, 10)}
	w := NewWorker(orch, 1)
	w.Start()
	w.Stop()

	assert.False(t, w.Enqueue(newHandle()))
}
