package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/events"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/pipeline"
)

// fakeRunner stands in for the pipeline engine. The gate channel lets tests
// hold jobs in the processing state.
type fakeRunner struct {
	mu     sync.Mutex
	runs   int
	gate   chan struct{}
	report string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, state *models.ResearchState, reporter pipeline.Reporter) error {
	f.mu.Lock()
	f.runs++
	gate := f.gate
	f.mu.Unlock()

	reporter.Progress(5, "Grounding research")

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.NewError(models.ErrCancelled, "pipeline", ctx.Err())
		}
	}
	if f.err != nil {
		return f.err
	}

	reporter.Progress(100, "Research complete")
	state.Report = f.report
	return nil
}

func testManager(t *testing.T, runner PipelineRunner) *Manager {
	t.Helper()
	cfg := common.NewDefaultConfig()
	bus := events.NewBus(64, common.GetLogger())
	m := NewManager(cfg, runner, bus, nil, common.GetLogger())
	t.Cleanup(m.Stop)
	return m
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want models.JobStatus) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Status(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestManager_SubmitRunsToCompletion(t *testing.T) {
	runner := &fakeRunner{report: "# Acme\n\n## References\n"}
	m := testManager(t, runner)

	job, err := m.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.NotEmpty(t, job.ID)

	done := waitForStatus(t, m, job.ID, models.JobStatusCompleted)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, "# Acme\n\n## References\n", done.Result.Report)
	assert.Equal(t, "Acme", done.Result.Company)

	report, err := m.Report(job.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Result.Report, report)
}

func TestManager_SubmitRejectsInvalidRequest(t *testing.T) {
	m := testManager(t, &fakeRunner{})

	_, err := m.Submit(models.ResearchRequest{})
	require.Error(t, err)
	assert.Equal(t, models.ErrInputInvalid, models.KindOf(err))

	_, err = m.Submit(models.ResearchRequest{Company: "Acme", CompanyURL: "not a url"})
	require.Error(t, err)
	assert.Equal(t, models.ErrInputInvalid, models.KindOf(err))
}

func TestManager_Backpressure(t *testing.T) {
	runner := &fakeRunner{gate: make(chan struct{})}
	cfg := common.NewDefaultConfig()
	cfg.Research.MaxConcurrentJobs = 2
	bus := events.NewBus(64, common.GetLogger())
	m := NewManager(cfg, runner, bus, nil, common.GetLogger())
	t.Cleanup(m.Stop)

	_, err := m.Submit(models.ResearchRequest{Company: "One"})
	require.NoError(t, err)
	_, err = m.Submit(models.ResearchRequest{Company: "Two"})
	require.NoError(t, err)

	_, err = m.Submit(models.ResearchRequest{Company: "Three"})
	require.Error(t, err)
	assert.Equal(t, models.ErrBackpressure, models.KindOf(err))

	close(runner.gate)
}

func TestManager_FailedPipelineMarksJobFailed(t *testing.T) {
	runner := &fakeRunner{err: models.Errorf(models.ErrExternalUnavailable, "editor: llm outage")}
	m := testManager(t, runner)

	job, err := m.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)

	failed := waitForStatus(t, m, job.ID, models.JobStatusFailed)
	assert.Contains(t, failed.Error, "external_unavailable")
	assert.Nil(t, failed.Result)

	_, err = m.Report(job.ID)
	require.Error(t, err)
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}

func TestManager_Cancel(t *testing.T) {
	runner := &fakeRunner{gate: make(chan struct{})}
	m := testManager(t, runner)

	job, err := m.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)

	waitForStatus(t, m, job.ID, models.JobStatusProcessing)
	require.NoError(t, m.Cancel(job.ID))

	failed := waitForStatus(t, m, job.ID, models.JobStatusFailed)
	assert.Contains(t, failed.Error, "cancelled")

	// Cancelling a terminal job is a no-op.
	require.NoError(t, m.Cancel(job.ID))
}

func TestManager_UnknownJobIsNotFound(t *testing.T) {
	m := testManager(t, &fakeRunner{})

	_, err := m.Status("missing")
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))

	_, err = m.Subscribe("missing")
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))

	err = m.Cancel("missing")
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))

	_, err = m.Report("missing")
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}

func TestManager_LateSubscriberReceivesCurrentStatus(t *testing.T) {
	runner := &fakeRunner{report: "# Acme\n"}
	m := testManager(t, runner)

	job, err := m.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)
	waitForStatus(t, m, job.ID, models.JobStatusCompleted)

	sub, err := m.Subscribe(job.ID)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		assert.Equal(t, models.EventStatusUpdate, ev.Type)
		assert.Equal(t, "completed", ev.Data["status"])
	case <-time.After(time.Second):
		t.Fatal("late subscriber received no status event")
	}
}

func TestManager_ProgressIsMonotonicAndSticky(t *testing.T) {
	m := testManager(t, &fakeRunner{})
	job, err := m.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)
	waitForStatus(t, m, job.ID, models.JobStatusCompleted)

	entry := m.entry(job.ID)
	reporter := &jobReporter{manager: m, entry: entry}

	// Updates after a terminal state are dropped.
	reporter.Progress(10, "stale update")
	done, err := m.Status(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}
