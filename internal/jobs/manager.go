// -----------------------------------------------------------------------
// Job Manager - accepts research submissions and drives their pipelines
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/events"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/pipeline"
)

// PipelineRunner runs one research pipeline to completion. Satisfied by
// pipeline.Engine.
type PipelineRunner interface {
	Run(ctx context.Context, state *models.ResearchState, reporter pipeline.Reporter) error
}

// Manager owns the process-wide job registry. All job mutations are
// serialized per job through its entry lock; the optional storage layer is
// write-through and never read on the hot path.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry

	cfg      *common.Config
	runner   PipelineRunner
	bus      *events.Bus
	storage  interfaces.StorageManager
	logger   arbor.ILogger
	validate *validator.Validate
	cron     *cron.Cron

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

type jobEntry struct {
	mu     sync.Mutex
	job    *models.Job
	cancel context.CancelFunc
}

// NewManager creates a job manager. storage may be nil to run purely
// in-memory.
func NewManager(cfg *common.Config, runner PipelineRunner, bus *events.Bus, storage interfaces.StorageManager, logger arbor.ILogger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		entries:    make(map[string]*jobEntry),
		cfg:        cfg,
		runner:     runner,
		bus:        bus,
		storage:    storage,
		logger:     logger,
		validate:   validator.New(),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	return m
}

// Start begins the background retention sweep for terminal jobs.
func (m *Manager) Start() {
	m.cron = cron.New()
	m.cron.AddFunc("@every 1m", m.sweepExpired)
	m.cron.Start()
	m.logger.Info().Msg("Job manager started")
}

// Stop cancels running pipelines and halts background work.
func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
	m.baseCancel()
	m.logger.Info().Msg("Job manager stopped")
}

// Submit validates the request, registers a pending job, and launches its
// pipeline. Returns backpressure when the active-job ceiling is reached.
func (m *Manager) Submit(req models.ResearchRequest) (*models.Job, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, models.NewError(models.ErrInputInvalid, "submit", err)
	}

	m.mu.Lock()
	active := 0
	for _, entry := range m.entries {
		entry.mu.Lock()
		if !entry.job.IsTerminal() {
			active++
		}
		entry.mu.Unlock()
	}
	if max := m.cfg.Research.MaxConcurrentJobs; max > 0 && active >= max {
		m.mu.Unlock()
		return nil, models.Errorf(models.ErrBackpressure, "active job limit reached (%d)", max)
	}

	job := models.NewJob(req)
	jobCtx, cancel := context.WithCancel(m.baseCtx)
	entry := &jobEntry{job: job, cancel: cancel}
	m.entries[job.ID] = entry
	m.mu.Unlock()

	m.persistJob(job)
	m.bus.Publish(job.ID, models.NewStatusEvent(job.Snapshot()))

	m.logger.Info().
		Str("job_id", job.ID).
		Str("company", req.Company).
		Msg("Research job submitted")

	go m.runPipeline(jobCtx, entry)

	return job.Snapshot(), nil
}

// Status returns a snapshot of the job or not_found.
func (m *Manager) Status(jobID string) (*models.Job, error) {
	entry := m.entry(jobID)
	if entry == nil {
		return nil, models.Errorf(models.ErrNotFound, "job %s not found", jobID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Snapshot(), nil
}

// Report returns the final report of a completed job.
func (m *Manager) Report(jobID string) (string, error) {
	job, err := m.Status(jobID)
	if err != nil {
		return "", err
	}
	if job.Status != models.JobStatusCompleted || job.Result == nil {
		return "", models.Errorf(models.ErrNotFound, "no report for job %s", jobID)
	}
	return job.Result.Report, nil
}

// Subscribe attaches to the job's event stream. Late joiners receive the last
// status_update first.
func (m *Manager) Subscribe(jobID string) (*events.Subscription, error) {
	if m.entry(jobID) == nil {
		return nil, models.Errorf(models.ErrNotFound, "job %s not found", jobID)
	}
	return m.bus.Subscribe(jobID), nil
}

// Cancel signals cancellation to the job's pipeline. Terminal jobs are left
// untouched.
func (m *Manager) Cancel(jobID string) error {
	entry := m.entry(jobID)
	if entry == nil {
		return models.Errorf(models.ErrNotFound, "job %s not found", jobID)
	}

	entry.mu.Lock()
	terminal := entry.job.IsTerminal()
	entry.mu.Unlock()
	if terminal {
		return nil
	}

	m.logger.Info().Str("job_id", jobID).Msg("Cancelling research job")
	entry.cancel()
	return nil
}

func (m *Manager) entry(jobID string) *jobEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[jobID]
}

// runPipeline drives one job from pending to a terminal state.
func (m *Manager) runPipeline(ctx context.Context, entry *jobEntry) {
	defer entry.cancel()

	entry.mu.Lock()
	entry.job.MarkProcessing()
	snapshot := entry.job.Snapshot()
	entry.mu.Unlock()

	m.persistJob(snapshot)
	m.bus.Publish(snapshot.ID, models.NewStatusEvent(snapshot))

	state := models.NewResearchState(snapshot.Request)
	reporter := &jobReporter{manager: m, entry: entry}

	err := m.runner.Run(ctx, state, reporter)

	entry.mu.Lock()
	if err != nil {
		if models.IsCancelled(err) {
			entry.job.MarkFailed(string(models.ErrCancelled) + ": job cancelled")
		} else {
			entry.job.MarkFailed(err.Error())
		}
	} else {
		entry.job.MarkCompleted(&models.JobResult{
			Report:  state.Report,
			Company: state.Company,
		})
	}
	snapshot = entry.job.Snapshot()
	entry.mu.Unlock()

	m.persistJob(snapshot)
	if err == nil && m.storage != nil {
		if saveErr := m.storage.ReportStorage().SaveReport(snapshot.ID, state.Report); saveErr != nil {
			m.logger.Warn().Err(saveErr).Str("job_id", snapshot.ID).Msg("Failed to persist report")
		}
	}

	m.bus.Publish(snapshot.ID, models.NewStatusEvent(snapshot))

	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("job_id", snapshot.ID).
			Msg("Research job failed")
	} else {
		m.logger.Info().
			Str("job_id", snapshot.ID).
			Int("report_length", len(state.Report)).
			Msg("Research job completed")
	}
}

func (m *Manager) persistJob(job *models.Job) {
	if m.storage == nil {
		return
	}
	if err := m.storage.JobStorage().SaveJob(job); err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist job")
	}
}

// sweepExpired removes terminal jobs past the retention window and tears down
// their event streams.
func (m *Manager) sweepExpired() {
	retention := common.Duration(m.cfg.Research.JobRetention, time.Hour)
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	var expired []string
	for id, entry := range m.entries {
		entry.mu.Lock()
		if entry.job.IsTerminal() && entry.job.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
		entry.mu.Unlock()
	}
	for _, id := range expired {
		delete(m.entries, id)
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.bus.CloseJob(id)
		if m.storage != nil {
			if err := m.storage.JobStorage().DeleteJob(id); err != nil {
				m.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete expired job")
			}
		}
	}

	// Stored rows from earlier process runs have no in-memory entry; sweep
	// them directly.
	if m.storage != nil {
		stale, err := m.storage.JobStorage().ListTerminalBefore(cutoff)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Failed to list expired stored jobs")
		}
		for _, id := range stale {
			if m.entry(id) != nil {
				continue
			}
			if err := m.storage.JobStorage().DeleteJob(id); err != nil {
				m.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete expired job")
			}
			expired = append(expired, id)
		}
	}

	if len(expired) > 0 {
		m.logger.Info().Int("expired", len(expired)).Msg("Swept expired jobs")
	}
}

// jobReporter bridges pipeline progress into job updates and bus events. It
// enforces monotonic progress and terminal stickiness.
type jobReporter struct {
	manager *Manager
	entry   *jobEntry
}

func (r *jobReporter) Progress(progress int, message string) {
	r.entry.mu.Lock()
	job := r.entry.job
	if job.IsTerminal() {
		r.entry.mu.Unlock()
		return
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Message = message
	job.DebugLog = append(job.DebugLog, fmt.Sprintf("[%d%%] %s", job.Progress, message))
	job.UpdatedAt = time.Now()
	snapshot := job.Snapshot()
	r.entry.mu.Unlock()

	r.manager.persistJob(snapshot)
	r.manager.bus.Publish(snapshot.ID, models.NewStatusEvent(snapshot))
}

func (r *jobReporter) Event(ev models.Event) {
	r.entry.mu.Lock()
	jobID := r.entry.job.ID
	if stage, ok := ev.Data["stage"].(string); ok && ev.Type == models.EventError {
		if msg, ok := ev.Data["error"].(string); ok {
			r.entry.job.DebugLog = append(r.entry.job.DebugLog, fmt.Sprintf("[%s] %s", stage, msg))
		}
	}
	r.entry.mu.Unlock()

	r.manager.bus.Publish(jobID, ev)
}
