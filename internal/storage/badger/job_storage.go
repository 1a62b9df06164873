package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.Errorf(models.ErrNotFound, "job %s not found", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) DeleteJob(id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ListTerminalBefore returns IDs of completed or failed jobs last updated
// before the cutoff.
func (s *JobStorage) ListTerminalBefore(cutoff time.Time) ([]string, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").In(models.JobStatusCompleted, models.JobStatusFailed).
		And("UpdatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list terminal jobs: %w", err)
	}

	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		ids = append(ids, jobs[i].ID)
	}
	return ids, nil
}
