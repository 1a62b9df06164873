package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// storedReport is the persisted report record keyed by job ID.
type storedReport struct {
	JobID     string `badgerhold:"key"`
	Content   string
	CreatedAt time.Time
}

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReport(jobID, report string) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}
	record := storedReport{
		JobID:     jobID,
		Content:   report,
		CreatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ReportStorage) GetReport(jobID string) (string, error) {
	var record storedReport
	if err := s.db.Store().Get(jobID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", models.Errorf(models.ErrNotFound, "no report for job %s", jobID)
		}
		return "", fmt.Errorf("failed to get report: %w", err)
	}
	return record.Content, nil
}
