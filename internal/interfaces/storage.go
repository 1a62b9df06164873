package interfaces

import (
	"time"

	"github.com/ternarybob/indago/internal/models"
)

// JobStorage persists job documents. The core treats the store as
// write-through and never reads it on the hot path.
type JobStorage interface {
	SaveJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	DeleteJob(id string) error
	ListTerminalBefore(cutoff time.Time) ([]string, error)
}

// ReportStorage persists final reports keyed by job ID.
type ReportStorage interface {
	SaveReport(jobID, report string) error
	GetReport(jobID string) (string, error)
}

// StorageManager bundles the optional persistence layer.
type StorageManager interface {
	JobStorage() JobStorage
	ReportStorage() ReportStorage
	Close() error
}
