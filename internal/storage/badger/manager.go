package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	job    interfaces.JobStorage
	report interfaces.ReportStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		job:    NewJobStorage(db, logger),
		report: NewReportStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// ReportStorage returns the Report storage interface
func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.report
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
