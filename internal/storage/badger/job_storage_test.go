package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/models"
)

func testStorageManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &common.BadgerConfig{Path: t.TempDir()}
	m, err := NewManager(common.GetLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m.(*Manager)
}

func TestJobStorage_SaveAndGet(t *testing.T) {
	m := testStorageManager(t)

	job := models.NewJob(models.ResearchRequest{Company: "Acme", Industry: "Widgets"})
	job.MarkProcessing()
	require.NoError(t, m.JobStorage().SaveJob(job))

	got, err := m.JobStorage().GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "Acme", got.Request.Company)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
}

func TestJobStorage_GetMissingIsNotFound(t *testing.T) {
	m := testStorageManager(t)

	_, err := m.JobStorage().GetJob("missing")
	require.Error(t, err)
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}

func TestJobStorage_DeleteIsIdempotent(t *testing.T) {
	m := testStorageManager(t)

	job := models.NewJob(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, m.JobStorage().SaveJob(job))
	require.NoError(t, m.JobStorage().DeleteJob(job.ID))
	require.NoError(t, m.JobStorage().DeleteJob(job.ID))

	_, err := m.JobStorage().GetJob(job.ID)
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}

func TestJobStorage_ListTerminalBefore(t *testing.T) {
	m := testStorageManager(t)

	old := models.NewJob(models.ResearchRequest{Company: "Old"})
	old.MarkCompleted(&models.JobResult{Company: "Old"})
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, m.JobStorage().SaveJob(old))

	fresh := models.NewJob(models.ResearchRequest{Company: "Fresh"})
	fresh.MarkCompleted(&models.JobResult{Company: "Fresh"})
	require.NoError(t, m.JobStorage().SaveJob(fresh))

	running := models.NewJob(models.ResearchRequest{Company: "Running"})
	running.MarkProcessing()
	running.UpdatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, m.JobStorage().SaveJob(running))

	ids, err := m.JobStorage().ListTerminalBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids)
}

func TestReportStorage_RoundTrip(t *testing.T) {
	m := testStorageManager(t)

	require.NoError(t, m.ReportStorage().SaveReport("job-1", "# Acme\n\n## References\n"))

	report, err := m.ReportStorage().GetReport("job-1")
	require.NoError(t, err)
	assert.Equal(t, "# Acme\n\n## References\n", report)

	_, err = m.ReportStorage().GetReport("job-2")
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}
