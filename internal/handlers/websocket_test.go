package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/events"
	"github.com/ternarybob/indago/internal/jobs"
	"github.com/ternarybob/indago/internal/models"
)

func wsTestServer(t *testing.T, runner jobs.PipelineRunner) (*httptest.Server, *jobs.Manager) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	bus := events.NewBus(64, common.GetLogger())
	manager := jobs.NewManager(cfg, runner, bus, nil, common.GetLogger())
	t.Cleanup(manager.Stop)

	handler := NewWebSocketHandler(manager, common.GetLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /research/ws/{id}", handler.HandleWebSocket)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, manager
}

func TestHandleWebSocket_StreamsStatusUpdates(t *testing.T) {
	srv, manager := wsTestServer(t, &instantRunner{report: "# Acme\n"})

	job, err := manager.Submit(models.ResearchRequest{Company: "Acme"})
	require.NoError(t, err)
	awaitCompletion(t, manager, job.ID)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/research/ws/" + job.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Late joiners receive the terminal status as their first event.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.EventStatusUpdate, ev.Type)
	assert.Equal(t, "completed", ev.Data["status"])
}

func TestHandleWebSocket_UnknownJob(t *testing.T) {
	srv, _ := wsTestServer(t, &instantRunner{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/research/ws/unknown"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
