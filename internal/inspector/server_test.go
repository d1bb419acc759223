package inspector

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/userdata"
	"github.com/cgast/atwork/pkg/workflow"
)

func newTestServer(t *testing.T) (*httptest.Server, *events.MemoryBus, *userdata.MemoryStore) {
	t.Helper()
	bus := events.NewMemoryBus()
	store := userdata.NewMemoryStore()
	s := New(bus, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, bus, store
}

func getJSON(t *testing.T, url string, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestStatus(t *testing.T) {
	ts, bus, store := newTestServer(t)
	bus.Publish(events.NewEvent(events.EventWorkflowStart, nil))
	bus.Publish(events.NewEvent(events.EventTaskParsed, nil))
	bus.Publish(events.NewEvent(events.EventTaskRejected, nil))
	require.NoError(t, store.Set(userdata.ScopeSession, workflow.KeyRunID, "run-42"))

	var status map[string]any
	getJSON(t, ts.URL+"/api/status", &status)

	assert.Equal(t, float64(3), status["events"])
	assert.Equal(t, float64(1), status["runs"])
	assert.Equal(t, float64(1), status["parsed"])
	assert.Equal(t, float64(1), status["rejected"])
	assert.Equal(t, "run-42", status["last_run"])
}

func TestUserdata(t *testing.T) {
	ts, _, store := newTestServer(t)
	require.NoError(t, store.Set(userdata.ScopeTask, workflow.KeySpecCopy, "PPT<S6,S5>"))

	var all map[string]map[string]any
	getJSON(t, ts.URL+"/api/userdata", &all)
	assert.Equal(t, "PPT<S6,S5>", all[userdata.ScopeTask][workflow.KeySpecCopy])
	assert.NotContains(t, all, userdata.ScopeHistory)

	var one map[string]map[string]any
	getJSON(t, ts.URL+"/api/userdata?scope=task", &one)
	assert.Len(t, one, 1)

	resp, err := http.Get(ts.URL + "/api/userdata?scope=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	ts, bus, _ := newTestServer(t)

	var empty []events.Event
	getJSON(t, ts.URL+"/api/history", &empty)
	assert.Empty(t, empty)

	bus.Publish(events.Event{Type: events.EventWorkflowStart, RunID: "a"})
	bus.Publish(events.Event{Type: events.EventWorkflowStart, RunID: "b"})

	var all []events.Event
	getJSON(t, ts.URL+"/api/history", &all)
	assert.Len(t, all, 2)

	var run []events.Event
	getJSON(t, ts.URL+"/api/history?run=b", &run)
	require.Len(t, run, 1)
	assert.Equal(t, "b", run[0].RunID)
}

func TestRuns(t *testing.T) {
	ts, _, store := newTestServer(t)
	require.NoError(t, store.Set(userdata.ScopeHistory, "run-1", workflow.Result{RunID: "run-1", Outcome: workflow.OutcomeSucceeded}))

	var runs map[string]workflow.Result
	getJSON(t, ts.URL+"/api/runs", &runs)
	assert.Equal(t, workflow.OutcomeSucceeded, runs["run-1"].Outcome)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketReplaysAndStreams(t *testing.T) {
	ts, bus, _ := newTestServer(t)
	bus.Publish(events.NewEvent(events.EventSpecReceived, "PPT<S6,S5>"))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var replayed events.Event
	require.NoError(t, conn.ReadJSON(&replayed))
	assert.Equal(t, events.EventSpecReceived, replayed.Type)

	// the subscription is registered before the replay is written
	bus.Publish(events.NewEvent(events.EventTaskParsed, "live"))

	var live events.Event
	require.NoError(t, conn.ReadJSON(&live))
	assert.Equal(t, events.EventTaskParsed, live.Type)
	assert.Equal(t, "live", live.Data)
}
