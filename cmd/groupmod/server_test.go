package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/policy"
	"github.com/groupmod/groupmod/rules"
	"github.com/groupmod/groupmod/scheduler"
	"github.com/groupmod/groupmod/transport"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() (*Server, *engine.CaptureTransport) {
	eng, tr := engine.EngineTestFixture()
	eng.Rules = rules.DefaultRules()
	s := &Server{logger: slog.Default(), engine: eng}
	s.sched = scheduler.NewScheduler(context.Background(), 2, 0, "test", eng.ProcessEvent)
	s.setupHTTP(":0")
	return s, tr
}

func postJSON(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleEventsBatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	s, tr := testServer()

	body := `[
		{"type":"command","command":{"room":"room1","user":{"id":"u1","name":"Bob"},"commandName":"start"}},
		{"id":"given","type":"message","message":{"room":"room1","user":{"id":"u1","name":"Bob"},"text":"/mcount","messageId":"7"}}
	]`
	rec := postJSON(s, body)
	require.Equal(http.StatusAccepted, rec.Code)

	var resp eventsResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(2, resp.Accepted)
	assert.Len(resp.IDs, 2)
	assert.NotEmpty(resp.IDs[0])
	assert.Equal("given", resp.IDs[1])

	s.sched.Shutdown()
	texts := tr.Texts()
	require.Len(texts, 2)
	assert.True(strings.HasPrefix(texts[0], "🤖 Bot is running!"))
	assert.True(strings.HasPrefix(texts[1], "📊 Your message count"))
}

func TestHandleEventsSingle(t *testing.T) {
	assert := assert.New(t)
	s, tr := testServer()

	rec := postJSON(s, `{"type":"membership","membership":{"room":"room1","roomTitle":"Gophers","joined":[{"id":"u2","name":"Carol","username":"carol"}]}}`)
	assert.Equal(http.StatusAccepted, rec.Code)

	s.sched.Shutdown()
	assert.Equal([]string{"Welcome Carol (@carol) to Gophers!"}, tr.Texts())
}

func TestHandleEventsRejectsInvalid(t *testing.T) {
	assert := assert.New(t)
	s, tr := testServer()
	defer s.sched.Shutdown()

	for _, body := range []string{
		``,
		`{"type":`,
		`{"type":"message"}`,
		`{"type":"reaction","message":{"room":"room1"}}`,
		`[{"type":"command","command":{"room":"room1","commandName":"start"}}, {"type":"message","message":{"text":"no room"}}]`,
		`[null]`,
	} {
		rec := postJSON(s, body)
		assert.Equal(http.StatusBadRequest, rec.Code, body)
	}
	// nothing from the partially valid batch was queued
	assert.Empty(tr.Actions)
}

func TestHandleEventsAfterShutdown(t *testing.T) {
	assert := assert.New(t)
	s, _ := testServer()
	s.sched.Shutdown()

	rec := postJSON(s, `{"type":"command","command":{"room":"room1","user":{"id":"u1","name":"Bob"},"commandName":"start"}}`)
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)
	s, _ := testServer()
	defer s.sched.Shutdown()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_health", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"status":"ok"`)
}

func TestReplay(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	eng, err := newEngine(slog.Default(), policy.DefaultConfig(), engine.Config{})
	require.NoError(err)
	var out bytes.Buffer
	lt := &transport.Log{Out: &out}
	eng.Transport = lt
	eng.Roster = lt

	in := strings.Join([]string{
		`{"type":"command","command":{"room":"r1","user":{"id":"u1","name":"Bob"},"commandName":"start"}}`,
		``,
		`{"type":"message","message":{"room":"r1","user":{"id":"u1","name":"Bob"},"text":"aaaaaaaaaaaaaaa","messageId":"5"}}`,
		`{"type":"message","message":{"text":"no room"}}`,
	}, "\n")
	n, failed, err := replay(context.Background(), eng, strings.NewReader(in), slog.Default())
	require.NoError(err)
	assert.Equal(3, n)
	assert.Equal(1, failed)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(lines, 3)
	assert.Contains(lines[0], `"type":"send_text"`)
	assert.Contains(lines[1], `"type":"delete_message"`)
	assert.Contains(lines[1], `"messageId":"5"`)
	assert.Contains(lines[2], "Bob, please don't spam!")

	_, _, err = replay(context.Background(), eng, strings.NewReader("{not json"), slog.Default())
	assert.Error(err)
}

func TestParseAdmins(t *testing.T) {
	assert := assert.New(t)

	got, err := parseAdmins([]string{"r1:u1:Alice", "r1:u2", "r2:u3"})
	assert.NoError(err)
	assert.Equal([]event.User{{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "u2"}}, got["r1"])
	assert.Len(got["r2"], 1)

	_, err = parseAdmins([]string{"r1"})
	assert.Error(err)
	_, err = parseAdmins([]string{":u1"})
	assert.Error(err)
}

func TestSimulatorDeterministic(t *testing.T) {
	assert := assert.New(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := NewSimulator(gofakeit.New(42), 2, 4, start).Events(100)
	b := NewSimulator(gofakeit.New(42), 2, 4, start).Events(100)
	assert.Len(a, 100)
	assert.Equal(a, b)

	for _, env := range a {
		assert.NoError(env.Validate())
	}
}

func TestSimulatorRosters(t *testing.T) {
	assert := assert.New(t)
	sim := NewSimulator(gofakeit.New(7), 3, 5, time.Now())

	rosters := sim.Rosters()
	assert.Len(rosters, 3)
	for room, admins := range rosters {
		assert.Len(admins, 1)
		assert.Equal(sim.users[room][0], admins[0])
	}
}
