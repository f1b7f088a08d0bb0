package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/your-org/shadow-trading-bot/internal/assistant"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/metrics"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/report"
)

// MockMetricsSource is a mock implementation of MetricsSource.
type MockMetricsSource struct {
	mock.Mock
}

func (m *MockMetricsSource) FetchLatestPerformanceMetrics(ctx context.Context, taskID string) (*datastore.PerformanceMetrics, error) {
	args := m.Called(ctx, taskID)
	if pm, ok := args.Get(0).(*datastore.PerformanceMetrics); ok {
		return pm, args.Error(1)
	}
	return nil, args.Error(1)
}

type testServer struct {
	bot       *engine.Bot
	router    http.Handler
	pnl       *MockMetricsSource
	statePath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	provider := marketdata.NewReplayProvider(map[string][]float64{"AAPL": {100, 101, 102}})
	bot := engine.NewBot(provider)
	pnl := new(MockMetricsSource)
	statePath := filepath.Join(t.TempDir(), "state.json")
	router := NewRouter(RouterConfig{
		Engine:         bot,
		StatePath:      statePath,
		Assistant:      assistant.NewResponder(bot, nil),
		Metrics:        metrics.New().Handler(),
		PnlSource:      pnl,
		StreamInterval: 10 * time.Millisecond,
	})
	return &testServer{bot: bot, router: router, pnl: pnl, statePath: statePath}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createTask(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/tasks",
		`{"name":"demo","initial_capital":100,"target_percent":10,"symbols":["AAPL"],"risk_tier":"low"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp createTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestHealthCheckHandler(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","tasks":0,"active_tasks":0}`, rec.Body.String())

	id := s.createTask(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/tasks/"+id+"/start", "").Code)
	rec = s.do(t, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","tasks":1,"active_tasks":1}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createTask(t)

	rec := s.do(t, http.MethodGet, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var task engine.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "demo", task.Name)
	assert.Equal(t, engine.StatusCreated, task.Status)
	assert.InDelta(t, 110.0, task.TargetAmount, 1e-9)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/tasks/"+id+"/stop", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/tasks/"+id+"/start", "").Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/tasks/"+id+"/start", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/tasks/"+id+"/stop", "").Code)

	rec = s.do(t, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []engine.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, engine.StatusStopped, tasks[0].Status)
}

func TestTaskErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid params", http.MethodPost, "/api/tasks", `{"initial_capital":0,"target_percent":10,"symbols":["AAPL"]}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/tasks", `{"capital":100}`, http.StatusBadRequest},
		{"bad tier", http.MethodPost, "/api/tasks", `{"initial_capital":100,"target_percent":10,"symbols":["AAPL"],"risk_tier":"yolo"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/tasks", `{`, http.StatusBadRequest},
		{"missing task", http.MethodGet, "/api/tasks/nope", "", http.StatusNotFound},
		{"start missing", http.MethodPost, "/api/tasks/nope/start", "", http.StatusNotFound},
		{"orders missing", http.MethodGet, "/api/tasks/nope/orders", "", http.StatusNotFound},
		{"no signal yet", http.MethodGet, "/api/signals/AAPL", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestOrdersReportAndSignal(t *testing.T) {
	s := newTestServer(t)
	id := s.createTask(t)

	rec := s.do(t, http.MethodGet, "/api/tasks/"+id+"/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/tasks/"+id+"/report", "").Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/tasks/"+id+"/positions/AAPL/close", "").Code)

	require.NoError(t, s.bot.Start(id))
	require.NoError(t, s.bot.RunCycle(context.Background()))

	rec = s.do(t, http.MethodGet, "/api/signals/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
		Ready  bool    `json:"ready"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, 100.0, snap.Price)
	assert.False(t, snap.Ready)
}

func TestPortfolio(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t)
	s.createTask(t)

	rec := s.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary report.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TaskCount)
	assert.Equal(t, 200.0, summary.TotalInitialCapital)
	assert.Zero(t, summary.ActiveTasks)
}

func TestStateSaveAndLoad(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodPost, "/api/state/load", "").Code,
		"loading before anything was saved fails")

	id := s.createTask(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/state/save", "").Code)

	s.createTask(t)
	require.Len(t, s.bot.Tasks(), 2)

	rec := s.do(t, http.MethodPost, "/api/state/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := s.bot.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
}

func TestQuery(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t)

	rec := s.do(t, http.MethodPost, "/api/query", `{"query":"How is my portfolio doing?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ans struct {
		Query assistant.Query `json:"query"`
		Text  string          `json:"text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
	assert.Equal(t, assistant.KindPortfolio, ans.Query.Kind)
	assert.NotEmpty(t, ans.Text)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/query", `{"query":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/query", `not json`).Code)
}

func TestGetLatestPnlMetrics(t *testing.T) {
	s := newTestServer(t)
	want := &datastore.PerformanceMetrics{
		Time:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SharpeRatio:  1.5,
		ProfitFactor: 2,
		MaxDrawdown:  decimal.NewFromFloat(3.25),
		TotalPnL:     decimal.NewFromFloat(12.5),
	}
	s.pnl.On("FetchLatestPerformanceMetrics", mock.Anything, "task-1").Return(want, nil).Once()
	s.pnl.On("FetchLatestPerformanceMetrics", mock.Anything, "task-2").Return(nil, datastore.ErrNotFound).Once()

	rec := s.do(t, http.MethodGet, "/api/pnl/task-1/latest_metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got datastore.PerformanceMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1.5, got.SharpeRatio)
	assert.True(t, want.TotalPnL.Equal(got.TotalPnL))

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/pnl/task-2/latest_metrics", "").Code)
	s.pnl.AssertExpectations(t)
}

func TestStream(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var update StreamUpdate
		require.NoError(t, conn.ReadJSON(&update))
		assert.Equal(t, 1, update.Performance.TaskCount)
		require.Len(t, update.Tasks, 1)
		assert.Equal(t, engine.StatusCreated, update.Tasks[0].Status)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(portfolio.ErrInsufficientPosition))
	assert.Equal(t, http.StatusNotFound, statusFor(report.ErrNoTrades))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
