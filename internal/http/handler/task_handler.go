package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/report"
)

// Engine is the part of the bot the API exposes.
type Engine interface {
	CreateTask(p engine.TaskParams) (string, error)
	Start(id string) error
	Stop(id string) error
	Status(id string) (engine.Task, error)
	Tasks() []engine.Task
	Orders(id string) ([]portfolio.Order, error)
	Performance() report.Summary
	TaskReport(id string) (report.Report, error)
	Signal(symbol string) (indicator.Snapshot, error)
	ClosePosition(id, symbol string) (portfolio.Order, error)
	SaveStateFile(path string) error
	LoadStateFile(path string) error
}

// TaskHandler serves task lifecycle, portfolio and signal endpoints.
type TaskHandler struct {
	engine    Engine
	statePath string
}

// NewTaskHandler creates a TaskHandler. statePath is where save/load requests
// write and read the JSON state.
func NewTaskHandler(e Engine, statePath string) *TaskHandler {
	return &TaskHandler{engine: e, statePath: statePath}
}

// RegisterRoutes registers the task routes on r.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Post("/start", h.StartTask)
			r.Post("/stop", h.StopTask)
			r.Get("/orders", h.GetOrders)
			r.Get("/report", h.GetReport)
			r.Post("/positions/{symbol}/close", h.ClosePosition)
		})
	})
	r.Get("/portfolio", h.GetPortfolio)
	r.Get("/signals/{symbol}", h.GetSignal)
	r.Post("/state/save", h.SaveState)
	r.Post("/state/load", h.LoadState)
}

type createTaskResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID     string        `json:"id"`
	Status engine.Status `json:"status"`
}

// ListTasks returns every task.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Tasks())
}

// CreateTask creates a task from a JSON TaskParams body.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var params engine.TaskParams
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		writeError(w, fmt.Errorf("%w: %v", engine.ErrInvalidParams, err))
		return
	}
	id, err := h.engine.CreateTask(params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTaskResponse{ID: id})
}

// GetTask returns one task snapshot.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// StartTask starts or resumes a task.
func (h *TaskHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Start(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: engine.StatusRunning})
}

// StopTask stops a running task.
func (h *TaskHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Stop(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: id, Status: engine.StatusStopped})
}

// GetOrders returns a task's order log.
func (h *TaskHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.Orders(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []portfolio.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetReport returns the trade analysis of a task.
func (h *TaskHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.TaskReport(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ClosePosition sells a task's holding at its last mark.
func (h *TaskHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.ClosePosition(chi.URLParam(r, "id"), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// GetPortfolio returns the performance summary across all tasks.
func (h *TaskHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Performance())
}

// GetSignal returns the latest indicator snapshot of a symbol.
func (h *TaskHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Signal(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type stateResponse struct {
	Path string `json:"path"`
}

// SaveState writes the state file.
func (h *TaskHandler) SaveState(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SaveStateFile(h.statePath); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Path: h.statePath})
}

// LoadState replaces all tasks with the state file's contents.
func (h *TaskHandler) LoadState(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadStateFile(h.statePath); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Path: h.statePath})
}
