package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/risk"
)

var (
	// ErrInvalidParams is returned when a task cannot be created from its parameters.
	ErrInvalidParams = errors.New("invalid task parameters")
	// ErrTaskNotFound is returned for unknown task IDs.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAlreadyRunning is returned when starting a running task.
	ErrAlreadyRunning = errors.New("task already running")
	// ErrNotRunning is returned when stopping a task that is not running.
	ErrNotRunning = errors.New("task not running")
	// ErrTaskFinished is returned when starting a completed or failed task.
	ErrTaskFinished = errors.New("task already finished")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// TaskParams describe a task to create. Exactly one of TargetAmount and
// TargetPercent is used; TargetAmount wins when both are set.
type TaskParams struct {
	Name            string                `json:"name"`
	InitialCapital  float64               `json:"initial_capital"`
	TargetAmount    float64               `json:"target_amount,omitempty"`
	TargetPercent   float64               `json:"target_percent,omitempty"`
	AssetClass      marketdata.AssetClass `json:"asset_class,omitempty"`
	Symbols         []string              `json:"symbols"`
	RiskTier        risk.Tier             `json:"risk_tier"`
	DurationMinutes int                   `json:"duration_minutes"` // 0 runs until the target or a stop
}

// validate normalises p and returns the resolved target amount.
func (p *TaskParams) validate() (float64, error) {
	var problems []string

	if !(p.InitialCapital > 0) || math.IsInf(p.InitialCapital, 0) {
		problems = append(problems, "initial capital must be positive")
	}

	target := p.TargetAmount
	switch {
	case target != 0:
		if !(target > p.InitialCapital) {
			problems = append(problems, "target amount must exceed initial capital")
		}
	case p.TargetPercent > 0:
		target = p.InitialCapital * (1 + p.TargetPercent/100)
	default:
		problems = append(problems, "a target amount or a positive target percent is required")
	}

	seen := make(map[string]bool, len(p.Symbols))
	symbols := make([]string, 0, len(p.Symbols))
	for _, s := range p.Symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		problems = append(problems, "at least one symbol is required")
	}
	p.Symbols = symbols

	if p.RiskTier == "" {
		p.RiskTier = risk.Medium
	}
	if _, err := risk.ParamsFor(p.RiskTier); err != nil {
		problems = append(problems, err.Error())
	}
	// An empty class leaves each symbol to marketdata.ClassOf.
	if p.AssetClass != "" {
		if class, err := marketdata.ParseAssetClass(string(p.AssetClass)); err != nil {
			problems = append(problems, err.Error())
		} else {
			p.AssetClass = class
		}
	}
	if p.DurationMinutes < 0 {
		problems = append(problems, "duration must not be negative")
	}

	if len(problems) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return target, nil
}

// Task is one independent simulated trading run.
type Task struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	InitialCapital  float64               `json:"initial_capital"`
	TargetAmount    float64               `json:"target_amount"`
	AssetClass      marketdata.AssetClass `json:"asset_class"`
	Symbols         []string              `json:"symbols"`
	RiskTier        risk.Tier             `json:"risk_tier"`
	DurationMinutes int                   `json:"duration_minutes"`
	Status          Status                `json:"status"`
	StatusReason    string                `json:"status_reason,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	StartedAt       time.Time             `json:"started_at,omitzero"`
	EndedAt         time.Time             `json:"ended_at,omitzero"`
	CurrentBalance  float64               `json:"current_balance"`
	DayStart        time.Time             `json:"day_start,omitzero"`
	DayStartBalance float64               `json:"day_start_balance"`
	Cycles          int                   `json:"cycles"`
	Account         *portfolio.Account    `json:"account"`
}

// Deadline is when the task's duration runs out. ok is false when the task
// has no duration or has never started.
func (t *Task) Deadline() (deadline time.Time, ok bool) {
	if t.DurationMinutes <= 0 || t.StartedAt.IsZero() {
		return time.Time{}, false
	}
	return t.StartedAt.Add(time.Duration(t.DurationMinutes) * time.Minute), true
}

// Progress is how far the balance has moved from the initial capital
// towards the target, in percent.
func (t *Task) Progress() float64 {
	span := t.TargetAmount - t.InitialCapital
	if span <= 0 {
		return 0
	}
	return (t.CurrentBalance - t.InitialCapital) / span * 100
}

func (t *Task) clone() Task {
	c := *t
	c.Symbols = append([]string(nil), t.Symbols...)
	if t.Account != nil {
		c.Account = t.Account.Clone()
	}
	return c
}
