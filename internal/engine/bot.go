// Package engine runs shadow trading tasks: it pulls ticks, updates each
// task's indicators, applies the risk tier and simulates fills.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/shadow-trading-bot/internal/alert"
	"github.com/your-org/shadow-trading-bot/internal/dbwriter"
	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/metrics"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/report"
	"github.com/your-org/shadow-trading-bot/internal/risk"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

const (
	// DefaultCommissionRate is charged on the notional of every fill.
	DefaultCommissionRate = 0.001
	// DefaultStrategy tags orders produced by the indicator rule.
	DefaultStrategy = "rsi_sma_macd"

	// Entries smaller than this are skipped.
	minOrderBudget = 0.01
)

// Bot owns every task and the state needed to advance them. All methods are
// safe for concurrent use; RunCycle serialises against the API through mu.
type Bot struct {
	mu sync.RWMutex

	provider  marketdata.Provider
	tasks     map[string]*Task
	order     []string
	analyzers map[string]*indicator.Analyzer
	market    *indicator.Analyzer

	analyzerCfg    indicator.Config
	commissionRate float64
	limits         risk.Limits
	strategy       string

	notifier alert.Notifier
	journal  dbwriter.Journal
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Bot.
type Option func(*Bot)

// WithAnalyzerConfig sets the indicator windows used by every task.
func WithAnalyzerConfig(cfg indicator.Config) Option {
	return func(b *Bot) { b.analyzerCfg = cfg }
}

// WithCommissionRate sets the commission charged on new tasks.
func WithCommissionRate(rate float64) Option {
	return func(b *Bot) { b.commissionRate = rate }
}

// WithRiskLimits sets the account-wide guard rails.
func WithRiskLimits(l risk.Limits) Option {
	return func(b *Bot) { b.limits = l }
}

// WithStrategy sets the strategy tag written on orders.
func WithStrategy(name string) Option {
	return func(b *Bot) { b.strategy = name }
}

// WithNotifier sets where lifecycle messages go.
func WithNotifier(n alert.Notifier) Option {
	return func(b *Bot) { b.notifier = n }
}

// WithJournal sets where fills and task snapshots are recorded.
func WithJournal(j dbwriter.Journal) Option {
	return func(b *Bot) { b.journal = j }
}

// WithMetrics sets the Prometheus collectors to update.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// WithClock overrides time.Now for lifecycle timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// NewBot creates a bot that reads ticks from provider.
func NewBot(provider marketdata.Provider, opts ...Option) *Bot {
	b := &Bot{
		provider:       provider,
		tasks:          make(map[string]*Task),
		analyzers:      make(map[string]*indicator.Analyzer),
		analyzerCfg:    indicator.DefaultConfig(),
		commissionRate: DefaultCommissionRate,
		strategy:       DefaultStrategy,
		notifier:       alert.NewNoOpNotifier(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.journal == nil {
		b.journal = dbwriter.NewInMemWriter()
	}
	b.market = indicator.NewAnalyzer(b.analyzerCfg)
	return b
}

// CreateTask validates p and registers a new task in the created state.
func (b *Bot) CreateTask(p TaskParams) (string, error) {
	target, err := p.validate()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	name := p.Name
	if name == "" {
		name = "task-" + id[:8]
	}
	t := &Task{
		ID:              id,
		Name:            name,
		InitialCapital:  p.InitialCapital,
		TargetAmount:    target,
		AssetClass:      p.AssetClass,
		Symbols:         p.Symbols,
		RiskTier:        p.RiskTier,
		DurationMinutes: p.DurationMinutes,
		Status:          StatusCreated,
		CreatedAt:       b.now(),
		CurrentBalance:  p.InitialCapital,
		Account:         portfolio.NewAccount(id, p.InitialCapital, b.commissionRate),
	}

	b.mu.Lock()
	b.tasks[id] = t
	b.order = append(b.order, id)
	b.analyzers[id] = indicator.NewAnalyzer(b.analyzerCfg)
	b.mu.Unlock()
	b.applyAssetClass(t.AssetClass, t.Symbols)

	logger.Infof("Created task %s (%s): capital %.2f, target %.2f, tier %s, symbols %v",
		name, id, t.InitialCapital, t.TargetAmount, t.RiskTier, t.Symbols)
	return id, nil
}

// applyAssetClass tells a class-aware provider how to quote symbols. Tasks
// sharing a symbol share its quotes, so the latest class wins.
func (b *Bot) applyAssetClass(class marketdata.AssetClass, symbols []string) {
	setter, ok := b.provider.(marketdata.ClassSetter)
	if !ok || class == "" {
		return
	}
	for _, sym := range symbols {
		setter.SetAssetClass(sym, class)
	}
}

// Start moves a created or stopped task to running.
func (b *Bot) Start(id string) error {
	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	switch {
	case t.Status == StatusRunning:
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	case t.Status.Terminal():
		b.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrTaskFinished, id, t.Status)
	}

	now := b.now()
	if t.StartedAt.IsZero() {
		t.StartedAt = now
	}
	t.Status = StatusRunning
	t.StatusReason = ""
	b.rollDay(t, now)
	msg := lifecycleMessage(t)
	b.mu.Unlock()

	logger.Infof("Started task %s", id)
	b.notify(msg)
	return nil
}

// Stop moves a running task to stopped. Open positions are kept.
func (b *Bot) Stop(id string) error {
	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Status != StatusRunning {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, id, t.Status)
	}
	t.Status = StatusStopped
	t.StatusReason = "stopped by request"
	msg := lifecycleMessage(t)
	b.mu.Unlock()

	logger.Infof("Stopped task %s", id)
	b.notify(msg)
	return nil
}

// Status returns a deep copy of the task.
func (b *Bot) Status(id string) (Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.clone(), nil
}

// Tasks returns deep copies of every task in creation order.
func (b *Bot) Tasks() []Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.tasks[id].clone())
	}
	return out
}

// Orders returns a copy of a task's order log.
func (b *Bot) Orders(id string) ([]portfolio.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return append([]portfolio.Order(nil), t.Account.Orders...), nil
}

// Performance aggregates every task at the time of the call.
func (b *Bot) Performance() report.Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	views := make([]report.TaskView, 0, len(b.order))
	for _, id := range b.order {
		t := b.tasks[id]
		views = append(views, report.TaskView{
			ID:             t.ID,
			Active:         t.Status == StatusRunning,
			InitialCapital: t.InitialCapital,
			Balance:        t.Account.Balance(),
			Orders:         len(t.Account.Orders),
			ClosedTrades:   len(t.Account.ClosedTrades),
			WinningTrades:  t.Account.WinningTrades(),
			OpenPositions:  len(t.Account.Positions),
		})
	}
	return report.Summarize(views)
}

// TaskReport runs the trade analysis over a task's orders.
func (b *Bot) TaskReport(id string) (report.Report, error) {
	orders, err := b.Orders(id)
	if err != nil {
		return report.Report{}, err
	}
	return report.AnalyzeOrders(orders)
}

// Signal returns the latest indicator reading for symbol across all tasks.
func (b *Bot) Signal(symbol string) (indicator.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.market.Signal(symbol)
}

// ClosePosition sells a task's whole holding of symbol at its last mark.
func (b *Bot) ClosePosition(id, symbol string) (portfolio.Order, error) {
	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return portfolio.Order{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	pos, ok := t.Account.Position(symbol)
	if !ok {
		b.mu.Unlock()
		return portfolio.Order{}, fmt.Errorf("%w: no %s held", portfolio.ErrInsufficientPosition, symbol)
	}
	price := pos.CurrentPrice
	if price <= 0 {
		price = pos.AvgEntryPrice
	}
	order, err := t.Account.Close(symbol, price, b.now(), b.strategy, risk.ReasonManualClose)
	if err != nil {
		b.mu.Unlock()
		return portfolio.Order{}, err
	}
	t.CurrentBalance = t.Account.Balance()
	b.mu.Unlock()

	b.recordFills([]portfolio.Order{order})
	return order, nil
}

// Close flushes the journal and the notifier.
func (b *Bot) Close() {
	b.journal.Close()
	if err := b.notifier.Close(); err != nil {
		logger.Warnf("Failed to close notifier: %v", err)
	}
}

func (b *Bot) notify(msgs ...string) {
	for _, msg := range msgs {
		if err := b.notifier.Send(msg); err != nil {
			logger.Warnf("Failed to send notification: %v", err)
		}
	}
}

func (b *Bot) recordFills(orders []portfolio.Order) {
	for _, o := range orders {
		b.journal.SaveOrder(o)
		b.metrics.ObserveOrder(o.Symbol, string(o.Side))
		logger.Infof("[Shadow] %s %s %.6f @ %.4f (commission %.4f, %s)",
			o.Side, o.Symbol, o.Quantity, o.Price, o.Commission, o.Reason)
	}
}

// rollDay resets the daily loss reference once per calendar day (UTC).
func (b *Bot) rollDay(t *Task, now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if t.DayStart.Equal(day) {
		return
	}
	t.DayStart = day
	t.DayStartBalance = t.Account.Balance()
}

// statusCounts must be called with mu held.
func (b *Bot) statusCounts() map[string]int {
	counts := map[string]int{
		string(StatusCreated):   0,
		string(StatusRunning):   0,
		string(StatusStopped):   0,
		string(StatusCompleted): 0,
		string(StatusError):     0,
	}
	for _, t := range b.tasks {
		counts[string(t.Status)]++
	}
	return counts
}

func lifecycleMessage(t *Task) string {
	msg := fmt.Sprintf("Task %s (%s) %s: balance %.2f / target %.2f", t.Name, t.ID, t.Status, t.CurrentBalance, t.TargetAmount)
	if t.StatusReason != "" {
		msg += " (" + t.StatusReason + ")"
	}
	return msg
}
