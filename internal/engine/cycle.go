package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/dbwriter"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/risk"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// effects collects side effects produced under the lock so they can be
// delivered after it is released.
type effects struct {
	orders    []portfolio.Order
	messages  []string
	snapshots []dbwriter.TaskSnapshot
}

// Run calls RunCycle immediately and then on every interval until ctx is
// done. A cycle that overruns the interval delays the next one.
func (b *Bot) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("engine: interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("Evaluation loop started (interval %s)", interval)
	for {
		if err := b.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return err
		}
		select {
		case <-ctx.Done():
			logger.Info("Evaluation loop stopped")
			return nil
		case <-ticker.C:
		}
	}
	logger.Info("Evaluation loop stopped")
	return nil
}

// RunCycle advances every running task by one tick per watched symbol.
// Ticks are fetched before the lock is taken, once per symbol, and shared
// by every task watching that symbol.
func (b *Bot) RunCycle(ctx context.Context) error {
	started := time.Now()
	defer func() { b.metrics.ObserveCycle(time.Since(started)) }()

	ticks := b.fetchTicks(ctx, b.watchedSymbols())
	if err := ctx.Err(); err != nil {
		return err
	}

	var fx effects
	b.mu.Lock()
	for _, tick := range ticks {
		if err := b.market.AddPrice(tick.Symbol, tick.Price, tick.Timestamp); err != nil {
			logger.Warnf("Ignoring tick for %s: %v", tick.Symbol, err)
		}
	}
	now := b.now()
	for _, id := range b.order {
		t := b.tasks[id]
		// Stop requests are honoured at the top of the task's cycle.
		if t.Status != StatusRunning {
			continue
		}
		b.advance(t, ticks, now, &fx)
		fx.snapshots = append(fx.snapshots, snapshotOf(t, now))
	}
	counts := b.statusCounts()
	b.mu.Unlock()

	b.recordFills(fx.orders)
	b.notify(fx.messages...)
	for _, s := range fx.snapshots {
		if err := b.journal.SaveTaskSnapshot(ctx, s); err != nil {
			logger.Warnf("Failed to journal snapshot of task %s: %v", s.TaskID, err)
		}
	}
	b.metrics.SetTaskCounts(counts)
	return nil
}

func (b *Bot) watchedSymbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, id := range b.order {
		t := b.tasks[id]
		if t.Status != StatusRunning {
			continue
		}
		for _, s := range t.Symbols {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// fetchTicks asks the provider for each symbol. Failures are logged and the
// symbol is skipped for this cycle.
func (b *Bot) fetchTicks(ctx context.Context, symbols []string) map[string]marketdata.MarketTick {
	ticks := make(map[string]marketdata.MarketTick, len(symbols))
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		tick, err := b.provider.Tick(ctx, sym)
		b.metrics.ObserveTick(sym, err)
		if err != nil {
			if errors.Is(err, marketdata.ErrUnknownSymbol) {
				logger.Warnf("No market data for %s, skipping this cycle", sym)
			} else {
				logger.Errorf("Failed to fetch tick for %s: %v", sym, err)
			}
			continue
		}
		if !(tick.Price > 0) {
			logger.Warnf("Discarding non-positive price %v for %s", tick.Price, sym)
			continue
		}
		tick.Symbol = sym
		ticks[sym] = tick
	}
	return ticks
}

// advance runs one cycle of t. Must be called with mu held.
func (b *Bot) advance(t *Task, ticks map[string]marketdata.MarketTick, now time.Time, fx *effects) {
	params, err := risk.ParamsFor(t.RiskTier)
	if err != nil {
		b.fail(t, now, err, fx)
		return
	}
	b.rollDay(t, now)

	analyzer := b.analyzers[t.ID]
	acct := t.Account
	var lastTick time.Time

	for _, sym := range t.Symbols {
		tick, ok := ticks[sym]
		if !ok {
			continue
		}
		if tick.Timestamp.After(lastTick) {
			lastTick = tick.Timestamp
		}
		if err := analyzer.AddPrice(sym, tick.Price, tick.Timestamp); err != nil {
			logger.Warnf("Task %s: ignoring tick for %s: %v", t.ID, sym, err)
			continue
		}
		acct.MarkSymbol(sym, tick.Price)

		snap, err := analyzer.Signal(sym)
		if err != nil {
			continue
		}

		if pos, open := acct.Position(sym); open {
			reason := params.ExitReason(pos.AvgEntryPrice, tick.Price)
			if reason == "" && snap.Overall.IsSell() {
				reason = risk.ReasonSignal
			}
			if reason == "" {
				continue
			}
			order, err := acct.Close(sym, sellPrice(tick), tick.Timestamp, b.strategy, reason)
			if err != nil {
				b.fail(t, now, err, fx)
				return
			}
			fx.orders = append(fx.orders, order)
			continue
		}

		if !snap.Overall.IsBuy() {
			continue
		}
		if !b.limits.AllowEntry(t.DayStartBalance, acct.Balance()) {
			logger.Infof("Task %s: daily loss limit reached, skipping %s entry", t.ID, sym)
			continue
		}
		budget := params.PositionBudget(acct.Balance(), acct.Cash)
		if budget < minOrderBudget {
			continue
		}
		order, err := acct.Buy(sym, budget, buyPrice(tick), tick.Timestamp, b.strategy, risk.ReasonEntry)
		if errors.Is(err, portfolio.ErrInsufficientCash) {
			logger.Warnf("Task %s: %v", t.ID, err)
			continue
		}
		if err != nil {
			b.fail(t, now, err, fx)
			return
		}
		fx.orders = append(fx.orders, order)
	}

	t.Cycles++
	t.CurrentBalance = acct.Balance()
	b.metrics.SetBalance(t.ID, t.CurrentBalance)

	if lastTick.IsZero() {
		lastTick = now
	}
	if t.CurrentBalance >= t.TargetAmount {
		b.finish(t, now, lastTick, risk.ReasonTarget, fx)
		return
	}
	if deadline, ok := t.Deadline(); ok && !now.Before(deadline) {
		b.finish(t, now, lastTick, risk.ReasonDurationDone, fx)
	}
}

// finish liquidates t at its last marks and completes it.
func (b *Bot) finish(t *Task, now, fillTime time.Time, reason string, fx *effects) {
	orders, err := t.Account.CloseAll(fillTime, b.strategy, reason)
	fx.orders = append(fx.orders, orders...)
	if err != nil {
		b.fail(t, now, err, fx)
		return
	}
	t.CurrentBalance = t.Account.Balance()
	t.Status = StatusCompleted
	t.StatusReason = reason
	t.EndedAt = now
	b.metrics.SetBalance(t.ID, t.CurrentBalance)
	logger.Infof("Task %s completed (%s): balance %.2f", t.ID, reason, t.CurrentBalance)
	fx.messages = append(fx.messages, lifecycleMessage(t))
}

func (b *Bot) fail(t *Task, now time.Time, err error, fx *effects) {
	t.Status = StatusError
	t.StatusReason = err.Error()
	t.EndedAt = now
	t.CurrentBalance = t.Account.Balance()
	logger.Errorf("Task %s failed: %v", t.ID, err)
	fx.messages = append(fx.messages, lifecycleMessage(t))
}

func snapshotOf(t *Task, now time.Time) dbwriter.TaskSnapshot {
	return dbwriter.TaskSnapshot{
		Time:          now,
		TaskID:        t.ID,
		Status:        string(t.Status),
		Cash:          t.Account.Cash,
		Balance:       t.CurrentBalance,
		RealizedPnL:   t.Account.PnL.Realized,
		UnrealizedPnL: t.Account.UnrealizedPnL(),
		Commissions:   t.Account.PnL.Commissions,
		OpenPositions: len(t.Account.Positions),
		TotalOrders:   len(t.Account.Orders),
	}
}

func buyPrice(tick marketdata.MarketTick) float64 {
	if tick.Ask > 0 {
		return tick.Ask
	}
	return tick.Price
}

func sellPrice(tick marketdata.MarketTick) float64 {
	if tick.Bid > 0 {
		return tick.Bid
	}
	return tick.Price
}
