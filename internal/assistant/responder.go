package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/report"
)

// Advisor produces free-form answers, typically backed by a hosted language
// model. background carries a plain-text summary of the bot's state.
type Advisor interface {
	Advise(ctx context.Context, q Query, background string) (string, error)
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, q Query, background string) (string, error)

// Advise calls f.
func (f AdvisorFunc) Advise(ctx context.Context, q Query, background string) (string, error) {
	return f(ctx, q, background)
}

// StateReader is the view of the bot the responder answers from.
type StateReader interface {
	Performance() report.Summary
	Signal(symbol string) (indicator.Snapshot, error)
}

// Answer is the reply to one query.
type Answer struct {
	Query Query  `json:"query"`
	Text  string `json:"text"`
	Data  any    `json:"data,omitempty"`
}

// Responder answers portfolio, price and analysis questions from the bot's
// state and hands everything else to the Advisor.
type Responder struct {
	state   StateReader
	advisor Advisor
}

// NewResponder creates a responder. advisor may be nil.
func NewResponder(state StateReader, advisor Advisor) *Responder {
	return &Responder{state: state, advisor: advisor}
}

// Answer classifies text and answers it.
func (r *Responder) Answer(ctx context.Context, text string) (Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, errors.New("assistant: empty query")
	}
	q := Classify(text)

	switch q.Kind {
	case KindPortfolio:
		s := r.state.Performance()
		return Answer{Query: q, Text: describeSummary(s), Data: s}, nil
	case KindPrice, KindAnalysis:
		if len(q.Symbols) == 0 {
			return Answer{Query: q, Text: "Which symbol? Mention a ticker such as AAPL or BTC-USD."}, nil
		}
		snaps, missing := r.snapshots(q.Symbols)
		return Answer{Query: q, Text: describeSnapshots(q.Kind, snaps, missing), Data: snaps}, nil
	}

	if r.advisor == nil {
		return Answer{Query: q, Text: cannedReply(q)}, nil
	}
	reply, err := r.advisor.Advise(ctx, q, r.background(q))
	if err != nil {
		return Answer{}, fmt.Errorf("assistant: advisor failed: %w", err)
	}
	return Answer{Query: q, Text: reply}, nil
}

func (r *Responder) snapshots(symbols []string) ([]indicator.Snapshot, []string) {
	var snaps []indicator.Snapshot
	var missing []string
	for _, sym := range symbols {
		snap, err := r.state.Signal(sym)
		if err != nil {
			missing = append(missing, sym)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, missing
}

func (r *Responder) background(q Query) string {
	var b strings.Builder
	b.WriteString(describeSummary(r.state.Performance()))
	snaps, _ := r.snapshots(q.Symbols)
	if len(snaps) > 0 {
		b.WriteString("\n")
		b.WriteString(describeSnapshots(KindAnalysis, snaps, nil))
	}
	return b.String()
}

func describeSummary(s report.Summary) string {
	return fmt.Sprintf("%d tasks (%d active): balance %.2f on capital %.2f, P&L %.2f (%.2f%%), %d trades, success rate %.1f%%, %d open positions.",
		s.TaskCount, s.ActiveTasks, s.TotalCurrentBalance, s.TotalInitialCapital, s.TotalPnL, s.TotalPnLPercent,
		s.TotalTrades, s.SuccessRate*100, s.OpenPositions)
}

func describeSnapshots(kind Kind, snaps []indicator.Snapshot, missing []string) string {
	var lines []string
	for _, s := range snaps {
		if kind == KindPrice {
			lines = append(lines, fmt.Sprintf("%s last traded at %.4f.", s.Symbol, s.Price))
			continue
		}
		if !s.Ready {
			lines = append(lines, fmt.Sprintf("%s: %d samples so far, not enough history for indicators yet.", s.Symbol, s.Samples))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s at %.4f: RSI %.1f, SMA short %.4f, SMA long %.4f, signal %s.",
			s.Symbol, s.Price, s.RSI, s.SMAShort, s.SMALong, s.Overall))
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("No recent data for %s.", strings.Join(missing, ", ")))
	}
	return strings.Join(lines, "\n")
}

func cannedReply(q Query) string {
	if q.Kind == KindPrediction {
		return "Forecasts are not available. Ask for an analysis to see the current indicator signal."
	}
	return "I can report prices, indicator analysis and portfolio performance. Try \"analyze AAPL\" or \"how is my portfolio doing?\"."
}
