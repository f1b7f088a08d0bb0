package dbwriter

import (
	"context"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// noOpJournal is used when the database is disabled.
type noOpJournal struct {
	logger logger.Logger
}

// NewNoOpJournal creates a journal that drops everything.
func NewNoOpJournal(l logger.Logger) Journal {
	l.Info("Database journal disabled; orders and snapshots are kept in memory only.")
	return &noOpJournal{logger: l}
}

// SaveOrder does nothing.
func (d *noOpJournal) SaveOrder(order portfolio.Order) {}

// SaveTaskSnapshot does nothing and returns nil.
func (d *noOpJournal) SaveTaskSnapshot(ctx context.Context, snapshot TaskSnapshot) error {
	d.logger.Debugf("noop journal: snapshot for task %s dropped", snapshot.TaskID)
	return nil
}

// Close does nothing.
func (d *noOpJournal) Close() {}
