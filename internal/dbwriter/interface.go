package dbwriter

import (
	"context"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// Journal records simulated fills and task snapshots for later analysis.
// It is write-only: nothing is restored from it.
type Journal interface {
	SaveOrder(order portfolio.Order)
	SaveTaskSnapshot(ctx context.Context, snapshot TaskSnapshot) error
	Close()
}
