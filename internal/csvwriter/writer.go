// Package csvwriter writes simulated orders as CSV.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// TimeLayout is the timestamp format of exported rows.
const TimeLayout = "2006-01-02 15:04:05.999999-07"

// OrderHeader is the column order written by WriteOrders.
var OrderHeader = []string{
	"time", "task_id", "order_id", "symbol", "side", "quantity", "price",
	"notional", "commission", "realized_pnl", "strategy", "reason",
}

// Writer is a simple CSV writer.
type Writer struct {
	closer io.Closer
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex

	headerWritten bool
}

// New wraps w. Close does not close w.
func New(w io.Writer, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{writer: csv.NewWriter(w), logger: logger}
}

// NewWriter creates a new CSV file at filePath, creating parent directories.
func NewWriter(filePath string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create CSV directory: %w", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	w := New(file, logger)
	w.closer = file
	return w, nil
}

// Write writes a record to the CSV file.
func (w *Writer) Write(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	return nil
}

// WriteOrders writes orders as rows, preceded by OrderHeader on the first call.
func (w *Writer) WriteOrders(orders []portfolio.Order) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.headerWritten {
		if err := w.writer.Write(OrderHeader); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		w.headerWritten = true
	}
	for _, o := range orders {
		if err := w.writer.Write(orderRecord(o)); err != nil {
			return fmt.Errorf("failed to write order %s to CSV: %w", o.ID, err)
		}
	}
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	w.logger.Debug("Wrote orders to CSV", zap.Int("count", len(orders)))
	return nil
}

func orderRecord(o portfolio.Order) []string {
	return []string{
		o.Timestamp.Format(TimeLayout),
		o.TaskID,
		o.ID,
		o.Symbol,
		string(o.Side),
		formatFloat(o.Quantity),
		formatFloat(o.Price),
		formatFloat(o.Notional),
		formatFloat(o.Commission),
		formatFloat(o.RealizedPnL),
		o.Strategy,
		o.Reason,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Flush flushes any buffered data to the underlying file.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
}

// Close flushes and closes the file opened by NewWriter.
func (w *Writer) Close() error {
	w.Flush()
	if err := w.writer.Error(); err != nil {
		w.logger.Warn("CSV flush failed", zap.Error(err))
	}
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
