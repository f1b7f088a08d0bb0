// Package alert delivers task lifecycle notifications.
package alert

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/shadow-trading-bot/internal/config"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("notifier is closed")

// Notifier is the interface for sending alert messages.
type Notifier interface {
	Send(message string) error
	Close() error
}

// NoOpNotifier is a notifier that does nothing. It is used when alerting is disabled.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing and returns nil.
func (n *NoOpNotifier) Send(message string) error { return nil }

// Close does nothing and returns nil.
func (n *NoOpNotifier) Close() error { return nil }

// Sink is where a BufferedNotifier delivers its batches.
type Sink interface {
	Deliver(content string) error
}

// LogSink writes alerts to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink on logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Deliver logs content at warn level so it stands out from routine output.
func (s *LogSink) Deliver(content string) error {
	s.logger.Warn("alert", zap.String("content", content))
	return nil
}

// BufferedNotifier collects messages and delivers them as one batch every
// bufferInterval. With a zero interval every message is delivered at once.
type BufferedNotifier struct {
	sink           Sink
	logger         *zap.Logger
	bufferInterval time.Duration

	mu     sync.Mutex
	buffer []string
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewBufferedNotifier starts a notifier delivering to sink.
func NewBufferedNotifier(sink Sink, bufferInterval time.Duration, logger *zap.Logger) *BufferedNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &BufferedNotifier{
		sink:           sink,
		logger:         logger,
		bufferInterval: bufferInterval,
		done:           make(chan struct{}),
	}
	if bufferInterval > 0 {
		n.wg.Add(1)
		go n.run()
	}
	return n
}

// NewNotifier builds the notifier selected by cfg.
func NewNotifier(cfg config.AlertConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled.Bool() {
		return NewNoOpNotifier()
	}
	interval := time.Duration(cfg.BufferIntervalSeconds) * time.Second
	return NewBufferedNotifier(NewLogSink(logger), interval, logger)
}

// Send queues message for delivery.
func (n *BufferedNotifier) Send(message string) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	if n.bufferInterval <= 0 {
		n.mu.Unlock()
		return n.sink.Deliver(message)
	}
	n.buffer = append(n.buffer, message)
	n.mu.Unlock()
	return nil
}

func (n *BufferedNotifier) run() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.bufferInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.flush()
		case <-n.done:
			n.flush()
			return
		}
	}
}

func (n *BufferedNotifier) flush() {
	n.mu.Lock()
	if len(n.buffer) == 0 {
		n.mu.Unlock()
		return
	}
	messages := n.buffer
	n.buffer = nil
	n.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "--- **Task Report (%s)** ---\n", time.Now().UTC().Format(time.RFC3339))
	for _, m := range messages {
		b.WriteString("- ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	if err := n.sink.Deliver(b.String()); err != nil {
		n.logger.Error("failed to deliver alert batch", zap.Int("messages", len(messages)), zap.Error(err))
	}
}

// Close delivers anything still buffered and stops the notifier.
func (n *BufferedNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
	return nil
}
