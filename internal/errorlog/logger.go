// Package errorlog records failed analyses asynchronously. Logging never
// blocks or fails the analysis that produced the error.
package errorlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/domain"
)

// Entry is one recorded analysis failure
type Entry struct {
	ID        uuid.UUID             `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Error     ErrorDetail           `json:"error"`
	URL       string                `json:"url"`
	Context   domain.RequestContext `json:"context"`
}

// ErrorDetail describes the failure
type ErrorDetail struct {
	Message string           `json:"message"`
	Name    string           `json:"name"`
	Kind    domain.ErrorKind `json:"kind"`
	Stack   string           `json:"stack,omitempty"`
}

// NewEntry builds an entry from a raw error and its classification
func NewEntry(err error, classified *domain.ClassifiedError, url string, reqCtx domain.RequestContext) *Entry {
	e := &Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		URL:       url,
		Context:   reqCtx,
	}
	if classified != nil {
		e.Error.Kind = classified.Kind
		e.Error.Message = classified.Message
	}
	if err != nil {
		e.Error.Message = err.Error()
		e.Error.Name = rootName(err)
		e.Error.Stack = chain(err)
	}
	return e
}

// rootName is the Go type of the innermost wrapped error
func rootName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

// chain renders each wrapping layer on its own line, outermost first
func chain(err error) string {
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		err = errors.Unwrap(err)
	}
	if len(lines) < 2 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// Sink persists batches of entries
type Sink interface {
	WriteBatch(ctx context.Context, entries []*Entry) error
}

// Config holds buffering settings
type Config struct {
	BufferSize    int           // Max entries to buffer before flush
	FlushInterval time.Duration // Time interval for flushing buffer
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		BufferSize:    100,
		FlushInterval: time.Second,
	}
}

// Logger buffers entries and flushes them to a Sink in the background. Every
// entry is also written to the zap logger. A nil Sink only logs.
type Logger struct {
	sink   Sink
	config Config
	logger *zap.Logger

	buffer  chan *Entry
	wg      sync.WaitGroup
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Int64
}

// NewLogger creates an error logger and starts its background writer
func NewLogger(sink Sink, config Config, logger *zap.Logger) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultConfig().FlushInterval
	}

	l := &Logger{
		sink:   sink,
		config: config,
		logger: logger,
		buffer: make(chan *Entry, config.BufferSize*2),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.backgroundWriter()

	return l
}

// Log records an entry without blocking. Entries are dropped when the
// buffer is full or the logger is closed.
func (l *Logger) Log(entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Warn("analysis error",
		zap.String("id", entry.ID.String()),
		zap.String("url", entry.URL),
		zap.String("kind", string(entry.Error.Kind)),
		zap.String("message", entry.Error.Message),
		zap.String("client_ip", entry.Context.IP),
	)

	if l.sink == nil || l.closed.Load() {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		l.dropped.Add(1)
		l.logger.Warn("error log buffer full, dropping entry",
			zap.String("id", entry.ID.String()),
			zap.String("url", entry.URL),
		)
	}
}

// Dropped returns how many entries were discarded because the buffer was full
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Logger) backgroundWriter() {
	defer l.wg.Done()

	batch := make([]*Entry, 0, l.config.BufferSize)
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= l.config.BufferSize {
				l.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = batch[:0]
			}

		case <-l.done:
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					l.flushBatch(batch)
					return
				}
			}
		}
	}
}

func (l *Logger) flushBatch(batch []*Entry) {
	if len(batch) == 0 || l.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.sink.WriteBatch(ctx, batch); err != nil {
		l.logger.Error("failed to flush error log batch",
			zap.Error(err),
			zap.Int("batch_size", len(batch)),
		)
		return
	}

	l.logger.Debug("flushed error log batch", zap.Int("count", len(batch)))
}

// Close flushes buffered entries and stops the background writer
func (l *Logger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return nil
}
