package security

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// FileAuditLogger writes audit events as append-only JSONL.
// Each event is a single JSON line followed by a newline.
// Thread-safe: multiple goroutines can log concurrently.
type FileAuditLogger struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// NewFileAuditLogger opens (or creates) the audit log file in append-only mode.
// File permissions are 0600 (owner read/write only).
func NewFileAuditLogger(path string, logger *slog.Logger) (*FileAuditLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &FileAuditLogger{file: f, logger: logger}, nil
}

// Record serializes the event as JSON and appends it to the audit log.
// Marshal happens outside the lock; only the file write is serialized.
// Sink failures are logged and dropped — the mutation already succeeded.
func (a *FileAuditLogger) Record(ctx context.Context, event AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		a.logger.ErrorContext(ctx, "marshaling audit event", slog.String("error", err.Error()))
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	_, writeErr := a.file.Write(data)
	a.mu.Unlock()

	if writeErr != nil {
		a.logger.ErrorContext(ctx, "writing audit event",
			slog.String("action", event.Action),
			slog.String("error", writeErr.Error()),
		)
		return
	}

	a.logger.InfoContext(ctx, "audit event logged",
		slog.String("action", event.Action),
		slog.String("model", event.Model),
		slog.String("user_id", event.UserID),
		slog.String("result", event.Result),
	)
}

// Close closes the underlying file.
func (a *FileAuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
