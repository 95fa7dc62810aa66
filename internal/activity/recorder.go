// Package activity maintains the append-only operation log.
package activity

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/planboard/planboard/internal/model"
	"github.com/planboard/planboard/internal/store"
)

// Recorder appends activity entries after successful mutations. Recording
// is best-effort: a failed log write never rolls back or fails the
// operation that triggered it.
type Recorder struct {
	store     *store.Store
	logger    zerolog.Logger
	retention int // max retained entries, 0 = unlimited
}

// NewRecorder creates a recorder backed by the given store.
func NewRecorder(s *store.Store, retention int, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:     s,
		logger:    logger.With().Str("component", "activity").Logger(),
		retention: retention,
	}
}

// Record appends one entry at the head of the log (newest first).
func (r *Recorder) Record(t model.LogType, message string) model.LogEntry {
	entry := model.LogEntry{
		ID:        store.NewID(),
		Type:      t,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	logs := append([]model.LogEntry{entry}, r.store.Logs()...)
	if r.retention > 0 && len(logs) > r.retention {
		logs = logs[:r.retention]
	}
	if err := r.store.ReplaceLogs(logs); err != nil {
		r.logger.Error().Err(err).
			Str("type", string(t)).
			Msg("failed to persist activity entry")
	}
	return entry
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (r *Recorder) Recent(limit int) []model.LogEntry {
	logs := r.store.Logs()
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs
}
