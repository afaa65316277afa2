package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Modes accepted by AUDIT_MODE.
const (
	ModeOff    = "off"
	ModeDirect = "direct"
	ModeQueue  = "queue"
)

// Entry is one console activity record.
type Entry struct {
	Actor    string            `json:"actor"`
	Action   string            `json:"action"`
	Entity   string            `json:"entity"`
	EntityID string            `json:"entity_id,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
	At       time.Time         `json:"at"`
}

// Sink persists or forwards entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Reader lists recorded entries, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Observer counts entries per mode and result.
type Observer interface {
	ObserveAudit(mode string, err error)
}

// ErrNotConfigured is returned when no store backs the activity log.
var ErrNotConfigured = errors.New("audit: store not configured")

// Trail records console activity without ever failing the caller.
type Trail struct {
	mode     string
	sink     Sink
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewTrail constructs a Trail. A nil sink behaves like ModeOff.
func NewTrail(mode string, sink Sink, logger *slog.Logger, observer Observer) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		mode = ModeOff
	}
	return &Trail{mode: mode, sink: sink, logger: logger, observer: observer, now: time.Now}
}

// Mode reports the effective mode.
func (t *Trail) Mode() string {
	if t == nil {
		return ModeOff
	}
	return t.mode
}

// Record stamps and writes the entry. Failures are logged only.
func (t *Trail) Record(ctx context.Context, e Entry) {
	if t == nil {
		return
	}
	if e.At.IsZero() {
		e.At = t.now().UTC()
	}
	if t.mode == ModeOff || t.sink == nil {
		t.logger.Info("activity",
			slog.String("actor", e.Actor),
			slog.String("action", e.Action),
			slog.String("entity", e.Entity),
			slog.String("entity_id", e.EntityID))
		return
	}
	err := t.sink.Write(ctx, e)
	if t.observer != nil {
		t.observer.ObserveAudit(t.mode, err)
	}
	if err != nil {
		t.logger.Warn("record activity",
			slog.String("mode", t.mode),
			slog.String("action", e.Action),
			slog.Any("error", err))
	}
}

// Service serves the activity log.
type Service struct {
	reader Reader
}

// NewService creates the activity log service; reader may be nil.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// Enabled reports whether entries can be listed.
func (s *Service) Enabled() bool {
	return s != nil && s.reader != nil
}

// Recent returns at most limit entries, clamped to 1..50.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.reader.Recent(ctx, limit)
}
