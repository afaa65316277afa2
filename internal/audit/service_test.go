package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	entries []Entry
	err     error
}

func (m *memorySink) Write(_ context.Context, e Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySink) Recent(_ context.Context, limit int) ([]Entry, error) {
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

type countingObserver struct {
	results []string
}

func (c *countingObserver) ObserveAudit(mode string, err error) {
	result := mode + ":ok"
	if err != nil {
		result = mode + ":error"
	}
	c.results = append(c.results, result)
}

func TestTrailStampsAndWrites(t *testing.T) {
	sink := &memorySink{}
	obs := &countingObserver{}
	trail := NewTrail(ModeDirect, sink, nil, obs)
	trail.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	trail.Record(context.Background(), Entry{Actor: "admin", Action: "product.create", Entity: "product", EntityID: "7"})

	require.Len(t, sink.entries, 1)
	assert.Equal(t, 2024, sink.entries[0].At.Year())
	assert.Equal(t, []string{"direct:ok"}, obs.results)
}

func TestTrailSwallowsSinkErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	obs := &countingObserver{}
	trail := NewTrail(ModeQueue, &memorySink{err: errors.New("redis down")}, logger, obs)

	trail.Record(context.Background(), Entry{Actor: "admin", Action: "stock.out", Entity: "product"})

	assert.Contains(t, buf.String(), "record activity")
	assert.Equal(t, []string{"queue:error"}, obs.results)
}

func TestTrailOffOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	trail := NewTrail(ModeDirect, nil, logger, nil)

	assert.Equal(t, ModeOff, trail.Mode())
	trail.Record(context.Background(), Entry{Actor: "admin", Action: "auth.logout", Entity: "session"})
	assert.Contains(t, buf.String(), "auth.logout")

	var nilTrail *Trail
	nilTrail.Record(context.Background(), Entry{})
	assert.Equal(t, ModeOff, nilTrail.Mode())
}

func TestServiceRecentClampsLimit(t *testing.T) {
	sink := &memorySink{}
	for i := 0; i < 60; i++ {
		sink.entries = append(sink.entries, Entry{Action: "x"})
	}
	svc := NewService(sink)

	entries, err := svc.Recent(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, entries, 50)

	_, err = NewService(nil).Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
