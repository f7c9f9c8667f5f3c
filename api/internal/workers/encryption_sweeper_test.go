package workers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/telemetry"
)

type toggle bool

func (t toggle) Enabled() bool { return bool(t) }

type fakeTarget struct {
	name     string
	pending  []string
	listErr  error
	failIDs  map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	done  []string
	calls atomic.Int32
}

func (f *fakeTarget) Name() string { return f.name }

func (f *fakeTarget) PendingPlaintext(context.Context) ([]string, error) {
	f.calls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range f.pending {
		if !contains(f.done, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeTarget) Reencrypt(_ context.Context, id string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if f.failIDs[id] {
		return errors.New("write failed")
	}
	f.mu.Lock()
	f.done = append(f.done, id)
	f.mu.Unlock()
	return nil
}

type memHistory struct {
	mu   sync.Mutex
	runs []domain.SweepRun
}

func (m *memHistory) RecordSweep(_ context.Context, run *domain.SweepRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memHistory) ListSweeps(context.Context, int) ([]domain.SweepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SweepRun(nil), m.runs...), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepOnce_ConvertsPendingRows(t *testing.T) {
	settings := &fakeTarget{name: "settings", pending: []string{"a", "b", "c"}}
	secrets := &fakeTarget{name: "secrets", pending: []string{"x", "y"}, failIDs: map[string]bool{"y": true}}
	history := &memHistory{}

	s := NewEncryptionSweeper([]domain.SweepTarget{settings, secrets}, history, toggle(true), quietLogger(), time.Hour, 2)

	runs, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, domain.SweepRun{Target: "settings", Pending: 3, Converted: 3}, runs[0])
	assert.Equal(t, domain.SweepRun{Target: "secrets", Pending: 2, Converted: 1, Failed: 1}, runs[1])
	assert.Len(t, history.runs, 2)
	assert.LessOrEqual(t, settings.peak.Load(), int32(2))

	// A second pass only sees what is still plaintext.
	runs, err = s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, runs[0].Pending)
	assert.Equal(t, 1, runs[1].Pending)
}

func TestSweepOnce_Disabled(t *testing.T) {
	target := &fakeTarget{name: "settings", pending: []string{"a"}}
	s := NewEncryptionSweeper([]domain.SweepTarget{target}, nil, toggle(false), quietLogger(), time.Hour, 1)

	_, err := s.SweepOnce(context.Background())
	assert.ErrorIs(t, err, ErrEncryptionDisabled)
	assert.Zero(t, target.calls.Load())
}

func TestSweepOnce_ListFailureDoesNotStopOtherTargets(t *testing.T) {
	broken := &fakeTarget{name: "databases", listErr: errors.New("connection reset")}
	ok := &fakeTarget{name: "settings", pending: []string{"a"}}
	history := &memHistory{}

	s := NewEncryptionSweeper([]domain.SweepTarget{broken, ok}, history, toggle(true), quietLogger(), time.Hour, 1)

	runs, err := s.SweepOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databases")
	require.Len(t, runs, 1)
	assert.Equal(t, "settings", runs[0].Target)
	assert.Equal(t, 1, runs[0].Converted)
}

func TestStart_StopsOnCancel(t *testing.T) {
	target := &fakeTarget{name: "settings", pending: []string{"a"}}
	s := NewEncryptionSweeper([]domain.SweepTarget{target}, nil, toggle(true), quietLogger(), 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestStart_IdleWhenDisabled(t *testing.T) {
	target := &fakeTarget{name: "settings"}
	s := NewEncryptionSweeper([]domain.SweepTarget{target}, nil, toggle(false), quietLogger(), time.Millisecond, 1)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
	assert.Zero(t, target.calls.Load())
}

func TestSweepOnce_PublishesRuns(t *testing.T) {
	hub := telemetry.NewHub()
	events := hub.Subscribe(telemetry.TopicSweeps)
	defer hub.Unsubscribe(telemetry.TopicSweeps, events)

	target := &fakeTarget{name: "secrets", pending: []string{"a", "b"}}
	s := NewEncryptionSweeper([]domain.SweepTarget{target}, nil, toggle(true), quietLogger(), time.Hour, 2).
		WithEvents(hub)

	_, err := s.SweepOnce(context.Background())
	require.NoError(t, err)

	select {
	case msg := <-events:
		var run domain.SweepRun
		require.NoError(t, json.Unmarshal([]byte(msg), &run))
		assert.Equal(t, "secrets", run.Target)
		assert.Equal(t, 2, run.Converted)
	case <-time.After(time.Second):
		t.Fatal("no sweep event published")
	}
}
