package watchdog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/chainledger/internal/chain"
	"github.com/jmerrifield20/chainledger/internal/watchdog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubAuditor struct {
	mu      sync.Mutex
	results []chain.Result
	err     error
	calls   int
}

func (s *stubAuditor) Audit(_ context.Context) (chain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return chain.Result{}, s.err
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r, nil
}

func (s *stubAuditor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var (
	valid   = chain.Result{Valid: true, Errors: []string{}, TotalBlocks: 2}
	invalid = chain.Result{Valid: false, Errors: []string{"Block 1: Hash mismatch"}, TotalBlocks: 2}
)

func TestCheck_logsTransitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := &stubAuditor{results: []chain.Result{valid, invalid, invalid, valid}}
	w := watchdog.New(a, watchdog.Config{Interval: time.Hour}, zap.New(core))

	var recorded []bool
	w.SetMetricsRecord(func(ok bool) { recorded = append(recorded, ok) })

	for i := 0; i < 4; i++ {
		if _, err := w.Check(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if n := logs.FilterMessage("watchdog: chain integrity broken").Len(); n != 1 {
		t.Errorf("expected 1 broken log, got %d", n)
	}
	if n := logs.FilterMessage("watchdog: chain integrity restored").Len(); n != 1 {
		t.Errorf("expected 1 restored log, got %d", n)
	}
	if len(recorded) != 4 || recorded[0] != true || recorded[1] != false {
		t.Errorf("unexpected metrics calls: %v", recorded)
	}
}

func TestCheck_firstAuditInvalid(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := &stubAuditor{results: []chain.Result{invalid}}
	w := watchdog.New(a, watchdog.Config{Interval: time.Hour}, zap.New(core))

	_, _ = w.Check(context.Background())
	if logs.FilterMessage("watchdog: chain integrity broken").Len() != 1 {
		t.Error("an invalid chain on the first audit should be reported")
	}
}

func TestCheck_auditError(t *testing.T) {
	a := &stubAuditor{err: errors.New("db down")}
	w := watchdog.New(a, watchdog.Config{Interval: time.Hour}, zap.NewNop())

	if _, err := w.Check(context.Background()); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestStart_runsUntilCancelled(t *testing.T) {
	a := &stubAuditor{results: []chain.Result{valid}}
	w := watchdog.New(a, watchdog.Config{Interval: 10 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for a.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("watchdog did not audit")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
