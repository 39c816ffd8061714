package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
)

const (
	DefaultSweepPeriod = 60 * time.Second
	defaultSweepBatch  = 500
)

// SweepStats summarizes one cycle.
type SweepStats struct {
	Skipped   bool `json:"skipped"` // settings not deliverable
	Selected  int  `json:"selected"`
	Delivered int  `json:"delivered"`
	Failed    int  `json:"failed"`
	Conflicts int  `json:"conflicts"`
	Errors    int  `json:"errors"`
	Deferred  int  `json:"deferred"`
}

// Sweeper periodically re-attempts failed rows under the retry bound, one
// row at a time.
type Sweeper struct {
	d       Deps
	batch   int
	breaker *Breaker

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweeper builds a stopped sweeper. breaker may be nil.
func NewSweeper(d Deps, batch int, breaker *Breaker) *Sweeper {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &Sweeper{d: d.withDefaults(), batch: batch, breaker: breaker}
}

// Start launches the periodic loop. Calling it while running is a no-op.
func (s *Sweeper) Start(period time.Duration) {
	if period <= 0 {
		period = DefaultSweepPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.d.Logger.Debug("sweeper already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(period, s.stopCh, s.doneCh)
	s.d.Logger.Info("webhook sweeper started", zap.Duration("period", period))
}

// Stop halts the ticker and waits for the current row, if any, to finish.
// Rows after it in the same cycle are left for the next run. Safe to call
// more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.d.Logger.Info("webhook sweeper stopped")
}

func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) loop(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.sweep(context.Background(), stop)
		}
	}
}

// SweepOnce runs a single cycle synchronously.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepStats {
	return s.sweep(ctx, nil)
}

func (s *Sweeper) sweep(ctx context.Context, stop <-chan struct{}) SweepStats {
	var st SweepStats

	settings, ok := s.d.deliverable(ctx)
	if !ok {
		st.Skipped = true
		metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		return st
	}

	rows, err := s.d.Store.ListRetryable(ctx, settings.RetryBound(), s.batch)
	if err != nil {
		s.d.Logger.Error("select retryable webhook events", zap.Error(err))
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return st
	}
	st.Selected = len(rows)

	for i, e := range rows {
		if stopped(stop) || ctx.Err() != nil {
			break
		}
		if !s.breaker.TryAcquire() {
			st.Deferred = len(rows) - i
			metrics.WebhookEventsTotal.WithLabelValues(metrics.StageDeferred, metrics.SourceSweep).Add(float64(st.Deferred))
			s.d.Logger.Warn("webhook endpoint failing, deferring rest of sweep", zap.Int("deferred", st.Deferred))
			break
		}

		switch err := s.processRow(ctx, settings, e); {
		case err == nil:
			st.Delivered++
		case errors.Is(err, errAttemptFailed):
			st.Failed++
		case errors.Is(err, ErrConflict):
			st.Conflicts++
		default:
			st.Errors++
			s.d.Logger.Error("sweep webhook event", zap.Int64("event_id", e.ID), zap.Error(err))
		}
	}

	metrics.SweepsTotal.WithLabelValues("ran").Inc()
	if st.Selected > 0 {
		s.d.Logger.Info("webhook sweep finished",
			zap.Int("selected", st.Selected),
			zap.Int("delivered", st.Delivered),
			zap.Int("failed", st.Failed),
			zap.Int("conflicts", st.Conflicts),
			zap.Int("errors", st.Errors),
			zap.Int("deferred", st.Deferred),
		)
	}
	return st
}

var errAttemptFailed = errors.New("delivery attempt failed")

// processRow isolates one row: a panic becomes an error for this row only.
func (s *Sweeper) processRow(ctx context.Context, settings *model.Settings, e model.WebhookEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	derr := s.d.attempt(ctx, settings, e, metrics.SourceSweep)
	if derr != nil {
		s.breaker.OnFailure()
	} else {
		s.breaker.OnSuccess()
	}

	if err := s.d.settle(ctx, e, derr, metrics.SourceSweep); err != nil {
		return err
	}
	if derr != nil {
		return errAttemptFailed
	}
	return nil
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
