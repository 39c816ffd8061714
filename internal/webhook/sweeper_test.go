package webhook

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
)

func failedRow(retryCount int) model.WebhookEvent {
	msg := "previous failure"
	return model.WebhookEvent{
		EventType:    model.EventContentCreated,
		Payload:      jsonv.Object{"content_id": jsonv.Int(7)},
		Status:       model.EventFailed,
		RetryCount:   retryCount,
		ErrorMessage: &msg,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestSweep_UnreachableDestinationStopsAtBound(t *testing.T) {
	store := newMemStore()
	tr := &fakeDeliverer{fail: alwaysDown}
	d := testDeps(store, testSettings(), tr)

	NewEmitter(d).Emit(context.Background(), model.EventContentCreated, jsonv.Object{"content_id": jsonv.Int(7)})
	row := store.row(1)
	require.Equal(t, model.EventFailed, row.Status)
	require.Equal(t, 1, row.RetryCount)
	require.NotNil(t, row.ErrorMessage)

	sw := NewSweeper(d, 0, nil)
	for i := 0; i < 3; i++ {
		sw.SweepOnce(context.Background())
	}

	row = store.row(1)
	assert.Equal(t, model.EventFailed, row.Status)
	assert.Equal(t, 3, row.RetryCount)
	assert.Equal(t, 3, tr.count(), "one emit attempt plus two sweeps")
}

func TestSweep_RowAtBoundIsNeverTouched(t *testing.T) {
	store := newMemStore()
	id := store.seed(failedRow(3))
	tr := &fakeDeliverer{}

	st := NewSweeper(testDeps(store, testSettings(), tr), 0, nil).SweepOnce(context.Background())

	assert.Zero(t, st.Selected)
	assert.Zero(t, tr.count())
	assert.Equal(t, 3, store.row(id).RetryCount)
	assert.Equal(t, model.EventFailed, store.row(id).Status)
}

func TestSweep_RetryCountOnlyGrowsByOne(t *testing.T) {
	store := newMemStore()
	id := store.seed(failedRow(0))
	s := testSettings()
	s.RetryAttempts = 10
	sw := NewSweeper(testDeps(store, s, &fakeDeliverer{fail: alwaysDown}), 0, nil)

	prev := store.row(id).RetryCount
	for i := 0; i < 5; i++ {
		sw.SweepOnce(context.Background())
		cur := store.row(id).RetryCount
		assert.Equal(t, prev+1, cur)
		prev = cur
	}
}

func TestSweep_DeliveredRowsAreLeftAlone(t *testing.T) {
	store := newMemStore()
	tr := &fakeDeliverer{}
	d := testDeps(store, testSettings(), tr)

	NewEmitter(d).Emit(context.Background(), model.EventPaymentSuccess, nil)
	require.Equal(t, model.EventDelivered, store.row(1).Status)

	st := NewSweeper(d, 0, nil).SweepOnce(context.Background())

	assert.Zero(t, st.Selected)
	assert.Equal(t, 1, tr.count())
}

func TestSweep_RecoversDeliveredOnSecondTry(t *testing.T) {
	store := newMemStore()
	id := store.seed(failedRow(1))

	st := NewSweeper(testDeps(store, testSettings(), &fakeDeliverer{}), 0, nil).SweepOnce(context.Background())

	assert.Equal(t, 1, st.Delivered)
	row := store.row(id)
	assert.Equal(t, model.EventDelivered, row.Status)
	assert.Equal(t, 1, row.RetryCount)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "previous failure", *row.ErrorMessage)
}

func TestSweep_PanickingRowDoesNotStopTheCycle(t *testing.T) {
	store := newMemStore()
	bad := store.seed(failedRow(1))
	good := store.seed(failedRow(1))
	tr := &fakeDeliverer{fail: func(env Envelope) error {
		if env.ID == bad {
			panic("boom")
		}
		return nil
	}}

	st := NewSweeper(testDeps(store, testSettings(), tr), 0, nil).SweepOnce(context.Background())

	assert.Equal(t, 2, st.Selected)
	assert.Equal(t, 1, st.Errors)
	assert.Equal(t, 1, st.Delivered)
	assert.Equal(t, model.EventDelivered, store.row(good).Status)
	assert.Equal(t, model.EventFailed, store.row(bad).Status)
}

func TestSweep_SkipsWhenNotConfigured(t *testing.T) {
	store := newMemStore()
	id := store.seed(failedRow(1))
	s := testSettings()
	s.SecretKey = ""
	tr := &fakeDeliverer{}

	st := NewSweeper(testDeps(store, s, tr), 0, nil).SweepOnce(context.Background())

	assert.True(t, st.Skipped)
	assert.Zero(t, tr.count())
	assert.Equal(t, 1, store.row(id).RetryCount)
}

func TestSweep_LostRaceIsCountedAndSkipped(t *testing.T) {
	store := newMemStore()
	id := store.seed(failedRow(1))
	store.loseRaces = true

	st := NewSweeper(testDeps(store, testSettings(), &fakeDeliverer{}), 0, nil).SweepOnce(context.Background())

	assert.Equal(t, 1, st.Conflicts)
	assert.Equal(t, model.EventFailed, store.row(id).Status)
	assert.Equal(t, 1, store.row(id).RetryCount)
}

func TestSweep_BatchLimitsRowsPerCycle(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.seed(failedRow(0))
	}
	tr := &fakeDeliverer{}

	st := NewSweeper(testDeps(store, testSettings(), tr), 2, nil).SweepOnce(context.Background())

	assert.Equal(t, 2, st.Selected)
	assert.Equal(t, 2, tr.count())
}

func TestSweep_BreakerDefersRestOfCycle(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.seed(failedRow(0))
	}
	tr := &fakeDeliverer{fail: alwaysDown}

	sw := NewSweeper(testDeps(store, testSettings(), tr), 0, NewBreaker(2, time.Hour))
	st := sw.SweepOnce(context.Background())

	assert.Equal(t, 2, st.Failed)
	assert.Equal(t, 3, st.Deferred)
	assert.Equal(t, 2, tr.count())
	for id := int64(3); id <= 5; id++ {
		assert.Zero(t, store.row(id).RetryCount)
	}
}

func TestSweep_DisabledBreakerAttemptsEveryRow(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 7; i++ {
		store.seed(failedRow(0))
	}
	tr := &fakeDeliverer{fail: alwaysDown}

	// fail_threshold defaults to 0
	sw := NewSweeper(testDeps(store, testSettings(), tr), 0, NewBreaker(0, time.Hour))
	st := sw.SweepOnce(context.Background())

	assert.Equal(t, 7, st.Failed)
	assert.Zero(t, st.Deferred)
	assert.Equal(t, 7, tr.count())
}

func TestSweep_AgainstRealEndpoint(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc.handler("s3cr3t"))
	defer srv.Close()

	s := testSettings()
	s.WebhookURL = srv.URL
	store := newMemStore()
	id := store.seed(failedRow(1))

	st := NewSweeper(testDeps(store, s, NewTransport(0)), 0, nil).SweepOnce(context.Background())

	assert.Equal(t, 1, st.Delivered)
	require.Len(t, rc.bodies, 1)
	assert.True(t, rc.valid[0])
	assert.Equal(t, model.EventDelivered, store.row(id).Status)
}

func TestSweeper_StartAndStop(t *testing.T) {
	store := newMemStore()
	store.seed(failedRow(0))
	s := testSettings()
	s.RetryAttempts = 10
	var attempts atomic.Int32
	tr := &fakeDeliverer{fail: func(Envelope) error {
		attempts.Add(1)
		return errors.New("down")
	}}

	sw := NewSweeper(testDeps(store, s, tr), 0, nil)
	sw.Start(10 * time.Millisecond)
	assert.True(t, sw.Running())

	require.Eventually(t, func() bool { return attempts.Load() >= 2 }, time.Second, 5*time.Millisecond)

	sw.Stop()
	assert.False(t, sw.Running())

	after := attempts.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, attempts.Load(), "no sweeps after Stop")
}

func TestSweeper_StartIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.seed(failedRow(0))
	s := testSettings()
	s.RetryAttempts = 10
	var inFlight, overlap atomic.Int32
	tr := &fakeDeliverer{fail: func(Envelope) error {
		if inFlight.Add(1) > 1 {
			overlap.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return errors.New("down")
	}}

	sw := NewSweeper(testDeps(store, s, tr), 0, nil)
	sw.Start(5 * time.Millisecond)
	sw.Start(5 * time.Millisecond)
	sw.Start(time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	sw.Stop()

	assert.Zero(t, overlap.Load())
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	sw := NewSweeper(testDeps(newMemStore(), testSettings(), &fakeDeliverer{}), 0, nil)

	sw.Stop()
	sw.Start(10 * time.Millisecond)
	sw.Stop()
	sw.Stop()
	assert.False(t, sw.Running())

	sw.Start(10 * time.Millisecond)
	assert.True(t, sw.Running())
	sw.Stop()
}

func TestSweeper_StopWaitsForInFlightRow(t *testing.T) {
	store := newMemStore()
	first := store.seed(failedRow(0))
	second := store.seed(failedRow(0))

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	tr := &fakeDeliverer{fail: func(Envelope) error {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	}}

	sw := NewSweeper(testDeps(store, testSettings(), tr), 0, nil)
	sw.Start(10 * time.Millisecond)
	<-entered

	stopped := make(chan struct{})
	go func() {
		sw.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a row was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the row finished")
	}

	assert.Equal(t, model.EventDelivered, store.row(first).Status)
	assert.Equal(t, model.EventFailed, store.row(second).Status)
	assert.Equal(t, int32(1), calls.Load())
}
