package oracle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"feesuggest/internal/output"
)

type recorder struct {
	mu      sync.Mutex
	records []output.Record
	fail    bool
	done    chan struct{}
	want    int
}

func (r *recorder) Write(rec output.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if len(r.records) == r.want {
		close(r.done)
	}
	if r.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestWatchWritesEachPoll(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{})
	rec := &recorder{done: make(chan struct{}), want: 3}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		svc.Watch(ctx, 10*time.Millisecond, "", rec)
		close(stopped)
	}()

	select {
	case <-rec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not produce records")
	}
	cancel()
	<-stopped

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.GreaterOrEqual(t, len(rec.records), 3)
	for _, r := range rec.records {
		require.Equal(t, "latest", r.Newest)
		require.Equal(t, "12375000000", r.BaseFeeSuggestion)
		require.False(t, r.Time.IsZero())
	}
}

func TestWatchSurvivesFailures(t *testing.T) {
	// the priority window request always fails, so no record is written
	f := &fakeFetcher{failOn: 10}
	svc, _ := newTestService(t, f)
	rec := &recorder{done: make(chan struct{}), want: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	svc.Watch(ctx, 10*time.Millisecond, "", rec)

	require.Empty(t, rec.records)
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.requests), 2)
}

func TestWatchKeepsGoingAfterSinkError(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{})
	rec := &recorder{done: make(chan struct{}), want: 2, fail: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go svc.Watch(ctx, 10*time.Millisecond, "0x10", rec)

	select {
	case <-rec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch stopped after sink error")
	}
	cancel()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, "0x10", rec.records[0].Newest)
}
