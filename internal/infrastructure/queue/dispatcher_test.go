package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

var _ ports.EventSink = (*Dispatcher)(nil)

type recordingProcessor struct {
	mu     sync.Mutex
	events map[string][]domain.SessionEventKind
	total  int
	done   chan struct{}
	want   int
}

func newRecordingProcessor(want int) *recordingProcessor {
	return &recordingProcessor{events: map[string][]domain.SessionEventKind{}, done: make(chan struct{}), want: want}
}

func (p *recordingProcessor) Process(_ context.Context, ev domain.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[ev.SessionID] = append(p.events[ev.SessionID], ev.Kind)
	p.total++
	if p.total == p.want {
		close(p.done)
	}
	return nil
}

func TestDispatcher_PerSessionOrdering(t *testing.T) {
	sequence := []domain.SessionEventKind{
		domain.EventBootstrap, domain.EventLogin, domain.EventRotated, domain.EventLogout,
	}
	const sessions = 20
	proc := newRecordingProcessor(sessions * len(sequence))

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(3, proc, zerolog.Nop())
	d.Start(ctx)

	for _, kind := range sequence {
		for i := 0; i < sessions; i++ {
			d.Record(domain.SessionEvent{SessionID: fmt.Sprintf("s-%d", i), Kind: kind})
		}
	}

	select {
	case <-proc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	cancel()
	d.Wait()

	for id, got := range proc.events {
		if len(got) != len(sequence) {
			t.Fatalf("%s: expected %d events, got %d", id, len(sequence), len(got))
		}
		for i := range sequence {
			if got[i] != sequence[i] {
				t.Fatalf("%s: out of order: %v", id, got)
			}
		}
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, newRecordingProcessor(1), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected default worker count, got %d", len(d.workers))
	}
	for _, id := range []string{"", "a", "0b2c1f4e-session"} {
		first := d.shardIndex(id)
		if first < 0 || first >= len(d.workers) {
			t.Fatalf("index out of range for %q: %d", id, first)
		}
		if d.shardIndex(id) != first {
			t.Fatalf("unstable shard for %q", id)
		}
	}
}

func TestDispatcher_RecordDoesNotBlockWhenFull(t *testing.T) {
	d := NewDispatcher(1, newRecordingProcessor(-1), zerolog.Nop())
	// Workers not started: the buffer fills and the rest must be dropped.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(domain.SessionEvent{SessionID: "s", Kind: domain.EventRotated})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	if n := len(d.workers[0]); n != channelBuffer {
		t.Fatalf("expected full buffer, got %d", n)
	}
}
