package trigger

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"
)

// Kind tells the pipeline what an event asks for.
type Kind int

const (
	// Activate asks for a detection cycle.
	Activate Kind = iota
	// Dismiss reports that the reward screen has closed.
	Dismiss
)

func (k Kind) String() string {
	switch k {
	case Activate:
		return "activate"
	case Dismiss:
		return "dismiss"
	}
	return "unknown"
}

// Event is one trigger firing.
type Event struct {
	Kind   Kind
	Source string
	At     time.Time
}

// Source produces events until ctx is cancelled, then closes the channel.
type Source interface {
	Triggers(ctx context.Context) <-chan Event
}

// Ticker fires Activate on a fixed interval.
type Ticker struct {
	Interval time.Duration
}

func (t Ticker) Triggers(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				send(ctx, ch, Event{Kind: Activate, Source: "ticker", At: now})
			}
		}
	}()
	return ch
}

// Manual fires when Fire is called, e.g. from a hotkey or an HTTP request.
// Fire never blocks; a firing while one is pending is dropped.
type Manual struct {
	ch chan Event
}

func NewManual() *Manual {
	return &Manual{ch: make(chan Event, 1)}
}

// Fire requests a cycle.
func (m *Manual) Fire(source string) {
	select {
	case m.ch <- Event{Kind: Activate, Source: source, At: time.Now()}:
	default:
	}
}

func (m *Manual) Triggers(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-m.ch:
				send(ctx, ch, ev)
			}
		}
	}()
	return ch
}

// Signal fires Activate whenever the process receives one of Signals.
type Signal struct {
	Signals []os.Signal
}

func (s Signal) Triggers(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, s.Signals...)
	go func() {
		defer close(ch)
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				send(ctx, ch, Event{Kind: Activate, Source: "signal:" + sig.String(), At: time.Now()})
			}
		}
	}()
	return ch
}

// Merge combines several sources into one.
func Merge(sources ...Source) Source {
	return merged(sources)
}

type merged []Source

func (m merged) Triggers(ctx context.Context) <-chan Event {
	out := make(chan Event)
	var wg sync.WaitGroup
	for _, s := range m {
		in := s.Triggers(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range in {
				send(ctx, out, ev)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func send(ctx context.Context, ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
