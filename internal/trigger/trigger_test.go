package trigger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func assertClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Ticker{Interval: 5 * time.Millisecond}.Triggers(ctx)
	ev := receive(t, ch)
	assert.Equal(t, Activate, ev.Kind)
	assert.Equal(t, "ticker", ev.Source)
	cancel()
	assertClosed(t, ch)
}

func TestManual(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManual()
	// Fire before anyone listens; the second firing is coalesced.
	m.Fire("http")
	m.Fire("http")

	ch := m.Triggers(ctx)
	ev := receive(t, ch)
	assert.Equal(t, "http", ev.Source)

	select {
	case <-ch:
		t.Fatal("coalesced firing delivered")
	case <-time.After(20 * time.Millisecond):
	}

	m.Fire("hotkey")
	assert.Equal(t, "hotkey", receive(t, ch).Source)
	cancel()
	assertClosed(t, ch)
}

func TestMerge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, b := NewManual(), NewManual()
	ch := Merge(a, b).Triggers(ctx)

	a.Fire("a")
	b.Fire("b")
	got := map[string]bool{}
	got[receive(t, ch).Source] = true
	got[receive(t, ch).Source] = true
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)

	cancel()
	assertClosed(t, ch)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(line)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestLogWatcherScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EE.log")
	w := NewLogWatcher(path, 0)

	appendLine(t, path, "12.3 Sys [Info]: Loading\n")
	offset, _, found := w.scan(0)
	assert.False(t, found)
	assert.EqualValues(t, 25, offset)

	appendLine(t, path, "13.0 Script [Info]: ProjectionRewardChoice.lua: Got rewards\n15.0 Script [Info]: Relic timer closed\n")
	offset, kind, found := w.scan(offset)
	assert.True(t, found)
	assert.Equal(t, Dismiss, kind)

	// Partial lines wait for their newline.
	appendLine(t, path, "20.0 Script [Info]: Pause countdown")
	next, _, found := w.scan(offset)
	assert.False(t, found)
	assert.Equal(t, offset, next)
	appendLine(t, path, " done\n")
	_, kind, found = w.scan(next)
	assert.True(t, found)
	assert.Equal(t, Activate, kind)

	// Truncated file is read from the start.
	require.NoError(t, os.WriteFile(path, []byte("Got rewards\n"), 0o644))
	offset, kind, found = w.scan(10_000)
	assert.True(t, found)
	assert.Equal(t, Activate, kind)
	assert.EqualValues(t, 12, offset)
}

func TestLogWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EE.log")
	appendLine(t, path, "Got rewards\n")

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewLogWatcher(path, 0).Start(ctx)
	require.NoError(t, err)

	// Lines from before the start are ignored.
	appendLine(t, path, "1.0 Sys [Info]: nothing here\n")
	appendLine(t, path, "2.0 Script [Info]: Created /Lotus/Interface/ProjectionRewardChoice.swf\n")
	ev := receive(t, ch)
	assert.Equal(t, Activate, ev.Kind)
	assert.Equal(t, "game-log", ev.Source)

	appendLine(t, path, "3.0 Script [Info]: Selection countdown done\n")
	assert.Equal(t, Dismiss, receive(t, ch).Kind)

	cancel()
	assertClosed(t, ch)
}

func TestLogWatcherMissingDirectory(t *testing.T) {
	ch := NewLogWatcher("/nonexistent/dir/EE.log", 0).Triggers(context.Background())
	assertClosed(t, ch)
}
