package trigger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Game log lines that open and close the relic reward screen.
var (
	DefaultActivateLines = []string{
		"Pause countdown done",
		"Got rewards",
		"Created /Lotus/Interface/ProjectionRewardChoice.swf",
	}
	DefaultDismissLines = []string{
		"Countdown timer expired",
		"Relic timer closed",
		"Selection countdown done",
	}
)

// LogWatcher follows the game's EE.log and fires when reward screen lines
// are appended. Only lines written after the watcher starts are considered.
type LogWatcher struct {
	Path          string
	ActivateLines []string
	DismissLines  []string
	// Delay postpones Activate so the panel has finished animating in.
	Delay time.Duration
}

// NewLogWatcher watches path with the default line patterns.
func NewLogWatcher(path string, delay time.Duration) *LogWatcher {
	return &LogWatcher{
		Path:          path,
		ActivateLines: DefaultActivateLines,
		DismissLines:  DefaultDismissLines,
		Delay:         delay,
	}
}

// Start begins watching. It fails if the log directory cannot be watched.
// The returned channel closes when ctx is cancelled.
func (w *LogWatcher) Start(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory; the game recreates the log on every launch.
	if err := watcher.Add(filepath.Dir(w.Path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.Path), err)
	}

	offset := int64(0)
	if info, err := os.Stat(w.Path); err == nil {
		offset = info.Size()
	}

	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer watcher.Close()
		log.Info().Str("path", w.Path).Msg("watching game log")

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("game log watcher error")
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(w.Path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				var kind Kind
				var found bool
				offset, kind, found = w.scan(offset)
				if !found {
					continue
				}
				if kind == Activate && w.Delay > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(w.Delay):
					}
				}
				send(ctx, ch, Event{Kind: kind, Source: "game-log", At: time.Now()})
			}
		}
	}()
	return ch, nil
}

// Triggers implements Source. Watch failures are logged and yield a closed
// channel.
func (w *LogWatcher) Triggers(ctx context.Context) <-chan Event {
	ch, err := w.Start(ctx)
	if err != nil {
		log.Error().Err(err).Msg("game log trigger disabled")
		closed := make(chan Event)
		close(closed)
		return closed
	}
	return ch
}

// scan reads lines appended since offset. The last matching line decides
// the event kind. A file shorter than offset was truncated or recreated and
// is read from the start.
func (w *LogWatcher) scan(offset int64) (int64, Kind, bool) {
	f, err := os.Open(w.Path)
	if err != nil {
		return offset, Activate, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, Activate, false
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, Activate, false
	}

	var (
		kind  Kind
		found bool
		read  int64
	)
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if !strings.HasSuffix(line, "\n") {
			// Leave a partial trailing line for the next write.
			break
		}
		read += int64(len(line))
		if containsAny(line, w.ActivateLines) {
			kind, found = Activate, true
		} else if containsAny(line, w.DismissLines) {
			kind, found = Dismiss, true
		}
		if err != nil {
			break
		}
	}
	return offset + read, kind, found
}

func containsAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}
