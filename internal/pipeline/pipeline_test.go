package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raine/relic-reward-prices/internal/capture"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/locate"
	"github.com/raine/relic-reward-prices/internal/prices"
	"github.com/raine/relic-reward-prices/internal/recognize"
	"github.com/raine/relic-reward-prices/internal/render"
	"github.com/raine/relic-reward-prices/internal/resolve"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/testframe"
	"github.com/raine/relic-reward-prices/internal/theme"
	"github.com/raine/relic-reward-prices/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rewardNames = []string{"Forma Blueprint", "???", "Orokin Cell", "Forma Blueprint"}

type recorder struct {
	mu      sync.Mutex
	results []*reward.Result
}

func (r *recorder) Render(ctx context.Context, result *reward.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type engineFunc func(ctx context.Context, crop recognize.Crop) (reward.Hypothesis, error)

func (f engineFunc) Recognize(ctx context.Context, crop recognize.Crop) (reward.Hypothesis, error) {
	return f(ctx, crop)
}

type chanSource chan trigger.Event

func (c chanSource) Triggers(ctx context.Context) <-chan trigger.Event { return c }

func grineer(t *testing.T) *theme.Theme {
	t.Helper()
	th, err := theme.Default().ByName("Grineer")
	require.NoError(t, err)
	return th
}

func rewardCapturer(t *testing.T) capture.Capturer {
	th := grineer(t)
	return capture.Func(func(ctx context.Context) (*reward.Frame, error) {
		return testframe.Reward(1920, 1080, th, rewardNames), nil
	})
}

func testDeps(t *testing.T, capturer capture.Capturer, renderer render.Renderer) Deps {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{Name: "Forma Blueprint"},
		{Name: "Orokin Cell"},
		{Name: "Ash Prime Chassis", Category: catalog.CategoryRelicReward, Ducats: 25},
		{Name: "Lex Prime Barrel", Category: catalog.CategoryRelicReward, Ducats: 15},
	})
	require.NoError(t, err)

	table, err := prices.Build(prices.PriceTable{
		{Name: "Forma Blueprint", CustomAvg: 15, YesterdayVol: 100, TodayVol: 120},
		{Name: "Orokin Cell", CustomAvg: 8, YesterdayVol: 40, TodayVol: 20},
	}, prices.DucatTable{}, testframe.CapturedAt)
	require.NoError(t, err)

	return Deps{
		Capturer:   capturer,
		Locator:    locate.New(locate.DefaultOptions()),
		Recognizer: recognize.NewGate(recognize.NewGlyph(cat), recognize.DefaultMinConfidence),
		Resolver:   resolve.New(cat),
		Prices:     table,
		Renderer:   renderer,
	}
}

func TestRunCycleEndToEnd(t *testing.T) {
	rec := &recorder{}
	p := New(testDeps(t, rewardCapturer(t), rec))

	result, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())
	assert.Same(t, result, rec.results[0])

	_, err = uuid.Parse(result.CycleID)
	assert.NoError(t, err)
	assert.Equal(t, testframe.CapturedAt, result.CapturedAt)
	assert.Equal(t, "Grineer", result.Panel.Theme.Name)

	require.Len(t, result.Slots, 4)
	for i, s := range result.Slots {
		assert.Equal(t, i, s.Slot.Index)
		assert.Equal(t, i, s.Hypothesis.Slot)
	}

	assert.Equal(t, "forma_blueprint", result.Slots[0].Item.Key)
	assert.Equal(t, 15.0, result.Slots[0].Price.Platinum)

	assert.False(t, result.Slots[1].Resolved())
	assert.Nil(t, result.Slots[1].Price)
	assert.Empty(t, result.Slots[1].Hypothesis.Text)

	assert.Equal(t, "orokin_cell", result.Slots[2].Item.Key)
	assert.Equal(t, 8.0, result.Slots[2].Price.Platinum)
	assert.Equal(t, 30, result.Slots[2].Price.Volume)

	assert.Equal(t, "forma_blueprint", result.Slots[3].Item.Key)
	assert.Equal(t, 15.0, result.Slots[3].Price.Platinum)

	assert.Equal(t, 0, result.BestSlot)
	assert.Equal(t, Idle, p.State())
}

func TestRunCycleNoPanel(t *testing.T) {
	rec := &recorder{}
	blank := capture.Func(func(ctx context.Context) (*reward.Frame, error) {
		return testframe.Blank(1920, 1080), nil
	})
	p := New(testDeps(t, blank, rec))

	result, err := p.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrPanelNotFound)
	assert.Nil(t, result)
	assert.Equal(t, 0, rec.count())
}

func TestRunCycleCaptureFailure(t *testing.T) {
	rec := &recorder{}
	failing := capture.Func(func(ctx context.Context) (*reward.Frame, error) {
		return nil, errors.New("display gone")
	})
	p := New(testDeps(t, failing, rec))

	_, err := p.RunCycle(context.Background())
	assert.ErrorIs(t, err, capture.ErrCaptureUnavailable)
	assert.ErrorContains(t, err, "display gone")
	assert.Equal(t, 0, rec.count())

	empty := capture.Func(func(ctx context.Context) (*reward.Frame, error) { return nil, nil })
	_, err = New(testDeps(t, empty, rec)).RunCycle(context.Background())
	assert.ErrorIs(t, err, capture.ErrCaptureUnavailable)
}

func TestRunCycleCancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	th := grineer(t)
	capturer := capture.Func(func(context.Context) (*reward.Frame, error) {
		cancel()
		return testframe.Reward(1920, 1080, th, rewardNames), nil
	})
	p := New(testDeps(t, capturer, rec))

	result, err := p.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, Idle, p.State())
}

func TestRunCycleSlotFailureIsIsolated(t *testing.T) {
	rec := &recorder{}
	deps := testDeps(t, rewardCapturer(t), rec)
	inner := deps.Recognizer
	deps.Recognizer = engineFunc(func(ctx context.Context, crop recognize.Crop) (reward.Hypothesis, error) {
		if crop.Slot == 2 {
			return reward.Hypothesis{Slot: 2, Text: "Orokin Cell", Confidence: 1}, errors.New("engine crashed")
		}
		return inner.Recognize(ctx, crop)
	})

	result, err := New(deps).RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Slots, 4)
	assert.True(t, result.Slots[0].Resolved())
	assert.False(t, result.Slots[2].Resolved())
	assert.Equal(t, reward.Hypothesis{Slot: 2}, result.Slots[2].Hypothesis)
	assert.True(t, result.Slots[3].Resolved())
}

func TestRunCycleRenderError(t *testing.T) {
	failing := render.Func(func(ctx context.Context, result *reward.Result) error {
		return errors.New("overlay closed")
	})
	result, err := New(testDeps(t, rewardCapturer(t), failing)).RunCycle(context.Background())
	assert.ErrorContains(t, err, "overlay closed")
	require.NotNil(t, result)
	assert.Len(t, result.Slots, 4)
}

func TestBestSlot(t *testing.T) {
	item := &catalog.Item{Key: "x"}
	priced := func(v float64) reward.SlotResult {
		return reward.SlotResult{Item: item, Price: &reward.PriceEntry{Platinum: v}}
	}
	assert.Equal(t, -1, BestSlot(nil))
	assert.Equal(t, -1, BestSlot([]reward.SlotResult{{}, {Item: item}}))
	assert.Equal(t, 2, BestSlot([]reward.SlotResult{priced(3), {}, priced(9), priced(4)}))
	assert.Equal(t, 1, BestSlot([]reward.SlotResult{{}, priced(5), priced(5)}))
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestRunCoalescesTriggers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	capturer := capture.Func(func(ctx context.Context) (*reward.Frame, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return testframe.Blank(1920, 1080), nil
	})
	p := New(testDeps(t, capturer, &recorder{}))

	src := make(chanSource)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), src) }()

	src <- trigger.Event{Kind: trigger.Activate, Source: "test"}
	<-started
	for i := 0; i < 5; i++ {
		src <- trigger.Event{Kind: trigger.Activate, Source: "test"}
	}
	close(release)
	close(src)
	waitRun(t, done)

	assert.GreaterOrEqual(t, calls.Load(), int32(2))
	assert.LessOrEqual(t, calls.Load(), int32(3))
}

func TestRunDismissClears(t *testing.T) {
	latest := &render.Latest{}
	p := New(testDeps(t, rewardCapturer(t), render.Multi{latest}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := make(chanSource)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, src) }()

	src <- trigger.Event{Kind: trigger.Activate, Source: "test"}
	require.Eventually(t, func() bool { return latest.Get() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, latest.Get().Slots, 4)

	src <- trigger.Event{Kind: trigger.Dismiss, Source: "test"}
	require.Eventually(t, func() bool { return latest.Get() == nil }, 5*time.Second, 10*time.Millisecond)

	cancel()
	waitRun(t, done)
}

func TestRunManualTrigger(t *testing.T) {
	rec := &recorder{}
	p := New(testDeps(t, rewardCapturer(t), rec))
	manual := trigger.NewManual()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, trigger.Merge(manual)) }()

	manual.Fire("hotkey")
	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	waitRun(t, done)
}
