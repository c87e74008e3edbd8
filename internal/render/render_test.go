package render

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/storage"
	"github.com/raine/relic-reward-prices/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *reward.Result {
	t.Helper()
	th, err := theme.Default().ByName("Grineer")
	require.NoError(t, err)

	forma := &catalog.Item{Key: "forma_blueprint", Name: "Forma Blueprint", Category: catalog.CategoryMisc}
	chassis := &catalog.Item{Key: "ash_prime_chassis", Name: "Ash Prime Chassis", Category: catalog.CategoryRelicReward, Ducats: 25, Vaulted: true}
	slot := func(i int) reward.SlotRegion {
		return reward.SlotRegion{Index: i, Bounds: image.Rect(480+i*240, 412, 720+i*240, 460)}
	}
	return &reward.Result{
		CycleID:    "cycle-1",
		CapturedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Panel: reward.PanelRegion{
			Bounds: image.Rect(480, 220, 1440, 460),
			Line:   image.Rect(480, 412, 1440, 460),
			Theme:  th,
		},
		Slots: []reward.SlotResult{
			{Slot: slot(0), Hypothesis: reward.Hypothesis{Slot: 0, Text: "Forma Blueprint", Confidence: 1}, Item: forma, Price: &reward.PriceEntry{Key: forma.Key, Platinum: 15}},
			{Slot: slot(1), Hypothesis: reward.Hypothesis{Slot: 1}},
			{Slot: slot(2), Hypothesis: reward.Hypothesis{Slot: 2, Text: "Ash Prime Chassis", Confidence: 0.9}, Item: chassis, Price: &reward.PriceEntry{Key: chassis.Key, Platinum: 5, Ducats: 25, HasDucats: true}},
			{Slot: slot(3), Hypothesis: reward.Hypothesis{Slot: 3, Text: "Forma Blueprint", Confidence: 1}, Item: forma},
		},
		BestSlot: 0,
	}
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, result *reward.Result) error {
	return m.Called(ctx, result).Error(0)
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	result := sampleResult(t)

	failing := &mockRenderer{}
	failing.On("Render", ctx, result).Return(errors.New("disk full"))
	ok := &mockRenderer{}
	ok.On("Render", ctx, result).Return(nil)
	latest := &Latest{}

	err := Multi{failing, ok, latest}.Render(ctx, result)
	assert.ErrorContains(t, err, "disk full")
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
	assert.Same(t, result, latest.Get())

	require.NoError(t, Multi{failing, latest}.Clear(ctx))
	assert.Nil(t, latest.Get())
}

func TestLogRenderer(t *testing.T) {
	assert.NoError(t, Log{}.Render(context.Background(), sampleResult(t)))
}

func TestSlotLines(t *testing.T) {
	result := sampleResult(t)
	assert.Equal(t, []string{"Forma Blueprint", "Platinum: 15.0", "Ducats: 0", "Ducats/Platinum: -", "Vaulted: no"}, SlotLines(result.Slots[0]))
	assert.Equal(t, "Unknown item", SlotLines(result.Slots[1])[0])
	assert.Equal(t, []string{"Ash Prime Chassis", "Platinum: 5.0", "Ducats: 25", "Ducats/Platinum: 5.00", "Vaulted: yes"}, SlotLines(result.Slots[2]))
	assert.Equal(t, "Platinum: -", SlotLines(result.Slots[3])[1])
}

func TestOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "overlay.png")
	o := NewOverlay(path)
	result := sampleResult(t)

	require.NoError(t, o.Render(context.Background(), result))
	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 960, img.Bounds().Dx())

	// The best slot is drawn in the secondary colour, the others in the primary.
	r, g, b := result.Panel.Theme.Secondary.RGB()
	assert.True(t, hasColour(img, image.Rect(0, 0, 240, img.Bounds().Dy()), r, g, b))
	assert.False(t, hasColour(img, image.Rect(480, 0, 720, img.Bounds().Dy()), r, g, b))
	r, g, b = result.Panel.Theme.Primary.RGB()
	assert.True(t, hasColour(img, image.Rect(480, 0, 720, img.Bounds().Dy()), r, g, b))

	require.NoError(t, o.Clear(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, o.Clear(context.Background()))
}

func hasColour(img image.Image, r image.Rectangle, cr, cg, cb uint8) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			if uint8(pr>>8) == cr && uint8(pg>>8) == cg && uint8(pb>>8) == cb {
				return true
			}
		}
	}
	return false
}

type mockBot struct {
	mock.Mock
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestTelegram(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return msg.ChatID == 42 && msg.ParseMode == tgbotapi.ModeMarkdown
	})).Return(tgbotapi.Message{}, nil).Once()

	tg := NewTelegram(bot, 42)
	require.NoError(t, tg.Render(context.Background(), sampleResult(t)))
	bot.AssertExpectations(t)

	tg.MinPlatinum = 20
	require.NoError(t, tg.Render(context.Background(), sampleResult(t)))
	bot.AssertNumberOfCalls(t, "Send", 1)
}

func TestTelegramSkipsRepeatedScreen(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil)
	tg := NewTelegram(bot, 42)
	ctx := context.Background()

	require.NoError(t, tg.Render(ctx, sampleResult(t)))
	require.NoError(t, tg.Render(ctx, sampleResult(t)))
	bot.AssertNumberOfCalls(t, "Send", 1)

	other := sampleResult(t)
	other.Slots = other.Slots[:2]
	require.NoError(t, tg.Render(ctx, other))
	bot.AssertNumberOfCalls(t, "Send", 2)

	require.NoError(t, tg.Clear(ctx))
	require.NoError(t, tg.Render(ctx, other))
	bot.AssertNumberOfCalls(t, "Send", 3)
}

func TestTelegramRetriesAfterSendError(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("timeout")).Once()
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Once()
	tg := NewTelegram(bot, 42)

	require.Error(t, tg.Render(context.Background(), sampleResult(t)))
	require.NoError(t, tg.Render(context.Background(), sampleResult(t)))
	bot.AssertExpectations(t)
}

func TestTelegramSendError(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("forbidden"))
	err := NewTelegram(bot, 1).Render(context.Background(), sampleResult(t))
	assert.ErrorContains(t, err, "forbidden")
}

func TestFormatMessage(t *testing.T) {
	text := FormatMessage(sampleResult(t))
	assert.Equal(t, "*Relic rewards* (4)\nBest pick: Forma Blueprint (15.0 p)\n"+
		"\n⭐ Forma Blueprint: *15.0 p*, 0 ducats"+
		"\n• _unrecognized_"+
		"\n• Ash Prime Chassis: *5.0 p*, 25 ducats (vaulted)"+
		"\n• Forma Blueprint: no price", text)
}

func TestHistory(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, NewHistory(store).Render(context.Background(), sampleResult(t)))

	cycles, err := store.RecentCycles(5)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, "cycle-1", cycles[0].ID)
	assert.Equal(t, "Grineer", cycles[0].Theme)
	require.Len(t, cycles[0].Slots, 4)
	assert.Equal(t, "", cycles[0].Slots[1].ItemKey)
	assert.Equal(t, 25, cycles[0].Slots[2].Ducats)
	assert.False(t, cycles[0].Slots[3].Priced)
}
