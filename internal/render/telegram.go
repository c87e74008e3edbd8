package render

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/dedent"
	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
)

// BotSender abstracts the Telegram bot API for sending messages.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const headerText = `
	*Relic rewards* (%d)
	Best pick: %s
`

// Telegram sends a message with the slot prices for every detected screen.
// A screen showing the same items as the last notified one is sent once,
// until Clear is called.
type Telegram struct {
	bot    BotSender
	chatID int64
	// MinPlatinum suppresses messages when no slot is worth at least this.
	MinPlatinum float64

	mu       sync.Mutex
	lastSent string
}

// NewTelegram creates a notifier sending to chatID.
func NewTelegram(bot BotSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Render(ctx context.Context, result *reward.Result) error {
	if t.MinPlatinum > 0 && bestPlatinum(result) < t.MinPlatinum {
		log.Debug().Str("cycle", result.CycleID).Msg("rewards below notification threshold")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	sig := itemSignature(result)
	if sig == t.lastSent {
		log.Debug().Str("cycle", result.CycleID).Msg("rewards already notified")
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatMessage(result))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	t.lastSent = sig
	log.Debug().Int64("chatID", t.chatID).Str("cycle", result.CycleID).Msg("notification sent")
	return nil
}

// Clear forgets the last notified screen, so the next one is always sent.
func (t *Telegram) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.lastSent = ""
	t.mu.Unlock()
	return nil
}

// itemSignature identifies a screen by its resolved item keys in slot order.
func itemSignature(result *reward.Result) string {
	keys := make([]string, len(result.Slots))
	for i, s := range result.Slots {
		if s.Item != nil {
			keys[i] = s.Item.Key
		}
	}
	return strings.Join(keys, "|")
}

// FormatMessage builds the Markdown message body for result.
func FormatMessage(result *reward.Result) string {
	best := "-"
	if result.BestSlot >= 0 && result.BestSlot < len(result.Slots) {
		s := result.Slots[result.BestSlot]
		best = fmt.Sprintf("%s (%s p)", escapeMarkdown(s.Item.Name), formatPlatinum(s.Price.Platinum))
	}

	var sb strings.Builder
	sb.WriteString(formatReplyText(headerText, len(result.Slots), best))
	sb.WriteString("\n")
	for i, s := range result.Slots {
		sb.WriteString("\n")
		marker := "•"
		if i == result.BestSlot {
			marker = "⭐"
		}
		switch {
		case s.Item == nil:
			sb.WriteString(fmt.Sprintf("%s _unrecognized_", marker))
		case s.Price == nil:
			sb.WriteString(fmt.Sprintf("%s %s: no price", marker, escapeMarkdown(s.Item.Name)))
		default:
			sb.WriteString(fmt.Sprintf("%s %s: *%s p*, %d ducats", marker, escapeMarkdown(s.Item.Name), formatPlatinum(s.Price.Platinum), ducats(s)))
			if s.Item.Vaulted {
				sb.WriteString(" (vaulted)")
			}
		}
	}
	return sb.String()
}

func bestPlatinum(result *reward.Result) float64 {
	if result.BestSlot < 0 || result.BestSlot >= len(result.Slots) {
		return 0
	}
	return result.Slots[result.BestSlot].Price.Platinum
}

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// escapeMarkdown escapes special characters for Telegram Markdown V1.
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
