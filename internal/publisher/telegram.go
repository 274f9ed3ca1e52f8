package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAction posts records to a channel, at most one message per interval.
type TelegramAction struct {
	bot       Sender
	channelID int64
	limiter   *rate.Limiter
}

func NewTelegramAction(bot Sender, channelID int64, interval time.Duration) *TelegramAction {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TelegramAction{
		bot:       bot,
		channelID: channelID,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (t *TelegramAction) Publish(ctx context.Context, n model.News) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.channelID, FormatMessage(n))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send to telegram: %w", err)
	}

	return nil
}

// FormatMessage renders a record as MarkdownV2: bold title, summary, link and
// the source as a hashtag.
func FormatMessage(n model.News) string {
	var b strings.Builder

	b.WriteString("*" + EscapeMarkdown(n.Title) + "*")
	if n.Summary != "" {
		b.WriteString("\n\n" + EscapeMarkdown(n.Summary))
	}
	b.WriteString("\n\n" + EscapeMarkdown(n.URL))

	if n.Source != "" {
		b.WriteString("\n\\#" + EscapeMarkdown(hashtag(n.Source)))
	}
	if len(n.Symbols) > 0 {
		b.WriteString("\n" + EscapeMarkdown(strings.Join(n.Symbols, " ")))
	}

	return b.String()
}

var markdownReplacer = func() *strings.Replacer {
	special := "_*[]()~`>#+-=|{}.!\\"
	pairs := make([]string, 0, len(special)*2)
	for _, r := range special {
		pairs = append(pairs, string(r), "\\"+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

func EscapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

func hashtag(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '.' {
			return '_'
		}
		return r
	}, s)
}
