package reporter

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter forwards stage failures to a Telegram admin chat. A nil Reporter or
// one without an admin chat only logs.
type Reporter struct {
	bot     Sender
	adminID int64
}

func New(bot Sender, adminID int64) *Reporter {
	if bot == nil || adminID == 0 {
		return nil
	}
	return &Reporter{bot: bot, adminID: adminID}
}

func (r *Reporter) StageFailed(stage string, err error) {
	if r == nil {
		return
	}

	msg := tgbotapi.NewMessage(r.adminID, fmt.Sprintf("newspipeline: %s stage failed: %v", stage, err))
	if _, sendErr := r.bot.Send(msg); sendErr != nil {
		slog.Error("failed to send error notification", "stage", stage, "err", sendErr)
	}
}
