package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API adapts *tgbotapi.BotAPI to domain.TelegramSender.
type API struct {
	*tgbotapi.BotAPI
}

// NewAPI connects to Telegram with token.
func NewAPI(token string, debug bool) (*API, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = debug
	return &API{BotAPI: api}, nil
}

func (a *API) GetSelf() tgbotapi.User {
	return a.Self
}
