// Package bot is the Telegram front end. It drives the same booking services
// as the web front end; each Telegram user gets a session keyed by user id.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tennisluv/internal/config"
	"tennisluv/internal/domain"
	"tennisluv/internal/metrics"
	"tennisluv/internal/service"
	"tennisluv/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Deps struct {
	Config        config.BotConfig
	Sessions      *service.SessionService
	Booking       *service.BookingService
	Accounts      *service.AccountService
	Admin         *service.AdminService
	SheetsEnabled bool
	Logger        *zerolog.Logger
}

type Bot struct {
	tg            domain.TelegramSender
	cfg           config.BotConfig
	sessions      *service.SessionService
	booking       *service.BookingService
	accounts      *service.AccountService
	admin         *service.AdminService
	sheetsEnabled bool
	logger        zerolog.Logger
	updateTimeout time.Duration
}

func NewBot(tg domain.TelegramSender, d Deps) *Bot {
	logger := zerolog.Nop()
	if d.Logger != nil {
		logger = d.Logger.With().Str("component", "bot").Logger()
	}
	return &Bot{
		tg:            tg,
		cfg:           d.Config,
		sessions:      d.Sessions,
		booking:       d.Booking,
		accounts:      d.Accounts,
		admin:         d.Admin,
		sheetsEnabled: d.SheetsEnabled,
		logger:        logger,
		updateTimeout: 30 * time.Second,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			b.logger.Info().Msg("bot stopping")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func sessionKey(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, b.updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var from *tgbotapi.User
		switch {
		case update.Message != nil:
			from = update.Message.From
		case update.CallbackQuery != nil:
			from = update.CallbackQuery.From
		}
		if from == nil || from.ID == 0 {
			metrics.IncBotUpdate("ignored")
			return
		}

		key := sessionKey(from.ID)
		unlock := b.sessions.Lock(key)
		defer unlock()

		sess, err := b.sessions.HydrateWithID(updateCtx, key)
		if err != nil {
			l.Error().Err(err).Int64("user_id", from.ID).Msg("load session")
			return
		}
		defer b.persist(updateCtx, sess)

		if !sess.IsAdmin() && !b.allow(updateCtx, key) {
			metrics.IncBotUpdate("rate_limited")
			l.Warn().Int64("user_id", from.ID).Msg("rate limit exceeded")
			if update.CallbackQuery != nil {
				b.answer(update.CallbackQuery.ID, "Too many requests, please wait a moment.", true)
			} else {
				b.reply(update.Message.Chat.ID, "⚠️ You are sending messages too quickly. Please wait a moment.")
			}
			return
		}

		if update.CallbackQuery != nil {
			metrics.IncBotUpdate("callback")
			b.handleCallback(updateCtx, sess, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, sess, update.Message)
	})
}

func (b *Bot) allow(ctx context.Context, key string) bool {
	window := time.Duration(b.cfg.RateLimitWindow) * time.Second
	return b.sessions.Allow(ctx, "bot:"+key, b.cfg.RateLimitMessages, window)
}

// persist stores sessions that carry credentials; anonymous chats are not kept.
func (b *Bot) persist(ctx context.Context, sess *session.Session) {
	if !sess.Authenticated() {
		return
	}
	if err := b.sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
		b.logger.Error().Err(err).Str("session_id", sess.ID).Msg("save session")
	}
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncBotUpdate("panic")
			b.logger.Error().Interface("panic", r).Msg("recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (b *Bot) answer(callbackID, text string, alert bool) {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := b.tg.Request(cb); err != nil {
		b.logger.Debug().Err(err).Msg("answer callback")
	}
}

// sendView posts the day grid, or edits messageID in place when it is set.
func (b *Bot) sendView(chatID int64, messageID int, sess *session.Session, view *service.BookingView) {
	text, markup := renderDay(view, sess.PopFlashes())
	var c tgbotapi.Chattable
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = markup
		c = msg
	} else {
		c = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	}
	if _, err := b.tg.Send(c); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send day view")
	}
}

// failed reports err to the user. Expired credentials end the session.
func (b *Bot) failed(ctx context.Context, sess *session.Session, err error) string {
	if service.NeedsLogin(err) {
		if b.sessions.HandleError(ctx, sess, err) {
			// the reply says it already
			sess.PopFlashes()
			if serr := b.sessions.Save(ctx, sess); serr != nil {
				b.logger.Error().Err(serr).Str("session_id", sess.ID).Msg("save session")
			}
		}
		return "Your session has expired. Please sign in again with /login <email> <password>."
	}
	return fmt.Sprintf("❌ %s", service.UserMessage(err))
}
