package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/metrics"
	"tennisluv/internal/models"
	"tennisluv/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Court booking
/login <email> <password> sign in with your club account
/day [YYYY-MM-DD] show the courts of a day (today by default)
/logout sign out
/help this message

Tap free cells on one court to select adjacent hours, then ✅ Book. Tap ● to cancel one of your bookings.`

const adminHelpText = `

Admin
/export [from] [to] entries as an Excel file
/sheets [from] [to] publish entries to Google Sheets`

func (b *Bot) handleMessage(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		metrics.IncBotUpdate("message")
		b.reply(msg.Chat.ID, "Send /help to see what I can do.")
		return
	}
	metrics.IncBotUpdate("command")

	switch msg.Command() {
	case "start", "help":
		text := helpText
		if sess.IsAdmin() {
			text += adminHelpText
		}
		b.reply(msg.Chat.ID, text)
	case "login":
		b.handleLogin(ctx, sess, msg)
	case "logout":
		b.handleLogout(ctx, sess, msg)
	case "day":
		b.handleDay(ctx, sess, msg)
	case "export":
		b.handleExport(ctx, sess, msg)
	case "sheets":
		b.handleSheets(ctx, sess, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleLogin(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	// the message holds a password, do not leave it in the chat
	if len(args) > 1 {
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
			b.logger.Debug().Err(err).Msg("delete login message")
		}
	}
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /login <email> <password>")
		return
	}

	clientKey := strconv.FormatInt(msg.From.ID, 10)
	if err := b.accounts.Login(ctx, sess, clientKey, args[0], args[1]); err != nil {
		// a rejected login is a 401 too, but there is no session to expire
		if errors.Is(err, backend.ErrAuthExpired) {
			b.reply(msg.Chat.ID, "❌ Email or password is wrong.")
			return
		}
		b.reply(msg.Chat.ID, b.failed(ctx, sess, err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Signed in as %s.", sess.User.DisplayName()))
	b.showDay(ctx, sess, msg.Chat.ID, time.Time{})
}

func (b *Bot) handleLogout(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	if err := b.accounts.Logout(ctx, sess); err != nil {
		b.logger.Error().Err(err).Msg("logout")
	}
	b.reply(msg.Chat.ID, "You have been signed out.")
}

func (b *Bot) handleDay(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	if !sess.Authenticated() {
		b.reply(msg.Chat.ID, "Please sign in first: /login <email> <password>")
		return
	}
	var day time.Time
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		d, err := models.ParseDay(arg)
		if err != nil {
			b.reply(msg.Chat.ID, "Please give the date as YYYY-MM-DD.")
			return
		}
		day = d
	}
	b.showDay(ctx, sess, msg.Chat.ID, day)
}

func (b *Bot) showDay(ctx context.Context, sess *session.Session, chatID int64, day time.Time) {
	view, err := b.booking.View(ctx, sess, day)
	if err != nil {
		b.reply(chatID, b.failed(ctx, sess, err))
		return
	}
	b.sendView(chatID, 0, sess, view)
}

// rangeArgs reads optional from and to dates.
func rangeArgs(args string) (time.Time, time.Time, error) {
	var out [2]time.Time
	for i, f := range strings.Fields(args) {
		if i > 1 {
			return time.Time{}, time.Time{}, errors.New("too many arguments")
		}
		d, err := models.ParseDay(f)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		out[i] = d
	}
	return out[0], out[1], nil
}

func (b *Bot) handleExport(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	if !sess.IsAdmin() {
		b.reply(msg.Chat.ID, "This command is for administrators.")
		return
	}
	from, to, err := rangeArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /export [YYYY-MM-DD] [YYYY-MM-DD]")
		return
	}
	path, err := b.admin.SaveXLSX(ctx, sess, from, to)
	if err != nil {
		b.reply(msg.Chat.ID, b.failed(ctx, sess, err))
		return
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = "Entries export"
	if _, err := b.tg.Send(doc); err != nil {
		b.logger.Error().Err(err).Str("path", path).Msg("send export")
		b.reply(msg.Chat.ID, "❌ The file could not be sent.")
	}
}

func (b *Bot) handleSheets(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) {
	if !sess.IsAdmin() {
		b.reply(msg.Chat.ID, "This command is for administrators.")
		return
	}
	if !b.sheetsEnabled {
		b.reply(msg.Chat.ID, "Google Sheets publishing is not configured.")
		return
	}
	from, to, err := rangeArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /sheets [YYYY-MM-DD] [YYYY-MM-DD]")
		return
	}
	id, err := b.admin.PublishSheets(ctx, sess, from, to)
	if err != nil {
		b.reply(msg.Chat.ID, b.failed(ctx, sess, err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Publishing queued (task %s).", id))
}
