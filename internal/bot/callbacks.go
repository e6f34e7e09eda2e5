package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tennisluv/internal/models"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallback(ctx context.Context, sess *session.Session, cq *tgbotapi.CallbackQuery) {
	act, err := parseAction(cq.Data)
	if err != nil {
		b.logger.Warn().Str("data", cq.Data).Msg("malformed callback")
		b.answer(cq.ID, "This button is no longer valid.", false)
		return
	}
	if act.kind == actionNoop {
		b.answer(cq.ID, "", false)
		return
	}
	if !sess.Authenticated() {
		b.answer(cq.ID, "Please sign in first: /login <email> <password>", true)
		return
	}
	if cq.Message == nil {
		b.answer(cq.ID, "", false)
		return
	}
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	if act.kind == actionAskDelete {
		b.confirmDelete(ctx, sess, cq, act)
		return
	}

	notice, err := b.apply(ctx, sess, act)
	if err != nil {
		var rule *selection.RuleError
		switch {
		case errors.As(err, &rule):
			// the grid did not change
			b.answer(cq.ID, rule.Message, true)
			return
		case service.NeedsLogin(err):
			b.answer(cq.ID, "", false)
			b.reply(chatID, b.failed(ctx, sess, err))
			return
		default:
			sess.AddFlash(session.FlashError, service.UserMessage(err))
		}
	}

	view, verr := b.booking.View(ctx, sess, time.Time{})
	if verr != nil {
		b.answer(cq.ID, "", false)
		b.reply(chatID, b.failed(ctx, sess, verr))
		return
	}
	b.answer(cq.ID, notice, false)
	b.sendView(chatID, messageID, sess, view)
}

// apply runs the action against the booking service and returns a short
// notice for the callback answer.
func (b *Bot) apply(ctx context.Context, sess *session.Session, act action) (string, error) {
	switch act.kind {
	case actionToggle:
		if err := b.ensureDay(ctx, sess, act); err != nil {
			return "", err
		}
		out, err := b.booking.Toggle(ctx, sess, act.court, act.hour)
		if err != nil {
			return "", err
		}
		return toggleNotice(out), nil
	case actionDelete:
		if err := b.ensureDay(ctx, sess, act); err != nil {
			return "", err
		}
		if err := b.booking.Delete(ctx, sess, act.court, act.hour); err != nil {
			return "", err
		}
		return "Booking cancelled.", nil
	case actionSubmit:
		res, err := b.booking.Submit(ctx, sess, 0)
		if err != nil {
			return "", err
		}
		msg := submitNotice(res)
		sess.AddFlash(session.FlashSuccess, msg)
		return msg, nil
	case actionCancel:
		return "Selection cleared.", b.booking.Cancel(ctx, sess)
	case actionDate:
		_, err := b.booking.ChangeDate(ctx, sess, act.day)
		return "", err
	case actionType:
		return "", b.booking.SelectEntryType(ctx, sess, act.typeID)
	default:
		return "", errBadCallback
	}
}

// ensureDay switches to the button's day when the chat shows an older grid.
func (b *Bot) ensureDay(ctx context.Context, sess *session.Session, act action) error {
	if sess.Selection != nil && models.Day(sess.Selection.Date).Equal(act.day) {
		return nil
	}
	_, err := b.booking.View(ctx, sess, act.day)
	return err
}

func (b *Bot) confirmDelete(ctx context.Context, sess *session.Session, cq *tgbotapi.CallbackQuery, act action) {
	if err := b.ensureDay(ctx, sess, act); err != nil {
		b.answer(cq.ID, "", false)
		b.reply(cq.Message.Chat.ID, b.failed(ctx, sess, err))
		return
	}
	courtName := fmt.Sprintf("Court %d", act.court)
	if e := sess.Selection.EntryAt(act.court, act.hour); e != nil && e.CourtName != "" {
		courtName = e.CourtName
	}
	text := fmt.Sprintf("Cancel your booking on %s, %s at %02d:00?", courtName, act.day.Format("Monday, 02.01.2006"), act.hour)
	edit := tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID, text, confirmDeleteKeyboard(act))
	if _, err := b.tg.Send(edit); err != nil {
		b.logger.Error().Err(err).Msg("send delete confirmation")
	}
	b.answer(cq.ID, "", false)
}

func toggleNotice(out selection.Outcome) string {
	switch out {
	case selection.OutcomeAdded:
		return "Hour selected."
	case selection.OutcomeRemoved:
		return "Hour removed."
	case selection.OutcomeEditing:
		return "Choose a new type for this entry."
	default:
		return ""
	}
}

func submitNotice(res *service.SubmitResult) string {
	if res.Updated {
		return "The entry was updated."
	}
	if res.Hours == 1 {
		return "Booked 1 hour."
	}
	return fmt.Sprintf("Booked %d hours.", res.Hours)
}
