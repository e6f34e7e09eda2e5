package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tennisluv/internal/models"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxCourtColumns keeps a row within Telegram's eight buttons next to the hour label.
const maxCourtColumns = 7

const legend = "· free  ✓ selected  ● yours  ✗ booked  K course  T tournament  🔒 locked"

func renderDay(view *service.BookingView, flashes []session.Flash) (string, tgbotapi.InlineKeyboardMarkup) {
	return dayText(view, flashes), dayKeyboard(view)
}

func dayText(view *service.BookingView, flashes []session.Flash) string {
	g := view.Grid
	var b strings.Builder
	for _, f := range flashes {
		b.WriteString(flashPrefix(f.Kind) + f.Message + "\n")
	}
	if len(flashes) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "📅 %s\n", g.Date.Format("Monday, 02.01.2006"))
	if g.Remaining < 0 {
		b.WriteString("No daily limit.\n")
	} else {
		fmt.Fprintf(&b, "Booked today: %d of %d hours, %d left.\n", g.Booked, g.Limit, g.Remaining)
	}
	if sel := selectionSummary(g); sel != "" {
		fmt.Fprintf(&b, "Selected: %s\n", sel)
	}
	if view.CourtsFallback {
		b.WriteString("⚠ The court list could not be loaded, showing the default courts.\n")
	}
	ids := make([]int64, 0, len(view.Failed))
	for id := range view.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(&b, "⚠ %s could not be loaded.\n", courtName(g.Courts, id))
	}
	b.WriteString("\n" + legend)
	return b.String()
}

func flashPrefix(kind session.FlashKind) string {
	switch kind {
	case session.FlashError:
		return "❌ "
	case session.FlashSuccess:
		return "✅ "
	default:
		return "ℹ️ "
	}
}

// selectionSummary describes the selected hours as "Court, 09:00–11:00".
func selectionSummary(g selection.Grid) string {
	var courtID int64
	var hours []int
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if c.Selected || c.Editing {
				courtID = c.CourtID
				hours = append(hours, c.Hour)
			}
		}
	}
	if len(hours) == 0 {
		return ""
	}
	sort.Ints(hours)
	return fmt.Sprintf("%s, %02d:00–%02d:00", courtName(g.Courts, courtID), hours[0], hours[len(hours)-1]+1)
}

func courtName(courts []models.Court, id int64) string {
	for _, c := range courts {
		if c.ID == id {
			return c.Name
		}
	}
	return fmt.Sprintf("Court %d", id)
}

func dayKeyboard(view *service.BookingView) tgbotapi.InlineKeyboardMarkup {
	g := view.Grid
	noop := action{kind: actionNoop}.String()
	courts := g.Courts
	if len(courts) > maxCourtColumns {
		courts = courts[:maxCourtColumns]
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(g.Rows)+4)
	header := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("🕒", noop)}
	for _, c := range courts {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(shortCourt(c.Name), noop))
	}
	rows = append(rows, header)

	for _, r := range g.Rows {
		row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%02d", r.Hour), noop)}
		for i, c := range r.Cells {
			if i >= len(courts) {
				break
			}
			row = append(row, cellButton(g.Date, c))
		}
		rows = append(rows, row)
	}

	if g.Phase != selection.PhaseEmpty {
		if len(g.Permitted) > 1 {
			var types []tgbotapi.InlineKeyboardButton
			for _, t := range g.Permitted {
				types = append(types, tgbotapi.NewInlineKeyboardButtonData(t.Name, action{kind: actionType, typeID: t.ID}.String()))
			}
			rows = append(rows, types)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Book", action{kind: actionSubmit}.String()),
			tgbotapi.NewInlineKeyboardButtonData("✖ Clear", action{kind: actionCancel}.String()),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀ "+g.Date.AddDate(0, 0, -1).Format("02.01"), action{kind: actionDate, day: g.Date.AddDate(0, 0, -1)}.String()),
		tgbotapi.NewInlineKeyboardButtonData("↻", action{kind: actionDate, day: g.Date}.String()),
		tgbotapi.NewInlineKeyboardButtonData(g.Date.AddDate(0, 0, 1).Format("02.01")+" ▶", action{kind: actionDate, day: g.Date.AddDate(0, 0, 1)}.String()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cellButton(day time.Time, c selection.Cell) tgbotapi.InlineKeyboardButton {
	label, kind := "·", actionToggle
	switch {
	case c.Selected:
		label = "✓"
	case c.Editing:
		label = "✎"
	case c.Own:
		label, kind = "●", actionAskDelete
	case c.Entry != nil:
		label = categorySymbol(c.Category)
	case !c.Selectable:
		label = "–"
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, action{kind: kind, day: day, court: c.CourtID, hour: c.Hour}.String())
}

func categorySymbol(c models.Category) string {
	switch c {
	case models.CategoryCourse:
		return "K"
	case models.CategoryTournament:
		return "T"
	case models.CategoryLocked:
		return "🔒"
	default:
		return "✗"
	}
}

// shortCourt keeps header buttons narrow: "Tennisplatz 3" becomes "3".
func shortCourt(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 1 {
		return fields[len(fields)-1]
	}
	return name
}

func confirmDeleteKeyboard(a action) tgbotapi.InlineKeyboardMarkup {
	confirm := a
	confirm.kind = actionDelete
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, cancel it", confirm.String()),
		tgbotapi.NewInlineKeyboardButtonData("↩ Back", action{kind: actionDate, day: a.day}.String()),
	))
}
