package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tennisluv/internal/models"
)

type actionKind byte

const (
	actionNoop      actionKind = 'n'
	actionSubmit    actionKind = 's'
	actionCancel    actionKind = 'c'
	actionDate      actionKind = 'd'
	actionToggle    actionKind = 't'
	actionAskDelete actionKind = 'x'
	actionDelete    actionKind = 'X'
	actionType      actionKind = 'y'
)

var errBadCallback = errors.New("malformed callback data")

// action is a decoded inline-button press. Callback data stays well under
// Telegram's 64 byte limit: "t:2025-06-03:12:20" is the longest form.
type action struct {
	kind   actionKind
	day    time.Time
	court  int64
	hour   int
	typeID int64
}

func (a action) String() string {
	switch a.kind {
	case actionDate:
		return fmt.Sprintf("d:%s", a.day.Format(models.DateLayout))
	case actionToggle, actionAskDelete, actionDelete:
		return fmt.Sprintf("%c:%s:%d:%d", a.kind, a.day.Format(models.DateLayout), a.court, a.hour)
	case actionType:
		return fmt.Sprintf("y:%d", a.typeID)
	default:
		return string(a.kind)
	}
}

func parseAction(data string) (action, error) {
	parts := strings.Split(data, ":")
	if len(parts[0]) != 1 {
		return action{}, errBadCallback
	}
	a := action{kind: actionKind(parts[0][0])}
	switch a.kind {
	case actionNoop, actionSubmit, actionCancel:
		if len(parts) != 1 {
			return action{}, errBadCallback
		}
	case actionDate:
		if len(parts) != 2 {
			return action{}, errBadCallback
		}
		day, err := models.ParseDay(parts[1])
		if err != nil {
			return action{}, errBadCallback
		}
		a.day = day
	case actionToggle, actionAskDelete, actionDelete:
		if len(parts) != 4 {
			return action{}, errBadCallback
		}
		day, err := models.ParseDay(parts[1])
		if err != nil {
			return action{}, errBadCallback
		}
		court, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || court <= 0 {
			return action{}, errBadCallback
		}
		hour, err := strconv.Atoi(parts[3])
		if err != nil || hour < 0 || hour > 23 {
			return action{}, errBadCallback
		}
		a.day, a.court, a.hour = day, court, hour
	case actionType:
		if len(parts) != 2 {
			return action{}, errBadCallback
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return action{}, errBadCallback
		}
		a.typeID = id
	default:
		return action{}, errBadCallback
	}
	return a, nil
}
