package selection

import "errors"

// Reason is a stable identifier of a rejected selection, used as a metrics label.
type Reason string

const (
	ReasonSameCourt      Reason = "same_court"
	ReasonAdjacent       Reason = "adjacent"
	ReasonDailyLimit     Reason = "daily_limit"
	ReasonOwnBooking     Reason = "own_booking"
	ReasonForeignBooking Reason = "foreign_booking"
	ReasonCourse         Reason = "course"
	ReasonTournament     Reason = "tournament"
	ReasonLocked         Reason = "locked"
	ReasonOutsideHours   Reason = "outside_hours"
	ReasonNotPermitted   Reason = "not_permitted"
	ReasonEntryType      Reason = "entry_type"
	ReasonEmpty          Reason = "empty"
	ReasonBusy           Reason = "busy"
)

// RuleError is a local, recoverable rejection. The selection is left unchanged.
type RuleError struct {
	Reason  Reason
	Message string
}

func (e *RuleError) Error() string { return e.Message }

var (
	ErrSameCourt      = &RuleError{ReasonSameCourt, "slots must be on the same court"}
	ErrNotAdjacent    = &RuleError{ReasonAdjacent, "hours must be adjacent"}
	ErrDailyLimit     = &RuleError{ReasonDailyLimit, "daily limit reached"}
	ErrOwnBooking     = &RuleError{ReasonOwnBooking, "this is your own booking, delete it instead of rebooking"}
	ErrForeignBooking = &RuleError{ReasonForeignBooking, "this slot is already booked by another member"}
	ErrCourse         = &RuleError{ReasonCourse, "this slot is reserved for a course"}
	ErrTournament     = &RuleError{ReasonTournament, "this slot is reserved for a tournament"}
	ErrLocked         = &RuleError{ReasonLocked, "this court is locked at this hour"}
	ErrOutsideHours   = &RuleError{ReasonOutsideHours, "hour is outside opening hours"}
	ErrNotPermitted   = &RuleError{ReasonNotPermitted, "membership fee not paid, booking is not possible"}
	ErrEntryType      = &RuleError{ReasonEntryType, "entry type is not permitted"}
	ErrEmpty          = &RuleError{ReasonEmpty, "nothing selected"}
	ErrBusy           = &RuleError{ReasonBusy, "a submission is already in progress"}
)

// ReasonOf returns the rule reason of err, or "" when err is not a rule violation.
func ReasonOf(err error) Reason {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
