// Package borrow validates and submits new borrow requests.
package borrow

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/models"
)

const (
	FieldPurpose     = "purpose"
	FieldBorrowFrom  = "borrow_from"
	FieldBorrowUntil = "borrow_until"
	FieldQuantity    = "quantity"
	FieldNotes       = "notes"
)

const (
	MsgPurposeTooShort   = "purpose too short"
	MsgStartRequired     = "start date required"
	MsgStartInPast       = "start date in past"
	MsgBeyondWindow      = "beyond booking window"
	MsgEndRequired       = "end date required"
	MsgEndBeforeStart    = "end before start"
	MsgExceedsMaxPeriod  = "exceeds max period"
	MsgQuantityTooSmall  = "quantity must be at least 1"
	MsgExceedsStock      = "exceeds available stock"
	MsgInvalidDateFormat = "invalid date"
)

var ErrValidation = errors.New("validation failed")

// Rules are the client-side booking limits. The API enforces its own copy.
type Rules struct {
	MinPurposeLen int
	MaxSpanDays   int
	LookaheadDays int
}

var DefaultRules = Rules{MinPurposeLen: 10, MaxSpanDays: 14, LookaheadDays: 30}

// Input is the raw form as typed by the user.
type Input struct {
	Quantity    string
	Purpose     string
	BorrowFrom  string
	BorrowUntil string
	Notes       string
}

// Errors maps a field name to its message.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range []string{FieldQuantity, FieldPurpose, FieldBorrowFrom, FieldBorrowUntil} {
		if msg, ok := e[f]; ok {
			parts = append(parts, f+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return ErrValidation }

// set keeps the first failing rule for a field.
func (e Errors) set(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Validator checks Input against Rules relative to "now" in Loc.
type Validator struct {
	Rules Rules
	Loc   *time.Location
	Now   func() time.Time
}

func NewValidator(loc *time.Location) Validator {
	if loc == nil {
		loc = time.Local
	}
	return Validator{Rules: DefaultRules, Loc: loc, Now: time.Now}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseDate accepts a calendar date or a local date-time in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(MsgInvalidDateFormat)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// spanDays is ceil((until-from)/1 day) counted on the calendar, so DST
// shifts do not add a day.
func spanDays(from, until time.Time) int {
	fy, fm, fd := from.Date()
	uy, um, ud := until.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(uy, um, ud, 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours() / 24)
	if clock(until) > clock(from) {
		days++
	}
	return days
}

func clock(t time.Time) time.Duration {
	return t.Sub(startOfDay(t))
}

// Validate runs every rule and returns either a payload or errors, never
// both.
func (v Validator) Validate(item models.EquipmentItem, in Input) (*apiclient.CreateBorrowRequest, Errors) {
	errs := Errors{}
	now := v.Now().In(v.Loc)
	today := startOfDay(now)
	windowEnd := today.AddDate(0, 0, v.Rules.LookaheadDays+1)

	if len([]rune(strings.TrimSpace(in.Purpose))) < v.Rules.MinPurposeLen {
		errs.set(FieldPurpose, MsgPurposeTooShort)
	}

	var from, until time.Time
	var fromOK, untilOK bool

	if strings.TrimSpace(in.BorrowFrom) == "" {
		errs.set(FieldBorrowFrom, MsgStartRequired)
	} else if t, err := ParseDate(in.BorrowFrom, v.Loc); err != nil {
		errs.set(FieldBorrowFrom, MsgInvalidDateFormat)
	} else {
		from, fromOK = t, true
		if from.Before(today) {
			errs.set(FieldBorrowFrom, MsgStartInPast)
		}
		if !from.Before(windowEnd) {
			errs.set(FieldBorrowFrom, MsgBeyondWindow)
		}
	}

	if strings.TrimSpace(in.BorrowUntil) == "" {
		errs.set(FieldBorrowUntil, MsgEndRequired)
	} else if t, err := ParseDate(in.BorrowUntil, v.Loc); err != nil {
		errs.set(FieldBorrowUntil, MsgInvalidDateFormat)
	} else {
		until, untilOK = t, true
	}

	if untilOK && fromOK {
		if !until.After(from) {
			errs.set(FieldBorrowUntil, MsgEndBeforeStart)
		}
		if spanDays(from, until) > v.Rules.MaxSpanDays {
			errs.set(FieldBorrowUntil, MsgExceedsMaxPeriod)
		}
	}
	if untilOK && !until.Before(windowEnd) {
		errs.set(FieldBorrowUntil, MsgBeyondWindow)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(in.Quantity))
	switch {
	case err != nil || qty < 1:
		errs.set(FieldQuantity, MsgQuantityTooSmall)
	case qty > item.AvailableQuantity:
		errs.set(FieldQuantity, MsgExceedsStock)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &apiclient.CreateBorrowRequest{
		Equipment:   item.ID,
		Quantity:    qty,
		Purpose:     strings.TrimSpace(in.Purpose),
		BorrowFrom:  from.UTC().Format(time.RFC3339),
		BorrowUntil: until.UTC().Format(time.RFC3339),
		Notes:       strings.TrimSpace(in.Notes),
	}, nil
}
