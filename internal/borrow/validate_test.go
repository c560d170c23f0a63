package borrow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equiplend/frontend/internal/models"
)

var testNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

func testValidator() Validator {
	v := NewValidator(time.UTC)
	v.Now = func() time.Time { return testNow }
	return v
}

func day(offset int) string {
	return testNow.AddDate(0, 0, offset).Format("2006-01-02")
}

var tripod = models.EquipmentItem{ID: 5, Name: "Tripod", TotalQuantity: 4, AvailableQuantity: 3}

func validInput() Input {
	return Input{
		Quantity:    "1",
		Purpose:     "Film the science fair",
		BorrowFrom:  day(1),
		BorrowUntil: day(3),
	}
}

func TestValidate_Valid(t *testing.T) {
	in := validInput()
	in.Notes = "  handle with care "
	payload, errs := testValidator().Validate(tripod, in)
	require.Nil(t, errs)
	require.NotNil(t, payload)
	assert.EqualValues(t, 5, payload.Equipment)
	assert.Equal(t, 1, payload.Quantity)
	assert.Equal(t, "2026-10-20T00:00:00Z", payload.BorrowFrom)
	assert.Equal(t, "2026-10-22T00:00:00Z", payload.BorrowUntil)
	assert.Equal(t, "handle with care", payload.Notes)
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Input)
		field  string
		msg    string
	}{
		{name: "short purpose", modify: func(in *Input) { in.Purpose = "  camera   " }, field: FieldPurpose, msg: MsgPurposeTooShort},
		{name: "missing start", modify: func(in *Input) { in.BorrowFrom = "" }, field: FieldBorrowFrom, msg: MsgStartRequired},
		{name: "start yesterday", modify: func(in *Input) { in.BorrowFrom = day(-1) }, field: FieldBorrowFrom, msg: MsgStartInPast},
		{name: "start beyond window", modify: func(in *Input) { in.BorrowFrom = day(31); in.BorrowUntil = day(32) }, field: FieldBorrowFrom, msg: MsgBeyondWindow},
		{name: "garbled start", modify: func(in *Input) { in.BorrowFrom = "next tuesday" }, field: FieldBorrowFrom, msg: MsgInvalidDateFormat},
		{name: "missing end", modify: func(in *Input) { in.BorrowUntil = "" }, field: FieldBorrowUntil, msg: MsgEndRequired},
		{name: "end equals start", modify: func(in *Input) { in.BorrowUntil = in.BorrowFrom }, field: FieldBorrowUntil, msg: MsgEndBeforeStart},
		{name: "end before start", modify: func(in *Input) { in.BorrowUntil = day(0) }, field: FieldBorrowUntil, msg: MsgEndBeforeStart},
		{name: "fifteen days", modify: func(in *Input) { in.BorrowUntil = day(16) }, field: FieldBorrowUntil, msg: MsgExceedsMaxPeriod},
		{name: "end beyond window", modify: func(in *Input) { in.BorrowFrom = day(25); in.BorrowUntil = day(31) }, field: FieldBorrowUntil, msg: MsgBeyondWindow},
		{name: "zero quantity", modify: func(in *Input) { in.Quantity = "0" }, field: FieldQuantity, msg: MsgQuantityTooSmall},
		{name: "non numeric quantity", modify: func(in *Input) { in.Quantity = "two" }, field: FieldQuantity, msg: MsgQuantityTooSmall},
		{name: "over stock", modify: func(in *Input) { in.Quantity = "4" }, field: FieldQuantity, msg: MsgExceedsStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			payload, errs := testValidator().Validate(tripod, in)
			require.Nil(t, payload)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.msg, errs[tt.field])
		})
	}
}

func TestValidate_SpanBoundary(t *testing.T) {
	in := validInput()
	in.BorrowFrom = day(1)
	in.BorrowUntil = day(15)
	payload, errs := testValidator().Validate(tripod, in)
	require.Nil(t, errs, "14 days is accepted")
	require.NotNil(t, payload)

	in.BorrowUntil = day(16)
	payload, errs = testValidator().Validate(tripod, in)
	require.Nil(t, payload)
	assert.Equal(t, MsgExceedsMaxPeriod, errs[FieldBorrowUntil])

	in.BorrowFrom = day(1) + "T09:00"
	in.BorrowUntil = day(15) + "T09:30"
	_, errs = testValidator().Validate(tripod, in)
	assert.Equal(t, MsgExceedsMaxPeriod, errs[FieldBorrowUntil], "a partial day rounds up")
}

func TestValidate_QuantityBoundary(t *testing.T) {
	in := validInput()
	in.Quantity = "3"
	payload, errs := testValidator().Validate(tripod, in)
	require.Nil(t, errs)
	assert.Equal(t, 3, payload.Quantity)

	in.Quantity = "4"
	payload, errs = testValidator().Validate(tripod, in)
	require.Nil(t, payload)
	assert.Equal(t, MsgExceedsStock, errs[FieldQuantity])
}

func TestValidate_AllRulesReported(t *testing.T) {
	payload, errs := testValidator().Validate(tripod, Input{Quantity: "9", Purpose: "x"})
	require.Nil(t, payload)
	assert.Equal(t, Errors{
		FieldPurpose:     MsgPurposeTooShort,
		FieldBorrowFrom:  MsgStartRequired,
		FieldBorrowUntil: MsgEndRequired,
		FieldQuantity:    MsgExceedsStock,
	}, errs)
	assert.True(t, errors.Is(errs, ErrValidation))
}

func TestValidate_TotalOverInputs(t *testing.T) {
	purposes := []string{"", "short", "Film the science fair"}
	dates := []string{"", day(-2), day(0), day(2), day(20), day(40), "bogus"}
	quantities := []string{"", "-1", "0", "1", "3", "4"}

	v := testValidator()
	for _, p := range purposes {
		for _, from := range dates {
			for _, until := range dates {
				for _, q := range quantities {
					payload, errs := v.Validate(tripod, Input{Quantity: q, Purpose: p, BorrowFrom: from, BorrowUntil: until})
					if payload == nil {
						require.NotEmpty(t, errs, "%q %q %q %q", p, from, until, q)
					} else {
						require.Empty(t, errs, "%q %q %q %q", p, from, until, q)
					}
				}
			}
		}
	}
}

func TestValidate_LocalTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	v := NewValidator(loc)
	// 21:00 UTC is already the next day in UTC+5
	v.Now = func() time.Time { return time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC) }

	in := validInput()
	in.BorrowFrom = "2026-10-19"
	in.BorrowUntil = "2026-10-22"
	_, errs := v.Validate(tripod, in)
	assert.Equal(t, MsgStartInPast, errs[FieldBorrowFrom])

	in.BorrowFrom = "2026-10-20"
	payload, errs := v.Validate(tripod, in)
	require.Nil(t, errs)
	assert.Equal(t, "2026-10-19T19:00:00Z", payload.BorrowFrom)
}

func TestSpanDays(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// crosses the October DST switch
	from := time.Date(2026, 10, 20, 0, 0, 0, 0, ams)
	until := time.Date(2026, 11, 3, 0, 0, 0, 0, ams)
	assert.Equal(t, 14, spanDays(from, until))
}
