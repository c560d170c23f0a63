package borrow

import (
	"context"
	"errors"
	"sync"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/models"
)

var ErrSubmitting = errors.New("submission already in progress")

// Creator is the slice of the API client the form needs.
type Creator interface {
	CreateRequest(ctx context.Context, token string, in apiclient.CreateBorrowRequest) (*models.BorrowRequest, error)
}

// Form holds the state of one borrow form between edits and submits.
type Form struct {
	Item    models.EquipmentItem
	Input   Input
	Errors  Errors
	Message string

	mu         sync.Mutex
	submitting bool
}

func NewForm(item models.EquipmentItem) *Form {
	return &Form{Item: item, Input: Input{Quantity: "1"}, Errors: Errors{}}
}

// Edit changes one field and clears that field's error.
func (f *Form) Edit(field, value string) {
	switch field {
	case FieldQuantity:
		f.Input.Quantity = value
	case FieldPurpose:
		f.Input.Purpose = value
	case FieldBorrowFrom:
		f.Input.BorrowFrom = value
	case FieldBorrowUntil:
		f.Input.BorrowUntil = value
	case FieldNotes:
		f.Input.Notes = value
	}
	ClearField(f.Errors, field)
}

// ClearField drops the error for field, if any.
func ClearField(errs Errors, field string) {
	delete(errs, field)
}

func (f *Form) Reset() {
	f.Input = Input{Quantity: "1"}
	f.Errors = Errors{}
	f.Message = ""
}

// Submit validates and, when clean, creates the request. A failed call keeps
// the input so the user can correct and retry; success resets the form.
// The caller re-fetches its list; nothing is inserted locally.
func (f *Form) Submit(ctx context.Context, v Validator, api Creator, token string) (*models.BorrowRequest, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.submitting = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	payload, errs := v.Validate(f.Item, f.Input)
	if errs != nil {
		f.Errors = errs
		f.Message = ""
		return nil, errs
	}

	created, err := api.CreateRequest(ctx, token, *payload)
	if err != nil {
		f.Message = "Failed to submit request: " + apiclient.UserMessage(err)
		return nil, err
	}
	f.Reset()
	return created, nil
}
