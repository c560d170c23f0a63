package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/equiplend/frontend/internal/models"
)

// DaysRemaining is floor((until - now) / 1 day).
func DaysRemaining(until, now time.Time) int {
	return int(math.Floor(until.Sub(now).Hours() / 24))
}

// IsOverdue is true for an issued request whose return date has passed.
func IsOverdue(r models.BorrowRequest, now time.Time) bool {
	return r.Status == models.StatusIssued && DaysRemaining(r.BorrowUntil, now) < 0
}

// Urgency is the due-date line shown to the borrower for an issued request.
func Urgency(r models.BorrowRequest, now time.Time) string {
	if r.Status != models.StatusIssued {
		return ""
	}
	d := DaysRemaining(r.BorrowUntil, now)
	switch {
	case d < 0:
		return fmt.Sprintf("%d %s overdue", -d, plural(-d, "day", "days"))
	case d == 0:
		return "due today"
	default:
		return fmt.Sprintf("%d %s remaining", d, plural(d, "day", "days"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Guidance is the borrower-facing hint for a status.
type Guidance struct {
	Title string
	Body  string
}

// GuidanceFor returns the hint shown under a request, if any.
func GuidanceFor(r models.BorrowRequest, now time.Time) (Guidance, bool) {
	if IsOverdue(r, now) {
		return Guidance{
			Title: "Overdue Notice",
			Body:  "Please return the equipment immediately so others can use it.",
		}, true
	}
	switch r.Status {
	case models.StatusPending:
		return Guidance{
			Title: "Under Review",
			Body:  "Your request is being reviewed by staff. You'll receive an update soon.",
		}, true
	case models.StatusApproved:
		return Guidance{
			Title: "Ready for Pickup",
			Body:  "Your request has been approved. Please collect your items at the equipment desk.",
		}, true
	}
	return Guidance{}, false
}
