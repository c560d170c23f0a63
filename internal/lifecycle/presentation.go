package lifecycle

import "github.com/equiplend/frontend/internal/models"

// Presentation is how a status is drawn in every view.
type Presentation struct {
	Label string
	Color string
	Icon  string
}

var presentations = map[models.Status]Presentation{
	models.StatusPending:  {Label: "Pending", Color: "yellow", Icon: "⏳"},
	models.StatusApproved: {Label: "Approved", Color: "blue", Icon: "✅"},
	models.StatusIssued:   {Label: "Issued", Color: "green", Icon: "🚀"},
	models.StatusReturned: {Label: "Returned", Color: "gray", Icon: "📦"},
	models.StatusRejected: {Label: "Rejected", Color: "red", Icon: "❌"},
}

var unknownPresentation = Presentation{Label: "Unknown", Color: "gray", Icon: "📋"}

func Present(s models.Status) Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return unknownPresentation
}
