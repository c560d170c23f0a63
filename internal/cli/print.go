package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/equiplend/frontend/internal/catalog"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/models"
)

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func requestNo(id int64) string { return fmt.Sprintf("#%04d", id) }

func printItems(out io.Writer, items []models.EquipmentItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No equipment found.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCONDITION\tAVAILABLE\tSTOCK")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			it.ID, it.Name, it.Category.Name, it.Condition, it.AvailableQuantity, it.TotalQuantity, catalog.ItemBadge(it))
	}
	return w.Flush()
}

// countsLine renders the status tabs as one line: "All 3 · Pending 2 · ...".
func countsLine(reqs []models.BorrowRequest) string {
	counts := lifecycle.StatusCounts(reqs)
	parts := []string{fmt.Sprintf("All %d", len(reqs))}
	for _, s := range models.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", lifecycle.Present(s).Label, counts[s]))
	}
	return strings.Join(parts, " · ")
}

func (a *App) printRequests(reqs []models.BorrowRequest, role models.Role) error {
	if len(reqs) == 0 {
		_, err := fmt.Fprintln(a.out, "No requests.")
		return err
	}
	now := a.now()
	w := a.table()
	fmt.Fprintln(w, "NO\tEQUIPMENT\tREQUESTER\tQTY\tFROM\tUNTIL\tSTATUS\tNOTE\tACTIONS")
	for _, r := range reqs {
		p := lifecycle.Present(r.Status)
		note := lifecycle.Urgency(r, now)
		if note == "" {
			if g, ok := lifecycle.GuidanceFor(r, now); ok {
				note = g.Title
			}
		}
		var acts []string
		for _, act := range lifecycle.Actions(r.Status, role) {
			acts = append(acts, string(act))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s %s\t%s\t%s\n",
			requestNo(r.ID), r.ItemName(), r.RequesterName(), r.Quantity,
			r.BorrowFrom.In(a.loc).Format("2006-01-02"), r.BorrowUntil.In(a.loc).Format("2006-01-02"),
			p.Icon, p.Label, note, strings.Join(acts, ","))
	}
	return w.Flush()
}
