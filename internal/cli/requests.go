package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/borrow"
	"github.com/equiplend/frontend/internal/dashboard"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/models"
)

func (a *App) requestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Create a borrow request or move one through its lifecycle",
	}
	cmd.AddCommand(a.requestCreateCommand())
	for _, act := range []models.Action{models.ActionApprove, models.ActionReject, models.ActionIssue, models.ActionReturn} {
		cmd.AddCommand(a.transitionCommand(act))
	}
	return cmd
}

func (a *App) requestCreateCommand() *cobra.Command {
	var (
		equipmentID int64
		in          borrow.Input
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Request to borrow an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			if equipmentID <= 0 {
				return errors.New("--equipment is required")
			}
			item, err := a.api.GetEquipment(ctx, sess.AccessToken, equipmentID)
			if err != nil {
				return a.apiError(ctx, sess, err)
			}

			form := borrow.NewForm(*item)
			form.Edit(borrow.FieldQuantity, in.Quantity)
			form.Edit(borrow.FieldPurpose, in.Purpose)
			form.Edit(borrow.FieldBorrowFrom, in.BorrowFrom)
			form.Edit(borrow.FieldBorrowUntil, in.BorrowUntil)
			form.Edit(borrow.FieldNotes, in.Notes)

			v := borrow.NewValidator(a.loc)
			v.Now = a.now
			created, err := form.Submit(ctx, v, a.api, sess.AccessToken)
			switch {
			case err == nil:
			case errors.Is(err, borrow.ErrValidation):
				fields := make([]string, 0, len(form.Errors))
				for f := range form.Errors {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				for _, f := range fields {
					fmt.Fprintf(a.errOut, "  %s: %s\n", f, form.Errors[f])
				}
				return errors.New("request not submitted, fix the fields above")
			case errors.Is(err, apiclient.ErrUnauthorized):
				return a.apiError(ctx, sess, err)
			default:
				logger(ctx).Warn("borrow_submit_failed", "equipment_id", item.ID, "error", err)
				return errors.New(form.Message)
			}

			if err := a.events.Publish(ctx, events.Event{
				Type:        events.TypeRequestCreated,
				RequestID:   created.ID,
				EquipmentID: item.ID,
				Status:      created.Status,
				ActorID:     sess.UserID,
				ActorRole:   sess.Role,
				At:          a.now().UTC(),
			}); err != nil {
				logger(ctx).Warn("event_publish_failed", "error", err)
			}
			fmt.Fprintf(a.out, "Request %s submitted for %s. Staff will review it shortly.\n", requestNo(created.ID), item.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64VarP(&equipmentID, "equipment", "e", 0, "equipment id")
	f.StringVarP(&in.Quantity, "quantity", "q", "1", "how many units")
	f.StringVar(&in.BorrowFrom, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&in.BorrowUntil, "until", "", "last day, YYYY-MM-DD")
	f.StringVar(&in.Purpose, "purpose", "", "what the equipment is for (at least 10 characters)")
	f.StringVar(&in.Notes, "notes", "", "optional notes for staff")
	return cmd
}

func (a *App) requestsCommand() *cobra.Command {
	var (
		status string
		mine   bool
	)
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List borrow requests; staff see everyone's unless --mine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			st := models.Status(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}

			var reqs []models.BorrowRequest
			if sess.Privileged() && !mine {
				reqs, err = a.api.ListRequests(ctx, sess.AccessToken, "")
			} else {
				reqs, err = a.api.MyRequests(ctx, sess.AccessToken)
			}
			if err != nil {
				return a.apiError(ctx, sess, err)
			}

			fmt.Fprintln(a.out, countsLine(reqs))
			return a.printRequests(lifecycle.Filter(reqs, st), sess.Role)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, approved, issued, returned or rejected")
	cmd.Flags().BoolVar(&mine, "mine", false, "only my own requests")
	return cmd
}

func (a *App) transitionCommand(action models.Action) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   string(action) + " ID",
		Short: lifecycle.ActionLabel(action) + " a request (staff/admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := requirePrivileged(sess); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			all, err := a.api.ListRequests(ctx, sess.AccessToken, "")
			if err != nil {
				return a.apiError(ctx, sess, err)
			}
			cur, ok := findRequest(all, id)
			if !ok {
				return fmt.Errorf("request %s not found", requestNo(id))
			}

			actor := lifecycle.Actor{Token: sess.AccessToken, UserID: sess.UserID, Role: sess.Role}
			fresh, err := a.runner.Run(ctx, actor, id, cur.Status, action, reason)
			switch {
			case err == nil:
			case errors.Is(err, lifecycle.ErrNotPermitted):
				return fmt.Errorf("cannot %s a %s request", action, cur.Status)
			case errors.Is(err, apiclient.ErrUnauthorized):
				return a.apiError(ctx, sess, err)
			default:
				var apiErr *apiclient.APIError
				if errors.As(err, &apiErr) {
					return fmt.Errorf("could not %s request %s: %s", action, requestNo(id), apiErr.Message())
				}
				return fmt.Errorf("could not %s request %s: %w", action, requestNo(id), err)
			}

			if updated, ok := findRequest(fresh, id); ok {
				fmt.Fprintf(a.out, "Request %s is now %s.\n", requestNo(id), lifecycle.Present(updated.Status).Label)
			}
			fmt.Fprintln(a.out, countsLine(fresh))
			return nil
		},
	}
	if action == models.ActionReject {
		cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the borrower")
	}
	return cmd
}

func findRequest(reqs []models.BorrowRequest, id int64) (models.BorrowRequest, bool) {
	for _, r := range reqs {
		if r.ID == id {
			return r, true
		}
	}
	return models.BorrowRequest{}, false
}

func (a *App) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of equipment and requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			scope := dashboard.ScopeOwn
			if sess.Privileged() {
				scope = dashboard.ScopeAll
			}
			sum, err := dashboard.NewLoader(a.api).Load(ctx, sess.AccessToken, scope)
			if err != nil {
				return a.apiError(ctx, sess, err)
			}

			w := a.table()
			fmt.Fprintf(w, "Equipment items\t%d\n", sum.TotalItems)
			fmt.Fprintf(w, "Available now\t%d\n", sum.AvailableItems)
			fmt.Fprintf(w, "Requests\t%d\n", sum.TotalRequests)
			fmt.Fprintf(w, "Pending\t%d\n", sum.Pending)
			fmt.Fprintf(w, "Active loans\t%d\n", sum.ActiveLoans)
			if err := w.Flush(); err != nil {
				return err
			}
			if len(sum.Recent) > 0 {
				fmt.Fprintln(a.out, "\nRecent requests")
				return a.printRequests(sum.Recent, sess.Role)
			}
			return nil
		},
	}
}
