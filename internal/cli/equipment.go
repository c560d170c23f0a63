package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/catalog"
	"github.com/equiplend/frontend/internal/models"
)

func (a *App) equipmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "equipment",
		Aliases: []string{"eq"},
		Short:   "Browse and maintain the equipment catalogue",
	}
	cmd.AddCommand(
		a.equipmentListCommand(),
		a.equipmentBrowseCommand(),
		a.equipmentSaveCommand("create"),
		a.equipmentSaveCommand("update"),
		a.equipmentDeleteCommand(),
	)
	return cmd
}

func (a *App) equipmentListCommand() *cobra.Command {
	var (
		f   apiclient.EquipmentFilter
		all bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List equipment, available items only unless --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			f.AvailableOnly = !all
			items, err := a.api.ListEquipment(ctx, sess.AccessToken, f)
			if err != nil {
				return a.apiError(ctx, sess, err)
			}
			return printItems(a.out, items)
		},
	}
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "free-text search")
	cmd.Flags().Int64VarP(&f.CategoryID, "category", "c", 0, "category id")
	cmd.Flags().BoolVar(&all, "all", false, "include items that are out of stock")
	return cmd
}

// equipmentBrowseCommand reads one search term per line from stdin and shows
// the results of the latest term once typing pauses.
func (a *App) equipmentBrowseCommand() *cobra.Command {
	var (
		category int64
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive search: type a term per line, results follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}

			s := catalog.NewSearcher(func(ctx context.Context, f apiclient.EquipmentFilter) ([]models.EquipmentItem, error) {
				return a.api.ListEquipment(ctx, sess.AccessToken, f)
			}, a.debounce)
			defer s.Close()

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(a.in)
				for sc.Scan() {
					select {
					case lines <- strings.TrimSpace(sc.Text()):
					case <-ctx.Done():
						return
					}
				}
			}()

			var latest uint64
			pending := false
			in := lines
			for {
				select {
				case term, ok := <-in:
					if !ok {
						in = nil
						if !pending {
							return nil
						}
						continue
					}
					latest = s.Input(ctx, apiclient.EquipmentFilter{AvailableOnly: !all, Search: term, CategoryID: category})
					pending = true
				case res, ok := <-s.Results():
					if !ok {
						return nil
					}
					if res.Generation != latest {
						continue
					}
					pending = false
					if res.Err != nil {
						if errors.Is(res.Err, apiclient.ErrUnauthorized) {
							return a.apiError(ctx, sess, res.Err)
						}
						fmt.Fprintf(a.out, "search %q failed: %s\n", res.Filter.Search, apiclient.UserMessage(res.Err))
					} else {
						fmt.Fprintf(a.out, "search %q: %d item(s)\n", res.Filter.Search, len(res.Items))
						if err := printItems(a.out, res.Items); err != nil {
							return err
						}
					}
					if in == nil {
						return nil
					}
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		},
	}
	cmd.Flags().Int64VarP(&category, "category", "c", 0, "category id")
	cmd.Flags().BoolVar(&all, "all", false, "include items that are out of stock")
	return cmd
}

type equipmentInput struct {
	Name          string `validate:"required,max=200"`
	Category      int64  `validate:"required,gt=0"`
	Description   string `validate:"max=2000"`
	Condition     string `validate:"required,oneof=excellent good fair poor"`
	TotalQuantity int    `validate:"gte=0"`
}

func (a *App) equipmentSaveCommand(verb string) *cobra.Command {
	in := equipmentInput{Condition: string(models.ConditionGood), TotalQuantity: 1}
	use := "create"
	args := cobra.NoArgs
	if verb == "update" {
		use = "update ID"
		args = cobra.ExactArgs(1)
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an equipment item (staff/admin)",
		Args:  args,
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := requirePrivileged(sess); err != nil {
				return err
			}

			var id int64
			if verb == "update" {
				if id, err = parseID(posArgs[0]); err != nil {
					return err
				}
				cur, err := a.api.GetEquipment(ctx, sess.AccessToken, id)
				if err != nil {
					return a.apiError(ctx, sess, err)
				}
				mergeEquipment(cmd, &in, cur)
			}
			if err := validate.Struct(in); err != nil {
				return fmt.Errorf("invalid equipment: %w", err)
			}

			body := apiclient.EquipmentInput{
				Name:          strings.TrimSpace(in.Name),
				Category:      in.Category,
				Description:   strings.TrimSpace(in.Description),
				Condition:     models.Condition(in.Condition),
				TotalQuantity: in.TotalQuantity,
			}
			var saved *models.EquipmentItem
			if id == 0 {
				saved, err = a.api.CreateEquipment(ctx, sess.AccessToken, body)
			} else {
				saved, err = a.api.UpdateEquipment(ctx, sess.AccessToken, id, body)
			}
			if err != nil {
				return a.apiError(ctx, sess, err)
			}
			logger(ctx).Info("equipment_saved", "equipment_id", saved.ID)
			fmt.Fprintf(a.out, "Saved %d %s.\n", saved.ID, saved.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "item name")
	f.Int64Var(&in.Category, "category", 0, "category id")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&in.Condition, "condition", in.Condition, "excellent, good, fair or poor")
	f.IntVar(&in.TotalQuantity, "quantity", in.TotalQuantity, "total quantity")
	return cmd
}

// mergeEquipment keeps the current value of every flag the user did not set.
func mergeEquipment(cmd *cobra.Command, in *equipmentInput, cur *models.EquipmentItem) {
	f := cmd.Flags()
	if !f.Changed("name") {
		in.Name = cur.Name
	}
	if !f.Changed("category") {
		in.Category = cur.Category.ID
	}
	if !f.Changed("description") {
		in.Description = cur.Description
	}
	if !f.Changed("condition") {
		in.Condition = string(cur.Condition)
	}
	if !f.Changed("quantity") {
		in.TotalQuantity = cur.TotalQuantity
	}
}

func (a *App) equipmentDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an equipment item (staff/admin)",
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
			if err := a.api.DeleteEquipment(ctx, sess.AccessToken, id); err != nil {
				return a.apiError(ctx, sess, err)
			}
			fmt.Fprintf(a.out, "Deleted equipment %d.\n", id)
			return nil
		},
	}
}

func (a *App) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List equipment categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.session(ctx)
			if err != nil {
				return err
			}
			cats, err := a.api.ListCategories(ctx, sess.AccessToken)
			if err != nil {
				return a.apiError(ctx, sess, err)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
