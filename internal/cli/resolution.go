package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
	"github.com/dukerupert/pixelquest/internal/resolution"
)

// owned loads resolution id and checks it belongs to u.
func (a *app) owned(ctx context.Context, id string, u *model.User) (*model.Resolution, error) {
	r, err := a.resolutions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != u.ID {
		return nil, resolution.ErrNotFound
	}
	return r, nil
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				r, err := a.resolutions.Add(ctx, u.ID, args[0], category)
				if err != nil {
					return err
				}
				return a.out.Success(r, func(w io.Writer) {
					fmt.Fprintf(w, "Added %q (%s) as %s\n", r.Title, r.Category, r.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", string(model.CategoryOther), "Health, Coding, Reading, Finance or Other")
	return cmd
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, category string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a resolution's title or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("category") {
				return errors.New("nothing to change: pass --title and/or --category")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				r, err := a.owned(ctx, args[0], u)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("title") {
					title = r.Title
				}
				if !cmd.Flags().Changed("category") {
					category = string(r.Category)
				}
				r, err = a.resolutions.Update(ctx, r.ID, title, category)
				if err != nil {
					return err
				}
				return a.out.Success(r, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s: %q (%s)\n", r.ID, r.Title, r.Category)
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resolution and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("deleting removes the streak and history: re-run with --yes to confirm")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				if _, err := a.owned(ctx, args[0], u); err != nil {
					return err
				}
				if err := a.resolutions.Delete(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Success(map[string]string{"id": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", args[0])
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

type resolutionView struct {
	model.Resolution
	Status progression.CardStatus `json:"status"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resolutions with their streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				rs, err := a.resolutions.ListFor(ctx, u.ID)
				if err != nil {
					return err
				}
				today := model.Today()
				views := make([]resolutionView, 0, len(rs))
				for _, r := range rs {
					views = append(views, resolutionView{Resolution: r, Status: progression.ComputeStatus(r, today)})
				}
				return a.out.Success(views, func(w io.Writer) {
					printUser(w, *u)
					if len(rs) == 0 {
						fmt.Fprintln(w, "No resolutions yet. Add one with `pixelquest add`.")
						return
					}
					for _, r := range rs {
						printResolution(w, r, today)
					}
				})
			})
		},
	}
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a resolution done for a day, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := model.Today()
			if dateFlag != "" {
				d, err := model.ParseDate(dateFlag)
				if err != nil {
					return err
				}
				date = d
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				out, err := a.resolutions.Toggle(ctx, args[0], u.ID, date)
				if err != nil {
					return err
				}
				return a.out.Success(out, func(w io.Writer) {
					r := out.Resolution
					if out.Kind == progression.KindCompleted {
						fmt.Fprintf(w, "%s done for %s! +%d XP, streak %d\n", r.Title, date, out.XPAwarded, r.Streak)
					} else {
						fmt.Fprintf(w, "%s undone for %s, streak %d\n", r.Title, date, r.Streak)
					}
					if out.LevelsGained > 0 {
						fmt.Fprintf(w, "LEVEL UP! You are now level %d.\n", out.User.Level)
					}
					printUser(w, out.User)
				})
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "day to toggle as YYYY-MM-DD (default today)")
	return cmd
}
