package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/stats"
	"github.com/erntsn/todo-app/views"
	"github.com/spf13/cobra"
)

func newBoardCmd(o *rootOptions) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks in status columns",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			return showBoard(cmd.Context(), a, remote)
		}),
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the local mirror")
	return cmd
}

func showBoard(ctx context.Context, a *app, remote bool) error {
	var cols []views.Column
	if remote {
		var err error
		if cols, err = a.api.Board(ctx); err != nil {
			return err
		}
	} else {
		tasks, err := a.repo.List(ctx, models.Filter{})
		if err != nil {
			return err
		}
		cols = views.Board(tasks)
	}
	renderBoard(a.out, a.msgs(), cols)
	return printPending(ctx, a)
}

func newCalendarCmd(o *rootOptions) *cobra.Command {
	var remote bool
	var month string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month of tasks by due date",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			y, m, err := parseMonth(month, timeNow())
			if err != nil {
				return err
			}
			return showCalendar(cmd.Context(), a, y, m, remote)
		}),
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month to show as YYYY-MM (default current month)")
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the local mirror")
	return cmd
}

func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if s == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("bad month %q, want YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

func showCalendar(ctx context.Context, a *app, year int, month time.Month, remote bool) error {
	var m views.Month
	if remote {
		res, err := a.api.Calendar(ctx, year, month)
		if err != nil {
			return err
		}
		m = *res
	} else {
		tasks, err := a.repo.List(ctx, models.Filter{})
		if err != nil {
			return err
		}
		if m, err = views.Calendar(tasks, year, month); err != nil {
			return err
		}
	}
	renderCalendar(a.out, a.msgs(), a.theme(), m, timeNow())
	return printPending(ctx, a)
}

func newStatsCmd(o *rootOptions) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion, priority, category and overdue statistics",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			var s stats.Summary
			if remote {
				res, err := a.api.Stats(cmd.Context())
				if err != nil {
					return err
				}
				s = *res
			} else {
				tasks, err := a.repo.List(cmd.Context(), models.Filter{})
				if err != nil {
					return err
				}
				s = stats.Compute(tasks, timeNow())
			}
			renderStats(a.out, a.msgs(), s)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the local mirror")
	return cmd
}
