package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSyncCmd(o *rootOptions) *cobra.Command {
	var showErrors, clearErrors bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Send queued changes and download the latest tasks",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			m := a.msgs()

			if clearErrors {
				if err := a.local.ClearSyncErrors(ctx, a.session.UserID); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "sync errors cleared")
				return nil
			}
			if showErrors {
				errs, err := a.repo.SyncErrors(ctx)
				if err != nil {
					return err
				}
				if len(errs) == 0 {
					fmt.Fprintln(a.out, "no sync errors")
					return nil
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				for _, e := range errs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						e.At.Local().Format("2006-01-02 15:04"), e.Kind, shortID(e.TaskID), e.Message)
				}
				return tw.Flush()
			}

			fr, err := a.repo.Refresh(ctx)
			if err != nil {
				return err
			}
			a.logf("sync: sent=%d dropped=%d remaining=%d offline=%v", fr.Sent, fr.Dropped, fr.Remaining, fr.Offline)
			if fr.Sent > 0 {
				fmt.Fprintf(a.out, "sent %d change(s)\n", fr.Sent)
			}
			if fr.Dropped > 0 {
				fmt.Fprintf(a.out, "%d change(s) were rejected by the server, see `todo sync --errors`\n", fr.Dropped)
			}
			switch {
			case fr.Offline:
				fmt.Fprintf(a.out, "server unreachable at %s\n", a.cfg.Server)
				fmt.Fprintln(a.out, m.pending(fr.Remaining))
			case fr.Remaining > 0:
				fmt.Fprintln(a.out, m.pending(fr.Remaining))
			default:
				fmt.Fprintln(a.out, m.syncedNote)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&showErrors, "errors", false, "list changes the server rejected")
	cmd.Flags().BoolVar(&clearErrors, "clear-errors", false, "forget rejected changes")
	return cmd
}
