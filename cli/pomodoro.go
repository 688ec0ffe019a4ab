package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erntsn/todo-app/pomodoro"
	"github.com/spf13/cobra"
)

var pomodoroClock = pomodoro.RealClock

func newPomodoroCmd(o *rootOptions) *cobra.Command {
	var s pomodoro.Settings
	var mode string
	var sessions int
	var quiet bool
	cmd := &cobra.Command{
		Use:   "pomodoro",
		Short: "Run the focus timer in the foreground",
		Long: `Runs work and break sessions back to back until interrupted or until
--sessions have finished. Changed lengths are saved as your defaults.`,
		Args: cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			settings := a.prefs.Pomodoro
			if settingsFlagsChanged(cmd) {
				settings = settings.Merge(s)
				if err := settings.Validate(); err != nil {
					return err
				}
				if err := a.local.SetPomodoroSettings(cmd.Context(), settings); err != nil {
					return err
				}
			}

			timer, err := pomodoro.New(settings)
			if err != nil {
				return err
			}
			if err := timer.SwitchMode(pomodoro.Mode(mode)); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPomodoro(ctx, a, timer, sessions, !quiet)
		}),
	}
	cmd.Flags().IntVar(&s.WorkTime, "work", 0, "work session length in minutes")
	cmd.Flags().IntVar(&s.ShortBreakTime, "short", 0, "short break length in minutes")
	cmd.Flags().IntVar(&s.LongBreakTime, "long", 0, "long break length in minutes")
	cmd.Flags().IntVar(&s.CyclesBeforeLongBreak, "cycles", 0, "work sessions before a long break")
	cmd.Flags().StringVar(&mode, "mode", string(pomodoro.Work), "starting mode: work, shortBreak or longBreak")
	cmd.Flags().IntVar(&sessions, "sessions", 0, "stop after this many sessions (0 runs until interrupted)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print completed sessions")

	cmd.AddCommand(&cobra.Command{
		Use:   "settings",
		Short: "Show the saved timer settings",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			m := a.msgs()
			p := a.prefs.Pomodoro
			fmt.Fprintln(a.out, m.pomodoro)
			fmt.Fprintf(a.out, "%s: %d min\n", label(m.modes, string(pomodoro.Work)), p.WorkTime)
			fmt.Fprintf(a.out, "%s: %d min\n", label(m.modes, string(pomodoro.ShortBreak)), p.ShortBreakTime)
			fmt.Fprintf(a.out, "%s: %d min\n", label(m.modes, string(pomodoro.LongBreak)), p.LongBreakTime)
			fmt.Fprintf(a.out, "cycles: %d\n", p.CyclesBeforeLongBreak)
			return nil
		}),
	})
	return cmd
}

func settingsFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"work", "short", "long", "cycles"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// runPomodoro starts the timer and restarts it after every completion.
func runPomodoro(ctx context.Context, a *app, timer *pomodoro.Timer, sessions int, progress bool) error {
	m := a.msgs()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan pomodoro.Completion)
	errc := make(chan error, 1)
	timer.Toggle()
	go func() { errc <- timer.Run(ctx, pomodoroClock, done) }()

	var display <-chan time.Time
	if progress {
		tk := time.NewTicker(time.Second)
		defer tk.Stop()
		display = tk.C
	}

	finished := 0
	for {
		select {
		case c := <-done:
			finished++
			fmt.Fprintf(a.out, "\a\r%s done (%d), next: %s\n",
				label(m.modes, string(c.Finished)), c.Cycles, label(m.modes, string(c.Next)))
			if sessions > 0 && finished >= sessions {
				cancel()
				<-errc
				return nil
			}
			timer.Toggle()
		case <-display:
			st := timer.State()
			fmt.Fprintf(a.out, "\r%s %s ", label(m.modes, string(st.Mode)), clockFace(st.Remaining))
		case err := <-errc:
			if ctx.Err() != nil {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
	}
}

func clockFace(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
