// Package cli is the command tree of the todo client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/erntsn/todo-app/client"
	"github.com/erntsn/todo-app/config"
	"github.com/erntsn/todo-app/localstore"
	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/syncer"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `todo login` first")

type rootOptions struct {
	configPath string
	verbose    bool
}

// app is what every command works with: configuration, the local store,
// the API client and, once signed in, the sync repository.
type app struct {
	cfg     *config.Client
	local   *localstore.Store
	api     *client.Client
	session *config.Session
	prefs   localstore.Prefs
	logger  *log.Logger
	out     io.Writer
	repo    *syncer.Repository
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadClient(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	session, err := config.LoadSession(config.SessionPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	local, err := localstore.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	prefs, err := local.Prefs(cmd.Context())
	if err != nil {
		local.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		local:   local,
		api:     client.New(cfg.Server, cfg.Timeout),
		session: session,
		prefs:   prefs,
		out:     cmd.OutOrStdout(),
	}
	if o.verbose {
		a.logger = log.New(cmd.ErrOrStderr(), "todo: ", log.LstdFlags)
	}
	if session != nil {
		a.api.SetToken(session.Token)
		a.repo = syncer.New(local, a.api, session.UserID)
		a.repo.Logger = a.logger
	}
	return a, nil
}

func (a *app) Close() error {
	return a.local.Close()
}

func (a *app) msgs() *messages {
	return msgs(a.prefs.Language)
}

func (a *app) theme() theme {
	return newTheme(a.prefs.DarkMode)
}

func (a *app) requireSession() error {
	if a.repo == nil {
		return errNotSignedIn
	}
	return nil
}

func (a *app) logf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// resolve expands a unique id prefix to a full task id.
func (a *app) resolve(ctx context.Context, prefix string) (string, error) {
	tasks, err := a.repo.List(ctx, models.Filter{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no task matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d tasks)", prefix, len(matches))
	}
}

// report prints the outcome of a write.
func (a *app) report(res *syncer.Result) {
	if res.Queued {
		fmt.Fprintln(a.out, a.msgs().queuedNote)
	}
	if res.SessionExpired {
		fmt.Fprintln(a.out, syncer.ErrSessionExpired)
	}
	if res.Next != nil {
		fmt.Fprintf(a.out, "next occurrence %s on %s\n", shortID(res.Next.ID), res.Next.Date)
	}
}

// withApp wraps a command body with app setup and teardown.
func withApp(o *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

// withRepo is withApp for commands that need a signed-in user.
func withRepo(o *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		return run(cmd, a, args)
	})
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "todo",
		Short: "Todo - local-first task manager",
		Long: `todo keeps your tasks in a local mirror so they stay readable and editable
offline. Changes made while the server is unreachable are queued and sent
in order once it is back.

Run without a subcommand to show tasks in your preferred view.`,
		RunE:          withRepo(opts, runDefaultView),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.todo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newPasswordCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newShowCmd(opts),
		newDoneCmd(opts),
		newStatusCmd(opts),
		newRemoveCmd(opts),
		newSubtaskCmd(opts),
		newTagsCmd(opts),
		newBoardCmd(opts),
		newCalendarCmd(opts),
		newStatsCmd(opts),
		newPomodoroCmd(opts),
		newSyncCmd(opts),
		newPrefsCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd := NewRootCmd()
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runDefaultView(cmd *cobra.Command, a *app, args []string) error {
	switch a.prefs.ViewMode {
	case "board":
		return showBoard(cmd.Context(), a, false)
	case "calendar":
		now := timeNow()
		return showCalendar(cmd.Context(), a, now.Year(), now.Month(), false)
	default:
		return showList(cmd.Context(), a, models.Filter{Status: "all"})
	}
}
