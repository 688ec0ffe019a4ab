package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/erntsn/todo-app/config"
	"github.com/erntsn/todo-app/localstore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPrefsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			m := a.msgs()
			onOff := m.off
			if a.prefs.DarkMode {
				onOff = m.on
			}
			fmt.Fprintf(a.out, "%s: %s\n", m.darkMode, onOff)
			fmt.Fprintf(a.out, "%s: %s\n", m.language, a.prefs.Language)
			fmt.Fprintf(a.out, "%s: %s\n", m.viewMode, a.prefs.ViewMode)
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set <dark-mode|language|view> <value>",
		Short: "Change a preference",
		Long: fmt.Sprintf("Language is one of %s. View is one of %s.",
			strings.Join(localstore.Languages, ", "), strings.Join(localstore.ViewModes, ", ")),
		Example: `  todo prefs set dark-mode on
  todo prefs set language en
  todo prefs set view board`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			value := args[1]
			switch args[0] {
			case "dark-mode", "darkMode":
				on, err := parseOnOff(value)
				if err != nil {
					return err
				}
				return a.local.SetDarkMode(ctx, on)
			case "language", "lang":
				return a.local.SetLanguage(ctx, value)
			case "view", "view-mode", "viewMode":
				return a.local.SetViewMode(ctx, value)
			default:
				return fmt.Errorf("unknown preference %q (want dark-mode, language or view)", args[0])
			}
		}),
	}
	cmd.AddCommand(set)
	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("want on or off, got %q", s)
	}
	return b, nil
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the client configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(o.configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	var timeout time.Duration
	setServer := &cobra.Command{
		Use:   "set-server <url>",
		Short: "Point the client at another server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(o.configPath)
			if err != nil {
				return err
			}
			cfg.Server = strings.TrimRight(args[0], "/")
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}
			path := o.configPath
			if path == "" {
				path = filepath.Join(config.ClientDir(), "config.yaml")
			}
			if err := config.WriteClient(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server set to %s\n", cfg.Server)
			return nil
		},
	}
	setServer.Flags().DurationVar(&timeout, "timeout", 0, "request timeout, e.g. 10s")

	cmd.AddCommand(show, setServer)
	return cmd
}
