package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/erntsn/todo-app/config"
	"github.com/erntsn/todo-app/syncer"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (read from stdin when omitted)")
	cmd.MarkFlagRequired("email")
}

// readPassword takes the password from the flag, or the first line of stdin.
func (f *credentialFlags) readPassword(cmd *cobra.Command) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

func newRegisterCmd(o *rootOptions) *cobra.Command {
	var creds credentialFlags
	var name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			password, err := creds.readPassword(cmd)
			if err != nil {
				return err
			}
			user, err := a.api.Register(cmd.Context(), creds.email, password, name)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(a.out, "Registered %s. Run `todo login --email %s` to sign in.\n", user.Email, user.Email)
			return nil
		}),
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newLoginCmd(o *rootOptions) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and download your tasks",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			password, err := creds.readPassword(cmd)
			if err != nil {
				return err
			}
			res, err := a.api.Login(cmd.Context(), creds.email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			session := &config.Session{Token: res.Token, UserID: res.User.ID, Email: res.User.Email}
			if err := config.SaveSession(config.SessionPath(), session); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			a.api.SetToken(res.Token)
			repo := syncer.New(a.local, a.api, res.User.ID)
			repo.Logger = a.logger

			fr, err := repo.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("signed in, but the first sync failed: %w", err)
			}
			a.logf("login sync: sent=%d dropped=%d remaining=%d", fr.Sent, fr.Dropped, fr.Remaining)

			name := res.User.DisplayName
			if name == "" {
				name = res.User.Email
			}
			fmt.Fprintf(a.out, "Signed in as %s.\n", name)
			return nil
		}),
	}
	creds.bind(cmd)
	return cmd
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove your local data",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if n, err := a.repo.Pending(ctx); err != nil {
				return err
			} else if n > 0 {
				fr, err := a.repo.Flush(ctx)
				if err != nil && !(force && errors.Is(err, syncer.ErrSessionExpired)) {
					return err
				}
				if fr.Remaining > 0 && !force {
					return fmt.Errorf("%d change(s) could not be sent; run `todo sync` or use --force to discard them", fr.Remaining)
				}
			}

			if err := a.repo.Logout(ctx); err != nil {
				return err
			}
			if err := config.ClearSession(config.SessionPath()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard changes that were not sent yet")
	return cmd
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			user, err := a.api.Me(cmd.Context())
			if err != nil {
				// Offline: what the session file knows is enough.
				fmt.Fprintf(a.out, "%s (%s)\n", a.session.Email, a.session.UserID)
				a.logf("fetch profile: %v", err)
				return nil
			}
			fmt.Fprintf(a.out, "%s (%s)\n", user.Email, user.ID)
			if user.DisplayName != "" {
				fmt.Fprintf(a.out, "name:       %s\n", user.DisplayName)
			}
			fmt.Fprintf(a.out, "member since %s, last login %s\n",
				user.CreatedAt.Format("2006-01-02"), user.LastLogin.Format("2006-01-02 15:04"))
			return nil
		}),
	}
}

func newPasswordCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	var email string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Request a password reset token",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.api.RequestPasswordReset(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "If the address is registered, a reset token is on its way.")
			return nil
		}),
	}
	reset.Flags().StringVar(&email, "email", "", "account email")
	reset.MarkFlagRequired("email")

	var token string
	var creds credentialFlags
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password using a reset token",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(cmd *cobra.Command, a *app, args []string) error {
			password, err := creds.readPassword(cmd)
			if err != nil {
				return err
			}
			if err := a.api.ConfirmPasswordReset(cmd.Context(), token, password); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Password updated. You can now log in.")
			return nil
		}),
	}
	confirm.Flags().StringVar(&token, "token", "", "reset token")
	confirm.Flags().StringVar(&creds.password, "password", "", "new password (read from stdin when omitted)")
	confirm.MarkFlagRequired("token")

	cmd.AddCommand(reset, confirm)
	return cmd
}
