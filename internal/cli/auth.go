package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/auth"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

func parseAccountType(s string) (models.AccountType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(models.AccountApplicant):
		return models.AccountApplicant, nil
	case string(models.AccountEmployer):
		return models.AccountEmployer, nil
	default:
		return "", apperror.NewValidation(map[string]string{"accountType": "Account type must be APPLICANT or EMPLOYER."})
	}
}

func success(app *App, format string, args ...any) {
	pterm.Success.WithWriter(app.Out).Printfln(format, args...)
}

func displayName(u *models.User, fallback string) string {
	if u == nil {
		return fallback
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return fallback
}

func newLoginCommand(o *rootOptions) *cobra.Command {
	var (
		email, password string
		google          bool
		accountType     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with Google",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			var (
				resp *models.AuthResponse
				err  error
			)
			if google {
				at, perr := parseAccountType(accountType)
				if perr != nil {
					return perr
				}
				resp, err = app.Gateway.SignInWithProvider(ctx, at)
			} else {
				if email, err = app.prompt("Email", email); err != nil {
					return err
				}
				if password, err = app.prompt("Password", password); err != nil {
					return err
				}
				resp, err = app.Gateway.Login(ctx, models.LoginCredentials{Email: email, Password: password})
			}
			if err != nil {
				return err
			}
			success(app, "Signed in as %s", displayName(resp.User, email))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().BoolVar(&google, "google", false, "sign in with Google")
	cmd.Flags().StringVar(&accountType, "account-type", "APPLICANT", "account type for new Google accounts (APPLICANT or EMPLOYER)")
	return cmd
}

func newRegisterCommand(o *rootOptions) *cobra.Command {
	var creds models.RegisterCredentials
	var accountType string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			var err error
			if creds.AccountType, err = parseAccountType(accountType); err != nil {
				return err
			}
			for _, f := range []struct {
				label string
				dst   *string
			}{
				{"Name", &creds.Name},
				{"Email", &creds.Email},
				{"Password", &creds.Password},
				{"Confirm password", &creds.ConfirmPassword},
			} {
				if *f.dst, err = app.prompt(f.label, *f.dst); err != nil {
					return err
				}
			}

			resp, err := app.Gateway.Register(cmd.Context(), creds)
			if err != nil {
				return err
			}
			if app.Session.State().IsAuthenticated {
				success(app, "Account created. Signed in as %s", displayName(resp.User, creds.Email))
				return nil
			}
			msg := "Account created. Sign in with `jobluu login`."
			if resp.Message != "" {
				msg = resp.Message + " Sign in with `jobluu login`."
			}
			success(app, "%s", msg)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&creds.Name, "name", "n", "", "full name")
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&creds.ConfirmPassword, "confirm-password", "", "password again (prompted when omitted)")
	cmd.Flags().StringVar(&accountType, "account-type", "APPLICANT", "APPLICANT or EMPLOYER")
	return cmd
}

func newLogoutCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			app.Gateway.Logout(cmd.Context())
			success(app, "Signed out.")
			return nil
		}),
	}
}

func newWhoamiCommand(o *rootOptions) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: o.protected("/profile", func(cmd *cobra.Command, args []string, app *App) error {
			if offline {
				ui.PrintUser(app.Out, app.Profile.State().Profile)
				return nil
			}
			user, err := app.Gateway.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			ui.PrintUser(app.Out, user)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show the stored profile without asking the backend")
	return cmd
}

func printExpiry(app *App, token string) {
	if exp, ok := auth.TokenExpiry(token); ok {
		fmt.Fprintf(app.Out, "Session expires %s\n", humanize.Time(exp))
	}
}

func newRefreshCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new session token",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			if err := app.Gateway.RefreshToken(cmd.Context()); err != nil {
				return err
			}
			success(app, "Session refreshed.")
			printExpiry(app, app.Session.State().Token)
			return nil
		}),
	}
}

func newValidateCommand(o *rootOptions) *cobra.Command {
	var autoLogin bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the stored session is still valid",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			var (
				ok  bool
				err error
			)
			if autoLogin {
				ok, err = app.Gateway.AutoLogin(ctx)
			} else {
				ok, err = app.Gateway.ValidateToken(ctx)
			}
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewUnauthenticated("Your session is not valid. Sign in with `jobluu login`.")
			}
			success(app, "Session is valid.")
			printExpiry(app, app.Gateway.StoredToken(ctx))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&autoLogin, "auto", false, "restore the session, refreshing it when the token is no longer valid")
	return cmd
}

func newForgotPasswordCommand(o *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			var err error
			if email, err = app.prompt("Email", email); err != nil {
				return err
			}
			if err := app.Gateway.RequestPasswordReset(cmd.Context(), email); err != nil {
				return err
			}
			success(app, "If %s has an account, a reset link is on its way.", email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCommand(o *rootOptions) *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using a reset token",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			var err error
			if token, err = app.prompt("Reset token", token); err != nil {
				return err
			}
			if password, err = app.prompt("New password", password); err != nil {
				return err
			}
			if err := app.Gateway.ResetPassword(cmd.Context(), token, password); err != nil {
				return err
			}
			success(app, "Password updated. Sign in with `jobluu login`.")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "reset token from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (prompted when omitted)")
	return cmd
}
