// Package cli implements the jobluu command line
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

// rootOptions carries the global flags and the App built from them
type rootOptions struct {
	configPath string
	debug      bool
	silence    bool
	noBanner   bool

	app *App
}

// NewRootCommand builds the jobluu command tree
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "jobluu",
		Short:         "Find jobs and talent on the Jobluu job board",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintBanner(cmd.ErrOrStderr(), opts.silence || opts.noBanner || cmd.Name() == "examples")
			return nil
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.silence, "silence", false, "silence the banner")
	cmd.PersistentFlags().BoolVar(&opts.noBanner, "nobanner", false, "silence the banner (alias for --silence)")

	cmd.AddCommand(
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newRefreshCommand(opts),
		newValidateCommand(opts),
		newForgotPasswordCommand(opts),
		newResetPasswordCommand(opts),
		newJobsCommand(opts),
		newTalentCommand(opts),
		newProfileCommand(opts),
		newNotificationsCommand(opts),
		newWatchCommand(opts),
		newExamplesCommand(),
	)
	return cmd
}

// App builds the App on first use
func (o *rootOptions) App(cmd *cobra.Command) (*App, error) {
	if o.app != nil {
		return o.app, nil
	}
	app, err := newApp(cmd.Context(), appOptions{
		configPath: o.configPath,
		debug:      o.debug,
		in:         cmd.InOrStdin(),
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	o.app = app
	return app, nil
}

// ready returns the App once persisted state has been restored
func (o *rootOptions) ready(cmd *cobra.Command) (*App, error) {
	app, err := o.App(cmd)
	if err != nil {
		return nil, err
	}
	if err := app.WaitHydrated(cmd.Context()); err != nil {
		return nil, err
	}
	return app, nil
}

func (o *rootOptions) close() {
	if o.app != nil {
		o.app.Close()
		o.app = nil
	}
}

type runFunc func(cmd *cobra.Command, args []string, app *App) error

// run adapts fn to cobra. The App is hydrated before fn runs and closed
// after it returns.
func (o *rootOptions) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer o.close()
		app, err := o.ready(cmd)
		if err != nil {
			return err
		}
		return fn(cmd, args, app)
	}
}

// protected is run for commands behind the route guard. location names
// the view the command stands for.
func (o *rootOptions) protected(location string, fn runFunc) func(*cobra.Command, []string) error {
	return o.run(func(cmd *cobra.Command, args []string, app *App) error {
		if err := app.Protect(cmd.Context(), location); err != nil {
			return err
		}
		return fn(cmd, args, app)
	})
}

// signedIn is like protected but does not require a profile
func (o *rootOptions) signedIn(location string, fn runFunc) func(*cobra.Command, []string) error {
	return o.run(func(cmd *cobra.Command, args []string, app *App) error {
		if err := app.ProtectSignedIn(cmd.Context(), location); err != nil {
			return err
		}
		return fn(cmd, args, app)
	})
}

// Execute runs the command tree with ctx
func Execute(ctx context.Context, cmd *cobra.Command) error {
	return cmd.ExecuteContext(ctx)
}
