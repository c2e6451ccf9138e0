package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/guard"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

const guardTimeout = 30 * time.Second

// Protect runs the route guard for location. Commands behind the guard
// only run on a Render decision; a redirect becomes an error telling the
// user which command to run first.
func (a *App) Protect(ctx context.Context, location string) error {
	return a.protect(ctx, a.Guard, location)
}

// ProtectSignedIn is Protect without the profile requirement, for the
// commands that set the profile up
func (a *App) ProtectSignedIn(ctx context.Context, location string) error {
	return a.protect(ctx, a.SetupGuard, location)
}

func (a *App) protect(ctx context.Context, g *guard.Guard, location string) error {
	d := g.Evaluate(ctx, location)
	if d.Kind == guard.Loading {
		sp := ui.StartSpinner(a.Err, "Restoring your session...")
		wctx, cancel := context.WithTimeout(ctx, guardTimeout)
		var err error
		d, err = g.Await(wctx, location)
		cancel()
		sp.Stop()
		if err != nil {
			return apperror.New(apperror.Unknown, "Timed out waiting for your session to load.", err)
		}
	}
	a.Log.Debug("guard decision", a.Log.Args("location", location, "decision", d.Kind.String(), "to", d.To))

	switch d.Kind {
	case guard.Render:
		return nil
	case guard.Redirect:
		return a.redirectError(d)
	default:
		return apperror.New(apperror.Unknown, "Your session is still loading. Try again.", nil)
	}
}

func (a *App) redirectError(d guard.Decision) error {
	setup := a.Config.Guard.ProfileSetupRoute
	if setup == "" {
		setup = guard.DefaultProfileSetupRoute
	}
	if d.To == setup {
		return apperror.NewUnauthenticated("Complete your profile first: run `jobluu profile update`.")
	}
	return apperror.NewUnauthenticated(fmt.Sprintf("Sign in to open %s: run `jobluu login`.", d.From))
}

func (a *App) reader() *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	return a.in
}

// prompt asks for a value on stderr and reads one line from stdin. It
// returns current unchanged when that is already set.
func (a *App) prompt(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(a.Err, "%s: ", label)
	line, err := a.reader().ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", apperror.NewValidation(map[string]string{strings.ToLower(label): label + " is required."})
	}
	return line, nil
}
