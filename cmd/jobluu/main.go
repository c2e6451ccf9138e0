package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cli.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)); err != nil {
		msg := apperror.Message(err)
		if apperror.IsConfig(err) {
			// config problems are only actionable with their cause
			msg = err.Error()
		}
		pterm.Error.WithWriter(os.Stderr).Println(msg)
		stop()
		os.Exit(1)
	}
}
