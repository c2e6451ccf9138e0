package cli

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/notify"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
	"github.com/fr4nk3nst1ner/jobluu/internal/watch"
)

func newWatchCommand(o *rootOptions) *cobra.Command {
	var (
		search     searchFlags
		schedule   string
		table      bool
		testNotify bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the board on a schedule and print new jobs matching your saved search",
		Long: `Poll the board on a schedule and print new jobs matching your saved search.

The search comes from the watch section of the config file. Flags override it.
The session token is refreshed before it expires. When watch.telegram is
configured new jobs are also sent to that chat. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: o.protected("/find-jobs", func(cmd *cobra.Command, args []string, app *App) error {
			spec, err := search.spec(cmd, app.Config.Watch.Search)
			if err != nil {
				return err
			}
			key, err := search.sortKey(app.Config.Watch.Sort)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("schedule") {
				schedule = app.Config.Watch.Schedule
			}

			ctx := cmd.Context()
			var tg *notify.Telegram
			if t := app.Config.Watch.Telegram; t.Enabled() {
				tg = notify.NewTelegram(t.BotToken, t.ChatID, client.CreateHTTPClient(app.Config.HTTP.Proxy, app.Config.HTTP.Timeout), app.Log)
			}
			if testNotify {
				if tg == nil {
					return apperror.NewConfig("telegram alerts are not configured: set watch.telegram.bot_token and chat_id", nil)
				}
				if err := tg.SendTest(ctx); err != nil {
					return apperror.New(apperror.Transport, "Could not reach Telegram.", err)
				}
				success(app, "Test alert sent.")
				return nil
			}

			out := app.Out
			w, err := watch.New(watch.Options{
				Jobs:      app.Jobs,
				Session:   app.Session,
				Refresher: app.Gateway,
				Schedule:  schedule,
				Search:    spec,
				Sort:      key,
				Log:       app.Log,
				OnNew: func(found []models.JobRecord) {
					fmt.Fprintf(out, "\n%s %d new jobs\n", pterm.Gray(time.Now().Format("15:04:05")), len(found))
					ui.PrintJobs(out, found, table)
					if tg != nil {
						if err := tg.Jobs(ctx, found); err != nil {
							app.Log.Warn("telegram alert failed", app.Log.Args("error", err))
						}
					}
				},
			})
			if err != nil {
				return err
			}

			if err := w.Start(ctx); err != nil {
				return err
			}
			pterm.Info.WithWriter(app.Err).Printfln("Watching for new jobs (%s). Press Ctrl-C to stop.", schedule)
			<-ctx.Done()
			w.Stop()
			return nil
		}),
	}

	search.register(cmd, true)
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule, e.g. \"@every 10m\" or \"0 9 * * 1-5\"")
	cmd.Flags().BoolVar(&table, "table", false, "compact table output")
	cmd.Flags().BoolVar(&testNotify, "test-notify", false, "send a test Telegram alert and exit")
	return cmd
}
