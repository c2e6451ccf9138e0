package cli

import (
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

func currentUserID(app *App) (models.ID, error) {
	u := app.Profile.State().Profile
	if u == nil || u.ID == "" {
		return "", apperror.NewUnauthenticated("No user profile loaded. Run `jobluu whoami` to fetch it.")
	}
	return u.ID, nil
}

func newProfileCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit talent profiles",
	}
	cmd.AddCommand(newProfileShowCommand(o), newProfileUpdateCommand(o))
	return cmd
}

func newProfileShowCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a profile, yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: o.protected("/profile", func(cmd *cobra.Command, args []string, app *App) error {
			var id models.ID
			if len(args) == 1 {
				id = models.ID(args[0])
			} else {
				var err error
				if id, err = currentUserID(app); err != nil {
					return err
				}
			}
			p, err := app.Profiles.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			ui.PrintProfile(app.Out, p)
			return nil
		}),
	}
}

func newProfileUpdateCommand(o *rootOptions) *cobra.Command {
	var (
		p      models.Profile
		skills []string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		Args:  cobra.NoArgs,
		RunE: o.signedIn("/profile-setup", func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			u := app.Profile.State().Profile
			if u == nil || u.ID == "" {
				// the setup flow can run before the profile was ever fetched
				var err error
				if u, err = app.Gateway.CurrentUser(ctx); err != nil {
					return err
				}
			}

			current, err := app.Profiles.Get(ctx, u.ID)
			if err != nil {
				if apperror.StatusOf(err) != 404 {
					return err
				}
				current = &models.Profile{ID: u.ID, Name: u.Name, Email: u.Email}
			}

			next := *current
			f := cmd.Flags()
			for name, pair := range map[string][2]*string{
				"name":       {&next.Name, &p.Name},
				"title":      {&next.Title, &p.Title},
				"location":   {&next.Location, &p.Location},
				"experience": {&next.Experience, &p.Experience},
				"phone":      {&next.Phone, &p.Phone},
				"about":      {&next.About, &p.About},
			} {
				if f.Changed(name) {
					*pair[0] = *pair[1]
				}
			}
			if f.Changed("skills") {
				next.Skills = skills
			}

			updated, err := app.Profiles.Update(ctx, next)
			if err != nil {
				return err
			}
			success(app, "Profile updated.")
			ui.PrintProfile(app.Out, updated)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "display name")
	f.StringVar(&p.Title, "title", "", "headline, e.g. Senior Go Engineer")
	f.StringVar(&p.Location, "location", "", "city and country")
	f.StringVar(&p.Experience, "experience", "", "experience level")
	f.StringVar(&p.Phone, "phone", "", "contact number")
	f.StringVar(&p.About, "about", "", "short bio")
	f.StringSliceVar(&skills, "skills", nil, "comma separated skills")
	return cmd
}

func newNotificationsCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List your unread notifications",
		Args:  cobra.NoArgs,
		RunE: o.protected("/notifications", func(cmd *cobra.Command, args []string, app *App) error {
			id, err := currentUserID(app)
			if err != nil {
				return err
			}
			items, err := app.Profiles.Notifications(cmd.Context(), id)
			if err != nil {
				return err
			}
			ui.PrintNotifications(app.Out, items)
			return nil
		}),
	}
}
