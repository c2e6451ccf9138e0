package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/filter"
	"github.com/fr4nk3nst1ner/jobluu/internal/jobs"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

func newJobsCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse and manage job postings",
	}
	cmd.AddCommand(
		newJobsListCommand(o),
		newJobsShowCommand(o),
		newJobsPostCommand(o),
		newJobsUpdateCommand(o),
		newJobsDeleteCommand(o),
		newJobsImportCommand(o),
	)
	return cmd
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidation(map[string]string{"id": fmt.Sprintf("%q is not a job id.", s)})
	}
	return id, nil
}

func newJobsListCommand(o *rootOptions) *cobra.Command {
	var (
		search searchFlags
		table  bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs matching a search",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			spec, err := search.spec(cmd, models.FilterSpec{})
			if err != nil {
				return err
			}
			key, err := search.sortKey("")
			if err != nil {
				return err
			}

			sp := ui.StartSpinner(app.Err, "Fetching jobs...")
			all, err := app.Jobs.GetAll(cmd.Context())
			sp.Stop()
			if err != nil {
				return err
			}

			found := filter.Jobs(all, spec, key)
			app.Log.Debug("jobs filtered", app.Log.Args("total", len(all), "matched", len(found), "sort", string(key)))
			if limit > 0 && len(found) > limit {
				found = found[:limit]
			}
			ui.PrintJobs(app.Out, found, table)
			return nil
		}),
	}

	search.register(cmd, true)
	cmd.Flags().BoolVar(&table, "table", false, "compact table output")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n jobs")
	return cmd
}

func newJobsShowCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(cmd *cobra.Command, args []string, app *App) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			job, err := app.Jobs.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			ui.PrintJob(app.Out, job)
			return nil
		}),
	}
}

// jobFlags fill a JobRecord from the command line
type jobFlags struct {
	file string
	job  models.JobRecord
	sal  string
	stat string
}

func (j *jobFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&j.file, "file", "f", "", "read the job from a YAML or JSON file")
	f.StringVar(&j.job.Title, "title", "", "job title")
	f.StringVar(&j.job.Company, "company", "", "company name")
	f.StringVar(&j.job.CompanyLogo, "logo", "", "company logo URL")
	f.StringVar(&j.job.Location, "location", "", "job location")
	f.StringVar(&j.job.JobType, "type", "", "job type, e.g. Full-Time")
	f.StringVar(&j.job.ExperienceLevel, "experience", "", "experience level")
	f.StringVar(&j.sal, "salary", "", "package offered, e.g. 18 or \"18 LPA\"")
	f.StringSliceVar(&j.job.Skills, "skills", nil, "comma separated skills")
	f.StringVar(&j.job.About, "about", "", "short summary")
	f.StringVar(&j.job.Description, "description", "", "full description (HTML allowed)")
	f.StringVar(&j.stat, "status", "", "active, draft or archived")
}

// record builds the job to send. With --file the first job in the file is
// the base and any flags override it.
func (j *jobFlags) record(cmd *cobra.Command, base models.JobRecord) (models.JobRecord, error) {
	out := base
	if j.file != "" {
		loaded, err := jobs.LoadFile(j.file)
		if err != nil {
			return out, err
		}
		if len(loaded) == 0 {
			return out, apperror.NewValidation(map[string]string{"file": "The file holds no jobs."})
		}
		out = loaded[0]
	}

	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("title", &out.Title, j.job.Title)
	set("company", &out.Company, j.job.Company)
	set("logo", &out.CompanyLogo, j.job.CompanyLogo)
	set("location", &out.Location, j.job.Location)
	set("type", &out.JobType, j.job.JobType)
	set("experience", &out.ExperienceLevel, j.job.ExperienceLevel)
	set("about", &out.About, j.job.About)
	set("description", &out.Description, j.job.Description)
	if f.Changed("salary") {
		out.Salary = models.Salary(j.sal)
	}
	if f.Changed("skills") {
		out.Skills = j.job.Skills
	}
	if f.Changed("status") {
		out.Status = models.ParseJobStatus(j.stat)
	}
	return out, nil
}

func newJobsPostCommand(o *rootOptions) *cobra.Command {
	var jf jobFlags

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a new job",
		Args:  cobra.NoArgs,
		RunE: o.protected("/post-job", func(cmd *cobra.Command, args []string, app *App) error {
			job, err := jf.record(cmd, models.JobRecord{Status: models.JobActive})
			if err != nil {
				return err
			}
			posted, err := app.Jobs.Post(cmd.Context(), job)
			if err != nil {
				return err
			}
			success(app, "Posted job %d: %s at %s", posted.ID, posted.Title, posted.Company)
			return nil
		}),
	}
	jf.register(cmd)
	return cmd
}

func newJobsUpdateCommand(o *rootOptions) *cobra.Command {
	var jf jobFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a job you posted",
		Args:  cobra.ExactArgs(1),
		RunE: o.protected("/posted-jobs", func(cmd *cobra.Command, args []string, app *App) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			current, err := app.Jobs.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			job, err := jf.record(cmd, current)
			if err != nil {
				return err
			}
			updated, err := app.Jobs.Update(cmd.Context(), id, job)
			if err != nil {
				return err
			}
			success(app, "Updated job %d: %s", id, updated.Title)
			return nil
		}),
	}
	jf.register(cmd)
	return cmd
}

func newJobsDeleteCommand(o *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job you posted",
		Args:  cobra.ExactArgs(1),
		RunE: o.protected("/posted-jobs", func(cmd *cobra.Command, args []string, app *App) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				answer, err := app.prompt(fmt.Sprintf("Delete job %d? Type yes to confirm", id), "")
				if err != nil || answer != "yes" {
					pterm.Info.WithWriter(app.Out).Println("Nothing deleted.")
					return nil
				}
			}
			if err := app.Jobs.Delete(cmd.Context(), id); err != nil {
				return err
			}
			success(app, "Deleted job %d.", id)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newJobsImportCommand(o *rootOptions) *cobra.Command {
	var (
		dryRun  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Post every job in a YAML or JSON file, skipping ones already on the board",
		Args:  cobra.ExactArgs(1),
		RunE: o.protected("/post-job", func(cmd *cobra.Command, args []string, app *App) error {
			records, err := jobs.LoadFile(args[0])
			if err != nil {
				return err
			}
			app.Log.Info("importing jobs", app.Log.Args("file", args[0], "count", len(records), "dryRun", dryRun))

			res, err := app.Jobs.Import(cmd.Context(), records, jobs.ImportOptions{
				Progress: app.Err,
				Workers:  workers,
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}

			verb := "Posted"
			if dryRun {
				verb = "Would post"
			}
			fmt.Fprintf(app.Out, "%s %d, skipped %d duplicates, %d failed\n", verb, len(res.Posted), len(res.Duplicates), len(res.Failed))
			for _, d := range res.Duplicates {
				fmt.Fprintf(app.Out, "  %s %s at %s\n", pterm.Gray("duplicate"), d.Title, d.Company)
			}
			for _, f := range res.Failed {
				fmt.Fprintf(app.Out, "  %s #%d %s: %s\n", pterm.Red("failed"), f.Index+1, f.Title, apperror.Message(f.Err))
			}
			if len(res.Failed) > 0 {
				return apperror.New(apperror.Request, fmt.Sprintf("%d of %d jobs could not be posted.", len(res.Failed), len(records)), nil)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and deduplicate without posting")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent posts")
	return cmd
}
