package cli

import (
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/filter"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// searchFlags are the filter criteria shared by the listing commands
type searchFlags struct {
	query      string
	location   string
	jobType    string
	experience string
	company    string
	status     string
	skills     []string
	minSalary  float64
	maxSalary  float64
	sort       string
}

func (s *searchFlags) register(cmd *cobra.Command, jobOnly bool) {
	f := cmd.Flags()
	f.StringVarP(&s.query, "search", "s", "", "match against title, company and description")
	f.StringVarP(&s.location, "location", "l", "", "location contains")
	f.StringVar(&s.experience, "experience", "", "experience level contains")
	f.StringSliceVar(&s.skills, "skills", nil, "comma separated skills; any one matches")
	f.Float64Var(&s.minSalary, "min-salary", 0, "minimum salary in lakhs per annum")
	f.Float64Var(&s.maxSalary, "max-salary", 0, "maximum salary in lakhs per annum")
	f.StringVar(&s.sort, "sort", "", "relevance, recent, salary-asc or salary-desc")
	if jobOnly {
		f.StringVarP(&s.jobType, "type", "t", "", "job type, e.g. Full-Time")
		f.StringVar(&s.company, "company", "", "company contains")
		f.StringVar(&s.status, "status", "", "active, draft or archived")
	}
}

// spec overlays the flags the user set on base
func (s *searchFlags) spec(cmd *cobra.Command, base models.FilterSpec) (models.FilterSpec, error) {
	f := cmd.Flags()
	out := base
	if f.Changed("search") {
		out.SearchQuery = s.query
	}
	if f.Changed("location") {
		out.Location = s.location
	}
	if f.Changed("type") {
		out.JobType = s.jobType
	}
	if f.Changed("experience") {
		out.Experience = s.experience
	}
	if f.Changed("company") {
		out.Company = s.company
	}
	if f.Changed("skills") {
		out.Skills = s.skills
	}
	if f.Changed("status") {
		out.Status = models.ParseJobStatus(s.status)
	}

	if f.Changed("min-salary") || f.Changed("max-salary") {
		r := models.SalaryRange{Min: s.minSalary, Max: s.maxSalary}
		if !f.Changed("max-salary") {
			r.Max = 1e9
		}
		if r.Min < 0 || r.Max < r.Min {
			return out, apperror.NewValidation(map[string]string{"salary": "Salary range must satisfy 0 <= min <= max."})
		}
		out.SalaryRange = &r
	}
	return out, nil
}

func (s *searchFlags) sortKey(fallback string) (models.SortKey, error) {
	if s.sort != "" {
		return filter.ParseSortKey(s.sort)
	}
	return filter.ParseSortKey(fallback)
}
