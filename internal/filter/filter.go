// Package filter narrows and orders already-fetched job and talent lists.
// Everything here is a pure function of its arguments.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

// view is the part of a record the filters look at
type view struct {
	text       []string
	location   string
	jobType    string
	experience string
	company    string
	skills     []string
	salary     models.Salary
	postedAt   time.Time
	status     models.JobStatus
}

func jobView(j models.JobRecord) view {
	return view{
		text:       []string{j.Title, j.Company, utils.PlainText(j.Description)},
		location:   j.Location,
		jobType:    j.JobType,
		experience: j.ExperienceLevel,
		company:    j.Company,
		skills:     j.Skills,
		salary:     j.Salary,
		postedAt:   j.PostedAt,
		status:     j.Status,
	}
}

func talentView(t models.TalentRecord) view {
	return view{
		text:       []string{t.Name, t.Title, utils.PlainText(t.Description)},
		location:   t.Location,
		experience: t.ExperienceLevel,
		skills:     t.Skills,
		salary:     t.ExpectedSalary,
	}
}

// Jobs returns the jobs matching spec, ordered by key. The input slice is
// not modified.
func Jobs(records []models.JobRecord, spec models.FilterSpec, key models.SortKey) []models.JobRecord {
	return apply(records, jobView, spec, key)
}

// Talent returns the talent profiles matching spec, ordered by key. Job
// type, company and status criteria do not apply to talent and are
// ignored; most-recent ordering keeps input order.
func Talent(records []models.TalentRecord, spec models.FilterSpec, key models.SortKey) []models.TalentRecord {
	spec.JobType, spec.Company, spec.Status = "", "", ""
	return apply(records, talentView, spec, key)
}

type entry[T any] struct {
	item T
	v    view
}

func apply[T any](records []T, toView func(T) view, spec models.FilterSpec, key models.SortKey) []T {
	c := compile(spec)

	kept := make([]entry[T], 0, len(records))
	for _, r := range records {
		v := toView(r)
		if c.match(v) {
			kept = append(kept, entry[T]{item: r, v: v})
		}
	}

	switch key {
	case models.SortMostRecent:
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].v.postedAt.After(kept[j].v.postedAt)
		})
	case models.SortSalaryAsc, models.SortSalaryDesc:
		desc := key == models.SortSalaryDesc
		sort.SliceStable(kept, func(i, j int) bool {
			a, aok := kept[i].v.salary.Lakhs()
			b, bok := kept[j].v.salary.Lakhs()
			switch {
			case !aok || !bok:
				// unknown salaries sink to the end in both directions
				return aok && !bok
			case desc:
				return a > b
			default:
				return a < b
			}
		})
	}

	out := make([]T, len(kept))
	for i, e := range kept {
		out[i] = e.item
	}
	return out
}

type compiled struct {
	query      string
	location   string
	jobType    string
	experience string
	company    string
	skills     []string
	salary     *models.SalaryRange
	status     models.JobStatus
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func compile(spec models.FilterSpec) compiled {
	c := compiled{
		query:      norm(spec.SearchQuery),
		location:   norm(spec.Location),
		jobType:    norm(spec.JobType),
		experience: norm(spec.Experience),
		company:    norm(spec.Company),
		salary:     spec.SalaryRange,
	}
	if spec.Status != "" {
		c.status = models.ParseJobStatus(string(spec.Status))
	}
	for _, s := range spec.Skills {
		if s = norm(s); s != "" {
			c.skills = append(c.skills, s)
		}
	}
	return c
}

// contains is a case-insensitive substring test where an empty needle
// matches anything. needle is already normalised.
func contains(field, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(field), needle)
}

func (c compiled) match(v view) bool {
	if c.query != "" && !c.matchText(v) {
		return false
	}
	if !contains(v.location, c.location) ||
		!contains(v.jobType, c.jobType) ||
		!contains(v.experience, c.experience) ||
		!contains(v.company, c.company) {
		return false
	}
	if c.salary != nil {
		lakhs, ok := v.salary.Lakhs()
		if !ok || !c.salary.Contains(lakhs) {
			return false
		}
	}
	if len(c.skills) > 0 && !c.matchSkills(v.skills) {
		return false
	}
	if c.status != "" && models.ParseJobStatus(string(v.status)) != c.status {
		return false
	}
	return true
}

func (c compiled) matchText(v view) bool {
	for _, t := range v.text {
		if contains(t, c.query) {
			return true
		}
	}
	for _, s := range v.skills {
		if contains(s, c.query) {
			return true
		}
	}
	return false
}

// matchSkills is true when any record skill contains any requested skill
func (c compiled) matchSkills(skills []string) bool {
	for _, have := range skills {
		for _, want := range c.skills {
			if contains(have, want) {
				return true
			}
		}
	}
	return false
}

// ParseSortKey maps user input onto a SortKey. Empty input is relevance.
func ParseSortKey(s string) (models.SortKey, error) {
	switch norm(s) {
	case "", "relevance", "relevant":
		return models.SortRelevance, nil
	case "recent", "most-recent", "most_recent", "newest", "date":
		return models.SortMostRecent, nil
	case "salary-asc", "salary_asc", "salary-low", "salary (low to high)":
		return models.SortSalaryAsc, nil
	case "salary-desc", "salary_desc", "salary-high", "salary (high to low)":
		return models.SortSalaryDesc, nil
	default:
		return "", apperror.NewValidation(map[string]string{
			"sort": "Sort must be one of relevance, recent, salary-asc, salary-desc.",
		})
	}
}
