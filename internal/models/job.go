package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

// JobStatus is the lifecycle state of a posted job
type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobDraft    JobStatus = "draft"
	JobArchived JobStatus = "archived"
)

// ParseJobStatus maps backend and user spellings onto a JobStatus. Unknown
// or empty values are treated as active, which is what the backend assumes.
func ParseJobStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return JobDraft
	case "archived", "closed":
		return JobArchived
	default:
		return JobActive
	}
}

// ID is an identifier the backend may encode as either a JSON string or number
type ID string

// UnmarshalJSON accepts "abc", 42 and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids as numbers, which is what the backend's
// Long ids expect, and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Salary is either a numeric package (lakhs per annum) or a display string
// such as "₹28L - ₹35L" or "20 - 25 LPA".
type Salary string

// UnmarshalJSON accepts both numbers and strings
func (s *Salary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Salary(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Salary(n.String())
	return nil
}

// MarshalJSON emits plain numbers as JSON numbers so the backend's numeric
// packageOffered field round-trips.
func (s Salary) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(s), 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// Lakhs normalises the salary to lakhs per annum. ok is false when the
// salary is empty or carries no number.
func (s Salary) Lakhs() (v float64, ok bool) {
	return utils.ParseSalaryLakhs(string(s))
}

// JobRecord is the client's read-only cached copy of a backend job
type JobRecord struct {
	ID              int64     `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string    `json:"title" yaml:"title" validate:"required"`
	Company         string    `json:"company" yaml:"company" validate:"required"`
	CompanyLogo     string    `json:"companyLogo,omitempty" yaml:"companyLogo,omitempty"`
	Location        string    `json:"location" yaml:"location" validate:"required"`
	JobType         string    `json:"jobType" yaml:"jobType" validate:"required"`
	ExperienceLevel string    `json:"experienceLevel" yaml:"experienceLevel" validate:"required"`
	Salary          Salary    `json:"salary,omitempty" yaml:"salary,omitempty"`
	Skills          []string  `json:"skills" yaml:"skills" validate:"dive,required"`
	About           string    `json:"about,omitempty" yaml:"about,omitempty"`
	Description     string    `json:"description" yaml:"description" validate:"required"`
	ApplicantCount  int       `json:"applicantCount" yaml:"applicantCount,omitempty"`
	PostedAt        time.Time `json:"postedAt" yaml:"postedAt,omitempty"`
	Status          JobStatus `json:"status" yaml:"status,omitempty"`
}

// TalentRecord is a read-only profile summary shown in talent search
type TalentRecord struct {
	ID              int64    `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Title           string   `json:"title" yaml:"title"`
	Skills          []string `json:"skills" yaml:"skills"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Location        string   `json:"location" yaml:"location"`
	ExpectedSalary  Salary   `json:"expectedSalary" yaml:"expectedSalary"`
	ExperienceLevel string   `json:"experienceLevel" yaml:"experienceLevel"`
	AvatarURL       string   `json:"avatarUrl,omitempty" yaml:"avatar,omitempty"`
}

// SalaryRange is an inclusive range in lakhs per annum
type SalaryRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range, bounds included
func (r SalaryRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FilterSpec holds the user's search criteria. Zero values match everything.
type FilterSpec struct {
	SearchQuery string       `json:"searchQuery,omitempty" yaml:"search,omitempty"`
	Location    string       `json:"location,omitempty" yaml:"location,omitempty"`
	JobType     string       `json:"jobType,omitempty" yaml:"jobType,omitempty"`
	Experience  string       `json:"experience,omitempty" yaml:"experience,omitempty"`
	SalaryRange *SalaryRange `json:"salaryRange,omitempty" yaml:"salaryRange,omitempty"`
	Company     string       `json:"company,omitempty" yaml:"company,omitempty"`
	Skills      []string     `json:"skills,omitempty" yaml:"skills,omitempty"`
	Status      JobStatus    `json:"status,omitempty" yaml:"status,omitempty"`
}

// SortKey selects the ordering applied after filtering
type SortKey string

const (
	SortRelevance  SortKey = "relevance"
	SortMostRecent SortKey = "recent"
	SortSalaryAsc  SortKey = "salary-asc"
	SortSalaryDesc SortKey = "salary-desc"
)
