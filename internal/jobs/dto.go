package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// jobDTO is the backend's wire shape for a job. exprience is spelled the
// way the backend spells it.
type jobDTO struct {
	ID             int64             `json:"id,omitempty"`
	JobTitle       string            `json:"jobTitle"`
	Company        string            `json:"company"`
	CompanyLogo    string            `json:"companyLogo,omitempty"`
	Applicant      []json.RawMessage `json:"applicant,omitempty"`
	About          string            `json:"about,omitempty"`
	Exprience      string            `json:"exprience"`
	JobType        string            `json:"jobType"`
	Location       string            `json:"location"`
	PackageOffered models.Salary     `json:"packageOffered,omitempty"`
	PostTime       postTime          `json:"postTime,omitempty"`
	Description    string            `json:"description"`
	SkillsRequired []string          `json:"skillsRequired"`
	JobStatus      string            `json:"jobStatus,omitempty"`
}

// postTime is a zone-less LocalDateTime. The backend may send it as an
// ISO string or as a [y, m, d, h, min, s, nanos] array.
type postTime struct {
	time.Time
}

var postTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *postTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.Time = time.Time{}
		return nil
	}

	if data[0] == '[' {
		var parts []int
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("postTime: %w", err)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		if parts[1] == 0 {
			parts[1] = 1
		}
		if parts[2] == 0 {
			parts[2] = 1
		}
		p.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.UTC)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("postTime: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		p.Time = time.Time{}
		return nil
	}
	for _, layout := range postTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			p.Time = t
			return nil
		}
	}
	return fmt.Errorf("postTime: unrecognised time %q", s)
}

func (p postTime) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(p.UTC().Format("2006-01-02T15:04:05"))
}

func (p postTime) IsZero() bool { return p.Time.IsZero() }

func toRecord(d jobDTO) models.JobRecord {
	skills := d.SkillsRequired
	if skills == nil {
		skills = []string{}
	}
	return models.JobRecord{
		ID:              d.ID,
		Title:           d.JobTitle,
		Company:         d.Company,
		CompanyLogo:     d.CompanyLogo,
		Location:        d.Location,
		JobType:         d.JobType,
		ExperienceLevel: d.Exprience,
		Salary:          d.PackageOffered,
		Skills:          skills,
		About:           d.About,
		Description:     d.Description,
		ApplicantCount:  len(d.Applicant),
		PostedAt:        d.PostTime.Time,
		Status:          models.ParseJobStatus(d.JobStatus),
	}
}

// backendStatus is the backend's enum spelling of a JobStatus
func backendStatus(s models.JobStatus) string {
	switch models.ParseJobStatus(string(s)) {
	case models.JobDraft:
		return "DRAFT"
	case models.JobArchived:
		return "CLOSED"
	default:
		return "ACTIVE"
	}
}

func toDTO(r models.JobRecord) jobDTO {
	// packageOffered is numeric on the backend, so display strings such as
	// "15 LPA" are sent as their lakhs value
	salary := r.Salary
	if v, ok := r.Salary.Lakhs(); ok {
		salary = models.Salary(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return jobDTO{
		ID:             r.ID,
		JobTitle:       r.Title,
		Company:        r.Company,
		CompanyLogo:    r.CompanyLogo,
		About:          r.About,
		Exprience:      r.ExperienceLevel,
		JobType:        r.JobType,
		Location:       r.Location,
		PackageOffered: salary,
		PostTime:       postTime{r.PostedAt},
		Description:    r.Description,
		SkillsRequired: r.Skills,
		JobStatus:      backendStatus(r.Status),
	}
}
