package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/jobs"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

type staticToken string

func (s staticToken) StoredToken(context.Context) string { return string(s) }

// backend is a tiny in-memory jobs API
type backend struct {
	mu     sync.Mutex
	jobs   []map[string]any
	nextID int64
	auth   []string
	posts  int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/getAll", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, b.jobs)
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, j := range b.jobs {
			if strconv.FormatInt(j["id"].(int64), 10) == r.PathValue("id") {
				writeJSON(w, http.StatusOK, j)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"errorMessage": "Job not found"})
	})
	mux.HandleFunc("POST /jobs/post", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.posts++
		if in["jobTitle"] == "Reject Me" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errorMessage": "jobTitle rejected"})
			return
		}
		b.nextID++
		in["id"] = b.nextID
		in["postTime"] = "2026-10-01T09:30:00"
		b.jobs = append(b.jobs, in)
		writeJSON(w, http.StatusCreated, in)
	})
	mux.HandleFunc("PUT /jobs/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, in)
	})
	mux.HandleFunc("DELETE /jobs/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			writeJSON(w, http.StatusNotFound, map[string]any{"errorMessage": "Job not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newService(t *testing.T, b *backend) *jobs.Service {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return jobs.NewService(client.NewAPI(srv.URL, srv.Client(), nil), staticToken("tok"), nil)
}

func validJob(title string) models.JobRecord {
	return models.JobRecord{
		Title:           title,
		Company:         "Razorpay",
		Location:        "Bengaluru",
		JobType:         "Full-Time",
		ExperienceLevel: "Intermediate",
		Salary:          "18 LPA",
		Skills:          []string{"Go"},
		Description:     "<p>Payments</p>",
	}
}

var ctx = context.Background()

// ── Mapping ─────────────────────────────────────────────────────────────────

func TestGetAllMapsBackendFields(t *testing.T) {
	b := &backend{jobs: []map[string]any{{
		"id":             int64(3),
		"jobTitle":       "SRE",
		"company":        "Zerodha",
		"companyLogo":    "zerodha.png",
		"exprience":      "Expert",
		"jobType":        "Full-Time",
		"location":       "Bengaluru",
		"packageOffered": 32,
		"postTime":       []int{2026, 9, 14, 8, 0, 0, 0},
		"description":    "Keep it up",
		"skillsRequired": []string{"Linux", "Go"},
		"applicant":      []map[string]any{{"applicantId": 1}, {"applicantId": 2}},
		"jobStatus":      "CLOSED",
	}, {
		"id":       int64(4),
		"jobTitle": "Intern",
		"postTime": "2026-09-15T10:11:12.123456",
	}}}
	svc := newService(t, b)

	got, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d jobs", len(got))
	}

	j := got[0]
	if j.ID != 3 || j.Title != "SRE" || j.ExperienceLevel != "Expert" || j.CompanyLogo != "zerodha.png" {
		t.Errorf("fields = %+v", j)
	}
	if j.Salary != "32" || j.ApplicantCount != 2 || j.Status != models.JobArchived {
		t.Errorf("salary/applicants/status = %q %d %q", j.Salary, j.ApplicantCount, j.Status)
	}
	if want := time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC); !j.PostedAt.Equal(want) {
		t.Errorf("postedAt = %v", j.PostedAt)
	}

	if got[1].Status != models.JobActive || got[1].Skills == nil {
		t.Errorf("defaults = %+v", got[1])
	}
	if got[1].PostedAt.Day() != 15 || got[1].PostedAt.Second() != 12 {
		t.Errorf("string postTime = %v", got[1].PostedAt)
	}
	if b.auth[0] != "Bearer tok" {
		t.Errorf("authorization = %q", b.auth[0])
	}
}

func TestGetByID(t *testing.T) {
	b := &backend{jobs: []map[string]any{{"id": int64(9), "jobTitle": "Analyst"}}}
	svc := newService(t, b)

	j, err := svc.GetByID(ctx, 9)
	if err != nil || j.Title != "Analyst" {
		t.Fatalf("GetByID = %+v, %v", j, err)
	}

	_, err = svc.GetByID(ctx, 10)
	if !apperror.IsRequest(err) || apperror.Message(err) != "Job not found" || apperror.StatusOf(err) != http.StatusNotFound {
		t.Errorf("missing job err = %v", err)
	}
}

// ── Writes ──────────────────────────────────────────────────────────────────

func TestPostSendsBackendShape(t *testing.T) {
	b := &backend{}
	svc := newService(t, b)

	created, err := svc.Post(ctx, validJob("Backend Engineer"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if created.ID != 1 || created.Title != "Backend Engineer" || created.PostedAt.IsZero() {
		t.Errorf("created = %+v", created)
	}
	sent := b.jobs[0]
	if sent["exprience"] != "Intermediate" || sent["packageOffered"] != float64(18) || sent["jobStatus"] != "ACTIVE" {
		t.Errorf("sent = %v", sent)
	}
}

func TestPostRejectsInvalidJobLocally(t *testing.T) {
	b := &backend{}
	svc := newService(t, b)

	job := validJob("")
	job.Skills = []string{"Go", ""}
	_, err := svc.Post(ctx, job)
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	ae, _ := apperror.FromError(err)
	if _, ok := ae.Fields["title"]; !ok {
		t.Errorf("fields = %v", ae.Fields)
	}
	if _, ok := ae.Fields["skills[1]"]; !ok {
		t.Errorf("fields = %v", ae.Fields)
	}
	if b.posts != 0 {
		t.Errorf("request sent for invalid job")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t, &backend{})

	job := validJob("Staff Engineer")
	job.Status = models.JobDraft
	updated, err := svc.Update(ctx, 7, job)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != 7 || updated.Status != models.JobDraft {
		t.Errorf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, 7); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, 8); !apperror.IsRequest(err) {
		t.Errorf("Delete missing = %v", err)
	}
}

// ── Import ──────────────────────────────────────────────────────────────────

func TestImportDeduplicatesAndCollectsFailures(t *testing.T) {
	b := &backend{nextID: 100, jobs: []map[string]any{{"id": int64(1), "jobTitle": "Backend Engineer", "company": "Razorpay"}}}
	svc := newService(t, b)

	dup := validJob("backend  engineer")
	dup.Company = "RazorPay."
	invalid := validJob("Broken")
	invalid.Location = ""
	records := []models.JobRecord{
		validJob("Data Engineer"),
		dup,
		validJob("Data-Engineer"),
		invalid,
		validJob("Reject Me"),
		validJob("Platform Engineer"),
	}

	var progress strings.Builder
	res, err := svc.Import(ctx, records, jobs.ImportOptions{Progress: &progress, Workers: 2})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Posted) != 2 || len(res.Duplicates) != 2 || len(res.Failed) != 2 {
		t.Fatalf("posted %d, duplicates %d, failed %d", len(res.Posted), len(res.Duplicates), len(res.Failed))
	}
	if res.Posted[0].Title != "Data Engineer" || res.Posted[1].Title != "Platform Engineer" {
		t.Errorf("posted order = %q, %q", res.Posted[0].Title, res.Posted[1].Title)
	}
	for _, f := range res.Failed {
		switch f.Index {
		case 3:
			if !apperror.IsValidation(f.Err) {
				t.Errorf("invalid record err = %v", f.Err)
			}
		case 4:
			if apperror.Message(f.Err) != "jobTitle rejected" {
				t.Errorf("rejected record err = %v", f.Err)
			}
		default:
			t.Errorf("unexpected failure %+v", f)
		}
	}
	if b.posts != 3 {
		t.Errorf("backend saw %d posts", b.posts)
	}
}

func TestImportDryRunPostsNothing(t *testing.T) {
	b := &backend{}
	svc := newService(t, b)

	res, err := svc.Import(ctx, []models.JobRecord{validJob("A"), validJob("B")}, jobs.ImportOptions{DryRun: true})
	if err != nil || len(res.Posted) != 2 {
		t.Fatalf("Import = %+v, %v", res, err)
	}
	if b.posts != 0 {
		t.Errorf("dry run posted %d", b.posts)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "jobs.yaml")
	_ = os.WriteFile(yamlPath, []byte(`jobs:
  - title: Backend Engineer
    company: Razorpay
    location: Bengaluru
    jobType: Full-Time
    experienceLevel: Intermediate
    salary: 22
    skills: [Go, Kafka]
    description: Payments
`), 0o600)
	jsonPath := filepath.Join(dir, "jobs.json")
	_ = os.WriteFile(jsonPath, []byte(`[{"title":"SRE","company":"Zoho","salary":"20 - 25 LPA","skills":["Linux"]}]`), 0o600)

	got, err := jobs.LoadFile(yamlPath)
	if err != nil || len(got) != 1 {
		t.Fatalf("yaml = %+v, %v", got, err)
	}
	if got[0].Salary != "22" || len(got[0].Skills) != 2 {
		t.Errorf("yaml record = %+v", got[0])
	}

	got, err = jobs.LoadFile(jsonPath)
	if err != nil || len(got) != 1 {
		t.Fatalf("json = %+v, %v", got, err)
	}
	if v, ok := got[0].Salary.Lakhs(); !ok || v != 20 {
		t.Errorf("json salary = %v, %v", v, ok)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"jobs": "nope"}`), 0o600)
	if _, err := jobs.LoadFile(bad); !apperror.IsValidation(err) {
		t.Errorf("bad file err = %v", err)
	}
}
