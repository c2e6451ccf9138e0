// Package jobs reads and writes job postings on the backend and maps them
// onto models.JobRecord.
package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/validation"
)

const (
	pathGetAll = "/jobs/getAll"
	pathJob    = "/jobs/%d"
	pathPost   = "/jobs/post"
	pathUpdate = "/jobs/update/%d"
	pathDelete = "/jobs/delete/%d"
)

// TokenSource supplies the bearer token for requests. *auth.Gateway
// implements it.
type TokenSource interface {
	StoredToken(ctx context.Context) string
}

// Service talks to the jobs endpoints
type Service struct {
	api    *client.API
	tokens TokenSource
	log    *pterm.Logger
}

// NewService returns a Service. tokens and log may be nil.
func NewService(api *client.API, tokens TokenSource, log *pterm.Logger) *Service {
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Service{api: api, tokens: tokens, log: log}
}

func (s *Service) token(ctx context.Context) string {
	if s.tokens == nil {
		return ""
	}
	return s.tokens.StoredToken(ctx)
}

func (s *Service) do(ctx context.Context, method, path string, body any, fallback string) (*client.Response, error) {
	resp, err := s.api.Do(ctx, method, path, s.token(ctx), body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.log.Warn("jobs request rejected", s.log.Args("method", method, "path", path, "status", resp.Status))
		return nil, client.RequestError(resp, fallback)
	}
	return resp, nil
}

// GetAll returns every job the backend knows about
func (s *Service) GetAll(ctx context.Context) ([]models.JobRecord, error) {
	resp, err := s.do(ctx, http.MethodGet, pathGetAll, nil, "Failed to fetch jobs. Please try again.")
	if err != nil {
		return nil, err
	}
	var dtos []jobDTO
	if err := client.DecodeJSON(resp, &dtos); err != nil {
		return nil, err
	}
	out := make([]models.JobRecord, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, toRecord(d))
	}
	s.log.Debug("fetched jobs", s.log.Args("count", len(out)))
	return out, nil
}

// GetByID returns a single job
func (s *Service) GetByID(ctx context.Context, id int64) (models.JobRecord, error) {
	resp, err := s.do(ctx, http.MethodGet, fmt.Sprintf(pathJob, id), nil, "Failed to fetch job. Please try again.")
	if err != nil {
		return models.JobRecord{}, err
	}
	var d jobDTO
	if err := client.DecodeJSON(resp, &d); err != nil {
		return models.JobRecord{}, err
	}
	return toRecord(d), nil
}

// Post creates a job and returns the backend's copy of it. Invalid jobs are
// rejected before any request is made.
func (s *Service) Post(ctx context.Context, job models.JobRecord) (models.JobRecord, error) {
	if err := validation.Struct(job); err != nil {
		return models.JobRecord{}, err
	}
	job.ID = 0
	resp, err := s.do(ctx, http.MethodPost, pathPost, toDTO(job), "")
	if err != nil {
		return models.JobRecord{}, err
	}
	var d jobDTO
	if err := client.DecodeJSON(resp, &d); err != nil {
		return models.JobRecord{}, err
	}
	created := toRecord(d)
	s.log.Info("posted job", s.log.Args("id", created.ID, "title", created.Title))
	return created, nil
}

// Update replaces job id with job
func (s *Service) Update(ctx context.Context, id int64, job models.JobRecord) (models.JobRecord, error) {
	if err := validation.Struct(job); err != nil {
		return models.JobRecord{}, err
	}
	job.ID = id
	resp, err := s.do(ctx, http.MethodPut, fmt.Sprintf(pathUpdate, id), toDTO(job), "")
	if err != nil {
		return models.JobRecord{}, err
	}
	var d jobDTO
	if err := client.DecodeJSON(resp, &d); err != nil {
		return models.JobRecord{}, err
	}
	return toRecord(d), nil
}

// Delete removes job id
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.do(ctx, http.MethodDelete, fmt.Sprintf(pathDelete, id), nil, ""); err != nil {
		return err
	}
	s.log.Info("deleted job", s.log.Args("id", id))
	return nil
}
