// Package profile reads and updates user profiles and notifications
package profile

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

const (
	pathGet           = "/profiles/get/"
	pathUpdate        = "/profiles/update"
	pathNotifications = "/notification/get/"
)

// TokenSource supplies the bearer token for requests
type TokenSource interface {
	StoredToken(ctx context.Context) string
}

type Service struct {
	api    *client.API
	tokens TokenSource
	log    *pterm.Logger
}

func NewService(api *client.API, tokens TokenSource, log *pterm.Logger) *Service {
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Service{api: api, tokens: tokens, log: log}
}

func (s *Service) fetch(ctx context.Context, method, path string, body, out any, fallback string) error {
	var token string
	if s.tokens != nil {
		token = s.tokens.StoredToken(ctx)
	}
	resp, err := s.api.Do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		s.log.Warn("profile request rejected", s.log.Args("path", path, "status", resp.Status))
		return client.RequestError(resp, fallback)
	}
	return client.DecodeJSON(resp, out)
}

// Get returns the profile with the given id
func (s *Service) Get(ctx context.Context, id models.ID) (*models.Profile, error) {
	if id == "" {
		return nil, apperror.NewValidation(map[string]string{"id": "Profile id is required."})
	}
	var p models.Profile
	if err := s.fetch(ctx, http.MethodGet, pathGet+url.PathEscape(string(id)), nil, &p, "Failed to load profile."); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update saves p and returns the stored profile
func (s *Service) Update(ctx context.Context, p models.Profile) (*models.Profile, error) {
	if p.ID == "" {
		return nil, apperror.NewValidation(map[string]string{"id": "Profile id is required."})
	}
	var out models.Profile
	if err := s.fetch(ctx, http.MethodPut, pathUpdate, p, &out, "Failed to update profile."); err != nil {
		return nil, err
	}
	s.log.Info("profile updated", s.log.Args("id", out.ID))
	return &out, nil
}

// Notifications returns the unread notifications for userID
func (s *Service) Notifications(ctx context.Context, userID models.ID) ([]models.Notification, error) {
	if userID == "" {
		return nil, apperror.NewValidation(map[string]string{"userId": "User id is required."})
	}
	var out []models.Notification
	if err := s.fetch(ctx, http.MethodGet, pathNotifications+url.PathEscape(string(userID)), nil, &out, "Failed to load notifications."); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}
