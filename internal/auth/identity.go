package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// IdentityProvider obtains a credential from a third-party sign-in flow.
// How the credential is obtained (SDK call, browser, pasted code) is up to
// the implementation.
type IdentityProvider interface {
	// Init prepares the provider. It is called once before the first
	// credential request.
	Init(ctx context.Context) error
	RequestCredential(ctx context.Context) (models.Credential, error)
	// SignOut ends the provider-side session, if there is one
	SignOut(ctx context.Context) error
}

// ProviderFunc adapts a function to IdentityProvider with no-op Init and
// SignOut.
type ProviderFunc func(ctx context.Context) (models.Credential, error)

func (f ProviderFunc) Init(context.Context) error { return nil }

func (f ProviderFunc) RequestCredential(ctx context.Context) (models.Credential, error) {
	return f(ctx)
}

func (f ProviderFunc) SignOut(context.Context) error { return nil }

// ExternalIdentity guards a provider so it is initialised once per process.
// Concurrent callers share a single in-flight Init. A failed Init is not
// remembered and the next caller retries it.
type ExternalIdentity struct {
	provider IdentityProvider
	group    singleflight.Group

	mu    sync.Mutex
	ready bool
}

// NewExternalIdentity wraps provider
func NewExternalIdentity(provider IdentityProvider) *ExternalIdentity {
	return &ExternalIdentity{provider: provider}
}

// Ensure initialises the provider if that has not happened yet
func (e *ExternalIdentity) Ensure(ctx context.Context) error {
	if e.Ready() {
		return nil
	}
	_, err, _ := e.group.Do("init", func() (any, error) {
		if e.Ready() {
			return nil, nil
		}
		if err := e.provider.Init(ctx); err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.ready = true
		e.mu.Unlock()
		return nil, nil
	})
	return err
}

// Ready reports whether Init has succeeded
func (e *ExternalIdentity) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Reset forgets a successful Init so the next Ensure runs it again
func (e *ExternalIdentity) Reset() {
	e.mu.Lock()
	e.ready = false
	e.mu.Unlock()
}

// RequestCredential initialises the provider if needed and asks it for a
// credential.
func (e *ExternalIdentity) RequestCredential(ctx context.Context) (models.Credential, error) {
	if err := e.Ensure(ctx); err != nil {
		return "", err
	}
	return e.provider.RequestCredential(ctx)
}

// SignOut signs out of the provider when it was ever initialised
func (e *ExternalIdentity) SignOut(ctx context.Context) error {
	if !e.Ready() {
		return nil
	}
	return e.provider.SignOut(ctx)
}

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// OAuthProvider runs an OAuth2 authorization-code flow in a terminal: it
// prints the consent URL, reads the code the user pastes back and exchanges
// it for tokens. The credential is the returned OpenID id_token.
type OAuthProvider struct {
	Config *oauth2.Config
	In     io.Reader
	Out    io.Writer
	// HTTPClient is used for the token exchange and revocation
	HTTPClient *http.Client
	RevokeURL  string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewGoogleProvider returns an OAuthProvider for Google sign-in
func NewGoogleProvider(clientID, clientSecret, redirectURL string, in io.Reader, out io.Writer) *OAuthProvider {
	return &OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		In:        in,
		Out:       out,
		RevokeURL: googleRevokeURL,
	}
}

func (p *OAuthProvider) Init(context.Context) error {
	if p.Config == nil || p.Config.ClientID == "" {
		return apperror.NewConfig("Google sign-in is not configured: set google.client_id or JOBLUU_GOOGLE_CLIENT_ID", nil)
	}
	if p.In == nil || p.Out == nil {
		return apperror.NewConfig("Google sign-in needs an interactive terminal", nil)
	}
	return nil
}

func (p *OAuthProvider) httpContext(ctx context.Context) context.Context {
	if p.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
}

func (p *OAuthProvider) RequestCredential(ctx context.Context) (models.Credential, error) {
	state := uuid.NewString()
	authURL := p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)

	fmt.Fprintf(p.Out, "\n---------------------------------------------------------\n")
	fmt.Fprintf(p.Out, "OPEN THIS LINK TO SIGN IN WITH GOOGLE:\n%v\n", authURL)
	fmt.Fprintf(p.Out, "---------------------------------------------------------\n")
	fmt.Fprintf(p.Out, "Paste the code here: ")

	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read authorization code: %w", err)
		}
		return "", errors.New("no authorization code entered")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return "", errors.New("no authorization code entered")
	}

	tok, err := p.Config.Exchange(p.httpContext(ctx), code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", errors.New("provider did not return an id_token")
	}

	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
	return models.Credential(idToken), nil
}

// SignOut revokes the last token obtained, if any
func (p *OAuthProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	tok := p.token
	p.token = nil
	p.mu.Unlock()
	if tok == nil || tok.AccessToken == "" || p.RevokeURL == "" {
		return nil
	}

	form := url.Values{"token": {tok.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hc := p.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke token: HTTP %d", resp.StatusCode)
	}
	return nil
}
