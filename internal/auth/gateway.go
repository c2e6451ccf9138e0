// Package auth talks to the backend's authentication endpoints and turns
// the results into session and profile store transitions.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/store"
	"github.com/fr4nk3nst1ner/jobluu/internal/validation"
)

// Backend auth endpoints, relative to the API base URL
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/users/register"
	PathRefresh        = "/auth/refresh"
	PathValidate       = "/auth/validate"
	PathLogout         = "/auth/logout"
	PathMe             = "/auth/me"
	PathGoogle         = "/auth/google"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
)

const logoutTimeout = 5 * time.Second

// requestKind groups requests whose responses replace each other. Login,
// register and both sign-in flows share one kind since each ends in a
// session for one account.
type requestKind int

const (
	kindLogin requestKind = iota
	kindRefresh
	kindValidate
	kindUser
	kindCount
)

func (k requestKind) String() string {
	switch k {
	case kindLogin:
		return "login"
	case kindRefresh:
		return "refresh"
	case kindValidate:
		return "validate"
	case kindUser:
		return "current user"
	default:
		return "request"
	}
}

// Gateway performs the auth network calls. A response is applied to the
// stores only if no newer request of the same kind, and no logout, was
// issued after it; otherwise the call returns an apperror Superseded error
// and leaves the stores untouched. Issuing a request cancels the in-flight
// one of the same kind, and Logout cancels everything.
type Gateway struct {
	api      *client.API
	session  *store.SessionStore
	profile  *store.ProfileStore
	storage  store.Storage
	identity *ExternalIdentity
	log      *pterm.Logger

	mu      sync.Mutex
	gens    [kindCount]uint64
	cancels [kindCount]context.CancelFunc

	refresh singleflight.Group
}

// Config holds a Gateway's collaborators. Identity is optional.
type Config struct {
	API      *client.API
	Session  *store.SessionStore
	Profile  *store.ProfileStore
	Storage  store.Storage
	Identity *ExternalIdentity
	Log      *pterm.Logger
}

// NewGateway builds a Gateway from cfg
func NewGateway(cfg Config) *Gateway {
	log := cfg.Log
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Gateway{
		api:      cfg.API,
		session:  cfg.Session,
		profile:  cfg.Profile,
		storage:  cfg.Storage,
		identity: cfg.Identity,
		log:      log,
	}
}

// begin starts a request of kind k, cancelling the previous one
func (g *Gateway) begin(ctx context.Context, k requestKind) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	if prev := g.cancels[k]; prev != nil {
		prev()
	}
	g.gens[k]++
	gen := g.gens[k]
	g.cancels[k] = cancel
	g.mu.Unlock()

	return ctx, gen, func() {
		g.mu.Lock()
		if g.gens[k] == gen {
			g.cancels[k] = nil
		}
		g.mu.Unlock()
		cancel()
	}
}

// apply runs fn if gen is still the latest request of kind k. The check and
// fn happen under one lock so a concurrent Logout cannot slip in between.
func (g *Gateway) apply(k requestKind, gen uint64, fn func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[k] != gen {
		g.log.Debug("dropping stale response", g.log.Args("kind", k.String()))
		return apperror.NewSuperseded(k.String())
	}
	fn()
	return nil
}

// fail records err as the session error unless the request was superseded
func (g *Gateway) fail(k requestKind, gen uint64, err error) error {
	if applyErr := g.apply(k, gen, func() {
		g.session.LoginFailure(apperror.Message(err))
	}); applyErr != nil {
		return applyErr
	}
	g.log.Warn(k.String()+" failed", g.log.Args("error", apperror.Message(err)))
	return err
}

func (g *Gateway) setStoredToken(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	var err error
	if token == "" {
		err = g.storage.Delete(ctx, store.KeyToken)
	} else {
		err = g.storage.Set(ctx, store.KeyToken, token)
	}
	if err != nil {
		g.log.Warn("could not update stored token", g.log.Args("error", err))
	}
}

// StoredToken returns the session token, falling back to durable storage
// when the session has not been rehydrated yet.
func (g *Gateway) StoredToken(ctx context.Context) string {
	if tok := g.session.State().Token; tok != "" {
		return tok
	}
	tok, _, err := g.storage.Get(ctx, store.KeyToken)
	if err != nil {
		g.log.Warn("could not read stored token", g.log.Args("error", err))
		return ""
	}
	return tok
}

// decodeAuth reads a token-bearing response. The backend answers either
// with a JSON object or with the bare token as text.
func decodeAuth(resp *client.Response) (models.AuthResponse, error) {
	var out models.AuthResponse
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return out, nil
	}
	if body[0] != '{' {
		var s string
		if body[0] == '"' {
			if err := json.Unmarshal(body, &s); err != nil {
				return out, apperror.NewTransport(err)
			}
		} else {
			s = string(body)
		}
		out.Token = strings.TrimSpace(s)
		return out, nil
	}
	if err := client.DecodeJSON(resp, &out); err != nil {
		return out, err
	}
	if out.Token == "" && out.User == nil {
		// register may answer with the bare user object
		var user models.User
		if err := json.Unmarshal(body, &user); err == nil && (user.ID != "" || user.Email != "") {
			out.User = &user
		}
	}
	return out, nil
}

// authenticate posts body to path within an already begun login request
// and applies the resulting session.
func (g *Gateway) authenticate(ctx context.Context, gen uint64, path string, body any) (*models.AuthResponse, error) {
	resp, err := g.api.Do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, g.fail(kindLogin, gen, err)
	}
	if !resp.OK() {
		return nil, g.fail(kindLogin, gen, client.RequestError(resp, ""))
	}
	out, err := decodeAuth(resp)
	if err != nil {
		return nil, g.fail(kindLogin, gen, err)
	}
	if out.Token == "" {
		return nil, g.fail(kindLogin, gen, apperror.NewTransport(errors.New("response has no token")))
	}

	if err := g.apply(kindLogin, gen, func() {
		g.setStoredToken(out.Token)
		g.session.LoginSuccess(out.Token, out.RefreshToken)
		if out.User != nil {
			g.profile.SetUser(*out.User)
		}
	}); err != nil {
		return nil, err
	}
	g.log.Debug("login success", g.log.Args("user", userLabel(out.User)))
	return &out, nil
}

func userLabel(u *models.User) string {
	if u == nil {
		return ""
	}
	return string(u.ID)
}

// Login signs in with email and password
func (g *Gateway) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	if err := validation.Struct(&creds); err != nil {
		return nil, err
	}
	ctx, gen, done := g.begin(ctx, kindLogin)
	defer done()

	g.log.Debug("loginStart")
	g.session.LoginStart()
	return g.authenticate(ctx, gen, PathLogin, creds)
}

// LoginWithCredential exchanges a third-party credential for a session.
// An empty accountType defaults to APPLICANT.
func (g *Gateway) LoginWithCredential(ctx context.Context, cred models.Credential, accountType models.AccountType) (*models.AuthResponse, error) {
	ctx, gen, done := g.begin(ctx, kindLogin)
	defer done()

	g.session.LoginStart()
	return g.authenticate(ctx, gen, PathGoogle, googleRequest(cred, accountType))
}

func googleRequest(cred models.Credential, accountType models.AccountType) map[string]string {
	if accountType == "" {
		accountType = models.AccountApplicant
	}
	return map[string]string{"credential": string(cred), "accountType": string(accountType)}
}

// SignInWithProvider obtains a credential from the configured identity
// provider and exchanges it for a session.
func (g *Gateway) SignInWithProvider(ctx context.Context, accountType models.AccountType) (*models.AuthResponse, error) {
	if g.identity == nil {
		return nil, apperror.NewConfig("no identity provider configured", nil)
	}
	ctx, gen, done := g.begin(ctx, kindLogin)
	defer done()

	g.session.LoginStart()
	cred, err := g.identity.RequestCredential(ctx)
	if err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			err = apperror.New(apperror.Request, "Google sign-in failed: "+err.Error(), err)
		}
		return nil, g.fail(kindLogin, gen, err)
	}
	return g.authenticate(ctx, gen, PathGoogle, googleRequest(cred, accountType))
}

// Register creates an account. When the backend answers with a token the
// new account is signed in; otherwise loading ends and the user must log in.
func (g *Gateway) Register(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error) {
	if err := validation.Struct(&creds); err != nil {
		return nil, err
	}
	ctx, gen, done := g.begin(ctx, kindLogin)
	defer done()

	g.session.LoginStart()
	resp, err := g.api.Do(ctx, http.MethodPost, PathRegister, "", creds)
	if err != nil {
		return nil, g.fail(kindLogin, gen, err)
	}
	if !resp.OK() {
		return nil, g.fail(kindLogin, gen, client.RequestError(resp, ""))
	}
	out, err := decodeAuth(resp)
	if err != nil {
		return nil, g.fail(kindLogin, gen, err)
	}
	// a plain-text 2xx body is a confirmation message, not a token
	if body := bytes.TrimSpace(resp.Body); len(body) > 0 && body[0] != '{' {
		out = models.AuthResponse{Message: out.Token}
	}

	if err := g.apply(kindLogin, gen, func() {
		if out.Token == "" {
			g.session.LoginSuccess("", "")
			return
		}
		g.setStoredToken(out.Token)
		g.session.LoginSuccess(out.Token, out.RefreshToken)
		if out.User != nil {
			g.profile.SetUser(*out.User)
		}
	}); err != nil {
		return nil, err
	}
	g.log.Debug("register success", g.log.Args("signed_in", out.Token != ""))
	return &out, nil
}

// RefreshToken exchanges the refresh token for new tokens. Concurrent
// callers share one request, made with the first caller's context. Any
// failure other than being superseded forces a logout.
func (g *Gateway) RefreshToken(ctx context.Context) error {
	_, err, _ := g.refresh.Do("refresh", func() (any, error) {
		return nil, g.refreshOnce(ctx)
	})
	return err
}

func (g *Gateway) refreshOnce(ctx context.Context) error {
	refreshToken := g.session.State().RefreshToken
	if refreshToken == "" {
		g.Logout(ctx)
		return apperror.NewUnauthenticated("No refresh token available. Please sign in again.")
	}

	rctx, gen, done := g.begin(ctx, kindRefresh)
	defer done()

	forceLogout := func(err error) error {
		if applyErr := g.apply(kindRefresh, gen, func() {}); applyErr != nil {
			return applyErr
		}
		g.log.Warn("token refresh failed, signing out", g.log.Args("error", apperror.Message(err)))
		g.Logout(ctx)
		return err
	}

	resp, err := g.api.Do(rctx, http.MethodPost, PathRefresh, refreshToken, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return forceLogout(err)
	}
	if !resp.OK() {
		return forceLogout(client.RequestError(resp, ""))
	}
	out, err := decodeAuth(resp)
	if err != nil {
		return forceLogout(err)
	}
	if out.Token == "" {
		return forceLogout(apperror.NewTransport(errors.New("refresh response has no token")))
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}

	if err := g.apply(kindRefresh, gen, func() {
		g.setStoredToken(out.Token)
		g.session.SetTokens(out.Token, out.RefreshToken)
	}); err != nil {
		return err
	}
	g.log.Debug("token refreshed")
	return nil
}

// ValidateToken asks the backend whether the stored token is still valid
// and, when the answer carries a user, stores it. A rejected token is
// reported as false with a nil error; only transport failures are errors.
func (g *Gateway) ValidateToken(ctx context.Context) (bool, error) {
	token := g.StoredToken(ctx)
	if token == "" {
		return false, nil
	}
	ctx, gen, done := g.begin(ctx, kindValidate)
	defer done()

	resp, err := g.api.Do(ctx, http.MethodPost, PathValidate, token, nil)
	if err != nil {
		if applyErr := g.apply(kindValidate, gen, func() {}); applyErr != nil {
			return false, applyErr
		}
		return false, err
	}
	if !resp.OK() {
		g.log.Debug("token rejected", g.log.Args("status", resp.Status))
		return false, g.apply(kindValidate, gen, func() {})
	}

	valid := true
	var out models.ValidateResponse
	if body := bytes.TrimSpace(resp.Body); len(body) > 0 && body[0] == '{' {
		if err := client.DecodeJSON(resp, &out); err != nil {
			return false, err
		}
		valid = out.Valid
	}
	if err := g.apply(kindValidate, gen, func() {
		if valid && out.User != nil {
			g.profile.SetUser(*out.User)
		}
	}); err != nil {
		return false, err
	}
	return valid, nil
}

// CurrentUser fetches the signed-in user and stores it
func (g *Gateway) CurrentUser(ctx context.Context) (*models.User, error) {
	token := g.StoredToken(ctx)
	if token == "" {
		return nil, apperror.NewUnauthenticated("Not signed in.")
	}
	ctx, gen, done := g.begin(ctx, kindUser)
	defer done()

	resp, err := g.api.Do(ctx, http.MethodGet, PathMe, token, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, client.RequestError(resp, "")
	}
	var user models.User
	if err := client.DecodeJSON(resp, &user); err != nil {
		return nil, err
	}
	if err := g.apply(kindUser, gen, func() {
		g.profile.SetUser(user)
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// AutoLogin restores a session from durable storage. A valid stored token
// is adopted as is; otherwise a refresh is attempted. It returns false,
// after logging out, when neither works.
func (g *Gateway) AutoLogin(ctx context.Context) (bool, error) {
	token := g.StoredToken(ctx)
	if token == "" {
		return false, nil
	}
	gen := g.generation(kindLogin)

	valid, err := g.ValidateToken(ctx)
	if err != nil {
		return false, err
	}
	if valid {
		refreshToken := g.session.State().RefreshToken
		if err := g.apply(kindLogin, gen, func() {
			g.session.LoginSuccess(token, refreshToken)
		}); err != nil {
			return false, err
		}
		return true, nil
	}

	if g.session.State().RefreshToken != "" {
		if err := g.RefreshToken(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	g.Logout(ctx)
	return false, nil
}

func (g *Gateway) generation(k requestKind) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[k]
}

// Logout supersedes and cancels every in-flight request, makes a
// best-effort server call, then clears durable storage and both stores.
// It never fails.
func (g *Gateway) Logout(ctx context.Context) {
	g.mu.Lock()
	for k := range g.gens {
		g.gens[k]++
		if cancel := g.cancels[k]; cancel != nil {
			cancel()
			g.cancels[k] = nil
		}
	}
	g.mu.Unlock()

	token := g.StoredToken(ctx)
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()

	if token != "" {
		resp, err := g.api.Do(bctx, http.MethodPost, PathLogout, token, nil)
		switch {
		case err != nil:
			g.log.Warn("server logout failed", g.log.Args("error", apperror.Message(err)))
		case !resp.OK():
			g.log.Warn("server logout failed", g.log.Args("status", resp.Status))
		}
	}

	g.mu.Lock()
	if err := g.storage.Clear(bctx); err != nil {
		g.log.Warn("could not clear storage", g.log.Args("error", err))
	}
	g.session.Logout()
	g.profile.RemoveUser()
	g.mu.Unlock()

	if g.identity != nil {
		if err := g.identity.SignOut(bctx); err != nil {
			g.log.Warn("identity provider sign-out failed", g.log.Args("error", err))
		}
	}
	g.log.Debug("logout")
}

// ClearError dismisses the session error
func (g *Gateway) ClearError() {
	g.session.ClearError()
}

// RequestPasswordReset asks the backend to email a reset link
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) error {
	req := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := validation.Struct(&req); err != nil {
		return err
	}
	resp, err := g.api.Do(ctx, http.MethodPost, PathForgotPassword, "", req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return client.RequestError(resp, "")
	}
	return nil
}

// ResetPassword sets a new password using a reset token
func (g *Gateway) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,strongpassword"`
	}{Token: token, NewPassword: newPassword}
	if err := validation.Struct(&req); err != nil {
		return err
	}
	resp, err := g.api.Do(ctx, http.MethodPost, PathResetPassword, "", req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return client.RequestError(resp, "")
	}
	return nil
}
