package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/auth"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/store"
)

type fixture struct {
	gw      *auth.Gateway
	session *store.SessionStore
	profile *store.ProfileStore
	storage *store.MemoryStorage
	srv     *httptest.Server
}

func newFixture(t *testing.T, mux *http.ServeMux, identity *auth.ExternalIdentity) *fixture {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := &fixture{
		session: store.NewSessionStore(),
		profile: store.NewProfileStore(),
		storage: store.NewMemoryStorage(),
		srv:     srv,
	}
	f.gw = auth.NewGateway(auth.Config{
		API:      client.NewAPI(srv.URL, srv.Client(), nil),
		Session:  f.session,
		Profile:  f.profile,
		Storage:  f.storage,
		Identity: identity,
	})
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func okLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        "tok-1",
		"refreshToken": "ref-1",
		"user":         map[string]any{"id": 42, "name": "Asha", "email": "asha@example.com"},
	})
}

var creds = models.LoginCredentials{Email: "asha@example.com", Password: "Passw0rd!"}

func storedToken(t *testing.T, s store.Storage) string {
	t.Helper()
	v, _, err := s.Get(context.Background(), store.KeyToken)
	if err != nil {
		t.Fatalf("Get token: %v", err)
	}
	return v
}

// ── Login ───────────────────────────────────────────────────────────────────

func TestLoginSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", okLogin)
	f := newFixture(t, mux, nil)

	out, err := f.gw.Login(context.Background(), creds)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if out.Token != "tok-1" {
		t.Errorf("token = %q", out.Token)
	}
	st := f.session.State()
	if !st.IsAuthenticated || st.Token != "tok-1" || st.RefreshToken != "ref-1" || st.IsLoading {
		t.Errorf("session = %+v", st)
	}
	if got := storedToken(t, f.storage); got != "tok-1" {
		t.Errorf("stored token = %q", got)
	}
	up := f.profile.State()
	if up.Profile == nil || up.Profile.ID != "42" || !up.IsProfileLoaded {
		t.Errorf("profile = %+v", up)
	}
}

func TestLoginPlainTextToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("eyJhbGciOiJIUzI1NiJ9.e30.sig"))
	})
	f := newFixture(t, mux, nil)

	if _, err := f.gw.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := f.session.State().Token; got != "eyJhbGciOiJIUzI1NiJ9.e30.sig" {
		t.Errorf("token = %q", got)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	f := newFixture(t, mux, nil)

	_, err := f.gw.Login(context.Background(), creds)
	if !apperror.IsRequest(err) || apperror.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	st := f.session.State()
	if st.Error != "invalid credentials" {
		t.Errorf("error = %q", st.Error)
	}
	if st.IsAuthenticated || st.IsLoading {
		t.Errorf("session = %+v", st)
	}
}

func TestLoginTransportError(t *testing.T) {
	f := newFixture(t, http.NewServeMux(), nil)
	f.srv.Close()

	_, err := f.gw.Login(context.Background(), creds)
	if !apperror.IsTransport(err) {
		t.Fatalf("err = %v", err)
	}
	if got := f.session.State().Error; got != apperror.TransportMessage {
		t.Errorf("error = %q", got)
	}
}

func TestLoginValidationNeverReachesStore(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		okLogin(w, r)
	})
	f := newFixture(t, mux, nil)

	var calls int
	f.session.Subscribe(func(models.Session) { calls++ })
	_, err := f.gw.Login(context.Background(), models.LoginCredentials{Email: "nope"})
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 || hits.Load() != 0 {
		t.Errorf("store transitions = %d, requests = %d", calls, hits.Load())
	}
}

// ── Ordering ────────────────────────────────────────────────────────────────

func TestStaleLoginAfterLogoutIsDropped(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		select {
		case <-release:
		case <-r.Context().Done():
		}
		okLogin(w, r)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := f.gw.Login(context.Background(), creds)
		errc <- err
	}()

	<-arrived
	f.gw.Logout(context.Background())
	close(release)

	select {
	case err := <-errc:
		if !apperror.IsSuperseded(err) {
			t.Errorf("err = %v, want superseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("login never returned")
	}

	st := f.session.State()
	if st.IsAuthenticated || st.Token != "" || st.Error != "" {
		t.Errorf("session = %+v", st)
	}
	if f.profile.State().Profile != nil {
		t.Errorf("profile survived logout")
	}
	if got := storedToken(t, f.storage); got != "" {
		t.Errorf("stored token = %q", got)
	}
}

func TestNewerLoginSupersedesOlder(t *testing.T) {
	slowArrived := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body models.LoginCredentials
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email == "slow@example.com" {
			close(slowArrived)
			<-r.Context().Done()
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "fast"})
	})
	f := newFixture(t, mux, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := f.gw.Login(context.Background(), models.LoginCredentials{Email: "slow@example.com", Password: "x"})
		errc <- err
	}()
	<-slowArrived

	if _, err := f.gw.Login(context.Background(), creds); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if err := <-errc; !apperror.IsSuperseded(err) {
		t.Errorf("first login err = %v", err)
	}
	if got := f.session.State().Token; got != "fast" {
		t.Errorf("token = %q", got)
	}
}

// ── Register ────────────────────────────────────────────────────────────────

var registration = models.RegisterCredentials{
	Name:            "Asha",
	Email:           "asha@example.com",
	Password:        "Passw0rd!",
	ConfirmPassword: "Passw0rd!",
	AccountType:     models.AccountEmployer,
}

func TestRegisterWithoutTokenLeavesSignedOut(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/users/register", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, map[string]any{"id": "u1", "name": "Asha", "email": "asha@example.com"})
	})
	f := newFixture(t, mux, nil)

	out, err := f.gw.Register(context.Background(), registration)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if out.User == nil || out.User.ID != "u1" {
		t.Errorf("user = %+v", out.User)
	}
	st := f.session.State()
	if st.IsAuthenticated || st.IsLoading {
		t.Errorf("session = %+v", st)
	}
	if got["confirmpassword"] != "Passw0rd!" || got["accountType"] != "EMPLOYER" {
		t.Errorf("payload = %v", got)
	}
}

func TestRegisterWithTokenSignsIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "new", "user": map[string]any{"id": "u1", "name": "Asha"}})
	})
	f := newFixture(t, mux, nil)

	if _, err := f.gw.Register(context.Background(), registration); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if st := f.session.State(); !st.IsAuthenticated || st.Token != "new" {
		t.Errorf("session = %+v", st)
	}
	if f.profile.State().Profile == nil {
		t.Errorf("profile not set")
	}
}

func TestRegisterConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"errorMessage": "User already exists", "errorCode": 409})
	})
	f := newFixture(t, mux, nil)

	_, err := f.gw.Register(context.Background(), registration)
	if !apperror.IsRequest(err) {
		t.Fatalf("err = %v", err)
	}
	if got := f.session.State().Error; got != "User already exists" {
		t.Errorf("error = %q", got)
	}
}

// ── Refresh ─────────────────────────────────────────────────────────────────

func TestRefreshKeepsRefreshTokenWhenOmitted(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-2"})
	})
	f := newFixture(t, mux, nil)
	f.session.LoginSuccess("tok-1", "ref-1")

	if err := f.gw.RefreshToken(context.Background()); err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if gotAuth != "Bearer ref-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	st := f.session.State()
	if st.Token != "tok-2" || st.RefreshToken != "ref-1" || !st.IsAuthenticated {
		t.Errorf("session = %+v", st)
	}
	if got := storedToken(t, f.storage); got != "tok-2" {
		t.Errorf("stored token = %q", got)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token expired"})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	f := newFixture(t, mux, nil)
	f.session.LoginSuccess("tok-1", "ref-1")
	f.profile.SetUser(models.User{ID: "1"})
	_ = f.storage.Set(context.Background(), store.KeyToken, "tok-1")

	err := f.gw.RefreshToken(context.Background())
	if apperror.Message(err) != "refresh token expired" {
		t.Fatalf("err = %v", err)
	}
	if st := f.session.State(); st != (models.Session{}) {
		t.Errorf("session = %+v", st)
	}
	if f.profile.State().Profile != nil {
		t.Errorf("profile not cleared")
	}
	if got := storedToken(t, f.storage); got != "" {
		t.Errorf("stored token = %q", got)
	}
}

func TestConcurrentRefreshSharesOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-2", "refreshToken": "ref-2"})
	})
	f := newFixture(t, mux, nil)
	f.session.LoginSuccess("tok-1", "ref-1")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.gw.RefreshToken(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("refresh requests = %d, want 1", n)
	}
}

// ── Logout ──────────────────────────────────────────────────────────────────

func TestLogoutIgnoresServerFailure(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusInternalServerError)
	})
	f := newFixture(t, mux, nil)
	f.session.LoginSuccess("tok-1", "ref-1")
	f.profile.SetUser(models.User{ID: "1"})
	_ = f.storage.Set(context.Background(), store.KeyToken, "tok-1")

	f.gw.Logout(context.Background())
	once := f.session.State()
	f.gw.Logout(context.Background())

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if once != (models.Session{}) || f.session.State() != once {
		t.Errorf("session = %+v then %+v", once, f.session.State())
	}
	if got := storedToken(t, f.storage); got != "" {
		t.Errorf("stored token = %q", got)
	}
}

// ── Validate / current user / auto login ────────────────────────────────────

func TestValidateToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": map[string]any{"id": "9", "name": "Ravi"}})
	})
	f := newFixture(t, mux, nil)

	if ok, err := f.gw.ValidateToken(context.Background()); ok || err != nil {
		t.Errorf("no token: ok=%v err=%v", ok, err)
	}

	_ = f.storage.Set(context.Background(), store.KeyToken, "bad")
	if ok, err := f.gw.ValidateToken(context.Background()); ok || err != nil {
		t.Errorf("bad token: ok=%v err=%v", ok, err)
	}

	_ = f.storage.Set(context.Background(), store.KeyToken, "good")
	ok, err := f.gw.ValidateToken(context.Background())
	if !ok || err != nil {
		t.Fatalf("good token: ok=%v err=%v", ok, err)
	}
	if p := f.profile.State().Profile; p == nil || p.Name != "Ravi" {
		t.Errorf("profile = %+v", p)
	}
}

func TestCurrentUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "3", "name": "Mei", "accountType": "EMPLOYER"})
	})
	f := newFixture(t, mux, nil)

	if _, err := f.gw.CurrentUser(context.Background()); !apperror.IsUnauthenticated(err) {
		t.Errorf("without token err = %v", err)
	}

	f.session.LoginSuccess("tok", "")
	u, err := f.gw.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.AccountType != models.AccountEmployer || f.profile.State().Profile.Name != "Mei" {
		t.Errorf("user = %+v", u)
	}
}

func TestAutoLoginAdoptsStoredToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Token is valid"))
	})
	f := newFixture(t, mux, nil)
	_ = f.storage.Set(context.Background(), store.KeyToken, "tok")

	ok, err := f.gw.AutoLogin(context.Background())
	if !ok || err != nil {
		t.Fatalf("AutoLogin = %v, %v", ok, err)
	}
	if st := f.session.State(); !st.IsAuthenticated || st.Token != "tok" {
		t.Errorf("session = %+v", st)
	}
}

func TestAutoLoginInvalidTokenLogsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	f := newFixture(t, mux, nil)
	_ = f.storage.Set(context.Background(), store.KeyToken, "stale")

	ok, err := f.gw.AutoLogin(context.Background())
	if ok || err != nil {
		t.Fatalf("AutoLogin = %v, %v", ok, err)
	}
	if got := storedToken(t, f.storage); got != "" {
		t.Errorf("stored token = %q", got)
	}
}

// ── Password reset ──────────────────────────────────────────────────────────

func TestPasswordReset(t *testing.T) {
	var forgot, reset map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&forgot)
	})
	mux.HandleFunc("/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&reset)
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Reset link expired"})
	})
	f := newFixture(t, mux, nil)

	if err := f.gw.RequestPasswordReset(context.Background(), "asha@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if forgot["email"] != "asha@example.com" {
		t.Errorf("forgot payload = %v", forgot)
	}

	if err := f.gw.ResetPassword(context.Background(), "t", "weak"); !apperror.IsValidation(err) {
		t.Errorf("weak password err = %v", err)
	}
	err := f.gw.ResetPassword(context.Background(), "t", "Passw0rd!")
	if apperror.Message(err) != "Reset link expired" {
		t.Errorf("err = %v", err)
	}
	if reset["newPassword"] != "Passw0rd!" || reset["token"] != "t" {
		t.Errorf("reset payload = %v", reset)
	}
}
