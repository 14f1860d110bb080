package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/preventix/preventix/internal/api"
)

// fakeBackend is a minimal in-process API server. It accepts one valid access
// token and one valid refresh token at a time; rotating them simulates
// expiry and refresh.
type fakeBackend struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshCalls int32
	failRefresh  bool

	srv *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		accessToken:  "access-1",
		refreshToken: "refresh-1",
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

// rotate invalidates the current access token, as the server would on expiry.
// The refresh token stays valid until the next successful refresh.
func (b *fakeBackend) rotate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = "access-2"
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/login" && r.Method == http.MethodPost:
		var req api.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct horse" {
			writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		b.writeTokens(w, http.StatusOK)

	case r.URL.Path == "/auth/refresh" && r.Method == http.MethodPost:
		atomic.AddInt32(&b.refreshCalls, 1)
		if b.failRefresh {
			writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		var req api.RefreshRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		valid := req.RefreshToken == b.refreshToken
		if valid {
			b.refreshToken = "refresh-2"
		}
		b.mu.Unlock()
		if !valid {
			writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		b.writeTokens(w, http.StatusOK)

	case r.URL.Path == "/auth/me":
		b.mu.Lock()
		want := "Bearer " + b.accessToken
		b.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		json.NewEncoder(w).Encode(api.UserProfile{ID: "u1", Email: "a@b.c", FullName: "Ada"})

	case r.URL.Path == "/predict":
		writeDetail(w, http.StatusUnprocessableEntity, "")

	default:
		writeDetail(w, http.StatusNotFound, "not found")
	}
}

func (b *fakeBackend) writeTokens(w http.ResponseWriter, status int) {
	b.mu.Lock()
	tok := api.TokenResponse{
		AccessToken:  b.accessToken,
		RefreshToken: b.refreshToken,
		TokenType:    "bearer",
		User:         api.UserProfile{ID: "u1", Email: "a@b.c", FullName: "Ada"},
	}
	b.mu.Unlock()
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(tok)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusUnprocessableEntity {
		json.NewEncoder(w).Encode(api.NewFieldErrorDetail([]api.FieldError{
			{Loc: []string{"body", "bmi"}, Msg: "value is out of range"},
		}))
		return
	}
	json.NewEncoder(w).Encode(api.NewErrorDetail(msg))
}

func TestLoginStoresCredentials(t *testing.T) {
	b := newFakeBackend(t)
	store := NewMemoryStore()
	c := New(b.srv.URL, store)

	tok, err := c.Login(context.Background(), "a@b.c", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("access token = %q, want access-1", tok.AccessToken)
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load after login: %v", err)
	}
	if creds.AccessToken != "access-1" || creds.RefreshToken != "refresh-1" {
		t.Errorf("stored creds = %+v", creds)
	}
	if creds.User == nil || creds.User.Email != "a@b.c" {
		t.Errorf("stored user = %+v", creds.User)
	}
}

func TestLoginWrongPasswordIsNotAuthExpired(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.srv.URL, NewMemoryStore())

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Kind != KindClient {
		t.Errorf("kind = %q, want %q", apiErr.Kind, KindClient)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Error("login rejection must not match ErrSessionExpired")
	}
}

func TestSingleTokenFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Older deployments return no refresh_token.
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "only-token",
			"token_type":   "bearer",
			"user":         api.UserProfile{ID: "u1"},
		})
	}))
	defer srv.Close()

	store := NewMemoryStore()
	c := New(srv.URL, store)
	if _, err := c.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	creds, _ := store.Load()
	if creds.RefreshToken != "only-token" {
		t.Errorf("refresh token = %q, want access token reused", creds.RefreshToken)
	}
}

func TestAuthenticatedRequestAttachesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(api.UserProfile{ID: "u1"})
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "tok", RefreshToken: "ref"})
	c := New(srv.URL, store)

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
}

func TestUnauthenticatedRequestOmitsBearer(t *testing.T) {
	var gotAuth string
	var hadHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadHeader = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryStore())
	if err := c.Do(context.Background(), http.MethodGet, "/health", nil, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if hadHeader {
		t.Errorf("Authorization header present: %q", gotAuth)
	}
}

func TestExpiredTokenRefreshesAndRetriesOnce(t *testing.T) {
	b := newFakeBackend(t)
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
	c := New(b.srv.URL, store)

	// Server-side rotation invalidates the stored access token.
	b.rotate()

	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me after expiry: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}
	if n := atomic.LoadInt32(&b.refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}

	creds, _ := store.Load()
	if creds.AccessToken != "access-2" || creds.RefreshToken != "refresh-2" {
		t.Errorf("stored creds not rotated: %+v", creds)
	}
}

func TestSecondRejectionIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			// Refresh "succeeds" but the issued token is still rejected.
			json.NewEncoder(w).Encode(api.TokenResponse{
				AccessToken:  "still-bad",
				RefreshToken: "refresh-2",
				TokenType:    "bearer",
			})
			return
		}
		atomic.AddInt32(&calls, 1)
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "bad", RefreshToken: "refresh-1"})
	c := New(srv.URL, store)

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.Kind != KindAuthFinal {
		t.Errorf("kind = %q, want %q", apiErr.Kind, KindAuthFinal)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("resource endpoint called %d times, want exactly 2", n)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Error("credentials not cleared after final rejection")
	}
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	b := newFakeBackend(t)
	b.failRefresh = true
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})
	c := New(b.srv.URL, store)

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Error("credentials not cleared after refresh failure")
	}
}

func TestNoRefreshCredentialIsImmediatelyFinal(t *testing.T) {
	b := newFakeBackend(t)
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "stale"})
	c := New(b.srv.URL, store)

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if n := atomic.LoadInt32(&b.refreshCalls); n != 0 {
		t.Errorf("refresh attempted %d times with no refresh credential", n)
	}
}

func TestConcurrentExpiryCoalescesRefresh(t *testing.T) {
	b := newFakeBackend(t)
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
	c := New(b.srv.URL, store)
	b.rotate()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", i, err)
		}
	}
	// Coalescing keeps concurrent 401s from stampeding the refresh endpoint.
	// Stragglers that miss the singleflight window may still refresh once more
	// with the already-rotated (still valid) token, so allow a small bound.
	if n := atomic.LoadInt32(&b.refreshCalls); n >= workers/2 {
		t.Errorf("refresh calls = %d for %d workers, want coalesced", n, workers)
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	b := newFakeBackend(t)
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
	c := New(b.srv.URL, store)

	_, err := c.Predict(context.Background(), api.HealthInput{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Kind != KindValidation {
		t.Errorf("kind = %q, want %q", apiErr.Kind, KindValidation)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Msg != "value is out of range" {
		t.Errorf("fields = %+v", apiErr.Fields)
	}
	if !strings.Contains(apiErr.Error(), "bmi") {
		t.Errorf("message %q does not mention the field", apiErr.Error())
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"server error", http.StatusInternalServerError, KindServer},
		{"bad gateway", http.StatusBadGateway, KindServer},
		{"not found", http.StatusNotFound, KindClient},
		{"conflict", http.StatusConflict, KindClient},
		{"validation", http.StatusUnprocessableEntity, KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeDetail(w, tc.status, "boom")
			}))
			defer srv.Close()

			c := New(srv.URL, NewMemoryStore())
			err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Kind != tc.want {
				t.Errorf("kind = %q, want %q", apiErr.Kind, tc.want)
			}
			if apiErr.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tc.status)
			}
		})
	}
}

func TestNetworkErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, NewMemoryStore())
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Kind != KindNetwork {
		t.Errorf("kind = %q, want %q", apiErr.Kind, KindNetwork)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0", apiErr.StatusCode)
	}
}

func TestContextCancellationPropagates(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, NewMemoryStore())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, http.MethodGet, "/slow", nil, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded in chain", err)
	}
}

func TestLogoutClearsCredentials(t *testing.T) {
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "tok", RefreshToken: "ref"})
	c := New("http://localhost:0", store)

	c.Logout()
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Error("credentials survive logout")
	}

	// Logging out twice is harmless.
	c.Logout()
}

func TestRawBodyTarget(t *testing.T) {
	want := []byte("%PDF-1.7 fake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(want)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "tok", RefreshToken: "ref"})
	c := New(srv.URL, store)

	got, err := c.PredictReportPDF(context.Background(), api.HealthInput{})
	if err != nil {
		t.Fatalf("PredictReportPDF: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestUpdateProfileRefreshesCachedUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewEncoder(w).Encode(api.UserProfile{ID: "u1", FullName: "Ada Lovelace"})
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.Save(&Credentials{
		AccessToken:  "tok",
		RefreshToken: "ref",
		User:         &api.UserProfile{ID: "u1", FullName: "Ada"},
	})
	c := New(srv.URL, store)

	name := "Ada Lovelace"
	if _, err := c.UpdateProfile(context.Background(), api.UpdateProfileRequest{FullName: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	creds, _ := store.Load()
	if creds.User == nil || creds.User.FullName != "Ada Lovelace" {
		t.Errorf("cached user = %+v", creds.User)
	}
}

func TestRecentAssessmentsLimit(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"id":"1","date":"2026-08-01","diabetes_risk":12.5}]`)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "tok", RefreshToken: "ref"})
	c := New(srv.URL, store)

	rows, err := c.RecentAssessments(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentAssessments: %v", err)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q, want limit=5", gotQuery)
	}
	if len(rows) != 1 || rows[0].Date != "2026-08-01" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	store.Save(&Credentials{AccessToken: "tok"})

	a, _ := store.Load()
	a.AccessToken = "mutated"

	b, _ := store.Load()
	if b.AccessToken != "tok" {
		t.Errorf("store leaked internal state: %q", b.AccessToken)
	}
}
