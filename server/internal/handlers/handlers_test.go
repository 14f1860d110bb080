package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/domain/services"
)

// memUserRepo is an in-memory UserRepository for handler tests
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entities.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*entities.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrEmailTaken
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			if !u.IsActive {
				return nil, repositories.ErrUserInactive
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// memAssessmentRepo is an in-memory AssessmentRepository for handler tests
type memAssessmentRepo struct {
	mu   sync.Mutex
	rows []*entities.Assessment
}

func (r *memAssessmentRepo) Create(ctx context.Context, a *entities.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memAssessmentRepo) GetByID(ctx context.Context, userID, id string) (*entities.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ID == id && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrAssessmentNotFound
}

func (r *memAssessmentRepo) ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Assessment
	for _, a := range r.rows {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testEnv struct {
	srv      *httptest.Server
	userRepo *memUserRepo
	jwt      *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newMemUserRepo()
	assessmentRepo := &memAssessmentRepo{}
	jwtManager := auth.NewJWTManager("handlers-test-secret", time.Hour, 24*time.Hour)

	h := New(
		services.NewAuthService(userRepo, jwtManager),
		services.NewAssessmentService(assessmentRepo),
		jwtManager,
	)
	srv := httptest.NewServer(h.Router(nil))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, userRepo: userRepo, jwt: jwtManager}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func registerReq(email string) api.RegisterRequest {
	return api.RegisterRequest{
		Email:    email,
		Password: "supersecret",
		FullName: "Test User",
	}
}

func healthBody() api.HealthInput {
	return api.HealthInput{
		Age:              45,
		Gender:           1,
		BMI:              27,
		BloodPressure:    125,
		CholesterolLevel: 195,
		GlucoseLevel:     98,
		PhysicalActivity: 4,
		SmokingStatus:    0,
		AlcoholIntake:    1,
		FamilyHistory:    0,
	}
}

func TestRegisterLoginRoundtrip(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("a@example.com"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	reg := decodeBody[api.TokenResponse](t, resp)
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatal("register returned empty tokens")
	}
	if reg.AccessToken == reg.RefreshToken {
		t.Error("access and refresh tokens should differ")
	}
	if reg.User.Email != "a@example.com" {
		t.Errorf("user email = %q", reg.User.Email)
	}

	resp = env.do(t, http.MethodPost, "/auth/login", "", api.LoginRequest{Email: "a@example.com", Password: "supersecret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	login := decodeBody[api.TokenResponse](t, resp)
	if login.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", login.TokenType)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("dup@example.com"))
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/auth/register", "", registerReq("dup@example.com"))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	if body.Message() != "email already registered" {
		t.Errorf("detail = %q", body.Message())
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", api.RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
		FullName: "X",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	fields := body.FieldErrors()
	if len(fields) != 3 {
		t.Fatalf("field errors = %d, want 3: %v", len(fields), fields)
	}
	for _, fe := range fields {
		if len(fe.Loc) != 2 || fe.Loc[0] != "body" {
			t.Errorf("loc = %v, want [body <field>]", fe.Loc)
		}
	}
	if fields[0].Loc[1] != "email" {
		t.Errorf("first field = %q, want email (json name)", fields[0].Loc[1])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("b@example.com"))
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/auth/login", "", api.LoginRequest{Email: "b@example.com", Password: "wrongwrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("c@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/auth/refresh", "", api.RefreshRequest{RefreshToken: reg.AccessToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh with access token status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/auth/refresh", "", api.RefreshRequest{RefreshToken: reg.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh with refresh token status = %d, want 200", resp.StatusCode)
	}
	pair := decodeBody[api.TokenResponse](t, resp)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("refresh returned empty tokens")
	}
}

func TestProtectedEndpointsRejectMissingOrRefreshToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("d@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodGet, "/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}
	resp.Body.Close()

	// A refresh token must not authenticate API calls.
	resp = env.do(t, http.MethodGet, "/auth/me", reg.RefreshToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh token: status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/auth/me", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("access token: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("e@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	name := "Renamed User"
	age := 52
	resp = env.do(t, http.MethodPut, "/auth/me", reg.AccessToken, api.UpdateProfileRequest{FullName: &name, Age: &age})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	profile := decodeBody[api.UserProfile](t, resp)
	if profile.FullName != name {
		t.Errorf("full_name = %q, want %q", profile.FullName, name)
	}
	if profile.Age == nil || *profile.Age != age {
		t.Errorf("age = %v, want %d", profile.Age, age)
	}
}

func TestPredictPersistsAndLists(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("f@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/predict", reg.AccessToken, healthBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict status = %d, want 200", resp.StatusCode)
	}
	pred := decodeBody[api.PredictionResponse](t, resp)
	if pred.DiabetesRisk < 0 || pred.DiabetesRisk > 1 {
		t.Errorf("diabetes_risk = %v, want probability", pred.DiabetesRisk)
	}
	if pred.RiskCategoryDiabetes == "" || pred.RiskCategoryHypertension == "" {
		t.Error("missing risk categories")
	}
	if len(pred.NutritionRecommendations) == 0 {
		t.Error("nutrition recommendations are empty")
	}

	resp = env.do(t, http.MethodGet, "/assessments/recent?limit=5", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recent status = %d, want 200", resp.StatusCode)
	}
	rows := decodeBody[[]api.RecentAssessment](t, resp)
	if len(rows) != 1 {
		t.Fatalf("recent rows = %d, want 1", len(rows))
	}
	// Listing reports percentages, the prediction reports probabilities.
	if rows[0].DiabetesRisk < 1 && pred.DiabetesRisk > 0.01 {
		t.Errorf("recent diabetes_risk = %v, want percentage", rows[0].DiabetesRisk)
	}
}

func TestRecentRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("g@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodGet, "/assessments/recent?limit=abc", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPredictValidatesInput(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("h@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	in := healthBody()
	in.GlucoseLevel = 900 // out of range
	resp = env.do(t, http.MethodPost, "/predict", reg.AccessToken, in)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	fields := body.FieldErrors()
	if len(fields) != 1 || fields[0].Loc[1] != "glucose_level" {
		t.Errorf("field errors = %v, want one for glucose_level", fields)
	}
}

func TestPredictPDFStreamsReport(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("i@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/predict/current-pdf", reg.AccessToken, healthBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("response is not a PDF document")
	}
}

func TestPredictPDFDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("k@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/predict/current-pdf", reg.AccessToken, healthBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current-pdf status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Downloading a report must not add an entry to the history.
	resp = env.do(t, http.MethodGet, "/assessments/recent", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recent status = %d, want 200", resp.StatusCode)
	}
	rows := decodeBody[[]api.RecentAssessment](t, resp)
	if len(rows) != 0 {
		t.Errorf("recent rows = %d after report download, want 0", len(rows))
	}
}

func TestAssessmentPDFByID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("l@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	resp = env.do(t, http.MethodPost, "/predict", reg.AccessToken, healthBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/assessments/recent", reg.AccessToken, nil)
	rows := decodeBody[[]api.RecentAssessment](t, resp)
	if len(rows) != 1 {
		t.Fatalf("recent rows = %d, want 1", len(rows))
	}

	resp = env.do(t, http.MethodGet, "/assessments/"+rows[0].ID+"/pdf", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assessment pdf status = %d, want 200", resp.StatusCode)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("response is not a PDF document")
	}

	resp = env.do(t, http.MethodGet, "/assessments/999999/pdf", reg.AccessToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown assessment status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInactiveUserCannotLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/register", "", registerReq("j@example.com"))
	reg := decodeBody[api.TokenResponse](t, resp)

	env.userRepo.mu.Lock()
	env.userRepo.users[reg.User.ID].IsActive = false
	env.userRepo.mu.Unlock()

	resp = env.do(t, http.MethodPost, "/auth/login", "", api.LoginRequest{Email: "j@example.com", Password: "supersecret"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("login status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/auth/refresh", "", api.RefreshRequest{RefreshToken: reg.RefreshToken})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("refresh status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProbes(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/readiness"} {
		resp, err := env.srv.Client().Get(env.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/auth/login", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
