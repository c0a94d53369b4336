package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
	dummydb "github.com/EMS-UCU/ucu-uems-sub002/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type captureNotifier struct {
	mu      sync.Mutex
	notices []paper.CredentialNotice
}

func (n *captureNotifier) CredentialIssued(_ context.Context, notice paper.CredentialNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

type testServer struct {
	srv      Server
	usrSvc   user.Service
	paperSvc paper.Service
	notifier *captureNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "UEMS",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Vault: core.VaultConfig{
			SweepInterval:    time.Minute,
			UnlockWindow:     24 * time.Hour,
			CredentialLength: 24,
			NotifyTimeout:    time.Second,
		},
	}

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	paper.InitValidators(validate, translator)

	db := dummydb.NewDB()
	usrSvc := user.NewService(dummydb.NewUserRepository(db))
	notifier := new(captureNotifier)
	paperSvc := paper.NewService(
		nil, dummydb.NewPaperRepository(db), dummydb.NewAuditRepository(db), notifier, nopLogger{}, conf)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		UserSvc:    usrSvc,
		PaperSvc:   paperSvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testServer{srv: srv, usrSvc: usrSvc, paperSvc: paperSvc, notifier: notifier}
}

func (ts *testServer) createUser(t *testing.T, uname string, roles []string) user.User {
	t.Helper()
	usr, err := ts.usrSvc.Create(context.Background(), user.NewUser{
		Name:     uname,
		Username: uname,
		Email:    uname + "@test.ug",
		Password: "s3cr3t-pwd",
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return usr
}

func (ts *testServer) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func TestAPI_login(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "awe", []string{user.RoleSetter})

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{name: "missing fields", body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "unknown user", body: map[string]string{"username": "lol", "password": "s3cr3t-pwd"}, wantCode: http.StatusBadRequest},
		{name: "wrong password", body: map[string]string{"username": "awe", "password": "lol"}, wantCode: http.StatusBadRequest},
		{name: "ok", body: map[string]string{"username": "awe", "password": "s3cr3t-pwd"}, wantCode: http.StatusOK},
		{name: "ok with email", body: map[string]string{"username": "awe@test.ug", "password": "s3cr3t-pwd"}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.request(t, http.MethodPost, "/v1/users/login", "", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d; body: %s", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
					t.Errorf("login response = %s, want a token", rec.Body)
				}
			}
		})
	}
}

func TestAPI_paperLifecycle(t *testing.T) {
	ts := newTestServer(t)
	setter := ts.createUser(t, "setter", []string{user.RoleSetter})
	vetter := ts.createUser(t, "vetter", []string{user.RoleVetter})
	lead := ts.createUser(t, "lead", []string{user.RoleTeamLead})
	chief := ts.createUser(t, "chief", []string{user.RoleChiefExaminer})

	newPaper := map[string]string{
		"course_code":  "CSC101",
		"course_title": "Introduction to Computing",
		"title":        "End of Semester Exam",
		"setter_id":    setter.ID,
	}

	// auth required
	if rec := ts.request(t, http.MethodPost, "/v1/papers", "", newPaper); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	// vetters cannot register drafts
	if rec := ts.request(t, http.MethodPost, "/v1/papers", ts.token(t, vetter), newPaper); rec.Code != http.StatusForbidden {
		t.Fatalf("vetter create code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec := ts.request(t, http.MethodPost, "/v1/papers", ts.token(t, setter), newPaper)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var p paper.Paper
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decoding paper: %v", err)
	}
	if p.Status != paper.StatusDraft {
		t.Errorf("status = %s, want %s", p.Status, paper.StatusDraft)
	}

	transitionPath := fmt.Sprintf("/v1/papers/%s/transition", p.ID)

	// the setter submits; a vetter may not
	body := map[string]interface{}{"target": string(paper.StatusSubmitted)}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, vetter), body); rec.Code != http.StatusForbidden {
		t.Fatalf("vetter submit code = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, setter), body); rec.Code != http.StatusOK {
		t.Fatalf("submit code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	// skipping ahead is a conflict
	body = map[string]interface{}{"target": string(paper.StatusVetted)}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, vetter), body); rec.Code != http.StatusConflict {
		t.Fatalf("skip-ahead code = %d, want %d; body: %s", rec.Code, http.StatusConflict, rec.Body)
	}

	// unknown status is a validation error
	body = map[string]interface{}{"target": "printed"}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, setter), body); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status code = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}

	// walk the rest of the workflow to approval
	steps := []struct {
		target paper.Status
		usr    user.User
	}{
		{paper.StatusIntegrated, lead},
		{paper.StatusSentForReview, lead},
		{paper.StatusVettingAppointed, chief},
		{paper.StatusVettingInProgress, vetter},
		{paper.StatusVetted, vetter},
	}
	for _, step := range steps {
		body = map[string]interface{}{"target": string(step.target)}
		if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, step.usr), body); rec.Code != http.StatusOK {
			t.Fatalf("transition to %s code = %d; body: %s", step.target, rec.Code, rec.Body)
		}
	}

	// approval without a due date is rejected
	body = map[string]interface{}{"target": string(paper.StatusApprovedForPrint)}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, chief), body); rec.Code != http.StatusBadRequest {
		t.Fatalf("approval without due date code = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}

	dueAt := time.Now().UTC().Add(time.Hour)
	body = map[string]interface{}{
		"target":          string(paper.StatusApprovedForPrint),
		"printing_due_at": dueAt.Format(time.RFC3339Nano),
	}
	if rec = ts.request(t, http.MethodPost, transitionPath, ts.token(t, chief), body); rec.Code != http.StatusOK {
		t.Fatalf("approval code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	// issue the credential as the scheduler would
	if _, err := ts.paperSvc.SweepDueCredentials(context.Background(), dueAt); err != nil {
		t.Fatalf("SweepDueCredentials() error = %v", err)
	}
	plaintext := ts.notifier.notices[0].Plaintext

	unlockPath := fmt.Sprintf("/v1/papers/%s/unlock", p.ID)

	// a bad credential reads generically
	if rec = ts.request(t, http.MethodPost, unlockPath, ts.token(t, setter), map[string]string{"credential": "wrong"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad credential code = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}

	if rec = ts.request(t, http.MethodPost, unlockPath, ts.token(t, setter), map[string]string{"credential": plaintext}); rec.Code != http.StatusOK {
		t.Fatalf("unlock code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var unlocked paper.Paper
	if err := json.Unmarshal(rec.Body.Bytes(), &unlocked); err != nil {
		t.Fatalf("decoding unlocked paper: %v", err)
	}
	if unlocked.LockState != paper.LockUnlockedTemporary {
		t.Errorf("lock state = %s, want %s", unlocked.LockState, paper.LockUnlockedTemporary)
	}
	if unlocked.UnlockedBy != setter.ID {
		t.Errorf("unlocked by = %q, want %q", unlocked.UnlockedBy, setter.ID)
	}

	relockPath := fmt.Sprintf("/v1/papers/%s/relock", p.ID)

	// setters cannot relock
	if rec = ts.request(t, http.MethodPost, relockPath, ts.token(t, setter), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("setter relock code = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec = ts.request(t, http.MethodPost, relockPath, ts.token(t, chief), nil); rec.Code != http.StatusOK {
		t.Fatalf("relock code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	// chief examiners can read the audit trail
	auditPath := fmt.Sprintf("/v1/papers/%s/audit", p.ID)
	rec = ts.request(t, http.MethodGet, auditPath, ts.token(t, chief), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var trail []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &trail); err != nil {
		t.Fatalf("decoding audit trail: %v", err)
	}
	// credential_generated + failed unlock + unlock + relock
	if len(trail) != 4 {
		t.Errorf("audit trail = %d record(s), want 4; body: %s", len(trail), rec.Body)
	}

	// but not vetters
	if rec = ts.request(t, http.MethodGet, auditPath, ts.token(t, vetter), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("vetter audit code = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAPI_manualSweeps(t *testing.T) {
	ts := newTestServer(t)
	setter := ts.createUser(t, "setter", []string{user.RoleSetter})
	admin := ts.createUser(t, "boss", []string{user.RoleAdminOversight})

	// staff cannot trigger sweeps
	if rec := ts.request(t, http.MethodPost, "/v1/papers/sweep-due", ts.token(t, setter), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("setter sweep-due code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	for _, path := range []string{"/v1/papers/sweep-due", "/v1/papers/sweep-expired"} {
		rec := ts.request(t, http.MethodPost, path, ts.token(t, admin), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s code = %d, want %d; body: %s", path, rec.Code, http.StatusOK, rec.Body)
		}
	}
}

func TestAPI_retrieveUnknownPaper(t *testing.T) {
	ts := newTestServer(t)
	setter := ts.createUser(t, "setter", []string{user.RoleSetter})

	rec := ts.request(t, http.MethodGet, "/v1/papers/e1f8a6b0-0000-0000-0000-000000000000", ts.token(t, setter), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want %d; body: %s", rec.Code, http.StatusNotFound, rec.Body)
	}
}
