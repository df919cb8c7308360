package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsphere/internal/config"
	"jobsphere/internal/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router        *gin.Engine
	jsearchHits   atomic.Int32
	jsearchStatus atomic.Int32 // non-zero: the JSearch stub answers with it
	expose        bool
}

const arbeitnowFeed = `{"data": [
  {"slug": "go-1", "title": "Go Developer", "company_name": "Acme", "location": "Berlin", "description": "Go", "job_types": ["full time"], "created_at": 1760000000, "url": "https://a/1"},
  {"slug": "sre-1", "title": "SRE", "company_name": "Beta", "location": "Remote", "description": "Ops", "created_at": 1760000000, "url": "https://a/2"}
]}`

func newTestServer(t *testing.T, quota int) *testServer {
	t.Helper()
	ts := &testServer{expose: true}

	arbeitnow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, arbeitnowFeed)
	}))
	t.Cleanup(arbeitnow.Close)
	jsearch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.jsearchHits.Add(1)
		if status := ts.jsearchStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			return
		}
		_, _ = io.WriteString(w, `{"data": [{"job_id": "j-1", "job_title": "Go Developer", "employer_name": "Gamma", "job_city": "Berlin"}]}`)
	}))
	t.Cleanup(jsearch.Close)

	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "login.html"), []byte("<h1>login</h1>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(public, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "css", "style.css"), []byte("body{}"), 0o600))

	expose := ts.expose
	cfg := &config.Config{
		Env: "test",
		Server: config.ServerConfig{
			BasePath:  "/job-sphere",
			PublicDir: public,
		},
		Session: config.SessionConfig{CookieTTL: 7 * 24 * time.Hour},
		Auth: config.AuthConfig{
			ResetCodeTTL:    15 * time.Minute,
			Argon2:          config.Argon2Config{Time: 1, MemoryKiB: 64, Threads: 1},
			ExposeResetCode: &expose,
		},
		JSearch: config.JSearchConfig{
			BaseURL:     jsearch.URL,
			APIKey:      "test-key",
			Host:        "jsearch.p.rapidapi.com",
			Quota:       quota,
			QuotaWindow: "monthly",
			Timeout:     time.Second,
		},
		Arbeitnow: config.ArbeitnowConfig{URL: arbeitnow.URL, Timeout: time.Second},
	}

	conn, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ts.router = NewRouter(cfg, conn, NewLogger("test", io.Discard))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token" {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", w.Header())
	return nil
}

func TestSignupSessionLogout(t *testing.T) {
	ts := newTestServer(t, 200)

	w := ts.do(t, http.MethodPost, "/job-sphere/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "message": "Account created"}, decode(t, w))

	cookie := sessionCookie(t, w)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), cookie.Expires, time.Minute)

	w = ts.do(t, http.MethodGet, "/job-sphere/api/check-session", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["authenticated"])
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(1), user["id"])
	assert.Equal(t, "ana", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, false, user["dark_mode"])
	assert.Equal(t, true, user["notifications_enabled"])
	assert.Equal(t, []any{}, user["preferred_job_titles"])
	assert.NotContains(t, w.Body.String(), "password")

	w = ts.do(t, http.MethodPost, "/job-sphere/api/logout", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true}, decode(t, w))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = ts.do(t, http.MethodGet, "/job-sphere/api/check-session", "", cookie)
	assert.Equal(t, map[string]any{"authenticated": false}, decode(t, w))

	w = ts.do(t, http.MethodPost, "/job-sphere/api/search", `{"query":"go"}`, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupAndLoginErrors(t *testing.T) {
	ts := newTestServer(t, 200)

	w := ts.do(t, http.MethodPost, "/job-sphere/api/signup", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "All fields required"}, decode(t, w))

	w = ts.do(t, http.MethodPost, "/job-sphere/api/signup", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields required", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/job-sphere/api/signup", `{"username":"ana","email":"a@x.com","password":"password"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must contain at least one uppercase letter", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/job-sphere/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/job-sphere/api/signup", `{"username":"ana","email":"z@x.com","password":"Passw0rd!"}`)
	assert.Equal(t, "Username already exists", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/job-sphere/api/login", `{"username":"ana","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Invalid credentials"}, decode(t, w))

	w = ts.do(t, http.MethodPost, "/job-sphere/api/login", `{"username":"ana","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Login successful"}, decode(t, w))
	sessionCookie(t, w)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t, 200)
	ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)

	w := ts.do(t, http.MethodPost, "/api/forgot-password", `{"email":"nobody@x.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Email not found", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/api/forgot-password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Reset code sent", body["message"])
	code, _ := body["dev_code"].(string)
	require.Regexp(t, `^\d{6}$`, code)

	reset := func(c, pw string) *httptest.ResponseRecorder {
		b, _ := json.Marshal(map[string]string{"email": "a@x.com", "code": c, "new_password": pw})
		return ts.do(t, http.MethodPost, "/api/reset-password", string(b))
	}

	w = reset(code, "short")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 8 characters", decode(t, w)["message"])

	w = reset(code, "N3wPassw0rd!")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password reset successful", decode(t, w)["message"])

	w = reset(code, "An0therPass!")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid code", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/api/login", `{"username":"ana","password":"N3wPassw0rd!"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchRecommendAndStats(t *testing.T) {
	ts := newTestServer(t, 200)
	w := ts.do(t, http.MethodPost, "/job-sphere/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	cookie := sessionCookie(t, w)

	w = ts.do(t, http.MethodPost, "/job-sphere/api/search", `{"query":"go","location":"berlin","source":"all"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total_results"])
	jobs := body["jobs"].([]any)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Arbeitnow", jobs[0].(map[string]any)["source"])
	assert.Equal(t, "JSearch", jobs[1].(map[string]any)["source"])
	assert.Equal(t, int32(1), ts.jsearchHits.Load())

	w = ts.do(t, http.MethodGet, "/job-sphere/api/stats", "")
	assert.Equal(t, map[string]any{"used": float64(1), "remaining": float64(199), "total": float64(200)}, decode(t, w))

	w = ts.do(t, http.MethodGet, "/job-sphere/api/recommended-jobs", "", cookie)
	assert.Equal(t, map[string]any{"success": true, "jobs": []any{}, "message": "Set preferences first"}, decode(t, w))

	w = ts.do(t, http.MethodPost, "/job-sphere/api/profile/update", `{"preferred_job_titles":["go","sre"],"preferred_locations":[]}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile updated", decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/job-sphere/api/recommended-jobs", "", cookie)
	body = decode(t, w)
	assert.NotContains(t, body, "message")
	assert.Len(t, body["jobs"], 2)
	assert.Equal(t, int32(1), ts.jsearchHits.Load())

	w = ts.do(t, http.MethodPost, "/job-sphere/api/settings/update", `{"dark_mode":true}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Settings updated", decode(t, w)["message"])
	w = ts.do(t, http.MethodGet, "/job-sphere/api/check-session", "", cookie)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, true, user["dark_mode"])
	assert.Equal(t, []any{"go", "sre"}, user["preferred_job_titles"])
}

func TestSearchSkipsJSearchWhenQuotaSpent(t *testing.T) {
	ts := newTestServer(t, 1)
	w := ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	cookie := sessionCookie(t, w)

	ts.do(t, http.MethodPost, "/api/search", `{"query":"go","source":"jsearch"}`, cookie)
	w = ts.do(t, http.MethodPost, "/api/search", `{"query":"go","source":"jsearch"}`, cookie)
	body := decode(t, w)
	assert.Equal(t, float64(0), body["total_results"])
	assert.Equal(t, []any{}, body["jobs"])
	assert.Equal(t, int32(1), ts.jsearchHits.Load())

	w = ts.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, map[string]any{"used": float64(1), "remaining": float64(0), "total": float64(1)}, decode(t, w))
}

func TestSearchWithZeroQuotaNeverCallsJSearch(t *testing.T) {
	ts := newTestServer(t, 0)
	w := ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	cookie := sessionCookie(t, w)

	w = ts.do(t, http.MethodPost, "/api/search", `{"query":"go"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total_results"])
	assert.Zero(t, ts.jsearchHits.Load())

	w = ts.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, map[string]any{"used": float64(0), "remaining": float64(0), "total": float64(0)}, decode(t, w))
}

func TestSearchRefundsFailedJSearchCall(t *testing.T) {
	ts := newTestServer(t, 1)
	w := ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	cookie := sessionCookie(t, w)

	ts.jsearchStatus.Store(http.StatusServiceUnavailable)
	w = ts.do(t, http.MethodPost, "/api/search", `{"query":"go","source":"jsearch"}`, cookie)
	assert.Equal(t, float64(0), decode(t, w)["total_results"])
	w = ts.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, float64(0), decode(t, w)["used"])

	ts.jsearchStatus.Store(0)
	w = ts.do(t, http.MethodPost, "/api/search", `{"query":"go","source":"jsearch"}`, cookie)
	assert.Equal(t, float64(1), decode(t, w)["total_results"])
	assert.Equal(t, int32(2), ts.jsearchHits.Load())

	w = ts.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, map[string]any{"used": float64(1), "remaining": float64(0), "total": float64(1)}, decode(t, w))
}

func TestLongPasswordSignupAndLogin(t *testing.T) {
	ts := newTestServer(t, 200)
	password := "Passw0rd!" + strings.Repeat("a", 70)

	w := ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/login", `{"username":"ana","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Login successful", decode(t, w)["message"])
}

func TestMistypedFieldLeavesSettingsUntouched(t *testing.T) {
	ts := newTestServer(t, 200)
	w := ts.do(t, http.MethodPost, "/api/signup", `{"username":"ana","email":"a@x.com","password":"Passw0rd!"}`)
	cookie := sessionCookie(t, w)

	w = ts.do(t, http.MethodPost, "/api/settings/update", `{"dark_mode":"yes","notifications_enabled":false}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Invalid value for dark_mode"}, decode(t, w))

	w = ts.do(t, http.MethodPost, "/api/profile/update", `{"username":"bob","preferred_job_titles":"go"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/check-session", "", cookie)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "ana", user["username"])
	assert.Equal(t, false, user["dark_mode"])
	assert.Equal(t, true, user["notifications_enabled"])
}

func TestStaticAndNotFound(t *testing.T) {
	ts := newTestServer(t, 200)

	for _, p := range []string{"/", "/job-sphere", "/job-sphere/", "/login.html", "/job-sphere/login.html"} {
		w := ts.do(t, http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.Contains(t, w.Body.String(), "login", p)
	}

	w := ts.do(t, http.MethodGet, "/job-sphere/css/style.css", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")

	for _, p := range []string{"/nope", "/job-sphere/missing.html", "/css/../../etc/passwd", "/job-sphere/api/unknown"} {
		w := ts.do(t, http.MethodGet, p, "")
		assert.Equal(t, http.StatusNotFound, w.Code, p)
		assert.Equal(t, map[string]any{"success": false, "message": "Not found"}, decode(t, w), p)
	}

	w = ts.do(t, http.MethodPost, "/job-sphere/api/unknown", "{}")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("prod", &buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger("dev", &buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
