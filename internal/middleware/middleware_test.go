package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f fakeRevocations) IsBlacklisted(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

func decode(t *testing.T, w *httptest.ResponseRecorder) model.Envelope {
	t.Helper()
	var env model.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %q: %v", w.Body.String(), err)
	}
	return env
}

func protectedRouter(jwt *auth.JWTManager, rev RevocationChecker, roles ...model.Role) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{AuthMiddleware(jwt, rev)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString("role"), "user_id": c.MustGet("user_id")})
	})
	r.GET("/me", chain...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("s", time.Hour)
	token, err := jwt.GenerateToken(uuid.New(), "a@example.com", "Ann", "")
	if err != nil {
		t.Fatal(err)
	}
	revokedToken, _ := jwt.GenerateToken(uuid.New(), "b@example.com", "Bob", "User")

	tests := []struct {
		name   string
		header string
		err    error
		want   int
	}{
		{"missing", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"garbage", "Bearer abc", nil, http.StatusUnauthorized},
		{"revoked", "Bearer " + revokedToken, nil, http.StatusUnauthorized},
		{"redis down", "Bearer " + token, errors.New("dial tcp"), http.StatusServiceUnavailable},
		{"ok", "Bearer " + token, nil, http.StatusOK},
		{"lowercase scheme", "bearer " + token, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := fakeRevocations{revoked: map[string]bool{revokedToken: true}, err: tt.err}
			r := protectedRouter(jwt, rev)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK && decode(t, w).Success {
				t.Error("error envelope has success=true")
			}
		})
	}
}

func TestAuthMiddleware_DefaultsRole(t *testing.T) {
	jwt := auth.NewJWTManager("s", time.Hour)
	token, _ := jwt.GenerateToken(uuid.New(), "a@example.com", "Ann", "")
	r := protectedRouter(jwt, fakeRevocations{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	var body struct{ Role string }
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Role != "User" {
		t.Errorf("role = %q, want User", body.Role)
	}
}

func TestRequireRole(t *testing.T) {
	jwt := auth.NewJWTManager("s", time.Hour)
	userToken, _ := jwt.GenerateToken(uuid.New(), "a@example.com", "Ann", "User")
	expertToken, _ := jwt.GenerateToken(uuid.New(), "d@example.com", "Dr", "Expert")
	r := protectedRouter(jwt, fakeRevocations{}, model.RoleExpert)

	for token, want := range map[string]int{userToken: http.StatusForbidden, expertToken: http.StatusOK} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("status = %d, want %d", w.Code, want)
		}
	}
}

type memLimiter struct {
	hits map[string]int
	err  error
}

func (m *memLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if m.err != nil {
		return false, 0, m.err
	}
	m.hits[key]++
	return m.hits[key] <= limit, window, nil
}

func TestRateLimit(t *testing.T) {
	log, _ := test.NewNullLogger()
	lim := &memLimiter{hits: map[string]int{}}
	r := gin.New()
	r.GET("/x", RateLimit(lim, "auth", 2, 30*time.Second, log), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if _, ok := lim.hits["ratelimit:auth:10.0.0.1"]; !ok {
		t.Errorf("keys = %v", lim.hits)
	}

	// another client has its own budget
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second client status = %d", w.Code)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.GET("/x", RateLimit(&memLimiter{err: errors.New("redis down")}, "api", 1, time.Minute, log), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(hook.AllEntries()) != 1 {
		t.Errorf("expected a warning")
	}
}

func TestRecovery(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || decode(t, w).Success {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
	if hook.LastEntry() == nil {
		t.Error("panic not logged")
	}
}
