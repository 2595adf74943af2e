package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/auth"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecognizeRequiresImage(t *testing.T) {
	r := newTestRouter(&Handler{})

	w := do(t, r, http.MethodPost, "/api/demo/recognize", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("body = %v, want success=false", body)
	}
}

func TestRealMarkRequiresSessionID(t *testing.T) {
	r := newTestRouter(&Handler{})
	w := do(t, r, http.MethodPost, "/api/attendance/real-mark", `{"image":"abc"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEndSessionRequiresSessionID(t *testing.T) {
	h := &Handler{Signer: testSigner()}
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/attendance/end_session", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+teacherToken(t, h.Signer))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGuardedRoutesNeedToken(t *testing.T) {
	h := &Handler{Signer: testSigner()}
	r := newTestRouter(h)

	for _, route := range []struct{ method, path string }{
		{http.MethodDelete, "/api/students/stu_001"},
		{http.MethodPost, "/api/attendance/create_session"},
		{http.MethodPost, "/api/register-student"},
	} {
		w := do(t, r, route.method, route.path, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s status = %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestGuardedRoutesRejectStudentRole(t *testing.T) {
	h := &Handler{Signer: testSigner()}
	r := newTestRouter(h)

	pair, err := h.Signer.Issue("stu@example.com", "student")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/students/stu_001", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func testSigner() auth.Signer {
	return auth.Signer{
		Key:        "test-key",
		Issuer:     "faceattend-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func teacherToken(t *testing.T, s auth.Signer) string {
	t.Helper()
	pair, err := s.Issue("teacher@example.com", "teacher")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return pair.AccessToken
}

func TestHealthzReflectsProbes(t *testing.T) {
	h := &Handler{
		DBHealthy:    func(ctx context.Context) bool { return true },
		RedisHealthy: func(ctx context.Context) bool { return false },
	}
	r := newTestRouter(h)

	// Redis down is degraded but not fatal.
	w := do(t, r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with redis down", w.Code)
	}

	h.DBHealthy = func(ctx context.Context) bool { return false }
	w = do(t, r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with db down", w.Code)
	}
}
