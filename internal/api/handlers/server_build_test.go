package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefoundry.io/foundry/internal/api/middleware"
	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/worker"
)

func init() {
	_ = logger.Init("error", "json")
	gin.SetMode(gin.TestMode)
}

type recordingProcessor struct {
	mu   sync.Mutex
	seen []*domain.TaskRequest
	done chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{done: make(chan struct{}, 8)}
}

func (p *recordingProcessor) Execute(ctx context.Context, req *domain.TaskRequest) error {
	p.mu.Lock()
	p.seen = append(p.seen, req)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingProcessor) wait(t *testing.T) *domain.TaskRequest {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor was never invoked")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[len(p.seen)-1]
}

func newTestRouter(t *testing.T, proc TaskProcessor) *gin.Engine {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	s := NewServer(ServerDeps{
		StudentEmail:  "student@example.com",
		StudentSecret: "s3cret",
		Processor:     proc,
		Pools:         pools,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/", s.GetRoot)
	r.GET("/health", s.GetHealth)
	r.POST("/api/build", s.PostBuild)
	return r
}

func postBuild(r *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/build", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"email":          "student@example.com",
		"secret":         "s3cret",
		"task":           "calc-v1",
		"round":          1,
		"nonce":          "ab12",
		"brief":          "Build a calculator.",
		"checks":         []string{"Repo has MIT license"},
		"evaluation_url": "https://eval.example/notify",
	}
}

func TestPostBuild_Accepted(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	w := postBuild(r, validBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Contains(t, resp["message"], "calc-v1")

	got := proc.wait(t)
	assert.Equal(t, "calc-v1", got.Task)
	assert.Equal(t, []string{"Repo has MIT license"}, got.Checks)
}

func TestPostBuild_ChecksAsSingleString(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	body := validBody()
	body["checks"] = "Repo has MIT license"
	w := postBuild(r, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := proc.wait(t)
	assert.Equal(t, []string{"Repo has MIT license"}, got.Checks)
}

func TestPostBuild_EmailMismatch(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	body := validBody()
	body["email"] = "impostor@example.com"
	w := postBuild(r, body)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_MISMATCH")
	assert.Empty(t, proc.seen)
}

func TestPostBuild_InvalidSecret(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	body := validBody()
	body["secret"] = "wrong"
	w := postBuild(r, body)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SECRET")
	assert.Empty(t, proc.seen)
}

func TestPostBuild_MissingFields(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	w := postBuild(r, map[string]interface{}{"email": "student@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST_BODY")
}

func TestPostBuild_BodyAsJSONString(t *testing.T) {
	proc := newRecordingProcessor()
	r := newTestRouter(t, proc)

	// A quoted string instead of an object is a common caller mistake.
	req := httptest.NewRequest(http.MethodPost, "/api/build", bytes.NewReader([]byte(`"{\"email\": \"x\"}"`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "JSON object")
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, newRecordingProcessor())

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
	}
}

func TestHealthIncludesWorkerMetrics(t *testing.T) {
	r := newTestRouter(t, newRecordingProcessor())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "workers")
}
