package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefoundry.io/foundry/internal/config"
	"pagefoundry.io/foundry/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Credentials: config.CredentialsConfig{
			StudentEmail:  "student@example.com",
			StudentSecret: "s3cret",
		},
		GitHub: config.GitHubConfig{Token: "ghp_test", Username: "octo"},
		LLM:    config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Validation: config.ValidationConfig{
			FetchTimeout: 10 * time.Second,
		},
		Notify: config.NotifyConfig{
			PostTimeout: time.Second,
			RetryDelays: []time.Duration{time.Second},
		},
		Worker: config.WorkerConfig{GeneralPoolSize: 4, OutboundPoolSize: 2},
	}
}

func TestBootstrap(t *testing.T) {
	application, err := Bootstrap(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)

	require.NotNil(t, application.Router)
	require.NotNil(t, application.Pools)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_UnverifiedBuildRejected(t *testing.T) {
	application, err := Bootstrap(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)

	body := `{"email":"impostor@example.com","secret":"x","task":"t","brief":"b","evaluation_url":"https://e/"}`
	req := httptest.NewRequest(http.MethodPost, "/api/build", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	application, err := Bootstrap(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(application.Shutdown)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
