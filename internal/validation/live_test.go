package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/webclient"
)

func init() {
	_ = logger.Init("error", "json")
}

// stubFetcher serves canned responses without a network.
type stubFetcher struct {
	resp  *webclient.Response
	err   error
	calls int
}

func (f *stubFetcher) Get(ctx context.Context, url string, timeout time.Duration) (*webclient.Response, error) {
	f.calls++
	return f.resp, f.err
}

// panicFetcher simulates an internal fault inside the live stage.
type panicFetcher struct{}

func (panicFetcher) Get(ctx context.Context, url string, timeout time.Duration) (*webclient.Response, error) {
	panic("fetcher wiring broken")
}

func TestLiveValidator_HappyPath(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{
		StatusCode: 200,
		Body:       calculatorFiles()["index.html"],
		ElapsedMS:  42,
	}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://student.github.io/calc/", []string{
		"Page has element with id='result'",
		"Page loads Bootstrap 5 from CDN",
	})

	require.NotNil(t, res)
	assert.True(t, res.Passed, "errors: %v", res.Errors)
	assert.Equal(t, 200, res.PageInfo.StatusCode)
	assert.Equal(t, 42, res.PageInfo.ResponseTimeMS)
	assert.Greater(t, res.PageInfo.HTMLSizeBytes, 0)
}

func TestLiveValidator_Non200FailsFast(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{StatusCode: 500, Body: "boom", ElapsedMS: 10}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://student.github.io/calc/", []string{
		"Page has element with id='result'",
	})

	assert.False(t, res.Passed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "HTTP 500")
	assert.Equal(t, 500, res.PageInfo.StatusCode)
}

func TestLiveValidator_EmptyBodyFailsFast(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{StatusCode: 200, Body: "  ", ElapsedMS: 5}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://x.example/", nil)
	assert.False(t, res.Passed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "empty body")
}

func TestLiveValidator_FetchErrorRecordsPageInfo(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("dial tcp: i/o timeout")}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://x.example/", nil)
	assert.False(t, res.Passed)
	assert.Equal(t, -1, res.PageInfo.StatusCode)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "failed to fetch page")
	assert.Contains(t, res.Errors[0], apperrors.CodeNetworkFault)
}

func TestLiveValidator_MissingElementIsError(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{
		StatusCode: 200,
		Body:       `<!DOCTYPE html><html><body><p>hello</p></body></html>`,
		ElapsedMS:  7,
	}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://x.example/", []string{
		"Page has element with id='result'",
	})
	assert.False(t, res.Passed)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "live page")
}

func TestLiveValidator_MissingCdnIsWarning(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{
		StatusCode: 200,
		Body:       `<!DOCTYPE html><html><body><div id="result"></div></body></html>`,
		ElapsedMS:  7,
	}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://x.example/", []string{
		"Page has element with id='result'",
		"Page loads Bootstrap 5 from CDN",
	})
	assert.True(t, res.Passed, "CDN absence live is advisory only")
	assert.NotEmpty(t, res.Warnings)
}

func TestLiveValidator_ErrorBannerIsWarning(t *testing.T) {
	fetcher := &stubFetcher{resp: &webclient.Response{
		StatusCode: 200,
		Body:       `<!DOCTYPE html><html><body><h1>404 Not Found</h1></body></html>`,
		ElapsedMS:  3,
	}}
	v := NewLiveValidator(fetcher, time.Second)

	res := v.Validate(context.Background(), "https://x.example/", nil)
	assert.True(t, res.Passed, "banner scan is a heuristic, not a hard failure")
	assert.NotEmpty(t, res.Warnings)
}
