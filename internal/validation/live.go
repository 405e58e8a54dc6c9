package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/webclient"
)

// DefaultFetchTimeout bounds one live page fetch.
const DefaultFetchTimeout = 10 * time.Second

// errorBanners are substrings whose presence in rendered page text suggests a
// broken deployment. Heuristic signal only, recorded as warnings.
var errorBanners = []string{
	"404",
	"not found",
	"uncaught",
	"undefined is not a function",
	"stack trace",
	"internal server error",
}

// Fetcher is the HTTP GET capability the live validator depends on.
type Fetcher interface {
	Get(ctx context.Context, url string, timeout time.Duration) (*webclient.Response, error)
}

// LiveValidator validates a published page over HTTP.
type LiveValidator struct {
	fetcher Fetcher
	timeout time.Duration
}

// NewLiveValidator creates a LiveValidator. A zero timeout falls back to
// DefaultFetchTimeout.
func NewLiveValidator(fetcher Fetcher, timeout time.Duration) *LiveValidator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &LiveValidator{fetcher: fetcher, timeout: timeout}
}

// Validate fetches pagesURL and re-applies the live-observable check
// evaluators to the fetched HTML. PageInfo is recorded regardless of outcome;
// a failed fetch or non-200 status fails fast without attempting further
// checks.
func (v *LiveValidator) Validate(ctx context.Context, pagesURL string, checks []string) *domain.LiveResult {
	result := &domain.LiveResult{
		PageInfo: domain.PageInfo{StatusCode: -1},
	}

	resp, err := v.fetcher.Get(ctx, pagesURL, v.timeout)
	if err != nil {
		fault := apperrors.Wrap(err, apperrors.CodeNetworkFault, "failed to fetch page", 0)
		logger.Warn("live page fetch failed", zap.String("url", pagesURL), zap.Error(fault))
		result.Errors = append(result.Errors, fault.Error())
		return result
	}

	result.PageInfo = domain.PageInfo{
		StatusCode:     resp.StatusCode,
		ResponseTimeMS: resp.ElapsedMS,
		HTMLSizeBytes:  len(resp.Body),
	}

	if resp.StatusCode != 200 {
		result.Errors = append(result.Errors, fmt.Sprintf("page returned HTTP %d", resp.StatusCode))
		return result
	}
	if IsEmpty(resp.Body) {
		result.Errors = append(result.Errors, "page returned an empty body")
		return result
	}

	// Re-run the structurally observable evaluators against the live HTML,
	// under the same pass/fail contract as the static pass.
	liveFS := domain.FileSet{"index.html": resp.Body}
	for _, raw := range checks {
		switch Classify(raw) {
		case domain.CategoryHtmlElementById:
			r := MatchCheck(liveFS, raw)
			if r.Passed {
				logger.Debug("live element check passed", zap.String("check", raw))
			} else {
				result.Errors = append(result.Errors, "live page: "+r.Detail)
			}
		case domain.CategoryCdnScriptPresence:
			r := MatchCheck(liveFS, raw)
			if !r.Passed {
				result.Warnings = append(result.Warnings, "live page: "+r.Detail)
			}
		}
	}

	// Error-banner scan over rendered text. Parse failures degrade to a
	// warning; they never abort live validation.
	if tree, err := ParseHTML(resp.Body); err == nil {
		text := PageText(tree)
		for _, banner := range errorBanners {
			if strings.Contains(text, banner) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("page text contains %q", banner))
			}
		}
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("live HTML parsing degraded: %v", err))
	}

	result.Passed = len(result.Errors) == 0
	return result
}
