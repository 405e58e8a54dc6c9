package validation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
	"pagefoundry.io/foundry/internal/pkg/logger"
)

// banner is the operator log delimiter. The textual shape of validation logs
// (banner, stage lines, per-check ✓/✗ lines, summary, completion banner) is a
// contract for log-scraping tooling — do not reformat.
const banner = "======================================================================"

// Orchestrator sequences Static → Requirements → Live validation into one
// cumulative report.
//
// Contract: no stage failure and no internal fault may propagate out of Run.
// Validation is observability, not a gate; the publishing pipeline always
// receives a complete report.
type Orchestrator struct {
	live *LiveValidator
}

// NewOrchestrator creates an Orchestrator. live may be nil when no live
// validation capability exists; the live stage is then reported as absent.
func NewOrchestrator(live *LiveValidator) *Orchestrator {
	return &Orchestrator{live: live}
}

// Run executes the full validation sequence. pagesURL may be empty, in which
// case the live stage is skipped and Live stays nil in the report — a valid,
// reportable state.
func (o *Orchestrator) Run(ctx context.Context, fs domain.FileSet, checks []string, pagesURL string) *domain.ValidationReport {
	report := &domain.ValidationReport{}

	logger.S().Info(banner)

	logger.S().Info("VALIDATION: Static Files")
	report.Static = o.runStatic(fs)
	for _, e := range report.Static.Errors {
		logger.S().Infof("  ✗ %s", e)
	}
	if report.Static.Passed {
		logger.S().Info("  ✓ static file battery passed")
	}

	logger.S().Info("VALIDATION: Requirements Checks")
	report.Checks = o.runChecks(fs, checks)
	for _, r := range report.Checks.Results {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		logger.S().Infof("  %s %s: %s", mark, r.Spec.RawText, r.Detail)
	}
	logger.S().Infof("Checks validation summary: %d/%d passed", report.Checks.PassedCount, report.Checks.TotalCount)

	logger.S().Info("VALIDATION: Live Page")
	report.Live = o.runLive(ctx, pagesURL, checks)
	switch {
	case report.Live == nil:
		logger.S().Info("  live validation skipped (no live URL)")
	case report.Live.Passed:
		logger.S().Infof("  ✓ live page ok (HTTP %d, %d bytes)", report.Live.PageInfo.StatusCode, report.Live.PageInfo.HTMLSizeBytes)
	default:
		for _, e := range report.Live.Errors {
			logger.S().Infof("  ✗ %s", e)
		}
	}

	logger.S().Info("VALIDATION COMPLETE")
	logger.S().Info(banner)

	return report
}

// runStatic wraps the static battery so an internal fault degrades to a
// recorded error entry instead of escaping.
func (o *Orchestrator) runStatic(fs domain.FileSet) (result domain.StaticResult) {
	defer func() {
		if r := recover(); r != nil {
			fault := apperrors.Internal(apperrors.CodeEvidenceFault,
				fmt.Sprintf("internal static validation fault: %v", r))
			logger.Error("static validation fault", zap.Error(fault))
			result = domain.StaticResult{
				Passed: false,
				Errors: []string{fault.Error()},
			}
		}
	}()
	return ValidateStatic(fs)
}

// runChecks wraps requirements validation. MatchCheck already contains
// per-check recovery; this guards the scaffolding around it while preserving
// the one-result-per-check invariant.
func (o *Orchestrator) runChecks(fs domain.FileSet, checks []string) (result domain.ChecksResult) {
	defer func() {
		if r := recover(); r != nil {
			fault := apperrors.Internal(apperrors.CodeEvaluationFault,
				fmt.Sprintf("internal requirements validation fault: %v", r))
			logger.Error("requirements validation fault", zap.Error(fault))
			result = failAllChecks(checks, fault.Error())
		}
	}()
	return ValidateChecks(fs, checks)
}

// runLive wraps live validation. A nil result means the stage could not run.
func (o *Orchestrator) runLive(ctx context.Context, pagesURL string, checks []string) (result *domain.LiveResult) {
	if o.live == nil || pagesURL == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			fault := apperrors.Internal(apperrors.CodeEvaluationFault,
				fmt.Sprintf("internal live validation fault: %v", r))
			logger.Error("live validation fault", zap.Error(fault))
			result = &domain.LiveResult{
				Passed:   false,
				PageInfo: domain.PageInfo{StatusCode: -1},
				Errors:   []string{fault.Error()},
			}
		}
	}()
	return o.live.Validate(ctx, pagesURL, checks)
}

// failAllChecks builds a degraded result that still carries one entry per
// unique check, in order.
func failAllChecks(checks []string, detail string) domain.ChecksResult {
	seen := make(map[string]struct{}, len(checks))
	var results []domain.CheckResult
	for _, raw := range checks {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		results = append(results, domain.CheckResult{
			Spec:     domain.CheckSpec{RawText: raw},
			Category: domain.CategoryGeneric,
			Passed:   false,
			Detail:   detail,
		})
	}
	return domain.ChecksResult{Results: results, PassedCount: 0, TotalCount: len(results)}
}
