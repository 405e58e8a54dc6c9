// Package usecase provides application use cases, reusable across HTTP and
// CLI entry points.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/notify"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/worker"
)

// Generator produces and patches application FileSets.
type Generator interface {
	GenerateApp(ctx context.Context, req *domain.TaskRequest, existing domain.FileSet) (domain.FileSet, error)
	FixFailures(ctx context.Context, task string, files domain.FileSet, failed []domain.CheckResult) domain.FileSet
}

// Publisher deploys FileSets to a repository with a public pages URL.
type Publisher interface {
	CreateAndDeploy(ctx context.Context, repoName string, files domain.FileSet, taskID string) (*domain.Deployment, error)
	UpdateRepository(ctx context.Context, repoName string, files domain.FileSet) (*domain.Deployment, error)
	FetchRepositoryFiles(ctx context.Context, repoName string) (domain.FileSet, error)
}

// Validator runs the validation sequence over an artifact. An empty pagesURL
// skips the live stage.
type Validator interface {
	Run(ctx context.Context, fs domain.FileSet, checks []string, pagesURL string) *domain.ValidationReport
}

// Notifier delivers the evaluation callback with retry.
type Notifier interface {
	Deliver(ctx context.Context, endpoint string, payload *domain.EvaluationNotification) *notify.Delivery
}

// ProcessTaskUseCase runs one accepted build task end to end: generate,
// validate, publish, validate live, notify.
//
// Validation is advisory throughout: a failed check influences the targeted
// fix pass and the report, never the decision to publish or notify.
type ProcessTaskUseCase struct {
	generator Generator
	publisher Publisher
	validator Validator
	notifier  Notifier
	pools     *worker.Pools
}

// NewProcessTaskUseCase creates a ProcessTaskUseCase. pools may be nil, in
// which case the notification delivery runs on the caller's goroutine.
func NewProcessTaskUseCase(g Generator, p Publisher, v Validator, n Notifier, pools *worker.Pools) *ProcessTaskUseCase {
	return &ProcessTaskUseCase{
		generator: g,
		publisher: p,
		validator: v,
		notifier:  n,
		pools:     pools,
	}
}

// Execute processes one task. The returned error is for the caller's log
// only; by the time Execute returns, everything recoverable has already been
// handled internally.
func (uc *ProcessTaskUseCase) Execute(ctx context.Context, req *domain.TaskRequest) error {
	logger.Info("processing task",
		zap.String("task", req.Task),
		zap.Int("round", req.Round),
		zap.Int("checks", len(req.Checks)),
	)

	repoName := repoNameFor(req.Task)

	// Later rounds update the previous artifact; a vanished repository
	// degrades to round-1 semantics.
	var existing domain.FileSet
	if req.Round > 1 {
		fetched, err := uc.publisher.FetchRepositoryFiles(ctx, repoName)
		if err != nil {
			logger.Warn("could not fetch existing files, treating as first round",
				zap.String("repo", repoName),
				zap.Error(err),
			)
		} else if len(fetched) == 0 {
			logger.Warn("no existing repository, treating as first round",
				zap.String("repo", repoName),
			)
		} else {
			existing = fetched
		}
	}
	firstRound := req.Round <= 1 || existing == nil

	files, err := uc.generator.GenerateApp(ctx, req, existing)
	if err != nil {
		return fmt.Errorf("generate application for %s: %w", req.Task, err)
	}

	// Pre-publish validation feeds the targeted fix pass. Only content
	// defects the generator can patch are worth a second model call.
	preReport := uc.validator.Run(ctx, files, req.Checks, "")
	if fixable := fixableFailures(preReport); len(fixable) > 0 {
		files = uc.generator.FixFailures(ctx, req.Task, files, fixable)
	}

	var deployment *domain.Deployment
	if firstRound {
		deployment, err = uc.publisher.CreateAndDeploy(ctx, repoName, files, req.Task)
	} else {
		deployment, err = uc.publisher.UpdateRepository(ctx, repoName, files)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", req.Task, err)
	}

	report := uc.validator.Run(ctx, files, req.Checks, deployment.PagesURL)

	notification := &domain.EvaluationNotification{
		Email:      req.Email,
		Task:       req.Task,
		Round:      req.Round,
		Nonce:      req.Nonce,
		RepoURL:    deployment.RepoURL,
		CommitSHA:  deployment.CommitSHA,
		PagesURL:   deployment.PagesURL,
		Validation: report,
	}

	delivery := uc.deliver(ctx, req.EvaluationURL, notification)
	if delivery.State != notify.StateSuccess {
		logger.Error("task published but notification undelivered",
			zap.String("task", req.Task),
			zap.String("state", string(delivery.State)),
			zap.Int("attempts", len(delivery.Attempts)),
		)
		return fmt.Errorf("notify evaluation endpoint for %s: delivery %s", req.Task, delivery.State)
	}

	logger.Info("task completed",
		zap.String("task", req.Task),
		zap.String("repo", deployment.RepoURL),
		zap.String("pages", deployment.PagesURL),
		zap.Int("checks_passed", report.Checks.PassedCount),
		zap.Int("checks_total", report.Checks.TotalCount),
	)
	return nil
}

// deliver runs the notification delivery on the outbound pool, so its backoff
// waits hold an outbound slot instead of a general pipeline slot. Pool
// saturation degrades to inline delivery rather than dropping the callback.
func (uc *ProcessTaskUseCase) deliver(ctx context.Context, endpoint string, payload *domain.EvaluationNotification) *notify.Delivery {
	if uc.pools == nil {
		return uc.notifier.Deliver(ctx, endpoint, payload)
	}

	done := make(chan *notify.Delivery, 1)
	err := uc.pools.Outbound.Submit(ctx, func(ctx context.Context) {
		done <- uc.notifier.Deliver(ctx, endpoint, payload)
	})
	if err != nil {
		logger.Warn("outbound pool unavailable, delivering inline", zap.Error(err))
		return uc.notifier.Deliver(ctx, endpoint, payload)
	}
	return <-done
}

// fixableFailures filters the pre-publish report down to check failures a
// targeted regeneration can address.
func fixableFailures(report *domain.ValidationReport) []domain.CheckResult {
	if report == nil {
		return nil
	}
	var fixable []domain.CheckResult
	for _, r := range report.Checks.Results {
		if r.Passed {
			continue
		}
		switch r.Category {
		case domain.CategoryReadmeQuality, domain.CategoryHtmlElementById, domain.CategoryCdnScriptPresence:
			fixable = append(fixable, r)
		}
	}
	return fixable
}

// repoNameFor derives a repository name from a task identifier.
func repoNameFor(task string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(task)
}
