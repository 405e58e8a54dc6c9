// Package app is the composition root. Bootstrap stays orchestration-only:
// construct dependencies, wire them, hand back the assembled application.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"pagefoundry.io/foundry/internal/api/handlers"
	"pagefoundry.io/foundry/internal/config"
	"pagefoundry.io/foundry/internal/generator"
	"pagefoundry.io/foundry/internal/notify"
	"pagefoundry.io/foundry/internal/pkg/webclient"
	"pagefoundry.io/foundry/internal/pkg/worker"
	"pagefoundry.io/foundry/internal/publisher"
	"pagefoundry.io/foundry/internal/usecase"
	"pagefoundry.io/foundry/internal/validation"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	Pools  *worker.Pools
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		OutboundPoolSize: cfg.Worker.OutboundPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	// One outbound HTTP capability shared by every upstream collaborator.
	web := webclient.New()

	gen := generator.New(web, generator.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	pub := publisher.New(web, publisher.Config{
		APIBaseURL:   cfg.GitHub.APIBaseURL,
		Token:        cfg.GitHub.Token,
		Username:     cfg.GitHub.Username,
		PagesTimeout: cfg.GitHub.PagesTimeout,
		PollInterval: cfg.GitHub.PollInterval,
	})

	validator := validation.NewOrchestrator(
		validation.NewLiveValidator(web, cfg.Validation.FetchTimeout),
	)

	notifier := notify.NewWithSchedule(web, cfg.Notify.RetryDelays, cfg.Notify.PostTimeout)

	processTask := usecase.NewProcessTaskUseCase(gen, pub, validator, notifier, pools)

	server := handlers.NewServer(handlers.ServerDeps{
		StudentEmail:  cfg.Credentials.StudentEmail,
		StudentSecret: cfg.Credentials.StudentSecret,
		Processor:     processTask,
		Pools:         pools,
	})

	return &Application{
		Config: cfg,
		Router: newRouter(server),
		Pools:  pools,
	}, nil
}
