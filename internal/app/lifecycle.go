package app

import (
	"pagefoundry.io/foundry/internal/pkg/logger"
)

// Shutdown gracefully shuts down all application components. Worker pool
// shutdown cancels the service context first, so in-flight pipelines stop at
// their next blocking point.
func (a *Application) Shutdown() {
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	logger.Info("application shut down")
}
