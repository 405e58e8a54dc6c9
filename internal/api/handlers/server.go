// Package handlers implements the HTTP API: intake, health, metrics.
package handlers

import (
	"context"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/worker"
)

// TaskProcessor runs one accepted build task end to end.
type TaskProcessor interface {
	Execute(ctx context.Context, req *domain.TaskRequest) error
}

// Server implements all API handlers.
type Server struct {
	studentEmail  string
	studentSecret string
	processor     TaskProcessor
	pools         *worker.Pools
}

// ServerDeps holds all dependencies for creating a Server. Manual DI.
type ServerDeps struct {
	StudentEmail  string
	StudentSecret string
	Processor     TaskProcessor
	Pools         *worker.Pools
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		studentEmail:  deps.StudentEmail,
		studentSecret: deps.StudentSecret,
		processor:     deps.Processor,
		pools:         deps.Pools,
	}
}
