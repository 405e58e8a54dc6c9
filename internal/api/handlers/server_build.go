package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
	"pagefoundry.io/foundry/internal/pkg/logger"
)

// buildRequest is the intake wire shape. Checks tolerates both a single
// string and a list; some callers send one bare check.
type buildRequest struct {
	Email         string              `json:"email" binding:"required"`
	Secret        string              `json:"secret" binding:"required"`
	Task          string              `json:"task" binding:"required"`
	Round         int                 `json:"round"`
	Nonce         string              `json:"nonce"`
	Brief         string              `json:"brief" binding:"required"`
	Checks        stringOrList        `json:"checks"`
	EvaluationURL string              `json:"evaluation_url" binding:"required"`
	Attachments   []domain.Attachment `json:"attachments"`
}

// stringOrList unmarshals either a JSON string or a JSON array of strings.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("checks must be a string or a list of strings")
	}
	*s = list
	return nil
}

// PostBuild handles POST /api/build: verify credentials, accept immediately,
// process in the background.
func (s *Server) PostBuild(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidBody,
			"request body must be a JSON object with email, secret, task, brief and evaluation_url",
			http.StatusBadRequest))
		return
	}

	logger.Info("task request received",
		zap.String("task", req.Task),
		zap.Int("round", req.Round),
		zap.Int("checks", len(req.Checks)),
	)

	if req.Email != s.studentEmail {
		logger.Warn("email mismatch", zap.String("email", req.Email))
		_ = c.Error(apperrors.Forbidden(apperrors.CodeEmailMismatch,
			"email does not match configured student email"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.studentSecret)) != 1 {
		logger.Warn("invalid secret", zap.String("task", req.Task))
		_ = c.Error(apperrors.Forbidden(apperrors.CodeInvalidSecret, "invalid secret"))
		return
	}

	task := &domain.TaskRequest{
		Email:         req.Email,
		Task:          req.Task,
		Round:         req.Round,
		Nonce:         req.Nonce,
		Brief:         req.Brief,
		Checks:        req.Checks,
		EvaluationURL: req.EvaluationURL,
		Attachments:   req.Attachments,
	}

	// The pipeline outlives this request: detached task on the service
	// lifecycle context.
	err := s.pools.SubmitDetached("general", func(ctx context.Context) {
		if err := s.processor.Execute(ctx, task); err != nil {
			logger.Error("task processing failed",
				zap.String("task", task.Task),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, "POOL_SATURATED",
			"could not schedule task processing", http.StatusServiceUnavailable))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "accepted",
		"message": fmt.Sprintf("Task %s received and processing started", req.Task),
	})
}
