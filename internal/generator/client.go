// Package generator produces web application FileSets via an OpenAI-compatible
// chat completions endpoint: full generation for round 1, incremental updates
// for later rounds, and targeted fixes for failed validation checks.
package generator

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

// DefaultBaseURL is the standard OpenAI endpoint; any compatible gateway can
// be configured instead.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultTimeout bounds one completion call. Generation is the slowest
// upstream dependency in the pipeline.
const DefaultTimeout = 120 * time.Second

// Config carries the provider endpoint and model selection.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Doer is the JSON exchange capability the client depends on.
type Doer interface {
	DoJSON(ctx context.Context, method, url string, payload interface{}, headers map[string]string, timeout time.Duration) (*webclient.Response, error)
}

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	web Doer
	cfg Config
}

// New creates a Client. Zero-value BaseURL and Timeout fall back to defaults.
func New(web Doer, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{web: web, cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateApp produces the full FileSet for a task. For round 1 it creates
// from scratch; for later rounds with existing files it builds an incremental
// update merged over the existing set. LICENSE and README.md are always
// present in the result, synthesized when the model omits them.
func (c *Client) GenerateApp(ctx context.Context, req *domain.TaskRequest, existing domain.FileSet) (domain.FileSet, error) {
	logger.Info("generating application",
		zap.String("task", req.Task),
		zap.Int("round", req.Round),
		zap.Int("existing_files", len(existing)),
	)

	update := req.Round > 1 && len(existing) > 0

	var system, user string
	var temperature float64
	if update {
		system = updateSystemPrompt
		user = buildUpdatePrompt(req, existing)
		temperature = 0.5
	} else {
		system = createSystemPrompt
		user = buildCreatePrompt(req)
		temperature = 0.7
	}

	completion, err := c.complete(ctx, system, user, temperature, 4000)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "chat completion failed", 502)
	}

	generated := parseFiles(completion)
	if len(generated) == 0 {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "completion yielded no files", 502)
	}

	var files domain.FileSet
	if update {
		// Merge: untouched files survive, modified files win.
		files = make(domain.FileSet, len(existing)+len(generated))
		for name, content := range existing {
			files[name] = content
		}
		for name, content := range generated {
			files[name] = content
		}
	} else {
		files = generated
	}

	// Attachments may be referenced by the generated code; ship them too.
	for _, att := range req.Attachments {
		if _, data, err := decodeDataURI(att.URL); err == nil {
			files[att.Name] = string(data)
		} else {
			logger.Warn("attachment not included in artifact",
				zap.String("name", att.Name),
				zap.Error(err),
			)
		}
	}

	if _, ok := files["LICENSE"]; !ok {
		files["LICENSE"] = synthesizeMitLicense()
	}
	if update || files["README.md"] == "" {
		files["README.md"] = synthesizeReadme(req.Task, req.Brief, files)
	}

	logger.Info("application generated",
		zap.String("task", req.Task),
		zap.Int("files", len(files)),
	)
	return files, nil
}

// FixFailures regenerates only the files implicated by failed checks. Fixes
// are best-effort: any per-file failure keeps the current content and the
// original FileSet entries survive untouched otherwise.
func (c *Client) FixFailures(ctx context.Context, task string, files domain.FileSet, failed []domain.CheckResult) domain.FileSet {
	if len(failed) == 0 {
		return files
	}

	var readmeIssues, htmlIssues []domain.CheckResult
	for _, f := range failed {
		switch f.Category {
		case domain.CategoryReadmeQuality:
			readmeIssues = append(readmeIssues, f)
		case domain.CategoryHtmlElementById, domain.CategoryCdnScriptPresence:
			htmlIssues = append(htmlIssues, f)
		}
	}
	if len(readmeIssues) == 0 && len(htmlIssues) == 0 {
		return files
	}

	logger.Info("attempting targeted fixes",
		zap.String("task", task),
		zap.Int("readme_issues", len(readmeIssues)),
		zap.Int("html_issues", len(htmlIssues)),
	)

	fixed := make(domain.FileSet, len(files))
	for name, content := range files {
		fixed[name] = content
	}

	if len(readmeIssues) > 0 {
		prompt := buildReadmeFixPrompt(task, files["README.md"], readmeIssues)
		if out, err := c.complete(ctx, readmeFixSystemPrompt, prompt, 0.3, 800); err != nil {
			logger.Warn("README fix failed, keeping current content", zap.Error(err))
		} else if cleaned := stripFences(out); cleaned != "" {
			fixed["README.md"] = cleaned
		}
	}

	if len(htmlIssues) > 0 {
		prompt := buildHTMLFixPrompt(files["index.html"], htmlIssues)
		if out, err := c.complete(ctx, htmlFixSystemPrompt, prompt, 0.3, 2000); err != nil {
			logger.Warn("HTML fix failed, keeping current content", zap.Error(err))
		} else if cleaned := stripFences(out); cleaned != "" {
			fixed["index.html"] = cleaned
		}
	}

	return fixed
}

// complete performs one chat completion round-trip and returns the message
// content of the first choice.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}

	resp, err := c.web.DoJSON(ctx, "POST", c.cfg.BaseURL+"/chat/completions", payload, headers, c.cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("call completions endpoint: %w", err)
	}

	var parsed chatResponse
	if err := unmarshalBody(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("decode completions response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != 200 {
		if parsed.Error != nil {
			return "", fmt.Errorf("provider rejected request (HTTP %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("provider rejected request (HTTP %d)", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
