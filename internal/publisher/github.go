// Package publisher creates GitHub repositories, uploads generated artifacts
// through the contents API and serves them via GitHub Pages.
package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/webclient"
)

// DefaultAPIBaseURL is the public GitHub REST v3 endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

// DefaultPagesTimeout bounds the wait for a Pages deployment to come up.
const DefaultPagesTimeout = 5 * time.Minute

// DefaultPollInterval spaces the Pages availability probes.
const DefaultPollInterval = 10 * time.Second

// DefaultCallTimeout bounds one REST call.
const DefaultCallTimeout = 30 * time.Second

// Config carries GitHub credentials and polling knobs.
type Config struct {
	APIBaseURL   string
	Token        string
	Username     string
	PagesTimeout time.Duration
	PollInterval time.Duration
	CallTimeout  time.Duration
}

// Doer is the HTTP capability the publisher depends on: raw GET for Pages
// polling, JSON exchanges for the REST API.
type Doer interface {
	Get(ctx context.Context, url string, timeout time.Duration) (*webclient.Response, error)
	DoJSON(ctx context.Context, method, url string, payload interface{}, headers map[string]string, timeout time.Duration) (*webclient.Response, error)
}

// Publisher drives repository creation and Pages deployment.
type Publisher struct {
	web Doer
	cfg Config
}

// New creates a Publisher. Zero-value knobs fall back to defaults.
func New(web Doer, cfg Config) *Publisher {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.PagesTimeout <= 0 {
		cfg.PagesTimeout = DefaultPagesTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &Publisher{web: web, cfg: cfg}
}

type repoInfo struct {
	Name          string `json:"name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

type contentEntry struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type commitInfo struct {
	SHA string `json:"sha"`
}

// CreateAndDeploy creates repoName, uploads files, enables Pages and waits
// for the page to come up. The returned Deployment always carries the
// expected pages URL even if the availability wait timed out.
func (p *Publisher) CreateAndDeploy(ctx context.Context, repoName string, files domain.FileSet, taskID string) (*domain.Deployment, error) {
	logger.Info("creating repository", zap.String("repo", repoName))

	repo, err := p.createRepo(ctx, repoName, taskID)
	if err != nil {
		return nil, err
	}

	commitSHA, err := p.uploadFiles(ctx, repoName, repo.DefaultBranch, files, "Initial commit")
	if err != nil {
		return nil, err
	}

	pagesURL := p.enablePages(ctx, repoName, repo.DefaultBranch)
	p.waitForPages(ctx, pagesURL)

	return &domain.Deployment{
		RepoURL:   repo.HTMLURL,
		CommitSHA: commitSHA,
		PagesURL:  pagesURL,
	}, nil
}

// UpdateRepository uploads files into an existing repository (later rounds).
// A missing repository degrades to CreateAndDeploy.
func (p *Publisher) UpdateRepository(ctx context.Context, repoName string, files domain.FileSet) (*domain.Deployment, error) {
	logger.Info("updating repository", zap.String("repo", repoName))

	repo, status, err := p.getRepo(ctx, repoName)
	if err != nil {
		return nil, err
	}
	if status == 404 {
		logger.Warn("repository not found, creating instead", zap.String("repo", repoName))
		return p.CreateAndDeploy(ctx, repoName, files, repoName)
	}

	commitSHA, err := p.uploadFiles(ctx, repoName, repo.DefaultBranch, files, "Update application")
	if err != nil {
		return nil, err
	}

	pagesURL := p.pagesURL(repoName)
	p.waitForPages(ctx, pagesURL)

	return &domain.Deployment{
		RepoURL:   repo.HTMLURL,
		CommitSHA: commitSHA,
		PagesURL:  pagesURL,
	}, nil
}

// FetchRepositoryFiles walks the repository tree via the contents API and
// returns every file. A missing repository yields an empty set, not an error.
func (p *Publisher) FetchRepositoryFiles(ctx context.Context, repoName string) (domain.FileSet, error) {
	logger.Info("fetching repository files", zap.String("repo", repoName))

	files := domain.FileSet{}
	queue := []string{""}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		resp, err := p.api(ctx, "GET", p.contentsURL(repoName, path), nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == 404 {
			if path == "" {
				logger.Warn("repository not found", zap.String("repo", repoName))
				return domain.FileSet{}, nil
			}
			continue
		}
		if resp.StatusCode != 200 {
			return nil, p.apiError("list contents", repoName, resp)
		}

		// A directory listing is an array; a single file is an object.
		var entries []contentEntry
		if err := json.Unmarshal([]byte(resp.Body), &entries); err != nil {
			var single contentEntry
			if err := json.Unmarshal([]byte(resp.Body), &single); err != nil {
				return nil, fmt.Errorf("decode contents of %s/%s: %w", repoName, path, err)
			}
			entries = []contentEntry{single}
		}

		for _, entry := range entries {
			switch entry.Type {
			case "dir":
				queue = append(queue, entry.Path)
			case "file":
				content, err := p.fileContent(ctx, repoName, entry)
				if err != nil {
					logger.Warn("skipping unreadable file",
						zap.String("path", entry.Path),
						zap.Error(err),
					)
					continue
				}
				files[entry.Path] = content
			}
		}
	}

	logger.Info("fetched repository files",
		zap.String("repo", repoName),
		zap.Int("count", len(files)),
	)
	return files, nil
}

// fileContent decodes an entry's payload, re-fetching when the listing did
// not inline it.
func (p *Publisher) fileContent(ctx context.Context, repoName string, entry contentEntry) (string, error) {
	if entry.Content == "" {
		resp, err := p.api(ctx, "GET", p.contentsURL(repoName, entry.Path), nil)
		if err != nil {
			return "", err
		}
		if resp.StatusCode != 200 {
			return "", fmt.Errorf("fetch %s: HTTP %d", entry.Path, resp.StatusCode)
		}
		if err := json.Unmarshal([]byte(resp.Body), &entry); err != nil {
			return "", fmt.Errorf("decode %s: %w", entry.Path, err)
		}
	}
	if entry.Encoding != "base64" {
		return entry.Content, nil
	}
	// The contents API wraps base64 at 60 columns.
	compact := strings.ReplaceAll(entry.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", fmt.Errorf("decode base64 of %s: %w", entry.Path, err)
	}
	return string(decoded), nil
}

func (p *Publisher) createRepo(ctx context.Context, repoName, taskID string) (*repoInfo, error) {
	payload := map[string]interface{}{
		"name":        repoName,
		"description": "Auto-generated application: " + taskID,
		"private":     false,
		"auto_init":   false,
	}
	resp, err := p.api(ctx, "POST", p.cfg.APIBaseURL+"/user/repos", payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 201 {
		return nil, p.apiError("create repository", repoName, resp)
	}

	var repo repoInfo
	if err := json.Unmarshal([]byte(resp.Body), &repo); err != nil {
		return nil, fmt.Errorf("decode created repository: %w", err)
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	logger.Info("repository created", zap.String("url", repo.HTMLURL))
	return &repo, nil
}

func (p *Publisher) getRepo(ctx context.Context, repoName string) (*repoInfo, int, error) {
	resp, err := p.api(ctx, "GET", fmt.Sprintf("%s/repos/%s/%s", p.cfg.APIBaseURL, p.cfg.Username, repoName), nil)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode == 404 {
		return nil, 404, nil
	}
	if resp.StatusCode != 200 {
		return nil, resp.StatusCode, p.apiError("get repository", repoName, resp)
	}

	var repo repoInfo
	if err := json.Unmarshal([]byte(resp.Body), &repo); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode repository: %w", err)
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	return &repo, resp.StatusCode, nil
}

// uploadFiles puts every file through the contents API, updating in place
// when the path already exists, then reads the resulting commit SHA.
func (p *Publisher) uploadFiles(ctx context.Context, repoName, branch string, files domain.FileSet, message string) (string, error) {
	logger.Info("uploading files",
		zap.String("repo", repoName),
		zap.Int("count", len(files)),
	)

	for _, name := range files.SortedNames() {
		payload := map[string]interface{}{
			"message": message,
			"content": base64.StdEncoding.EncodeToString([]byte(files[name])),
			"branch":  branch,
		}

		// An existing path needs its blob SHA for the update form.
		if sha := p.existingFileSHA(ctx, repoName, branch, name); sha != "" {
			payload["sha"] = sha
		}

		resp, err := p.api(ctx, "PUT", p.contentsURL(repoName, name), payload)
		if err != nil {
			return "", err
		}
		if resp.StatusCode != 200 && resp.StatusCode != 201 {
			return "", p.apiError("upload "+name, repoName, resp)
		}
		logger.Debug("file uploaded", zap.String("path", name))
	}

	return p.latestCommitSHA(ctx, repoName, branch)
}

func (p *Publisher) existingFileSHA(ctx context.Context, repoName, branch, path string) string {
	resp, err := p.api(ctx, "GET", p.contentsURL(repoName, path)+"?ref="+url.QueryEscape(branch), nil)
	if err != nil || resp.StatusCode != 200 {
		return ""
	}
	var entry contentEntry
	if err := json.Unmarshal([]byte(resp.Body), &entry); err != nil {
		return ""
	}
	return entry.SHA
}

func (p *Publisher) latestCommitSHA(ctx context.Context, repoName, branch string) (string, error) {
	resp, err := p.api(ctx, "GET", fmt.Sprintf("%s/repos/%s/%s/commits/%s", p.cfg.APIBaseURL, p.cfg.Username, repoName, branch), nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", p.apiError("read latest commit", repoName, resp)
	}
	var commit commitInfo
	if err := json.Unmarshal([]byte(resp.Body), &commit); err != nil {
		return "", fmt.Errorf("decode commit: %w", err)
	}
	logger.Info("commit recorded", zap.String("sha", commit.SHA))
	return commit.SHA, nil
}

// enablePages turns on Pages for the repository. 201 means created, 409 means
// already enabled; anything else is logged and the expected URL is returned
// regardless, because Pages often materializes despite an unhappy response.
func (p *Publisher) enablePages(ctx context.Context, repoName, branch string) string {
	payload := map[string]interface{}{
		"source": map[string]string{
			"branch": branch,
			"path":   "/",
		},
	}
	resp, err := p.api(ctx, "POST", fmt.Sprintf("%s/repos/%s/%s/pages", p.cfg.APIBaseURL, p.cfg.Username, repoName), payload)
	switch {
	case err != nil:
		logger.Warn("enable pages call failed", zap.Error(err))
	case resp.StatusCode == 201 || resp.StatusCode == 409:
		logger.Info("GitHub Pages enabled", zap.String("repo", repoName))
	default:
		logger.Warn("unexpected pages API response",
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Body),
		)
	}
	return p.pagesURL(repoName)
}

// waitForPages polls the pages URL until it serves 200 or the window closes.
// A timeout is logged, not returned: the deployment may still finish later
// and live validation will record whatever state it finds.
func (p *Publisher) waitForPages(ctx context.Context, pagesURL string) {
	logger.Info("waiting for pages deployment", zap.String("url", pagesURL))

	deadline := time.Now().Add(p.cfg.PagesTimeout)
	for time.Now().Before(deadline) {
		resp, err := p.web.Get(ctx, pagesURL, 10*time.Second)
		if err == nil && resp.StatusCode == 200 {
			logger.Info("pages deployment live", zap.String("url", pagesURL))
			return
		}
		if ctx.Err() != nil {
			logger.Warn("pages wait cancelled", zap.Error(ctx.Err()))
			return
		}

		t := time.NewTimer(p.cfg.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Warn("pages wait cancelled", zap.Error(ctx.Err()))
			return
		case <-t.C:
		}
	}

	logger.Warn("timed out waiting for pages deployment",
		zap.String("url", pagesURL),
		zap.Duration("waited", p.cfg.PagesTimeout),
	)
}

func (p *Publisher) pagesURL(repoName string) string {
	return fmt.Sprintf("https://%s.github.io/%s/", p.cfg.Username, repoName)
}

func (p *Publisher) contentsURL(repoName, path string) string {
	base := fmt.Sprintf("%s/repos/%s/%s/contents", p.cfg.APIBaseURL, p.cfg.Username, repoName)
	if path == "" {
		return base
	}
	return base + "/" + path
}

func (p *Publisher) api(ctx context.Context, method, url string, payload interface{}) (*webclient.Response, error) {
	headers := map[string]string{
		"Authorization": "token " + p.cfg.Token,
		"Accept":        "application/vnd.github.v3+json",
	}
	return p.web.DoJSON(ctx, method, url, payload, headers, p.cfg.CallTimeout)
}

func (p *Publisher) apiError(op, repoName string, resp *webclient.Response) error {
	return apperrors.New(apperrors.CodePublishFailed,
		fmt.Sprintf("%s for %s: HTTP %d", op, repoName, resp.StatusCode), 502).
		WithParams(map[string]interface{}{"body": truncate(resp.Body, 300)})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
