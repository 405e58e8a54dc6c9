package domain

// Attachment is a caller-supplied file reference, typically a data: URI.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TaskRequest is one accepted build task after intake normalization
// (checks always a list, secret already verified).
type TaskRequest struct {
	Email         string       `json:"email"`
	Task          string       `json:"task"`
	Round         int          `json:"round"`
	Nonce         string       `json:"nonce"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// Deployment is the publisher's output for one published artifact.
type Deployment struct {
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// EvaluationNotification is the payload POSTed to the caller's evaluation
// endpoint once the pipeline finishes. Validation is advisory telemetry: the
// report rides along but never influenced the publish decision.
type EvaluationNotification struct {
	Email      string            `json:"email"`
	Task       string            `json:"task"`
	Round      int               `json:"round"`
	Nonce      string            `json:"nonce"`
	RepoURL    string            `json:"repo_url"`
	CommitSHA  string            `json:"commit_sha"`
	PagesURL   string            `json:"pages_url"`
	Validation *ValidationReport `json:"validation,omitempty"`
}
