package domain

// StaticResult aggregates the fixed structural battery over generated files.
// The battery accumulates every defect in one pass instead of short-circuiting.
type StaticResult struct {
	Passed   bool     `json:"passed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// ChecksResult aggregates per-check verdicts in caller-supplied order.
// TotalCount always equals the number of checks supplied by the caller.
type ChecksResult struct {
	Results     []CheckResult `json:"results"`
	PassedCount int           `json:"passed_count"`
	TotalCount  int           `json:"total_count"`
}

// PageInfo is a snapshot of one live fetch. StatusCode is -1 when the fetch
// never produced an HTTP response (timeout, DNS failure).
type PageInfo struct {
	StatusCode     int `json:"status_code"`
	ResponseTimeMS int `json:"response_time_ms"`
	HTMLSizeBytes  int `json:"html_size_bytes"`
}

// LiveResult aggregates validation of the published page.
type LiveResult struct {
	Passed   bool     `json:"passed"`
	PageInfo PageInfo `json:"page_info"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationReport is the cumulative advisory report threaded through the
// pipeline. Live is nil when live validation could not run (no pages URL) —
// that is a valid, reportable state, not an error.
type ValidationReport struct {
	Static StaticResult `json:"static_result" yaml:"static_result"`
	Checks ChecksResult `json:"checks_result" yaml:"checks_result"`
	Live   *LiveResult  `json:"live_result,omitempty" yaml:"live_result,omitempty"`
}

// AttemptOutcome is the terminal state of one notification attempt.
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "SUCCESS"
	OutcomeTransientFailure AttemptOutcome = "TRANSIENT_FAILURE"
	OutcomeAbandoned        AttemptOutcome = "ABANDONED"
)

// NotificationAttempt records one delivery attempt of the final callback.
// A task's attempt sequence terminates at OutcomeSuccess or OutcomeAbandoned.
type NotificationAttempt struct {
	AttemptNumber         int            `json:"attempt_number"`
	ScheduledDelaySeconds int            `json:"scheduled_delay_seconds"`
	Outcome               AttemptOutcome `json:"outcome"`
}
