// Package notify delivers the final evaluation callback with bounded
// exponential backoff. Delivery is best-effort: after the retry budget is
// spent the notification is abandoned and the pipeline moves on.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/webclient"
)

// State is the delivery lifecycle of one notification.
type State string

const (
	StatePending    State = "PENDING"
	StateAttempting State = "ATTEMPTING"
	StateRetrying   State = "RETRYING"
	StateSuccess    State = "SUCCESS"
	StateAbandoned  State = "ABANDONED"
)

// DefaultDelays is the backoff schedule between attempts. The first attempt
// fires immediately; each subsequent attempt waits the next entry. One
// initial attempt plus len(DefaultDelays) retries bounds the sequence at six
// attempts total.
var DefaultDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// DefaultPostTimeout bounds one callback POST.
const DefaultPostTimeout = 15 * time.Second

// Poster is the outbound JSON POST capability the dispatcher depends on.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload interface{}, timeout time.Duration) (*webclient.Response, error)
}

// Delivery is the terminal record of one notification: its final state and
// the full attempt history.
type Delivery struct {
	State    State                        `json:"state"`
	Attempts []domain.NotificationAttempt `json:"attempts"`
}

// Dispatcher posts evaluation notifications with retry.
type Dispatcher struct {
	poster  Poster
	delays  []time.Duration
	timeout time.Duration
}

// New creates a Dispatcher with the default backoff schedule.
func New(poster Poster) *Dispatcher {
	return &Dispatcher{
		poster:  poster,
		delays:  DefaultDelays,
		timeout: DefaultPostTimeout,
	}
}

// NewWithSchedule creates a Dispatcher with an explicit backoff schedule and
// POST timeout (tests, alternative configurations).
func NewWithSchedule(poster Poster, delays []time.Duration, timeout time.Duration) *Dispatcher {
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	if timeout <= 0 {
		timeout = DefaultPostTimeout
	}
	return &Dispatcher{poster: poster, delays: delays, timeout: timeout}
}

// Deliver posts payload to endpoint, retrying transient failures on the
// backoff schedule. It never returns an error: the Delivery record is the
// outcome, success or not. Context cancellation during a backoff wait
// abandons the remaining attempts.
func (d *Dispatcher) Deliver(ctx context.Context, endpoint string, payload *domain.EvaluationNotification) *Delivery {
	delivery := &Delivery{State: StatePending}

	if err := validateEndpoint(endpoint); err != nil {
		logger.Error("notification endpoint rejected",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		delivery.Attempts = append(delivery.Attempts, domain.NotificationAttempt{
			AttemptNumber:         1,
			ScheduledDelaySeconds: 0,
			Outcome:               domain.OutcomeAbandoned,
		})
		delivery.State = StateAbandoned
		return delivery
	}

	maxAttempts := len(d.delays) + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		delay := time.Duration(0)
		if attempt > 1 {
			delay = d.delays[attempt-2]
			delivery.State = StateRetrying
			if !sleepCtx(ctx, delay) {
				logger.Warn("notification abandoned: context cancelled during backoff",
					zap.String("endpoint", endpoint),
					zap.Int("attempt", attempt),
				)
				delivery.Attempts = append(delivery.Attempts, domain.NotificationAttempt{
					AttemptNumber:         attempt,
					ScheduledDelaySeconds: int(delay.Seconds()),
					Outcome:               domain.OutcomeAbandoned,
				})
				delivery.State = StateAbandoned
				return delivery
			}
		}

		delivery.State = StateAttempting
		outcome := d.attempt(ctx, endpoint, payload, attempt)

		record := domain.NotificationAttempt{
			AttemptNumber:         attempt,
			ScheduledDelaySeconds: int(delay.Seconds()),
			Outcome:               outcome,
		}

		switch {
		case outcome == domain.OutcomeSuccess:
			delivery.Attempts = append(delivery.Attempts, record)
			delivery.State = StateSuccess
			return delivery
		case attempt == maxAttempts:
			record.Outcome = domain.OutcomeAbandoned
			delivery.Attempts = append(delivery.Attempts, record)
			delivery.State = StateAbandoned
			logger.Error("notification abandoned",
				zap.String("endpoint", endpoint),
				zap.Int("attempts", attempt),
			)
			return delivery
		default:
			delivery.Attempts = append(delivery.Attempts, record)
			delivery.State = StateRetrying
		}
	}

	// Unreachable: the loop always terminates through success or abandon.
	delivery.State = StateAbandoned
	return delivery
}

// attempt performs one POST and classifies the outcome. Any non-2xx response
// counts as transient: an evaluation endpoint mid-deploy can answer 404 or
// 503 for a moment and come back, so only the retry budget ends the sequence.
func (d *Dispatcher) attempt(ctx context.Context, endpoint string, payload *domain.EvaluationNotification, n int) domain.AttemptOutcome {
	resp, err := d.poster.PostJSON(ctx, endpoint, payload, d.timeout)
	if err != nil {
		logger.Warn("notification attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", n),
			zap.Error(err),
		)
		return domain.OutcomeTransientFailure
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("notification delivered",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", n),
			zap.Int("status", resp.StatusCode),
		)
		return domain.OutcomeSuccess
	}

	logger.Warn("notification attempt rejected",
		zap.String("endpoint", endpoint),
		zap.Int("attempt", n),
		zap.Int("status", resp.StatusCode),
	)
	return domain.OutcomeTransientFailure
}

// validateEndpoint rejects endpoints no amount of retrying could deliver to.
func validateEndpoint(endpoint string) error {
	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return fmt.Errorf("malformed endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}
	return nil
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
