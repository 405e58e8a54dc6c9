package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/logger"
	"pagefoundry.io/foundry/internal/pkg/webclient"
)

func init() {
	_ = logger.Init("error", "json")
}

// scriptedPoster returns one scripted step per call, in order. The last step
// repeats once the script is exhausted.
type scriptedPoster struct {
	steps []step
	calls int
}

type step struct {
	status int
	err    error
}

func (p *scriptedPoster) PostJSON(ctx context.Context, url string, payload interface{}, timeout time.Duration) (*webclient.Response, error) {
	i := p.calls
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	p.calls++
	s := p.steps[i]
	if s.err != nil {
		return nil, s.err
	}
	return &webclient.Response{StatusCode: s.status}, nil
}

// fastDispatcher keeps the full six-attempt schedule but with millisecond
// delays so the tests run quickly.
func fastDispatcher(p Poster) *Dispatcher {
	delays := []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
		16 * time.Millisecond,
	}
	return NewWithSchedule(p, delays, time.Second)
}

func testPayload() *domain.EvaluationNotification {
	return &domain.EvaluationNotification{
		Email:     "student@example.com",
		Task:      "calculator-v1",
		Round:     1,
		Nonce:     "ab12",
		RepoURL:   "https://github.com/student/calculator-v1",
		CommitSHA: "deadbeef",
		PagesURL:  "https://student.github.io/calculator-v1/",
	}
}

func TestDeliver_FirstAttemptSucceeds(t *testing.T) {
	p := &scriptedPoster{steps: []step{{status: 200}}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())

	assert.Equal(t, StateSuccess, got.State)
	require.Len(t, got.Attempts, 1)
	assert.Equal(t, 1, got.Attempts[0].AttemptNumber)
	assert.Equal(t, 0, got.Attempts[0].ScheduledDelaySeconds)
	assert.Equal(t, domain.OutcomeSuccess, got.Attempts[0].Outcome)
}

func TestDeliver_RecoversAfterTransientFailures(t *testing.T) {
	p := &scriptedPoster{steps: []step{
		{err: errors.New("connection refused")},
		{status: 503},
		{err: errors.New("connection reset")},
		{status: 502},
		{status: 200},
	}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())

	assert.Equal(t, StateSuccess, got.State)
	require.Len(t, got.Attempts, 5)
	for i, a := range got.Attempts[:4] {
		assert.Equal(t, i+1, a.AttemptNumber)
		assert.Equal(t, domain.OutcomeTransientFailure, a.Outcome)
	}
	assert.Equal(t, domain.OutcomeSuccess, got.Attempts[4].Outcome)
}

func TestDeliver_ExhaustsBudgetAndAbandons(t *testing.T) {
	p := &scriptedPoster{steps: []step{{err: errors.New("no route to host")}}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())

	assert.Equal(t, StateAbandoned, got.State)
	require.Len(t, got.Attempts, 6)
	assert.Equal(t, 6, p.calls, "no attempts beyond the budget")

	for _, a := range got.Attempts[:5] {
		assert.Equal(t, domain.OutcomeTransientFailure, a.Outcome)
	}
	last := got.Attempts[5]
	assert.Equal(t, 6, last.AttemptNumber)
	assert.Equal(t, domain.OutcomeAbandoned, last.Outcome)
}

func TestDeliver_BackoffScheduleIsRecorded(t *testing.T) {
	p := &scriptedPoster{steps: []step{{status: 500}}}
	delays := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	// Cancel after the first attempt so the test never actually waits.
	ctx, cancel := context.WithCancel(context.Background())
	d := NewWithSchedule(p, delays, time.Second)

	cancel()
	got := d.Deliver(ctx, "https://eval.example/notify", testPayload())

	require.Len(t, got.Attempts, 2)
	assert.Equal(t, 0, got.Attempts[0].ScheduledDelaySeconds)
	assert.Equal(t, 1, got.Attempts[1].ScheduledDelaySeconds)
	assert.Equal(t, StateAbandoned, got.State)
}

func TestDeliver_ClientErrorIsRetried(t *testing.T) {
	// An endpoint mid-deploy can answer 404 before its route exists; only
	// the retry budget ends the sequence.
	p := &scriptedPoster{steps: []step{
		{status: 404},
		{status: 404},
		{status: 404},
		{status: 404},
		{status: 200},
	}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())

	assert.Equal(t, StateSuccess, got.State)
	require.Len(t, got.Attempts, 5)
	assert.Equal(t, 5, p.calls)
	for _, a := range got.Attempts[:4] {
		assert.Equal(t, domain.OutcomeTransientFailure, a.Outcome)
	}
	assert.Equal(t, domain.OutcomeSuccess, got.Attempts[4].Outcome)
}

func TestDeliver_PersistentClientErrorExhaustsBudget(t *testing.T) {
	p := &scriptedPoster{steps: []step{{status: 404}}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())

	assert.Equal(t, StateAbandoned, got.State)
	require.Len(t, got.Attempts, 6)
	assert.Equal(t, 6, p.calls)
	assert.Equal(t, domain.OutcomeAbandoned, got.Attempts[5].Outcome)
}

func TestDeliver_RetryableClientErrors(t *testing.T) {
	p := &scriptedPoster{steps: []step{
		{status: 429},
		{status: 408},
		{status: 200},
	}}
	d := fastDispatcher(p)

	got := d.Deliver(context.Background(), "https://eval.example/notify", testPayload())
	assert.Equal(t, StateSuccess, got.State)
	assert.Len(t, got.Attempts, 3)
}

func TestDeliver_MalformedEndpoint(t *testing.T) {
	p := &scriptedPoster{steps: []step{{status: 200}}}
	d := fastDispatcher(p)

	tests := []string{
		"not a url",
		"ftp://eval.example/notify",
		"https://",
	}
	for _, endpoint := range tests {
		t.Run(endpoint, func(t *testing.T) {
			got := d.Deliver(context.Background(), endpoint, testPayload())
			assert.Equal(t, StateAbandoned, got.State)
			require.Len(t, got.Attempts, 1)
			assert.Equal(t, domain.OutcomeAbandoned, got.Attempts[0].Outcome)
		})
	}
	assert.Equal(t, 0, p.calls, "no POST is attempted against a bad endpoint")
}

func TestDeliver_ContextCancelledMidBackoff(t *testing.T) {
	p := &scriptedPoster{steps: []step{{status: 503}}}
	d := NewWithSchedule(p, []time.Duration{time.Hour}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Delivery, 1)
	go func() { done <- d.Deliver(ctx, "https://eval.example/notify", testPayload()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		assert.Equal(t, StateAbandoned, got.State)
		assert.Equal(t, 1, p.calls)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not honor context cancellation")
	}
}
