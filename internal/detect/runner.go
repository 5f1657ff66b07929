package detect

import (
	"context"
	"image"
	"sync"
)

// Result is the outcome of one detection run. Token and Key echo the
// values from Start so the consumer can discard results that arrived
// after the user moved on.
type Result struct {
	Token     int
	Key       string
	Proposer  string
	Proposals []Proposal
	Err       error
}

// Runner executes proposers on background goroutines, one run at a time.
// Starting a run supersedes the previous one: its context is cancelled
// and its result, if it still arrives, carries a stale token.
//
// The callback fires on the runner's goroutine; consumers hand the
// result back to their own thread before touching shared state.
type Runner struct {
	mu      sync.Mutex
	token   int
	cancel  context.CancelFunc
	deliver func(Result)
}

// NewRunner creates a runner delivering results to the given callback.
func NewRunner(deliver func(Result)) *Runner {
	return &Runner{deliver: deliver}
}

// Start launches a detection run for the image identified by key and
// returns the run's token. A run already in flight is cancelled.
func (r *Runner) Start(p Proposer, img image.Image, key string) int {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.token++
	token := r.token
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		proposals, err := p.Propose(ctx, img)
		r.deliver(Result{
			Token:     token,
			Key:       key,
			Proposer:  p.Name(),
			Proposals: proposals,
			Err:       err,
		})
	}()
	return token
}

// CancelAll stops any run in flight without starting a new one. The
// cancelled run may still deliver a result; its token is already stale.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.token++
}

// Current returns the token of the most recently started run. A result
// whose token differs is stale.
func (r *Runner) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}
