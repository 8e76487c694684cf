package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// PollResult is the tagged outcome of the background poll: exactly one of Token or Err is set.
type PollResult struct {
	Token *oauth2.Token
	Err   error
}

// PollHandle is the one-shot completion notification of a background poll.
type PollHandle struct {
	done   chan PollResult
	cancel context.CancelFunc
}

// PollFunc blocks until a token is issued or polling fails.
type PollFunc func(ctx context.Context) (*oauth2.Token, error)

// RunPoll starts poll on its own goroutine and returns the handle its result is
// delivered on.
func RunPoll(ctx context.Context, poll PollFunc) *PollHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		done:   make(chan PollResult, 1),
		cancel: cancel,
	}
	go func() {
		defer cancel()
		token, err := poll(ctx)
		h.done <- PollResult{Token: token, Err: err}
		close(h.done)
	}()
	return h
}

// Done delivers the result exactly once, then is closed.
func (h *PollHandle) Done() <-chan PollResult {
	return h.done
}

// Cancel stops the poll; Done then delivers the context error.
func (h *PollHandle) Cancel() {
	h.cancel()
}

// Wait blocks for the result or until ctx is done. Giving up on ctx does not stop the
// poll, so Wait may be called again.
func (h *PollHandle) Wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-h.Done():
		if !ok {
			return nil, context.Canceled
		}
		return res.Token, res.Err
	}
}
