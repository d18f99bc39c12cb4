package scheduler

import "sync/atomic"

// CancellationToken is shared between the scheduler and a running build. It
// only signals: the build checks it cooperatively and may still complete.
type CancellationToken struct {
	cancelled atomic.Bool
}

func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

func (t *CancellationToken) SetCancelled() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether the token was cancelled. A nil token is never
// cancelled.
func (t *CancellationToken) IsCancelled() bool {
	return t != nil && t.cancelled.Load()
}
