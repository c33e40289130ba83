package appraisal

import "time"

// Cache lifetimes are a pure function of result status. Successful trees are
// kept for a day; failures are kept just long enough that a retrying client
// sees the recorded error instead of re-queuing a job every poll.
const (
	DefaultSuccessTTL = 86400 * time.Second
	DefaultErrorTTL   = 10 * time.Second
)

// TTLPolicy selects the cache TTL for an appraisal by its status.
type TTLPolicy struct {
	Success time.Duration
	Error   time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{Success: DefaultSuccessTTL, Error: DefaultErrorTTL}
}

func (p TTLPolicy) For(status Status) time.Duration {
	if status == StatusOK {
		return p.Success
	}
	return p.Error
}
