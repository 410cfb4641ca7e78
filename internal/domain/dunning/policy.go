package dunning

import (
	"time"

	"github.com/tirelane/tirelane/internal/types"
)

const (
	// WindowSize is how many of the most recent attempts are inspected
	// after a failure.
	WindowSize = 3

	// RetryInterval is advisory: it is stamped on failed payment entries
	// for observers, but the daily pass itself is the retry vehicle.
	RetryInterval = 24 * time.Hour
)

// Decision is the outcome of evaluating recent payment history after a
// failed charge.
type Decision string

const (
	// DecisionRetry leaves the subscription active; the next daily pass
	// attempts the charge again.
	DecisionRetry Decision = "RETRY"
	// DecisionSuspend takes the subscription out of the daily pass until an
	// operator intervenes.
	DecisionSuspend Decision = "SUSPEND"
)

// Decide evaluates the most recent attempt outcomes, ordered most recent
// first. Suspension requires a full window of consecutive failures: a single
// intervening success resets the window. Fewer than WindowSize attempts can
// never suspend.
func Decide(recent []types.PaymentStatus) Decision {
	if len(recent) < WindowSize {
		return DecisionRetry
	}
	for _, status := range recent[:WindowSize] {
		if status != types.PaymentStatusFailed {
			return DecisionRetry
		}
	}
	return DecisionSuspend
}

// NextRetryAt returns the advisory retry timestamp stamped on a failed
// payment entry.
func NextRetryAt(now time.Time) time.Time {
	return now.Add(RetryInterval)
}
