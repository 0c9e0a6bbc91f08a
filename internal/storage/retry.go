package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// RetryPolicy bounds the startup connection loop
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// OnAttempt, when set, is told the outcome of every attempt.
	OnAttempt func(attempt int, err error)
}

// DefaultRetryPolicy tries five times, two seconds apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries: 5,
		Delay:   2 * time.Second,
		Sleep:   time.Sleep,
	}
}

// Initialize connects s, retrying up to policy.Retries times with a fixed
// delay between attempts. After the last failure it returns a
// STORE_UNAVAILABLE error wrapping the final cause. The store is only usable
// once Initialize returns nil.
func Initialize(ctx context.Context, s Storage, policy RetryPolicy) error {
	logger := utils.GetLogger()

	retries := policy.Retries
	if retries <= 0 {
		retries = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		lastErr = s.Connect(ctx)
		if policy.OnAttempt != nil {
			policy.OnAttempt(attempt, lastErr)
		}
		if lastErr == nil {
			logger.WithField("attempt", attempt).Info("Storage connected")
			return nil
		}

		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"retries": retries,
		}).WithError(lastErr).Warn("Storage connection attempt failed")

		if attempt < retries {
			sleep(policy.Delay)
		}
	}

	return utils.WrapAppError(utils.ErrCodeStoreUnavailable,
		fmt.Sprintf("Storage unavailable after %d attempts", retries), lastErr)
}
