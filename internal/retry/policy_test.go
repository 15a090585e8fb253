package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/retry"
)

type recordingSleeper struct {
	durations []time.Duration
	failure   error
}

func (sleeper *recordingSleeper) Sleep(_ context.Context, duration time.Duration) error {
	sleeper.durations = append(sleeper.durations, duration)
	return sleeper.failure
}

func TestPolicyExecute(testInstance *testing.T) {
	transientFailure := errors.New("connection reset")

	testCases := []struct {
		name             string
		failuresBefore   int
		maxAttempts      int
		expectError      bool
		expectedCalls    int
		expectedSleeps   int
		expectedObserved int
	}{
		{name: "first_attempt_succeeds", failuresBefore: 0, maxAttempts: 3, expectedCalls: 1},
		{name: "succeeds_on_third_attempt", failuresBefore: 2, maxAttempts: 3, expectedCalls: 3, expectedSleeps: 2, expectedObserved: 2},
		{name: "exhausted", failuresBefore: 5, maxAttempts: 3, expectError: true, expectedCalls: 3, expectedSleeps: 2, expectedObserved: 2},
		{name: "single_attempt", failuresBefore: 1, maxAttempts: 1, expectError: true, expectedCalls: 1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sleeper := &recordingSleeper{}
			observed := 0
			policy := retry.Policy{
				MaxAttempts: testCase.maxAttempts,
				Delay:       5 * time.Second,
				Sleeper:     sleeper,
				Observer: func(attempt int, maxAttempts int, failure error) {
					observed++
					require.Equal(testInstance, testCase.maxAttempts, maxAttempts)
					require.ErrorIs(testInstance, failure, transientFailure)
				},
			}

			calls := 0
			executionError := policy.Execute(context.Background(), func(_ context.Context, attempt int) error {
				calls++
				require.Equal(testInstance, calls, attempt)
				if attempt <= testCase.failuresBefore {
					return transientFailure
				}
				return nil
			})

			if testCase.expectError {
				var exhausted retry.ExhaustedError
				require.ErrorAs(testInstance, executionError, &exhausted)
				require.Equal(testInstance, testCase.maxAttempts, exhausted.Attempts)
				require.ErrorIs(testInstance, executionError, transientFailure)
			} else {
				require.NoError(testInstance, executionError)
			}
			require.Equal(testInstance, testCase.expectedCalls, calls)
			require.Len(testInstance, sleeper.durations, testCase.expectedSleeps)
			require.Equal(testInstance, testCase.expectedObserved, observed)
			for _, duration := range sleeper.durations {
				require.Equal(testInstance, 5*time.Second, duration)
			}
		})
	}
}

func TestPolicyValidation(testInstance *testing.T) {
	require.ErrorIs(testInstance, retry.Policy{}.Execute(context.Background(), func(context.Context, int) error { return nil }), retry.ErrInvalidAttempts)
	require.ErrorIs(testInstance, retry.DefaultPolicy().Execute(context.Background(), nil), retry.ErrOperationMissing)
	require.NoError(testInstance, retry.DefaultPolicy().Validate())
}

func TestPolicyStopsWhenSleepIsInterrupted(testInstance *testing.T) {
	sleeper := &recordingSleeper{failure: context.Canceled}
	policy := retry.Policy{MaxAttempts: 3, Delay: time.Second, Sleeper: sleeper}

	calls := 0
	executionError := policy.Execute(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("unreachable remote")
	})

	var exhausted retry.ExhaustedError
	require.ErrorAs(testInstance, executionError, &exhausted)
	require.Equal(testInstance, 1, exhausted.Attempts)
	require.Equal(testInstance, 1, calls)
}

func TestTimerSleeperHonorsCancellation(testInstance *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(testInstance, retry.TimerSleeper{}.Sleep(cancelledContext, time.Hour), context.Canceled)
	require.NoError(testInstance, retry.TimerSleeper{}.Sleep(context.Background(), 0))
}
