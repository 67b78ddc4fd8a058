package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
)

type flakyReader struct {
	calls atomic.Int32
	err   func(call int32) error
}

func (f *flakyReader) next() error {
	n := f.calls.Add(1)
	return f.err(n)
}

func (f *flakyReader) Dictionaries(context.Context) ([]Dictionary, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return []Dictionary{{ID: 1, Name: "d"}}, nil
}

func (f *flakyReader) FindIndexedWords(context.Context, string) ([]IndexedWord, error) {
	return nil, f.next()
}

func (f *flakyReader) FindRoots(context.Context, string, Kind) ([]Root, error) {
	return nil, f.next()
}

func (f *flakyReader) FindRootsContaining(context.Context, string, Kind) ([]Root, error) {
	return nil, f.next()
}

func (f *flakyReader) GetRoot(context.Context, string, string) (*Root, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &Root{ID: 7}, nil
}

var errBusy = errors.New("database is locked")

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestResilientRetriesTransient(t *testing.T) {
	t.Parallel()

	f := &flakyReader{err: func(n int32) error {
		if n < 3 {
			return errBusy
		}
		return nil
	}}
	r := NewResilient(f, resilience.CircuitBreakerConfig{FailureThreshold: 10}, fastRetry(), nil)

	dicts, err := r.Dictionaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, dicts, 1)
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestResilientMissIsNotRetried(t *testing.T) {
	t.Parallel()

	f := &flakyReader{err: func(int32) error { return apperrors.ErrRootNotFound }}
	r := NewResilient(f, resilience.CircuitBreakerConfig{FailureThreshold: 1}, fastRetry(), nil)

	for i := 0; i < 3; i++ {
		_, err := r.GetRoot(context.Background(), "d", "كتب")
		assert.ErrorIs(t, err, apperrors.ErrRootNotFound)
	}
	assert.EqualValues(t, 3, f.calls.Load())
	assert.Equal(t, resilience.StateClosed, r.Breaker().GetState())
}

func TestResilientNonTransientIsNotRetried(t *testing.T) {
	t.Parallel()

	f := &flakyReader{err: func(int32) error { return errors.New("syntax error") }}
	r := NewResilient(f, resilience.CircuitBreakerConfig{FailureThreshold: 10}, fastRetry(),
		func(err error) bool { return errors.Is(err, errBusy) })

	_, err := r.FindRoots(context.Background(), "كتب", "")
	require.Error(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestResilientOpenCircuit(t *testing.T) {
	t.Parallel()

	f := &flakyReader{err: func(int32) error { return errBusy }}
	r := NewResilient(f,
		resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour},
		resilience.RetryConfig{MaxAttempts: 1}, nil)

	for i := 0; i < 2; i++ {
		_, err := r.FindIndexedWords(context.Background(), "كتاب")
		require.ErrorIs(t, err, errBusy)
	}
	assert.Equal(t, resilience.StateOpen, r.Breaker().GetState())

	_, err := r.FindIndexedWords(context.Background(), "كتاب")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.EqualValues(t, 2, f.calls.Load())
}
