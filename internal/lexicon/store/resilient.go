package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
)

// Resilient wraps a Reader with a circuit breaker and bounded retries.
// Lookup misses pass through without counting as failures; an open circuit
// surfaces as ErrStoreUnavailable.
type Resilient struct {
	next    Reader
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

var _ Reader = (*Resilient)(nil)

// NewResilient wraps next. isTransient classifies driver errors worth
// retrying; nil retries every error except misses and cancellation.
func NewResilient(next Reader, cb resilience.CircuitBreakerConfig, retry resilience.RetryConfig, isTransient func(error) bool) *Resilient {
	cb.IsFailure = func(err error) bool { return !isMiss(err) && !isCancel(err) }
	retry.Retryable = func(err error) bool {
		if isMiss(err) || isCancel(err) || errors.Is(err, resilience.ErrCircuitOpen) {
			return false
		}
		return isTransient == nil || isTransient(err)
	}
	return &Resilient{
		next:    next,
		breaker: resilience.NewCircuitBreaker("store", cb),
		retry:   retry,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (r *Resilient) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

func isMiss(err error) bool {
	return errors.Is(err, apperrors.ErrRootNotFound) || errors.Is(err, sql.ErrNoRows)
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func call[T any](ctx context.Context, r *Resilient, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := resilience.Call(ctx, r.breaker, name, r.retry, fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return v, errors.Join(apperrors.ErrStoreUnavailable, err)
	}
	return v, err
}

func (r *Resilient) Dictionaries(ctx context.Context) ([]Dictionary, error) {
	return call(ctx, r, "dictionaries", r.next.Dictionaries)
}

func (r *Resilient) FindIndexedWords(ctx context.Context, key string) ([]IndexedWord, error) {
	return call(ctx, r, "find-indexed-words", func(ctx context.Context) ([]IndexedWord, error) {
		return r.next.FindIndexedWords(ctx, key)
	})
}

func (r *Resilient) FindRoots(ctx context.Context, key string, kind Kind) ([]Root, error) {
	return call(ctx, r, "find-roots", func(ctx context.Context) ([]Root, error) {
		return r.next.FindRoots(ctx, key, kind)
	})
}

func (r *Resilient) FindRootsContaining(ctx context.Context, key string, kind Kind) ([]Root, error) {
	return call(ctx, r, "find-roots-containing", func(ctx context.Context) ([]Root, error) {
		return r.next.FindRootsContaining(ctx, key, kind)
	})
}

func (r *Resilient) GetRoot(ctx context.Context, dictionaryName, rootKey string) (*Root, error) {
	return call(ctx, r, "get-root", func(ctx context.Context) (*Root, error) {
		return r.next.GetRoot(ctx, dictionaryName, rootKey)
	})
}
