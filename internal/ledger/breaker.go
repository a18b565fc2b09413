package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	Name             string
	ConsecutiveFails uint32
	OpenTimeout      time.Duration
}

// Breaker stops calling the ledger after a run of consecutive failures and
// fails fast until OpenTimeout has passed. Answers such as "not found" or
// "invalid transfer" count as successful calls.
type Breaker struct {
	next      Client
	finder    *gobreaker.CircuitBreaker[string]
	validator *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Client, s BreakerSettings) *Breaker {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:    name,
			Timeout: s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.ConsecutiveFails
			},
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ErrReferenceNotFound) ||
					errors.Is(err, ErrInvalidTransfer) ||
					errors.Is(err, ErrBadTransfer) ||
					errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				zap.L().Warn("ledger breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}
	}

	return &Breaker{
		next:      next,
		finder:    gobreaker.NewCircuitBreaker[string](settings(s.Name + ".find")),
		validator: gobreaker.NewCircuitBreaker[struct{}](settings(s.Name + ".validate")),
	}
}

func (b *Breaker) FindReference(ctx context.Context, reference string) (string, error) {
	sig, err := b.finder.Execute(func() (string, error) {
		return b.next.FindReference(ctx, reference)
	})
	if err != nil {
		return "", fmt.Errorf("b.finder.Execute -> %w", err)
	}

	return sig, nil
}

func (b *Breaker) ValidateTransfer(ctx context.Context, signature string, transfer Transfer) error {
	_, err := b.validator.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.ValidateTransfer(ctx, signature, transfer)
	})
	if err != nil {
		return fmt.Errorf("b.validator.Execute -> %w", err)
	}

	return nil
}
