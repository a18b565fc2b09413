// Package poller watches the ledger for the payment of a single order and
// hands the transaction it finds to the verifier.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
	"github.com/nightspite/sol-pos/internal/metrics"
	"github.com/nightspite/sol-pos/internal/pkg/reference"
	"github.com/nightspite/sol-pos/internal/service"
)

var tracer = otel.Tracer("github.com/nightspite/sol-pos/internal/poller")

type EventType string

const (
	EventWaiting   EventType = "waiting"
	EventPending   EventType = "pending"
	EventFound     EventType = "found"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventClosed    EventType = "closed"
)

type Event struct {
	Type      EventType     `json:"type"`
	Order     *domain.Order `json:"order,omitempty"`
	Signature string        `json:"signature,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type OrderReader interface {
	FindByID(ctx context.Context, id string) (domain.Order, error)
}

type Verifier interface {
	VerifyAndComplete(ctx context.Context, orderID, signature string) (domain.Order, error)
}

type Poller struct {
	finder       ledger.Finder
	orders       OrderReader
	verifier     Verifier
	interval     time.Duration
	checkTimeout time.Duration
	metrics      *metrics.Metrics
}

func New(finder ledger.Finder, orders OrderReader, verifier Verifier, interval, checkTimeout time.Duration, m *metrics.Metrics) *Poller {
	return &Poller{
		finder:       finder,
		orders:       orders,
		verifier:     verifier,
		interval:     interval,
		checkTimeout: checkTimeout,
		metrics:      m,
	}
}

// Watch checks the ledger for the order's reference every interval until the
// order leaves CART, a found transaction is settled by the verifier, or ctx is
// done. Lookup failures, timeouts and pending verifications only delay the
// next check. A rejected transfer ends the watch with the verifier's error.
func (p *Poller) Watch(ctx context.Context, orderID string, notify func(Event)) (domain.Order, error) {
	if notify == nil {
		notify = func(Event) {}
	}

	ctx, span := tracer.Start(ctx, "Poller.Watch")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	ref, err := reference.FromOrderID(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reference.FromOrderID -> %w", err)
	}

	log := zap.L().With(zap.String("order_id", orderID), zap.String("reference", ref))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	waiting := false
	for {
		order, done, err := p.check(ctx, orderID, ref, notify, &waiting, log)
		if done {
			return order, err
		}

		select {
		case <-ctx.Done():
			return domain.Order{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) check(ctx context.Context, orderID, ref string, notify func(Event), waiting *bool, log *zap.Logger) (domain.Order, bool, error) {
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) || ctx.Err() != nil {
			return domain.Order{}, true, err
		}
		log.Warn("failed to read order", zap.Error(err))
		return domain.Order{}, false, nil
	}

	if !order.IsCart() {
		notify(Event{Type: EventClosed, Order: &order})
		return order, true, nil
	}
	if order.PaymentURL == nil {
		if !*waiting {
			*waiting = true
			notify(Event{Type: EventWaiting, Order: &order})
		}
		return domain.Order{}, false, nil
	}
	*waiting = false

	signature, err := p.find(ctx, ref)
	if err != nil {
		if errors.Is(err, ledger.ErrReferenceNotFound) {
			p.metrics.PollCheck("pending")
		} else {
			p.metrics.PollCheck("error")
			log.Debug("ledger lookup failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return domain.Order{}, true, ctx.Err()
		}
		notify(Event{Type: EventPending})
		return domain.Order{}, false, nil
	}
	p.metrics.PollCheck("found")

	notify(Event{Type: EventFound, Signature: signature})
	log.Info("payment transaction found", zap.String("signature", signature))

	completed, err := p.verifier.VerifyAndComplete(ctx, orderID, signature)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return domain.Order{}, true, ctx.Err()
	case errors.Is(err, service.ErrPaymentPending):
		log.Debug("payment verification pending", zap.String("signature", signature), zap.Error(err))
		notify(Event{Type: EventPending, Signature: signature})
		return domain.Order{}, false, nil
	case errors.Is(err, service.ErrOrderNotInCart):
		// settled elsewhere, e.g. by a manual verify
		return p.closed(ctx, orderID, notify)
	default:
		notify(Event{Type: EventFailed, Signature: signature, Error: err.Error()})
		return domain.Order{}, true, err
	}

	notify(Event{Type: EventCompleted, Order: &completed, Signature: signature})

	return completed, true, nil
}

func (p *Poller) closed(ctx context.Context, orderID string, notify func(Event)) (domain.Order, bool, error) {
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, true, fmt.Errorf("p.orders.FindByID -> %w", err)
	}

	notify(Event{Type: EventClosed, Order: &order})

	return order, true, nil
}

func (p *Poller) find(ctx context.Context, ref string) (string, error) {
	if p.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.checkTimeout)
		defer cancel()
	}

	return p.finder.FindReference(ctx, ref)
}
