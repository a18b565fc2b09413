package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nightspite/sol-pos/internal/config"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
	"github.com/nightspite/sol-pos/internal/metrics"
)

type VerifierOrderRepository interface {
	FindByID(ctx context.Context, id string) (domain.Order, error)
	Complete(ctx context.Context, orderID, signature string, check func(domain.Order) error) (domain.Order, error)
}

type EventPublisher interface {
	OrderCompleted(ctx context.Context, order domain.Order) error
}

// Verifier is the only place where an order becomes COMPLETED. It requires
// the ledger to confirm that the signed transaction paid the order's current
// total to the configured recipient, tagged with the order's reference.
type Verifier struct {
	repo      VerifierOrderRepository
	validator ledger.Validator
	conf      *config.PaymentConfig
	timeout   time.Duration
	events    EventPublisher
	metrics   *metrics.Metrics
}

func NewVerifier(repo VerifierOrderRepository, validator ledger.Validator, conf *config.PaymentConfig, timeout time.Duration, events EventPublisher, m *metrics.Metrics) *Verifier {
	return &Verifier{
		repo:      repo,
		validator: validator,
		conf:      conf,
		timeout:   timeout,
		events:    events,
		metrics:   m,
	}
}

// VerifyAndComplete settles an order with the transaction behind signature.
//
// A transfer the ledger rejects yields ErrTransferInvalid. A ledger that
// does not answer in time yields ErrPaymentPending. In both cases the order
// stays in CART. Once completed, any further call gets ErrOrderNotInCart.
func (v *Verifier) VerifyAndComplete(ctx context.Context, orderID, signature string) (order domain.Order, err error) {
	defer func(start time.Time) { v.metrics.ObserveUseCase("verify_and_complete", start, err) }(time.Now())

	ctx, span := tracer.Start(ctx, "Verifier.VerifyAndComplete")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("signature", signature))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	order, err = v.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("v.repo.FindByID -> %w", err)
	}
	if !order.IsCart() {
		return domain.Order{}, ErrOrderNotInCart
	}

	req, err := NewPaymentRequest(v.conf, order)
	if err != nil {
		return domain.Order{}, err
	}
	total := order.Total()

	if err = v.validate(ctx, signature, transferOf(req)); err != nil {
		return domain.Order{}, err
	}

	order, err = v.repo.Complete(ctx, orderID, signature, func(locked domain.Order) error {
		if locked.Total() != total {
			return ErrTotalChanged
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("v.repo.Complete -> %w", err)
	}

	zap.L().Info("order completed",
		zap.String("order_id", order.ID),
		zap.String("signature", signature),
		zap.Int64("total", total),
	)

	if v.events != nil {
		if pubErr := v.events.OrderCompleted(ctx, order); pubErr != nil {
			zap.L().Error("failed to publish order completion", zap.String("order_id", order.ID), zap.Error(pubErr))
		}
	}

	return order, nil
}

func (v *Verifier) validate(ctx context.Context, signature string, transfer ledger.Transfer) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	err := v.validator.ValidateTransfer(ctx, signature, transfer)
	if err == nil {
		return nil
	}
	if ledger.IsPending(err) {
		return fmt.Errorf("%w: %w", ErrPaymentPending, err)
	}

	return fmt.Errorf("v.validator.ValidateTransfer -> %w", err)
}
