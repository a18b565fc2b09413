package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nightspite/sol-pos/internal/config"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
	"github.com/nightspite/sol-pos/internal/metrics"
	"github.com/nightspite/sol-pos/internal/pkg/reference"
	"github.com/nightspite/sol-pos/internal/solanapay"
)

var tracer = otel.Tracer("github.com/nightspite/sol-pos/internal/service")

type PaymentOrderRepository interface {
	FindByID(ctx context.Context, id string) (domain.Order, error)
	SetPaymentURL(ctx context.Context, orderID, url string) (domain.Order, error)
}

type PaymentService struct {
	repo    PaymentOrderRepository
	conf    *config.PaymentConfig
	metrics *metrics.Metrics
}

func NewPaymentService(repo PaymentOrderRepository, conf *config.PaymentConfig, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		repo:    repo,
		conf:    conf,
		metrics: m,
	}
}

// BuildPaymentRequest turns a cart into a payment request and stores its URL
// on the order. Calling it again replaces the URL and leaves stock alone.
func (s *PaymentService) BuildPaymentRequest(ctx context.Context, user domain.User, orderID string) (req domain.PaymentRequest, order domain.Order, err error) {
	defer func(start time.Time) { s.metrics.ObserveUseCase("build_payment_request", start, err) }(time.Now())

	ctx, span := tracer.Start(ctx, "PaymentService.BuildPaymentRequest")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err = s.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.PaymentRequest{}, domain.Order{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if err = authorize(user, order.StoreID); err != nil {
		return domain.PaymentRequest{}, domain.Order{}, err
	}
	if !order.IsCart() {
		return domain.PaymentRequest{}, domain.Order{}, ErrOrderNotInCart
	}

	req, err = NewPaymentRequest(s.conf, order)
	if err != nil {
		return domain.PaymentRequest{}, domain.Order{}, err
	}

	url, err := solanapay.EncodeURL(req)
	if err != nil {
		return domain.PaymentRequest{}, domain.Order{}, fmt.Errorf("solanapay.EncodeURL -> %w", err)
	}

	order, err = s.repo.SetPaymentURL(ctx, orderID, url)
	if err != nil {
		return domain.PaymentRequest{}, domain.Order{}, fmt.Errorf("s.repo.SetPaymentURL -> %w", err)
	}

	return req, order, nil
}

// NewPaymentRequest describes the transfer that settles order. It fails with
// ErrEmptyOrder when there is nothing to pay.
func NewPaymentRequest(conf *config.PaymentConfig, order domain.Order) (domain.PaymentRequest, error) {
	if order.Total() <= 0 {
		return domain.PaymentRequest{}, ErrEmptyOrder
	}

	ref, err := reference.FromOrderID(order.ID)
	if err != nil {
		return domain.PaymentRequest{}, fmt.Errorf("reference.FromOrderID -> %w", err)
	}

	amount := order.TotalAmount()

	return domain.PaymentRequest{
		Recipient: conf.Recipient,
		SPLToken:  conf.SPLToken,
		Amount:    amount,
		Reference: ref,
		Label:     conf.Label,
		Message:   fmt.Sprintf("Order %s", order.ID),
		Memo:      fmt.Sprintf("order:%s amount:%s", order.ID, amount.String()),
	}, nil
}

func transferOf(req domain.PaymentRequest) ledger.Transfer {
	return ledger.Transfer{
		Recipient: req.Recipient,
		SPLToken:  req.SPLToken,
		Amount:    req.Amount,
		Reference: req.Reference,
	}
}
