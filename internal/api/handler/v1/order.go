package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nightspite/sol-pos/internal/api/handler/v1/request"
	"github.com/nightspite/sol-pos/internal/api/handler/v1/response"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/service"
	"github.com/nightspite/sol-pos/internal/solanapay"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

var (
	errNoPaymentRequest = errors.New("order has no payment request yet")
	errNotPaid          = errors.New("order has no confirmed payment")
)

type CartService interface {
	GetOrCreateCart(ctx context.Context, user domain.User, terminalID string) (domain.Order, error)
	GetOrder(ctx context.Context, user domain.User, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, user domain.User, status domain.OrderStatus, page, pageSize int) (domain.OrderPage, error)
	AddLine(ctx context.Context, user domain.User, orderID, productID string) (domain.Order, error)
	RemoveLine(ctx context.Context, user domain.User, orderID, productID string, removeAll bool) (domain.Order, error)
	CancelOrder(ctx context.Context, user domain.User, orderID string) (domain.Order, error)
}

type PaymentService interface {
	BuildPaymentRequest(ctx context.Context, user domain.User, orderID string) (domain.PaymentRequest, domain.Order, error)
}

type Verifier interface {
	VerifyAndComplete(ctx context.Context, orderID, signature string) (domain.Order, error)
}

type OrderHandler struct {
	carts    CartService
	payments PaymentService
	verifier Verifier
	uSvc     UserService
	cluster  string
}

func NewOrderHandler(carts CartService, payments PaymentService, verifier Verifier, uSvc UserService, cluster string) *OrderHandler {
	return &OrderHandler{
		carts:    carts,
		payments: payments,
		verifier: verifier,
		uSvc:     uSvc,
		cluster:  cluster,
	}
}

// HandleListOrders godoc
// @Summary      List orders
// @Description  Pages through the orders of the caller's stores, newest first
// @Tags         orders
// @Produce      json
// @Param        status     query     string  false  "CART, COMPLETED or CANCELLED"
// @Param        page       query     int     false  "Page, starting at 1"
// @Param        page_size  query     int     false  "Page size, at most 100"
// @Success      200  {object}  response.OrderPage
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders [get]
// @Security BearerAuth
func (h *OrderHandler) HandleListOrders(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}

	page, err := h.carts.ListOrders(ctx.Request.Context(), user, domain.OrderStatus(req.Status), req.Page, req.PageSize)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListOrders -> h.carts.ListOrders", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrderPage(page, req.Page))
}

// HandleGetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200  {object}  response.Order
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID} [get]
// @Security BearerAuth
func (h *OrderHandler) HandleGetOrder(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	order, err := h.carts.GetOrder(ctx.Request.Context(), user, orderID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetOrder -> h.carts.GetOrder", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}

// HandleAddLine godoc
// @Summary      Add one unit of a product to a cart
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        orderID  path      string                  true  "Order ID"
// @Param        request  body      request.AddLineRequest  true  "request body"
// @Success      200  {object}  response.Order
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID}/items [post]
// @Security BearerAuth
func (h *OrderHandler) HandleAddLine(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	var req request.AddLineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	ctx.Set("productID", req.ProductID)

	order, err := h.carts.AddLine(ctx.Request.Context(), user, orderID, req.ProductID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleAddLine -> h.carts.AddLine", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}

// HandleRemoveLine godoc
// @Summary      Remove units of a product from a cart
// @Description  Removes one unit, or the whole line when all=true
// @Tags         orders
// @Produce      json
// @Param        orderID    path      string  true   "Order ID"
// @Param        productID  path      string  true   "Product ID"
// @Param        all        query     bool    false  "Remove the whole line"
// @Success      200  {object}  response.Order
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID}/items/{productID} [delete]
// @Security BearerAuth
func (h *OrderHandler) HandleRemoveLine(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	productID, ok := pathID(ctx, "order line", "productID")
	if !ok {
		return
	}

	removeAll, err := strconv.ParseBool(ctx.DefaultQuery("all", "false"))
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid all parameter: %w", err)))
		return
	}

	order, err := h.carts.RemoveLine(ctx.Request.Context(), user, orderID, productID, removeAll)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleRemoveLine -> h.carts.RemoveLine", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}

// HandleCancelOrder godoc
// @Summary      Cancel a cart
// @Description  Gives every unit of the cart back to the store
// @Tags         orders
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200  {object}  response.Order
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID}/cancel [post]
// @Security BearerAuth
func (h *OrderHandler) HandleCancelOrder(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	order, err := h.carts.CancelOrder(ctx.Request.Context(), user, orderID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCancelOrder -> h.carts.CancelOrder", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}

// HandleCreatePayment godoc
// @Summary      Build the payment request of a cart
// @Description  Stores a Solana Pay transfer URL on the order. Calling it again replaces the URL.
// @Tags         payments
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200  {object}  response.PaymentRequest
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID}/payment [post]
// @Security BearerAuth
func (h *OrderHandler) HandleCreatePayment(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	req, order, err := h.payments.BuildPaymentRequest(ctx.Request.Context(), user, orderID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreatePayment -> h.payments.BuildPaymentRequest", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewPaymentRequest(req, order))
}

// HandleGetQR godoc
// @Summary      QR code of the payment URL
// @Tags         payments
// @Produce      png
// @Param        orderID  path      string  true   "Order ID"
// @Param        size     query     int     false  "Image size in pixels"
// @Success      200  {file}    binary
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /orders/{orderID}/qr [get]
// @Security BearerAuth
func (h *OrderHandler) HandleGetQR(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	size, err := strconv.Atoi(ctx.DefaultQuery("size", strconv.Itoa(defaultQRSize)))
	if err != nil || size < minQRSize || size > maxQRSize {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("size must be between %d and %d", minQRSize, maxQRSize)))
		return
	}

	order, err := h.carts.GetOrder(ctx.Request.Context(), user, orderID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetQR -> h.carts.GetOrder", err)
		return
	}
	if order.PaymentURL == nil {
		response.RenderErr(ctx, response.ErrConflict(errNoPaymentRequest))
		return
	}

	png, err := solanapay.QRCode(*order.PaymentURL, size)
	if err != nil {
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.HandleGetQR -> solanapay.QRCode -> %w", err)))
		return
	}

	ctx.Data(http.StatusOK, "image/png", png)
}

// HandleVerify godoc
// @Summary      Verify a payment and complete the order
// @Description  Returns 202 when the ledger cannot confirm the transaction yet
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        orderID  path      string                 true  "Order ID"
// @Param        request  body      request.VerifyRequest  true  "request body"
// @Success      200  {object}  response.Order
// @Success      202  {object}  response.Pending
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /orders/{orderID}/verify [post]
// @Security BearerAuth
func (h *OrderHandler) HandleVerify(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	var req request.VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if _, err := h.carts.GetOrder(ctx.Request.Context(), user, orderID); err != nil {
		renderServiceErr(ctx, "v1.HandleVerify -> h.carts.GetOrder", err)
		return
	}

	order, err := h.verifier.VerifyAndComplete(ctx.Request.Context(), orderID, req.Signature)
	if err != nil {
		if errors.Is(err, service.ErrPaymentPending) {
			ctx.JSON(http.StatusAccepted, response.Pending{
				Status:  "pending",
				Message: service.ErrPaymentPending.Error(),
			})
			return
		}

		renderServiceErr(ctx, "v1.HandleVerify -> h.verifier.VerifyAndComplete", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}

// HandleGetExplorer godoc
// @Summary      Block explorer link of a completed order
// @Tags         payments
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200  {object}  response.Explorer
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /orders/{orderID}/explorer [get]
// @Security BearerAuth
func (h *OrderHandler) HandleGetExplorer(ctx *gin.Context) {
	user, orderID, ok := h.orderRequest(ctx)
	if !ok {
		return
	}

	order, err := h.carts.GetOrder(ctx.Request.Context(), user, orderID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetExplorer -> h.carts.GetOrder", err)
		return
	}
	if order.Signature == nil {
		response.RenderErr(ctx, response.ErrConflict(errNotPaid))
		return
	}

	ctx.JSON(http.StatusOK, response.Explorer{
		Signature: *order.Signature,
		URL:       solanapay.ExplorerURL(*order.Signature, h.cluster),
	})
}

func (h *OrderHandler) orderRequest(ctx *gin.Context) (domain.User, string, bool) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.User{}, "", false
	}

	orderID, ok := pathID(ctx, "order", "orderID")
	if !ok {
		return domain.User{}, "", false
	}

	return user, orderID, true
}
