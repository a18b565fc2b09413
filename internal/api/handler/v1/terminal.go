package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nightspite/sol-pos/internal/api/handler/v1/response"
	"github.com/nightspite/sol-pos/internal/domain"
)

type StoreService interface {
	GetTerminal(ctx context.Context, user domain.User, terminalID string) (domain.Terminal, []domain.StockEntry, error)
	SetStock(ctx context.Context, user domain.User, storeID, productID string, quantity int) (domain.StockEntry, error)
}

type TerminalHandler struct {
	stores StoreService
	carts  CartService
	uSvc   UserService
}

func NewTerminalHandler(stores StoreService, carts CartService, uSvc UserService) *TerminalHandler {
	return &TerminalHandler{
		stores: stores,
		carts:  carts,
		uSvc:   uSvc,
	}
}

// HandleGetTerminal godoc
// @Summary      Get a terminal
// @Description  Returns the terminal, its store and the products the store can sell
// @Tags         terminals
// @Produce      json
// @Param        terminalID  path      string  true  "Terminal ID"
// @Success      200  {object}  response.Terminal
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /terminals/{terminalID} [get]
// @Security BearerAuth
func (h *TerminalHandler) HandleGetTerminal(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	terminalID, ok := pathID(ctx, "terminal", "terminalID")
	if !ok {
		return
	}

	terminal, stock, err := h.stores.GetTerminal(ctx.Request.Context(), user, terminalID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetTerminal -> h.stores.GetTerminal", err)
		return
	}
	if stock == nil {
		stock = []domain.StockEntry{}
	}

	ctx.JSON(http.StatusOK, response.Terminal{
		Terminal: terminal,
		Stock:    stock,
	})
}

// HandleGetCart godoc
// @Summary      Get the open cart of a terminal
// @Description  Returns the terminal's CART order, opening one if there is none
// @Tags         terminals
// @Produce      json
// @Param        terminalID  path      string  true  "Terminal ID"
// @Success      200  {object}  response.Order
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /terminals/{terminalID}/cart [get]
// @Security BearerAuth
func (h *TerminalHandler) HandleGetCart(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	terminalID, ok := pathID(ctx, "terminal", "terminalID")
	if !ok {
		return
	}

	order, err := h.carts.GetOrCreateCart(ctx.Request.Context(), user, terminalID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetCart -> h.carts.GetOrCreateCart", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewOrder(order))
}
