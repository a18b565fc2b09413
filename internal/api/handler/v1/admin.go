package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nightspite/sol-pos/internal/api/handler/v1/request"
	"github.com/nightspite/sol-pos/internal/api/handler/v1/response"
)

type AdminHandler struct {
	stores StoreService
	uSvc   UserService
}

func NewAdminHandler(stores StoreService, uSvc UserService) *AdminHandler {
	return &AdminHandler{
		stores: stores,
		uSvc:   uSvc,
	}
}

// HandleSetStock godoc
// @Summary      Set the stock of a product in a store
// @Description  Overwrites the quantity with a counted value. Requires the ADMIN role.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        storeID    path      string                   true  "Store ID"
// @Param        productID  path      string                   true  "Product ID"
// @Param        request    body      request.SetStockRequest  true  "request body"
// @Success      200  {object}  domain.StockEntry
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/stores/{storeID}/products/{productID}/stock [put]
// @Security BearerAuth
func (h *AdminHandler) HandleSetStock(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	storeID, ok := pathID(ctx, "store", "storeID")
	if !ok {
		return
	}
	productID, ok := pathID(ctx, "stock entry", "productID")
	if !ok {
		return
	}

	var req request.SetStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	entry, err := h.stores.SetStock(ctx.Request.Context(), user, storeID, productID, *req.Quantity)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleSetStock -> h.stores.SetStock", err)
		return
	}

	ctx.JSON(http.StatusOK, entry)
}
