package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nightspite/sol-pos/internal/api/handler/v1/response"
	"github.com/nightspite/sol-pos/internal/api/middleware"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/service"
)

type UserService interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

func getUserFromContext(ctx *gin.Context, uSvc UserService) (domain.User, *response.Err) {
	userID := ctx.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		return domain.User{}, response.ErrUnauthorized(errors.New("no authenticated user"))
	}

	user, err := uSvc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrUnauthorized(fmt.Errorf("user %v no longer exists", userID))
		}

		return domain.User{}, response.ErrInternalServerError(fmt.Errorf("getUserFromContext -> uSvc.GetUser -> %w", err))
	}

	return user, nil
}

// pathID reads a UUID path parameter. A malformed id cannot name any row, so
// it is reported as not found.
func pathID(ctx *gin.Context, resource, param string) (string, bool) {
	value := ctx.Param(param)
	id, err := uuid.Parse(value)
	if err != nil {
		response.RenderErr(ctx, response.ErrNotFound(resource, "id", value))
		return "", false
	}

	return id.String(), true
}

// renderServiceErr maps checkout errors to HTTP responses. where names the
// failing call for server-side logs.
func renderServiceErr(ctx *gin.Context, where string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.RenderErr(ctx, response.ErrNotFound("order", "id", ctx.Param("orderID")))
	case errors.Is(err, service.ErrTerminalNotFound):
		response.RenderErr(ctx, response.ErrNotFound("terminal", "id", ctx.Param("terminalID")))
	case errors.Is(err, service.ErrOrderLineNotFound):
		response.RenderErr(ctx, response.ErrNotFound("order line", "product id", ctx.Param("productID")))
	case errors.Is(err, service.ErrStockEntryNotFound):
		response.RenderErr(ctx, response.ErrNotFound("stock entry", "product id", productParam(ctx)))
	case errors.Is(err, service.ErrOrderNotInCart),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrSignatureUsed):
		response.RenderErr(ctx, response.ErrConflict(unwrapSentinel(err)))
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrTransferInvalid),
		errors.Is(err, service.ErrTotalChanged),
		errors.Is(err, service.ErrInvalidQuantity):
		response.RenderErr(ctx, response.ErrBadRequest(unwrapSentinel(err)))
	case errors.Is(err, service.ErrNotStoreMember),
		errors.Is(err, service.ErrAdminOnly):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", where, err)))
	}
}

var clientErrors = []error{
	service.ErrOrderNotInCart,
	service.ErrOutOfStock,
	service.ErrSignatureUsed,
	service.ErrEmptyOrder,
	service.ErrTransferInvalid,
	service.ErrTotalChanged,
	service.ErrInvalidQuantity,
}

// unwrapSentinel hides the call chain of a wrapped error from clients.
func unwrapSentinel(err error) error {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target
		}
	}

	return err
}

func productParam(ctx *gin.Context) string {
	if id := ctx.Param("productID"); id != "" {
		return id
	}

	return ctx.GetString("productID")
}
