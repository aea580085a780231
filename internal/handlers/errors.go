package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/storelab/go-checkout-saga/internal/apperr"
	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/storelab/go-checkout-saga/internal/catalog"
	"github.com/storelab/go-checkout-saga/internal/checkout"
)

// writeError maps service errors onto the API taxonomy. Anything unmapped
// becomes a 500 with a generic message; the detail only goes to the log.
func writeError(c *gin.Context, err error) {
	ae := classify(err)
	if ae.Code == apperr.CodeInternalError {
		log.Printf("[api] internal error %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(apperr.HTTPStatus(ae.Code), gin.H{"error": ae.Code, "message": ae.Message})
}

func classify(err error) *apperr.Error {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return apperr.New(apperr.CodeInvalidRequest, "quantity out of range")
	case errors.Is(err, catalog.ErrNotFound):
		return apperr.New(apperr.CodeNotFound, "product not found")
	case errors.Is(err, catalog.ErrInsufficientStock):
		return apperr.New(apperr.CodeInsufficientInventory, "not enough inventory available")
	case errors.Is(err, cart.ErrCartNotFound):
		return apperr.New(apperr.CodeCartNotFound, "cart not found")
	case errors.Is(err, cart.ErrVersionConflict):
		return apperr.New(apperr.CodeConflict, "cart was modified concurrently, retry")
	case errors.Is(err, checkout.ErrEmptyCart):
		return apperr.New(apperr.CodeEmptyCart, "cart is empty")
	}
	return apperr.Resolve(err)
}
