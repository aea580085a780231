package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/storelab/go-checkout-saga/internal/validation"
)

// CartAPI is the cart service surface the handlers use.
type CartAPI interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (*cart.Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// RegisterCartRoutes registers the cart endpoints.
func RegisterCartRoutes(r *gin.Engine, svc CartAPI, v *validatorv10.Validate) {
	r.POST("/cart", func(c *gin.Context) {
		var req validation.AddItemRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		out, err := svc.AddItem(c.Request.Context(), callerID(c), req.ProductID, req.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/cart", func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), callerID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.PUT("/cart/items/:productId", func(c *gin.Context) {
		var req validation.UpdateItemRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		out, err := svc.SetQuantity(c.Request.Context(), callerID(c), c.Param("productId"), *req.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.DELETE("/cart/items/:productId", func(c *gin.Context) {
		out, err := svc.RemoveItem(c.Request.Context(), callerID(c), c.Param("productId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	r.DELETE("/cart", func(c *gin.Context) {
		if err := svc.Clear(c.Request.Context(), callerID(c)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
