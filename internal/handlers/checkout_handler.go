package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/storelab/go-checkout-saga/internal/checkout"
	"github.com/storelab/go-checkout-saga/internal/orders"
	"github.com/storelab/go-checkout-saga/internal/validation"
)

// CheckoutAPI is the checkout service surface the handlers use.
type CheckoutAPI interface {
	Start(ctx context.Context, userID, email string, addr orders.ShippingAddress, paymentMethodID string) (*checkout.Summary, error)
}

// RegisterCheckoutRoutes registers the checkout endpoint.
func RegisterCheckoutRoutes(r *gin.Engine, svc CheckoutAPI, v *validatorv10.Validate) {
	r.POST("/checkout/start", func(c *gin.Context) {
		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		addr := orders.ShippingAddress{
			Name:       req.ShippingAddress.Name,
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		}
		out, err := svc.Start(c.Request.Context(), callerID(c), callerEmail(c), addr, req.PaymentMethodID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
}
