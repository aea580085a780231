package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storelab/go-checkout-saga/internal/apperr"
	"github.com/storelab/go-checkout-saga/internal/orders"
)

// OrderAPI is the order history surface the handlers use.
type OrderAPI interface {
	Get(ctx context.Context, userID, orderID string) (*orders.Order, error)
	ListByUser(ctx context.Context, userID string, limit int, nextToken string) ([]orders.Order, string, error)
}

// RegisterOrderRoutes registers the order history endpoints.
func RegisterOrderRoutes(r *gin.Engine, store OrderAPI) {
	r.GET("/orders", func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": apperr.CodeInvalidRequest, "message": "limit must be an integer"})
				return
			}
			limit = n
		}

		list, token, err := store.ListByUser(c.Request.Context(), callerID(c), limit, c.Query("nextToken"))
		if err != nil {
			writeError(c, err)
			return
		}
		resp := gin.H{"orders": list, "count": len(list)}
		if token != "" {
			resp["nextToken"] = token
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		o, err := store.Get(c.Request.Context(), callerID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if o == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": apperr.CodeNotFound, "message": "order not found"})
			return
		}
		c.JSON(http.StatusOK, o)
	})
}
