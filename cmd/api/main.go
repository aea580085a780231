package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/storelab/go-checkout-saga/internal/aws"
	"github.com/storelab/go-checkout-saga/internal/cache"
	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/storelab/go-checkout-saga/internal/catalog"
	"github.com/storelab/go-checkout-saga/internal/checkout"
	"github.com/storelab/go-checkout-saga/internal/handlers"
	"github.com/storelab/go-checkout-saga/internal/orders"
	"github.com/storelab/go-checkout-saga/internal/saga"
	"github.com/storelab/go-checkout-saga/internal/validation"
)

func setupRouter(cartSvc handlers.CartAPI, checkoutSvc handlers.CheckoutAPI, orderStore handlers.OrderAPI) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v := validation.New()
	handlers.RegisterCartRoutes(r, cartSvc, v)
	handlers.RegisterCheckoutRoutes(r, checkoutSvc, v)
	handlers.RegisterOrderRoutes(r, orderStore)

	return r
}

func main() {
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cartStore := cart.NewStore(clients.DynamoDB, os.Getenv("CARTS_TABLE"))
	productStore := catalog.NewStore(clients.DynamoDB, os.Getenv("PRODUCTS_TABLE"))
	orderStore := orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE"))

	var cartCache cart.Cache = cache.Noop{}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cartCache = cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: addr}))
	}

	cartSvc := cart.NewService(cartStore, productStore, cartCache)

	publisher := saga.NewQueuePublisher(aws.NewPublisher(clients.SQS, os.Getenv("SAGA_QUEUE_URL")))
	checkoutSvc := checkout.NewService(cartSvc, orderStore, publisher)

	r := setupRouter(cartSvc, checkoutSvc, orderStore)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
