package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/storelab/go-checkout-saga/internal/aws"
	"github.com/storelab/go-checkout-saga/internal/catalog"
	"github.com/storelab/go-checkout-saga/internal/notify"
	"github.com/storelab/go-checkout-saga/internal/orders"
	"github.com/storelab/go-checkout-saga/internal/payment"
	"github.com/storelab/go-checkout-saga/internal/saga"
)

func newCoordinator(ctx context.Context) (*saga.Coordinator, error) {
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, err
	}

	orderStore := orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE"))
	productStore := catalog.NewStore(clients.DynamoDB, os.Getenv("PRODUCTS_TABLE"))
	publisher := saga.NewQueuePublisher(aws.NewPublisher(clients.SQS, os.Getenv("SAGA_QUEUE_URL")))

	var notifier notify.Notifier = notify.LogNotifier{}
	if from := os.Getenv("FROM_EMAIL"); from != "" {
		notifier = notify.NewSESNotifier(clients.SES, from)
	}

	processor := payment.WithBreaker(payment.DummyProcessor{})

	return saga.NewCoordinator(
		orderStore,
		productStore,
		processor,
		notifier,
		publisher,
		aws.NewMetrics(clients.CloudWatch),
	), nil
}

func handleSQSEvent(coord *saga.Coordinator) func(ctx context.Context, event events.SQSEvent) error {
	return func(ctx context.Context, event events.SQSEvent) error {
		log.Printf("received %d SQS messages", len(event.Records))
		for _, r := range event.Records {
			var msg saga.StepMessage
			if err := json.Unmarshal([]byte(r.Body), &msg); err != nil {
				log.Printf("failed to unmarshal message body: %v, body: %s", err, r.Body)
				// return error so SQS/Lambda runtime will handle retries
				return err
			}
			log.Printf("[worker] step=%s order=%s user=%s", msg.Step, msg.OrderID, msg.UserID)
			if err := coord.Handle(ctx, msg); err != nil {
				// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
				log.Printf("worker error: %v", err)
				return err
			}
		}
		return nil
	}
}

func main() {
	coord, err := newCoordinator(context.Background())
	if err != nil {
		log.Fatalf("failed to init coordinator: %v", err)
	}

	handler := handleSQSEvent(coord)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_id":"local-order-1","user_id":"local-user-1","step":"validate"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := handler(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(handler)
}
