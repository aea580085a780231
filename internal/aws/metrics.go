package aws

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricsNamespace = "CheckoutSaga"

// Metrics emits saga step telemetry to CloudWatch. Emission is best-effort:
// a failed PutMetricData is logged and never fails the step.
type Metrics struct {
	client CloudWatchAPI
}

// NewMetrics returns a Metrics emitter. A nil client disables emission.
func NewMetrics(client CloudWatchAPI) *Metrics {
	return &Metrics{client: client}
}

// RecordStep publishes the duration and outcome of a single saga step.
func (m *Metrics) RecordStep(ctx context.Context, step string, outcome string, elapsed time.Duration) {
	if m == nil || m.client == nil {
		return
	}
	now := time.Now()
	dims := []cwtypes.Dimension{
		{Name: awsString("Step"), Value: awsString(step)},
		{Name: awsString("Outcome"), Value: awsString(outcome)},
	}
	ms := float64(elapsed.Milliseconds())
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(metricsNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("StepDurationMs"),
				Dimensions: dims,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitMilliseconds,
				Value:      &ms,
			},
			{
				MetricName: awsString("StepCount"),
				Dimensions: dims,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      awsFloat(1),
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		log.Printf("metrics: put metric data failed: %v", err)
	}
}

func awsFloat(f float64) *float64 { return &f }
