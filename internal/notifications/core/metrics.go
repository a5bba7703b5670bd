package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchDispatchMetrics implements DispatchMetrics on AWS CloudWatch.
//
// Metrics emitted:
//   - DispatchAttempt: Dims {AlertType, Result} on every outcome
//   - DispatchLatency: Dims {AlertType} gateway round trip in ms
//   - ReadingAlarm: Dims {Result} per evaluated reading ("alarm" or "normal")
//   - APILatency: Dims {Endpoint, Result} per HTTP request, in ms
//
// Publishing failures are logged and swallowed.
type CloudWatchDispatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ DispatchMetrics = (*CloudWatchDispatchMetrics)(nil)

// NewCloudWatchDispatchMetrics creates metrics publishing to namespace. An
// empty namespace uses types.MetricNamespace.
func NewCloudWatchDispatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchDispatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &CloudWatchDispatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDispatch emits DispatchAttempt with AlertType and Result dimensions.
func (m *CloudWatchDispatchMetrics) RecordDispatch(ctx context.Context, category types.AlertCategory, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimAlertType), Value: aws.String(string(category))},
			{Name: aws.String(types.DimResult), Value: aws.String(string(result))},
		},
	}, "alert_type", string(category), "result", string(result))
}

// RecordLatency emits DispatchLatency in milliseconds.
func (m *CloudWatchDispatchMetrics) RecordLatency(ctx context.Context, category types.AlertCategory, d time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchLatency),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimAlertType), Value: aws.String(string(category))},
		},
	}, "alert_type", string(category), "duration_ms", d.Milliseconds())
}

// RecordAlarm emits ReadingAlarm for every evaluated reading.
func (m *CloudWatchDispatchMetrics) RecordAlarm(ctx context.Context, matched bool) {
	result := "normal"
	if matched {
		result = "alarm"
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReadingAlarm),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimResult), Value: aws.String(result)},
		},
	}, "result", result)
}

// RecordRequest emits APILatency for one HTTP request. Result carries the
// status code. It satisfies the API chassis metrics collector.
func (m *CloudWatchDispatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	ep := method + " " + endpoint
	m.put(context.Background(), cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAPILatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimEndpoint), Value: aws.String(ep)},
			{Name: aws.String(types.DimResult), Value: aws.String(status)},
		},
	}, "endpoint", ep, "status", status)
}

func (m *CloudWatchDispatchMetrics) put(ctx context.Context, datum cwtypes.MetricDatum, logArgs ...any) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		args := append([]any{"error", err.Error(), "metric", aws.ToString(datum.MetricName)}, logArgs...)
		m.logger.Error("failed to record metric", args...)
	}
}
