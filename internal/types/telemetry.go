package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricDispatchAttempt = "DispatchAttempt"
	MetricDispatchLatency = "DispatchLatency"
	MetricReadingAlarm    = "ReadingAlarm"
	MetricAPILatency      = "APILatency"

	// Dimension Keys
	DimAlertType = "AlertType"
	DimResult    = "Result"
	DimEndpoint  = "Endpoint"

	// Metric Namespace
	MetricNamespace = "FenceMonitor"
)
