package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	UpdatesReceived   metric.Int64Counter
	ReceiptsProcessed metric.Int64Counter
	VisionDuration    metric.Float64Histogram
	SplitTotalCents   metric.Int64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	received, err := meter.Int64Counter("updates_received_total",
		metric.WithDescription("Total webhook updates accepted"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	processed, err := meter.Int64Counter("receipts_processed_total",
		metric.WithDescription("Total receipts processed, by outcome"),
		metric.WithUnit("{receipt}"),
	)
	if err != nil {
		return nil, err
	}

	vision, err := meter.Float64Histogram("vision_request_duration_seconds",
		metric.WithDescription("Duration of receipt extraction calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 2.5, 5, 10, 20, 40, 80),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Histogram("split_total_cents",
		metric.WithDescription("Total allocated per split in cents"),
		metric.WithUnit("cents"),
		metric.WithExplicitBucketBoundaries(500, 1000, 2500, 5000, 10000, 25000, 50000),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		UpdatesReceived:   received,
		ReceiptsProcessed: processed,
		VisionDuration:    vision,
		SplitTotalCents:   total,
	}, nil
}
