package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterServiceInfo exposes service metadata as a gauge that is always 1
// and carries the metadata as labels.
func (m *Metrics) RegisterServiceInfo(meter metric.Meter, serviceName, version, env string) error {
	serviceInfo, err := meter.Int64ObservableGauge(
		"service.info",
		metric.WithDescription("Service metadata information"),
		metric.WithUnit("{info}"),
	)
	if err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("service_name", serviceName),
		attribute.String("version", version),
		attribute.String("environment", env),
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			observer.ObserveInt64(serviceInfo, 1, metric.WithAttributes(attrs...))
			return nil
		},
		serviceInfo,
	)
	return err
}
