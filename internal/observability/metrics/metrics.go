package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	customersCreated     metric.Int64Counter
	referralCredits      metric.Int64Counter
	registrationFallback metric.Int64Counter
	servicesCompleted    metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ecoscape"
	}
	meter := provider.Meter(name)

	customersCreated, err := meter.Int64Counter("ecoscape_customers_created_total")
	if err != nil {
		return nil, err
	}
	referralCredits, err := meter.Int64Counter("ecoscape_referral_credits_total")
	if err != nil {
		return nil, err
	}
	registrationFallback, err := meter.Int64Counter("ecoscape_registration_fallback_total")
	if err != nil {
		return nil, err
	}
	servicesCompleted, err := meter.Int64Counter("ecoscape_services_completed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("ecoscape_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		customersCreated:     customersCreated,
		referralCredits:      referralCredits,
		registrationFallback: registrationFallback,
		servicesCompleted:    servicesCompleted,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordCustomerCreated counts created customers by referral source.
func (m *Metrics) RecordCustomerCreated(ctx context.Context, referralSource string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("referral_source", strings.TrimSpace(referralSource)))
	m.customersCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReferralCredit counts referral credits by outcome (credited, duplicate, failed).
func (m *Metrics) RecordReferralCredit(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.referralCredits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRegistrationFallback counts registration counters seeded from the clock.
func (m *Metrics) RecordRegistrationFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrationFallback.Add(ctx, 1)
}

// RecordServiceCompleted counts completed maintenance requests by service type.
func (m *Metrics) RecordServiceCompleted(ctx context.Context, serviceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("service_type", strings.TrimSpace(serviceType)))
	m.servicesCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts throttled requests.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":        {},
	"status_code":     {},
	"referral_source": {},
	"service_type":    {},
	"result":          {},
	"reason":          {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
