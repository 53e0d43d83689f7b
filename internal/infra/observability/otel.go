package observability

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/comfforts/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/hankgalt/watch-history/internal/domain/infra"
)

const (
	DEFAULT_METRICS_ADDR   = ":9464"
	DEFAULT_METRICS_HANDLE = "/metrics"
)

type InitOptions struct {
	ServiceName   string
	MetricsAddr   string // e.g. ":9464"
	OTLPEndpoint  string // e.g. "otel-collector:4317", empty skips traces
	MetricsHandle string // defaults to /metrics
}

// Init installs the global meter provider, serves it for Prometheus scraping
// & optionally exports traces over OTLP. The returned func shuts all of it down.
func Init(ctx context.Context, opt InitOptions) (infra.ShutdownFunc, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	host, _ := os.Hostname()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opt.ServiceName),
			semconv.ServiceInstanceIDKey.String(host),
		),
	)
	if err != nil {
		l.Debug("partial otel resource", "error", err.Error())
	}

	// metrics, scraped by prometheus
	promExp, err := prometheus.New()
	if err != nil {
		l.Error("failed to create Prometheus exporter", "error", err.Error())
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExp),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if opt.MetricsAddr == "" {
		opt.MetricsAddr = DEFAULT_METRICS_ADDR
	}
	if opt.MetricsHandle == "" {
		opt.MetricsHandle = DEFAULT_METRICS_HANDLE
	}

	mux := http.NewServeMux()
	mux.Handle(opt.MetricsHandle, promhttp.Handler())
	srv := &http.Server{
		Addr:              opt.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info("serving prometheus metrics", "address", opt.MetricsAddr, "handle", opt.MetricsHandle)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server error", "error", err.Error())
		}
	}()

	// traces, via collector
	var tp *sdktrace.TracerProvider
	if opt.OTLPEndpoint != "" {
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opt.OTLPEndpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			l.Error("failed to create OTLP trace exporter", "error", err.Error())
			return nil, errors.Join(err, srv.Close(), mp.Shutdown(ctx))
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
	}

	return func(ctx context.Context) error {
		var errs []error
		if tp != nil {
			errs = append(errs, tp.Shutdown(ctx))
		}
		errs = append(errs, mp.Shutdown(ctx), srv.Shutdown(ctx))
		return errors.Join(errs...)
	}, nil
}
