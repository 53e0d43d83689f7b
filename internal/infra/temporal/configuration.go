package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/interceptor"

	"github.com/hankgalt/watch-history/internal/domain/infra"
	"github.com/hankgalt/watch-history/internal/infra/observability"
)

const (
	ERR_REQUIRED_PARAMS = "namespace & host port are required"
	ERR_TEMPORAL_CLIENT = "error creating temporal client"
)

var (
	ErrRequiredParams = errors.New(ERR_REQUIRED_PARAMS)
	ErrTemporalClient = errors.New(ERR_TEMPORAL_CLIENT)
)

type TemporalConfig struct {
	namespace    string
	host         string
	clientName   string
	metricsAddr  string
	otelEndpoint string
}

func NewTemporalConfig(namespace, host, clientName, metricsAddr, otelEndpoint string) TemporalConfig {
	return TemporalConfig{
		namespace:    namespace,
		host:         host,
		clientName:   clientName,
		metricsAddr:  metricsAddr,
		otelEndpoint: otelEndpoint,
	}
}

func (rc TemporalConfig) Namespace() string    { return rc.namespace }
func (rc TemporalConfig) Host() string         { return rc.host }
func (rc TemporalConfig) ClientName() string   { return rc.clientName }
func (rc TemporalConfig) MetricsAddr() string  { return rc.metricsAddr }
func (rc TemporalConfig) OtelEndpoint() string { return rc.otelEndpoint }

// ConnectionBuilder builds Temporal client options, instrumented when metrics are configured.
type ConnectionBuilder interface {
	Build(ctx context.Context) (client.Options, infra.ShutdownFunc, interceptor.Interceptor, error)
	WithMetrics(clientName, metricsAddr, otelEndpoint string) ConnectionBuilder
}

type clientConnectionBuilder struct {
	namespace    string
	hostPort     string
	clientName   string
	metricsAddr  string
	otelEndpoint string
}

func NewConnectionBuilder(cfg TemporalConfig) ConnectionBuilder {
	return clientConnectionBuilder{
		namespace: cfg.Namespace(),
		hostPort:  cfg.Host(),
	}.WithMetrics(cfg.ClientName(), cfg.MetricsAddr(), cfg.OtelEndpoint())
}

func (b clientConnectionBuilder) WithMetrics(clientName, metricsAddr, otelEndpoint string) ConnectionBuilder {
	b.clientName = clientName
	b.metricsAddr = metricsAddr
	b.otelEndpoint = otelEndpoint
	return b
}

// Build returns client options. Observability is initialized when a client name
// & metrics address are set, traces are exported only with an OTel endpoint.
func (b clientConnectionBuilder) Build(ctx context.Context) (client.Options, infra.ShutdownFunc, interceptor.Interceptor, error) {
	if b.namespace == "" || b.hostPort == "" {
		return client.Options{}, nil, nil, ErrRequiredParams
	}

	opts := client.Options{
		HostPort:  b.hostPort,
		Namespace: b.namespace,
		Identity:  b.clientName,
	}

	if b.clientName == "" || b.metricsAddr == "" {
		return opts, nil, nil, nil
	}

	shutdown, err := observability.Init(ctx, observability.InitOptions{
		ServiceName:  b.clientName,
		MetricsAddr:  b.metricsAddr,
		OTLPEndpoint: b.otelEndpoint,
	})
	if err != nil {
		return opts, nil, nil, fmt.Errorf("error initializing observability: %w", err)
	}

	tracingInt, err := opentelemetry.NewTracingInterceptor(opentelemetry.TracerOptions{})
	if err != nil {
		return opts, shutdown, nil, fmt.Errorf("error creating tracing interceptor: %w", err)
	}

	opts.Interceptors = []interceptor.ClientInterceptor{tracingInt}
	opts.MetricsHandler = opentelemetry.NewMetricsHandler(opentelemetry.MetricsHandlerOptions{})

	return opts, shutdown, tracingInt, nil
}
