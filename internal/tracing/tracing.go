// Package tracing exports spans over OTLP gRPC when enabled. The provider
// is a lifecycle component so buffered spans get flushed inside the
// shutdown grace period.
package tracing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mbeltran/armlex/internal/logging"
)

const setupTimeout = 5 * time.Second

// Config controls span export
type Config struct {
	Enabled bool
	// Endpoint is the OTLP gRPC collector, host:port
	Endpoint string
	// TLSCAPath pins the collector's CA; empty with TLSInsecure false
	// means a plaintext connection
	TLSCAPath string
	// TLSInsecure enables TLS but skips certificate verification
	TLSInsecure bool
	// Service and Version are stamped on every span resource; they
	// default to armlex and dev
	Service string
	Version string
}

// Provider wraps the OpenTelemetry tracer provider as a lifecycle
// component. A disabled provider is inert and always safe to use.
type Provider struct {
	tp      *sdktrace.TracerProvider
	log     zerolog.Logger
	enabled bool
}

// New builds the provider and, when enabled, installs it as the global
// tracer provider. The exporter connects lazily, so New succeeds even
// while the collector is down.
func New(cfg Config) (*Provider, error) {
	log := logging.WithComponent("tracing")

	if !cfg.Enabled {
		return &Provider{log: log}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing: enabled without an endpoint")
	}
	if cfg.Service == "" {
		cfg.Service = "armlex"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	var dialOpts []grpc.DialOption
	var otlpOpts []otlptracegrpc.Option

	switch {
	case cfg.TLSInsecure:
		creds := credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
		})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))
		log.Warn().Msg("exporting spans with certificate verification disabled")
	case cfg.TLSCAPath != "":
		pem, err := os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("tracing: read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tracing: no usable certificate in %s", cfg.TLSCAPath)
		}
		creds := credentials.NewTLS(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))
	default:
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		otlpOpts = append(otlpOpts, otlptracegrpc.WithInsecure())
	}

	otlpOpts = append(otlpOpts,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(dialOpts...),
	)

	exporter, err := otlptracegrpc.New(ctx, otlpOpts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.Service),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		// every run is interesting at this traffic level
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	log.Info().Str(logging.FieldAddr, cfg.Endpoint).Msg("span export enabled")

	return &Provider{tp: tp, log: log, enabled: true}, nil
}

// Start implements lifecycle.Component; the exporter needs no warm-up
func (p *Provider) Start(context.Context) error { return nil }

// Stop flushes buffered spans within the ctx deadline
func (p *Provider) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	p.log.Info().Msg("span export stopped")
	return nil
}

// Name implements lifecycle.Component
func (p *Provider) Name() string { return "tracing" }

// Tracer hands out a named tracer; inert when the provider is disabled
func (p *Provider) Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool { return p.enabled }
