package telemetry_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/firewatch/firewatch/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "firewatch-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent", "propagation is installed even when export is off")
}

func TestInit_EnabledDoesNotDialEagerly(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "firewatch-api",
		OTLPEndpoint: "127.0.0.1:1",
		Enabled:      true,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.True(t, provider.Enabled())
	assert.NotNil(t, provider.MeterProvider)

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = provider.Shutdown(shutdownCtx)
	})
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, telemetry.Sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased")

	var _ sdktrace.Sampler = telemetry.Sampler(0.5)
}
