package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	cfg := DefaultConfig("test-service")
	cfg.Enabled = false

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown, "shutdown should not be nil even when disabled")

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	// Non-routable endpoint: the exporter is lazy so initialization succeeds.
	cfg := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     1.0,
		Enabled:        true,
	}

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	tp := otel.GetTracerProvider()
	_, ok := tp.(*sdktrace.TracerProvider)
	assert.True(t, ok, "expected *sdktrace.TracerProvider, got %T", tp)

	_ = shutdown(context.Background())
}

func TestInitTracer_SamplerSelection(t *testing.T) {
	for _, rate := range []float64{0.0, 0.5, 1.0} {
		cfg := Config{
			ServiceName:  "test-service",
			OTLPEndpoint: "127.0.0.1:0",
			SampleRate:   rate,
			Enabled:      true,
		}

		shutdown, err := InitTracer(context.Background(), cfg)
		require.NoError(t, err, "sample rate %v", rate)
		_ = shutdown(context.Background())
	}
}
