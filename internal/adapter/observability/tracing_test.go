package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

func TestSetupTracing_DisabledStillPropagates(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// The gRPC exporter dials lazily, so no collector is needed.
	shutdown, err := SetupTracing(context.Background(), config.Config{
		OTLPEndpoint:    "localhost:4317",
		OTELServiceName: "interview-coach-test",
		AppEnv:          "prod",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestTraceSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, TraceSampleRatio(config.Config{AppEnv: "dev"}))
	assert.Equal(t, 0.1, TraceSampleRatio(config.Config{AppEnv: "prod"}))
	assert.Equal(t, 0.5, TraceSampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 0.5}))
	assert.Equal(t, 0.1, TraceSampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 3}))
}
