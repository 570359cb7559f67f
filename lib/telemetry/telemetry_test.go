package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestReadProcessStats(t *testing.T) {
	stats := ReadProcessStats(context.Background())
	require.NotZero(t, stats.HeapUsed)
	require.NotZero(t, stats.Goroutines)
	require.NotEmpty(t, stats.GoVersion)
}

func TestNewResource(t *testing.T) {
	r, err := newResource("resourcesd", "production")
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range r.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "resourcesd", values["service.name"])
	require.Equal(t, "production", values["deployment.environment"])
}

func TestSampler(t *testing.T) {
	require.Contains(t, sampler(0).Description(), "AlwaysOnSampler")
	require.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	require.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
