package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m := NewMetrics(provider)
	m.InvitationsCreatedTotal.Add(ctx, 2)
	m.EntitlementDegradedTotal.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, meterName, rm.ScopeMetrics[0].Scope.Name)

	totals := map[string]int64{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, metric.Name)
		for _, dp := range sum.DataPoints {
			totals[metric.Name] += dp.Value
		}
	}

	require.Equal(t, int64(2), totals["orgkeeper.invitations.created.total"])
	require.Equal(t, int64(1), totals["orgkeeper.entitlement.degraded.total"])
}

func TestNewNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	require.NotNil(t, m.APIKeyValidationsTotal)
	m.APIKeyValidationsTotal.Add(context.Background(), 1)
}
