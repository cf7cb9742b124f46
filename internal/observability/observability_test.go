package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-risk-zones/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cases := []struct {
		level   string
		format  string
		enabled slog.Level
		hidden  slog.Level
	}{
		{level: "info", format: "json", enabled: slog.LevelInfo, hidden: slog.LevelDebug},
		{level: "DEBUG", format: "text", enabled: slog.LevelDebug, hidden: slog.LevelDebug - 4},
		{level: "warn", format: "json", enabled: slog.LevelWarn, hidden: slog.LevelInfo},
		{level: "verbose", format: "json", enabled: slog.LevelInfo, hidden: slog.LevelDebug},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tc.level, LogFormat: tc.format})
			require.NotNil(t, logger)
			assert.True(t, logger.Enabled(context.Background(), tc.enabled))
			assert.False(t, logger.Enabled(context.Background(), tc.hidden))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.AnalysisOutcomes.WithLabelValues(OutcomeSuccess).Inc()
	a.SnapshotErrors.WithLabelValues(StagePublish).Add(2)

	assert.InDelta(t, 1, counterValue(t, a.AnalysisOutcomes.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 2, counterValue(t, a.SnapshotErrors.WithLabelValues(StagePublish)), 0)
	assert.InDelta(t, 0, counterValue(t, b.AnalysisOutcomes.WithLabelValues(OutcomeSuccess)), 0)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
