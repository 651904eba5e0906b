package evaluation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMetrics(t *testing.T) {
	set, err := ParseMetrics("VOD", "dice", "Dice", " fp ", "")
	require.NoError(t, err)
	require.Equal(t, NewMetricSet(VOD, Dice, FP), set)

	_, err = ParseMetrics("vod", "iou")
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestIsRatio(t *testing.T) {
	for _, m := range AllMetrics() {
		want := m == VD || m == VOD || m == Dice || m == USR || m == OSR
		require.Equal(t, want, m.IsRatio(), "metric %s", m)
	}
}
