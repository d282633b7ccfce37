package tier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanCreateVideoRespectsMonthlyCap(t *testing.T) {
	p := NewPolicy(Default())

	// FREE allows 5 videos per month: the 6th request must be refused.
	require.True(t, p.CanCreateVideo(Free, 4))
	require.False(t, p.CanCreateVideo(Free, 5))
	require.False(t, p.CanCreateVideo(Free, 6))
}

func TestCanCreateVideoUnlimitedSentinel(t *testing.T) {
	p := NewPolicy(Default())

	for _, count := range []int{0, 1, 5, 100, 1 << 20} {
		require.True(t, p.CanCreateVideo(Enterprise, count), "count=%d", count)
	}
}

func TestCanCreateDurationBoundaryInclusive(t *testing.T) {
	p := NewPolicy(Default())

	require.True(t, p.CanCreateDuration(Pro, 1799))
	require.True(t, p.CanCreateDuration(Pro, 1800))
	require.False(t, p.CanCreateDuration(Pro, 1801))

	// Unlimited duration never rejects.
	require.True(t, p.CanCreateDuration(Enterprise, 1801))
	require.True(t, p.CanCreateDuration(Enterprise, 360000))
}

func TestCanUploadFile(t *testing.T) {
	p := NewPolicy(Default())

	require.True(t, p.CanUploadFile(Free, 100))
	require.False(t, p.CanUploadFile(Free, 100.1))
	require.True(t, p.CanUploadFile(Enterprise, 10240))
}

func TestProcessingPriorityStrictlyIncreasing(t *testing.T) {
	p := NewPolicy(Default())

	order := []Tier{Free, Starter, Pro, Enterprise}
	for i := 1; i < len(order); i++ {
		require.Greater(t, p.ProcessingPriority(order[i]), p.ProcessingPriority(order[i-1]),
			"%s should outrank %s", order[i], order[i-1])
	}
}

func TestShouldWatermark(t *testing.T) {
	p := NewPolicy(Default())

	require.True(t, p.ShouldWatermark(Free))
	require.False(t, p.ShouldWatermark(Starter))
	require.False(t, p.ShouldWatermark(Pro))
	require.False(t, p.ShouldWatermark(Enterprise))
}

func TestProratedUpgradeCost(t *testing.T) {
	p := NewPolicy(Default())

	// (99-29)/30 * 15 days
	require.InDelta(t, 35.0, p.ProratedUpgradeCost(Starter, Pro, 15), 1e-9)
	// Downgrades never produce a negative charge.
	require.Equal(t, 0.0, p.ProratedUpgradeCost(Pro, Starter, 15))
	require.Equal(t, 0.0, p.ProratedUpgradeCost(Pro, Pro, 30))
}

func TestRemainingVideos(t *testing.T) {
	p := NewPolicy(Default())

	require.Equal(t, 5, p.RemainingVideos(Free, 0))
	require.Equal(t, 1, p.RemainingVideos(Free, 4))
	require.Equal(t, 0, p.RemainingVideos(Free, 9))
	require.Equal(t, Unlimited, p.RemainingVideos(Enterprise, 9000))
}

func TestUpgradeOptions(t *testing.T) {
	p := NewPolicy(Default())

	require.Equal(t, []Tier{Starter, Pro, Enterprise}, p.UpgradeOptions(Free))
	require.Equal(t, []Tier{Enterprise}, p.UpgradeOptions(Pro))
	require.Empty(t, p.UpgradeOptions(Enterprise))
}

func TestLimitsUnknownTierPanics(t *testing.T) {
	p := NewPolicy(Default())

	require.Panics(t, func() { p.Limits(Tier("PLATINUM")) })
}

func TestInjectedTableIsUsed(t *testing.T) {
	table := Default()
	row := table[Free]
	row.VideosPerMonth = 1
	table[Free] = row
	p := NewPolicy(table)

	require.True(t, p.CanCreateVideo(Free, 0))
	require.False(t, p.CanCreateVideo(Free, 1))
}

func TestParseTier(t *testing.T) {
	got, err := ParseTier("PRO")
	require.NoError(t, err)
	require.Equal(t, Pro, got)

	_, err = ParseTier("pro")
	require.Error(t, err)
}
