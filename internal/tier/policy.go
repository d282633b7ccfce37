package tier

import (
	"fmt"
	"sort"
)

// Policy answers admission questions against an immutable limit table.
// The table is injected once at construction and never mutated, so a
// Policy is safe for concurrent use.
type Policy struct {
	table Table
}

// NewPolicy creates a Policy over the given table.
func NewPolicy(table Table) *Policy {
	return &Policy{table: table}
}

// Limits returns the limit row for a tier. An unknown tier is a
// programming error, not user input, and panics.
func (p *Policy) Limits(t Tier) Limits {
	l, ok := p.table[t]
	if !ok {
		panic(fmt.Sprintf("tier: no limits configured for tier %q", t))
	}
	return l
}

// CanCreateVideo reports whether a user on tier t who has already
// generated monthlyCount videos this month may generate another.
func (p *Policy) CanCreateVideo(t Tier, monthlyCount int) bool {
	l := p.Limits(t)
	if l.VideosPerMonth == Unlimited {
		return true
	}
	return monthlyCount < l.VideosPerMonth
}

// CanUploadFile reports whether a file of sizeMB megabytes fits the tier cap.
func (p *Policy) CanUploadFile(t Tier, sizeMB float64) bool {
	return sizeMB <= float64(p.Limits(t).FileLimitMB)
}

// CanCreateDuration reports whether a video of the requested length is
// allowed. The bound is inclusive.
func (p *Policy) CanCreateDuration(t Tier, durationSec int) bool {
	l := p.Limits(t)
	if l.MaxDurationSec == Unlimited {
		return true
	}
	return durationSec <= l.MaxDurationSec
}

// ProcessingPriority returns the scheduling hint for render jobs.
func (p *Policy) ProcessingPriority(t Tier) int {
	return p.Limits(t).Priority
}

// ShouldWatermark reports whether rendered output carries a watermark.
func (p *Policy) ShouldWatermark(t Tier) bool {
	return p.Limits(t).Watermark
}

// HasFeature reports whether the tier includes the named feature flag.
func (p *Policy) HasFeature(t Tier, feature string) bool {
	for _, f := range p.Limits(t).Features {
		if f == feature {
			return true
		}
	}
	return false
}

// RemainingVideos returns how many videos the user may still generate
// this month, or Unlimited.
func (p *Policy) RemainingVideos(t Tier, usedVideos int) int {
	l := p.Limits(t)
	if l.VideosPerMonth == Unlimited {
		return Unlimited
	}
	if remaining := l.VideosPerMonth - usedVideos; remaining > 0 {
		return remaining
	}
	return 0
}

// RenderQuality returns the output resolution label for the tier.
func (p *Policy) RenderQuality(t Tier) string {
	switch l := p.Limits(t); {
	case l.Priority >= 3:
		return "4k"
	case l.Priority == 2:
		return "1080p"
	default:
		return "720p"
	}
}

// ProratedUpgradeCost computes the amount owed when switching tiers
// mid-cycle: the daily price difference times the days left in the
// current billing period, floored at zero.
func (p *Policy) ProratedUpgradeCost(from, to Tier, daysRemaining int) float64 {
	daily := (p.Limits(to).PriceUSD - p.Limits(from).PriceUSD) / 30
	cost := daily * float64(daysRemaining)
	if cost < 0 {
		return 0
	}
	return cost
}

// UpgradeOptions lists the tiers ranked above the current one,
// ordered by priority.
func (p *Policy) UpgradeOptions(current Tier) []Tier {
	cur := p.Limits(current).Priority
	var out []Tier
	for t, l := range p.table {
		if l.Priority > cur {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return p.table[out[i]].Priority < p.table[out[j]].Priority
	})
	return out
}
