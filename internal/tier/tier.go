package tier

import "fmt"

// Tier is a named subscription level bounding resource consumption.
type Tier string

const (
	Free       Tier = "FREE"
	Starter    Tier = "STARTER"
	Pro        Tier = "PRO"
	Enterprise Tier = "ENTERPRISE"
)

// Unlimited is the sentinel used in limit fields to mean "no cap".
const Unlimited = -1

// Limits describes the resource bounds of a single tier.
type Limits struct {
	PriceUSD       float64
	VideosPerMonth int // Unlimited for no cap
	MaxDurationSec int // Unlimited for no cap
	FileLimitMB    int
	Watermark      bool
	Priority       int
	APIAccess      bool
	Features       []string
}

// Table maps every known tier to its limits.
type Table map[Tier]Limits

// Default returns the production limit table.
func Default() Table {
	return Table{
		Free: {
			PriceUSD:       0,
			VideosPerMonth: 5,
			MaxDurationSec: 120,
			FileLimitMB:    100,
			Watermark:      true,
			Priority:       1,
			APIAccess:      false,
			Features:       []string{"basic_templates", "standard_ai", "community_support", "basic_analytics"},
		},
		Starter: {
			PriceUSD:       29,
			VideosPerMonth: 25,
			MaxDurationSec: 600,
			FileLimitMB:    500,
			Watermark:      false,
			Priority:       2,
			APIAccess:      false,
			Features:       []string{"premium_templates", "advanced_ai", "custom_branding", "email_support", "hd_export", "detailed_analytics"},
		},
		Pro: {
			PriceUSD:       99,
			VideosPerMonth: 100,
			MaxDurationSec: 1800,
			FileLimitMB:    2048,
			Watermark:      false,
			Priority:       3,
			APIAccess:      true,
			Features:       []string{"all_templates", "custom_avatars", "api_access", "priority_support", "4k_export", "advanced_analytics", "team_collaboration", "custom_fonts", "batch_processing"},
		},
		Enterprise: {
			PriceUSD:       499,
			VideosPerMonth: Unlimited,
			MaxDurationSec: Unlimited,
			FileLimitMB:    10240,
			Watermark:      false,
			Priority:       4,
			APIAccess:      true,
			Features:       []string{"white_label", "dedicated_support", "custom_integrations", "admin_panel", "sso_integration", "unlimited_exports", "priority_processing", "custom_ai_models", "dedicated_account_manager", "compliance_features", "advanced_security"},
		},
	}
}

// Valid reports whether t names a known tier.
func (t Tier) Valid() bool {
	switch t {
	case Free, Starter, Pro, Enterprise:
		return true
	}
	return false
}

// ParseTier converts a plan name into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown subscription tier: %q", s)
	}
	return t, nil
}
