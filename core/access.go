package core

// AccessMode is the derived access level for a (user, sport path) pair.
// It is computed, never stored.
type AccessMode string

const (
	AccessFull     AccessMode = "full"
	AccessFreeTier AccessMode = "free_tier"
	AccessDemo     AccessMode = "demo"
)

// Unrestricted reports whether the mode bypasses point and paywall gating.
func (m AccessMode) Unrestricted() bool {
	return m == AccessFull || m == AccessDemo
}

// AccessFacts are the inputs to access resolution. Purchase and allowlist
// facts come from the access store; adminPreview and the demo toggle are
// request-scoped and never persisted.
type AccessFacts struct {
	AdminPreview bool
	HasPurchase  bool
	DemoAllowed  bool
	DemoEnabled  bool
}

// ResolveAccess derives the access mode for a sport path.
//
// Precedence: admin preview, then a completed purchase, then an allowlisted
// user who toggled demo mode on. Everyone else is free tier. Progress is
// recorded the same way in every mode; only visibility differs.
func ResolveAccess(f AccessFacts) AccessMode {
	switch {
	case f.AdminPreview:
		return AccessFull
	case f.HasPurchase:
		return AccessFull
	case f.DemoAllowed && f.DemoEnabled:
		return AccessDemo
	default:
		return AccessFreeTier
	}
}

// PaywallLocked reports whether a level is out of free-tier reach entirely,
// independent of point totals.
func PaywallLocked(level Level, mode AccessMode, freeLevels int) bool {
	return mode == AccessFreeTier && level.Sequence > freeLevels
}
