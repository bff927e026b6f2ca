package sift

import (
	"fmt"
	"strings"
)

// Tiers that bypass the record quota entirely.
const (
	TierUnlimited = "unlimited"
	TierAdmin     = "admin"
)

// Quota gates how many records a tier may hold in total.
type Quota struct {
	FreeLimit  int
	UpgradeURL string
}

// Unlimited reports whether the tier bypasses quota checks.
func (q Quota) Unlimited(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierUnlimited, TierAdmin:
		return true
	default:
		return false
	}
}

// MaxFor returns the record cap for a tier. Unknown tiers get the free cap.
func (q Quota) MaxFor(tier string) int64 {
	return int64(q.FreeLimit)
}

// QuotaError is returned before any external cost when a user is at their
// cap. Handlers translate it into the limit_reached response.
type QuotaError struct {
	Limit      int64
	UpgradeURL string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("sift limit of %d reached", e.Limit)
}
