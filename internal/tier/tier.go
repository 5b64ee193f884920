package tier

import (
	"fmt"

	"clipforge/internal/services"
)

// ProviderTier selects which AI provider chains a task may use.
type ProviderTier string

const (
	ProviderFree ProviderTier = "free"
	ProviderPaid ProviderTier = "paid"
)

// Name identifies a subscription tier.
type Name string

const (
	Free Name = "free"
	Pro  Name = "pro"
)

// Permissions describes what a tier allows. Zero limits mean unlimited.
type Permissions struct {
	MaxDurationSeconds     float64
	MaxQuality             int
	WatermarkRequired      bool
	ConcurrentUploadsLimit int
	AIProviderTier         ProviderTier
}

var permissions = map[Name]Permissions{
	Free: {
		MaxDurationSeconds:     300,
		MaxQuality:             720,
		WatermarkRequired:      true,
		ConcurrentUploadsLimit: 1,
		AIProviderTier:         ProviderFree,
	},
	Pro: {
		MaxDurationSeconds:     0,
		MaxQuality:             2160,
		WatermarkRequired:      false,
		ConcurrentUploadsLimit: 4,
		AIProviderTier:         ProviderPaid,
	},
}

// Lookup returns the permissions for a tier name. Unknown names fall back to
// the free tier so an unrecognized value can never widen access.
func Lookup(name Name) Permissions {
	if p, ok := permissions[name]; ok {
		return p
	}
	return permissions[Free]
}

// ValidateDuration rejects inputs longer than the tier allows.
func (p Permissions) ValidateDuration(seconds float64) error {
	if p.MaxDurationSeconds > 0 && seconds > p.MaxDurationSeconds {
		return fmt.Errorf("%w: video runs %.0fs, tier limit is %.0fs",
			services.ErrPolicyViolation, seconds, p.MaxDurationSeconds)
	}
	return nil
}

// ValidateQuality rejects outputs taller than the tier allows.
func (p Permissions) ValidateQuality(height int) error {
	if p.MaxQuality > 0 && height > p.MaxQuality {
		return fmt.Errorf("%w: %dp exceeds tier maximum of %dp",
			services.ErrPolicyViolation, height, p.MaxQuality)
	}
	return nil
}

// AllowsPaidProviders reports whether paid provider chains may be used.
func (p Permissions) AllowsPaidProviders() bool {
	return p.AIProviderTier == ProviderPaid
}
