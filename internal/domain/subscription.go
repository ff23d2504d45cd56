package domain

import "time"

// TenantSubscription grants one bundle to one tenant for Duration days
// starting at StartDate. The end date and the active flag are never stored;
// use Window to derive them.
type TenantSubscription struct {
	Base
	TenantID  string
	BundleID  string
	Duration  int
	StartDate time.Time

	// Read-only projections of the referenced tenant and bundle.
	TenantName string
	BundleName string
}

// Window returns the end date and whether the subscription is active at now.
func (s TenantSubscription) Window(now time.Time) (time.Time, bool) {
	return SubscriptionWindow(s.StartDate, s.Duration, now)
}

// SubscriptionWindow computes the end of a subscription period and whether
// now falls within it. Duration is counted in days and both bounds are
// inclusive.
func SubscriptionWindow(start time.Time, durationDays int, now time.Time) (time.Time, bool) {
	end := start.AddDate(0, 0, durationDays)
	active := !now.Before(start) && !now.After(end)
	return end, active
}
