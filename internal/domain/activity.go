// Package domain defines the activity record and the producer-facing repository.
package domain

import "time"

// Activity types recorded by the CMS.
const (
	ActivityTypePageVisit      = "pagevisit"
	ActivityTypeLanding        = "landingpage"
	ActivityTypeConversion     = "conversion"
	ActivityTypeFormSubmit     = "bizformsubmit"
	ActivityTypeInternalSearch = "internalsearch"
	ActivityTypeClickTracking  = "clicktracking"
)

// Activity is one occurrence of a tracked event awaiting persistence.
//
// ID is zero while the record is queued and is assigned once, after the batch
// containing it has been written.
type Activity struct {
	ID            int64
	Type          string
	Created       time.Time
	ContactID     int64
	SiteID        int
	NodeID        int
	ItemID        int
	ItemDetailID  int
	Value         string
	Title         string
	URL           string
	URLReferrer   string
	Culture       string
	Campaign      string
	UTMSource     string
	UTMContent    string
	ABVariantName string
	Comment       string
}

// Persisted reports whether the activity has been assigned its identity.
func (a *Activity) Persisted() bool {
	return a != nil && a.ID != 0
}
