// Package timeutil provides the service-wide timestamp convention.
// All user-visible timestamps are rendered in Korea Standard Time.
package timeutil

import "time"

// Layout is the timezone-qualified timestamp format used in audit rows
// and health responses.
const Layout = "2006-01-02 15:04:05-0700"

var kst = loadKST()

func loadKST() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now returns the current time in KST (UTC when tzdata is unavailable).
func Now() time.Time {
	return time.Now().In(kst)
}

// NowString returns the current KST time formatted with Layout.
func NowString() string {
	return Now().Format(Layout)
}
