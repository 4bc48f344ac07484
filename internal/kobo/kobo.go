// Package kobo holds conventions of the Kobo device protocol shared by the
// translators.
package kobo

import "time"

// TimeLayout is the timestamp format devices expect: seconds plus seven
// fractional digits, always UTC.
const TimeLayout = "2006-01-02T15:04:05.0000000Z"

// SyncTokenHeader carries the opaque sync token in both directions.
const SyncTokenHeader = "X-Kobo-Synctoken"

// FormatTime renders t in the device timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatUnixMillis renders a unix millisecond timestamp in the device format.
func FormatUnixMillis(ms int64) string {
	return FormatTime(time.UnixMilli(ms))
}
