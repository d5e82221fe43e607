package browser

import "time"

// Chromium stores visit times as microseconds since 1601-01-01 UTC.
// chromeEpochOffset is the gap between that epoch and the Unix epoch.
const chromeEpochOffset = 11644473600 // seconds

// ChromeToTime converts a Chromium visit_time (µs since 1601) to a
// time.Time. Zero converts to the zero time rather than 1601.
func ChromeToTime(visitTime int64) time.Time {
	if visitTime == 0 {
		return time.Time{}
	}
	unixMicro := visitTime - chromeEpochOffset*1_000_000
	return time.UnixMicro(unixMicro).UTC()
}

// TimeToChrome converts a time.Time to a Chromium visit_time.
func TimeToChrome(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro() + chromeEpochOffset*1_000_000
}
