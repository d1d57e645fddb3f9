package format

import (
	"fmt"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Seconds formats a position in seconds with two decimals, e.g. "12.34s".
func Seconds(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}

// SecondsRange formats a start/end pair in seconds, e.g. "12.34s-15.60s".
// This is the display form used in prompts and exported clip names.
func SecondsRange(start, end float64) string {
	return fmt.Sprintf("%.2fs-%.2fs", start, end)
}
