package timer

import (
	"fmt"
	"time"
)

// FormatDuration renders d as HH:MM:SS.cc where cc is centiseconds.
// Hours are not wrapped at 24. Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	seconds := int64(d / time.Second)
	centis := (d % time.Second).Milliseconds() / 10

	return fmt.Sprintf("%02d:%02d:%02d.%02d",
		seconds/3600,
		(seconds%3600)/60,
		seconds%60,
		centis,
	)
}
