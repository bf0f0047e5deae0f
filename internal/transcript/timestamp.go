package transcript

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTimestamp renders d as the wire form [HH:MM:SS]. Sub-second
// precision is truncated; the line grammar carries whole seconds only.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d.Seconds())
	return fmt.Sprintf("[%02d:%02d:%02d]", s/3600, (s%3600)/60, s%60)
}

// ParseTimestamp parses a [HH:MM:SS] timestamp, with or without the
// surrounding brackets.
func ParseTimestamp(ts string) (time.Duration, error) {
	trimmed := strings.TrimSpace(ts)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")

	parts := strings.Split(trimmed, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		vals[i] = v
	}
	if vals[1] >= 60 || vals[2] >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q: minutes and seconds must be below 60", ts)
	}
	return time.Duration(vals[0]*3600+vals[1]*60+vals[2]) * time.Second, nil
}
