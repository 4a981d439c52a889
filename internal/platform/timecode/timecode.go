// Package timecode converts between clip timestamps in text form
// (MM:SS.mmm or HH:MM:SS.mmm) and seconds. Analysis responses carry
// timestamps as text; everything downstream works in seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatError reports a timestamp that does not follow MM:SS.mmm or
// HH:MM:SS.mmm structure.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Input, e.Reason)
}

// Parse converts MM:SS.mmm or HH:MM:SS.mmm into seconds. Minutes and hours
// are unbounded; seconds must be in [0,60).
func Parse(text string) (float64, error) {
	raw := strings.TrimSpace(text)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &FormatError{Input: text, Reason: "expected MM:SS.mmm or HH:MM:SS.mmm"}
	}

	var hours int64
	if len(parts) == 3 {
		h, err := parseUnits(parts[0])
		if err != nil {
			return 0, &FormatError{Input: text, Reason: "bad hours component"}
		}
		hours = h
	}
	minutes, err := parseUnits(parts[len(parts)-2])
	if err != nil {
		return 0, &FormatError{Input: text, Reason: "bad minutes component"}
	}

	secText := parts[len(parts)-1]
	dot := strings.IndexByte(secText, '.')
	if dot < 0 {
		return 0, &FormatError{Input: text, Reason: "missing millisecond component"}
	}
	secPart, msPart := secText[:dot], secText[dot+1:]
	if len(secPart) != 2 || !allDigits(secPart) {
		return 0, &FormatError{Input: text, Reason: "seconds must be exactly two digits"}
	}
	if len(msPart) != 3 || !allDigits(msPart) {
		return 0, &FormatError{Input: text, Reason: "milliseconds must be exactly three digits"}
	}
	seconds, _ := strconv.ParseInt(secPart, 10, 64)
	if seconds >= 60 {
		return 0, &FormatError{Input: text, Reason: "seconds out of range [0,60)"}
	}
	millis, _ := strconv.ParseInt(msPart, 10, 64)

	total := float64(hours*3600+minutes*60+seconds) + float64(millis)/1000.0
	return total, nil
}

// Format renders seconds as zero-padded MM:SS.mmm, rounding to the nearest
// millisecond. Minutes grow past 59 rather than rolling into hours.
func Format(seconds float64) string {
	ms := totalMillis(seconds)
	minutes := ms / 60000
	rem := ms % 60000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, rem/1000, rem%1000)
}

// FormatHours renders seconds as zero-padded HH:MM:SS.mmm.
func FormatHours(seconds float64) string {
	ms := totalMillis(seconds)
	hours := ms / 3600000
	rem := ms % 3600000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, rem/60000, (rem%60000)/1000, rem%1000)
}

func totalMillis(seconds float64) int64 {
	if seconds < 0 {
		seconds = 0
	}
	return int64(math.Round(seconds * 1000))
}

func parseUnits(s string) (int64, error) {
	if s == "" || !allDigits(s) {
		return 0, fmt.Errorf("not a digit sequence")
	}
	return strconv.ParseInt(s, 10, 64)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
