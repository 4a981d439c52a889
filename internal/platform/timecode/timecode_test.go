package timecode

import (
	"math"
	"testing"
)

func TestParseFormatRoundTrip(t *testing.T) {
	for _, sec := range []float64{0, 0.001, 1.5, 59.999, 60, 61.25, 754.321, 3600, 5025.042} {
		text := Format(sec)
		back, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if math.Abs(back-sec) > 0.0005 {
			t.Fatalf("round trip %v -> %q -> %v", sec, text, back)
		}
	}
}

func TestParseHoursForm(t *testing.T) {
	got, err := Parse("01:02:03.500")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != 3723.5 {
		t.Fatalf("unexpected seconds: %v", got)
	}
	if text := FormatHours(3723.5); text != "01:02:03.500" {
		t.Fatalf("unexpected hours form: %q", text)
	}
}

func TestParseMinutesUnbounded(t *testing.T) {
	got, err := Parse("61:00.000")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != 3660 {
		t.Fatalf("unexpected seconds: %v", got)
	}
}

func TestParseRejections(t *testing.T) {
	for _, bad := range []string{
		"abc",
		"00:61.000",
		"00:60.000",
		"1:2:3:4.000",
		"00:05",
		"00:05.12",
		"00:5.120",
		"-1:05.000",
		"00:-5.000",
		"",
	} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected rejection for %q", bad)
		}
	}
}

func TestFormatZeroPads(t *testing.T) {
	if got := Format(5.042); got != "00:05.042" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := Format(125.0); got != "02:05.000" {
		t.Fatalf("unexpected format: %q", got)
	}
}
