package models

import (
	"encoding/json"
	"testing"
)

func TestParseDurationAcceptsFlexibleFormats(t *testing.T) {
	cases := []struct {
		input string
		want  Duration
	}{
		{"01:23:45", 5025},
		{"01:23", 4980},
		{"5", 18000},
		{"0:05:30", 330},
		// hours are elapsed time, not wall clock, so 30-hour
		// ultramarathons are legal
		{"30:00:00", 108000},
	}

	for _, c := range cases {
		got, err := ParseDuration(c.input)
		if err != nil {
			t.Errorf("ParseDuration(%q) returned error: %v", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseDuration(%q) = %d seconds, want %d", c.input, got, c.want)
		}
	}
}

func TestParseDurationRejectsMalformedInput(t *testing.T) {
	for _, bad := range []string{"", "abc", "25:99", "01:23:99", "1:2:3:4", "-1:00", "12:-5"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) should have failed", bad)
		}
	}
}

func TestDurationString(t *testing.T) {
	cases := []struct {
		d    Duration
		want string
	}{
		{5025, "01:23:45"},
		{0, "00:00:00"},
		{108000, "30:00:00"},
		{366000, "101:40:00"},
	}

	for _, c := range cases {
		if got := c.d.String(); got != c.want {
			t.Errorf("Duration(%d).String() = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestDurationJSONRoundTrip(t *testing.T) {
	d := Duration(5025)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"01:23:45"` {
		t.Errorf("Expected \"01:23:45\", got %s", data)
	}

	var back Duration
	if err := json.Unmarshal([]byte(`"01:23"`), &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != 4980 {
		t.Errorf("Expected 4980 seconds, got %d", back)
	}

	if err := json.Unmarshal([]byte(`"nope"`), &back); err == nil {
		t.Error("Expected malformed duration to fail unmarshalling")
	}
}
