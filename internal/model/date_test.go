package model

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != "2026-01-31" {
		t.Errorf("date = %q, want %q", d, "2026-01-31")
	}

	for _, bad := range []string{"", "2026-13-01", "01/02/2026", "2026-1-2"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		in   Date
		n    int
		want Date
	}{
		{"2026-01-02", -1, "2026-01-01"},
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-02-28", 1, "2026-03-01"},
		{"2028-02-28", 1, "2028-02-29"},
		{"2026-01-01", 5, "2026-01-06"},
	}
	for _, tt := range tests {
		if got := tt.in.AddDays(tt.n); got != tt.want {
			t.Errorf("%s.AddDays(%d) = %s, want %s", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	ts := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts); got != "2026-01-01" {
		t.Errorf("DateOf = %s, want 2026-01-01", got)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Coding")
	if err != nil || c != CategoryCoding {
		t.Errorf("ParseCategory(Coding) = %q, %v", c, err)
	}
	c, err = ParseCategory("")
	if err != nil || c != CategoryOther {
		t.Errorf("ParseCategory(\"\") = %q, %v", c, err)
	}
	if _, err := ParseCategory("Gaming"); err == nil {
		t.Error("expected error for unknown category")
	}
}
