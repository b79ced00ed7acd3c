package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1000", 1000, true},
		{"1,000", 1000, true},
		{"1 000 000", 1000000, true},
		{" 2500 ", 2500, true},
		{"0", 0, true},
		{"", 0, false},
		{"-100", 0, false},
		{"+100", 0, false},
		{"10.50", 0, false},
		{"abc", 0, false},
		{"1000 MMK", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "0 MMK"},
		{100, "100 MMK"},
		{1000, "1,000 MMK"},
		{12345, "12,345 MMK"},
		{1234567, "1,234,567 MMK"},
		{-5000, "-5,000 MMK"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Fatalf("%d expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
