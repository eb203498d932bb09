package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"15000", 15000, true},
		{"1,234,500", 1234500, true},
		{"₩15,000", 15000, true},
		{"15,000원", 15000, true},
		{"1,234.50", 1234.5, true},
		{"12,5", 12.5, true},
		{" 0 ", 0, true},
		{"-3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	if got := RoundAmount(12.345, 2); got != 12.35 {
		t.Fatalf("expected 12.35, got %v", got)
	}
	if got := RoundAmount(33.3333333, 1); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
}
