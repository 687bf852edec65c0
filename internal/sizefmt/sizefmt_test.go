package sizefmt

import (
	"math"
	"testing"
)

// TestParseValid tests valid size strings across units and casings.
func TestParseValid(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"", 0},
		{"   ", 0},
		{"0", 0},
		{"1", 1},
		{"1b", 1},
		{"1B", 1},
		{"1234", 1234},
		{"1k", 1024},
		{"1K", 1024},
		{"1kb", 1024},
		{"1KB", 1024},
		{"2m", 2 * 1024 * 1024},
		{"2MB", 2 * 1024 * 1024},
		{"3g", 3 * 1024 * 1024 * 1024},
		{"3GB", 3 * 1024 * 1024 * 1024},
		{"1T", 1 << 40},
		{"1TB", 1 << 40},
		{"100MB", 100 * 1024 * 1024},
		{"1.5G", 1610612736},
		{"2.5MB", 2621440},
		{"0.5K", 512},
		{" 10 MB ", 10 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// TestParseInvalid tests that malformed literals are rejected.
func TestParseInvalid(t *testing.T) {
	tests := []string{
		"abc",
		"10XB",
		"MB",
		".",
		"1.2.3MB",
		"-1",
		"-1k",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

// TestParseSaturates tests that oversized values clamp at MaxUint64.
func TestParseSaturates(t *testing.T) {
	tests := []string{"99999999999999999999", "999999999999999999T", "18446744073709551615B"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := Parse(input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", input, err)
			}
			if got != math.MaxUint64 {
				t.Errorf("Parse(%q) = %d, want MaxUint64", input, got)
			}
		})
	}
}

// TestFormat tests unit selection and precision.
func TestFormat(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0"},
		{512, "512"},
		{1023, "1023"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{2621440, "2.50 MB"},
		{1610612736, "1.50 GB"},
		{1 << 40, "1.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.input); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestRoundTrip tests that Parse(Format(n)) recovers n exactly below 1 KB
// and within two decimal places of the unit above it.
func TestRoundTrip(t *testing.T) {
	exact := []uint64{0, 1, 999, 1023}
	for _, n := range exact {
		got, err := Parse(Format(n))
		if err != nil {
			t.Fatalf("round trip %d: %v", n, err)
		}
		if got != n {
			t.Errorf("Parse(Format(%d)) = %d, want exact", n, got)
		}
	}

	approx := []uint64{2048, 2621440, 5 * 1024 * 1024 * 1024}
	for _, n := range approx {
		got, err := Parse(Format(n))
		if err != nil {
			t.Fatalf("round trip %d: %v", n, err)
		}
		// Two decimal places of the governing unit.
		var unit uint64
		switch {
		case n >= 1<<40:
			unit = 1 << 40
		case n >= 1<<30:
			unit = 1 << 30
		case n >= 1<<20:
			unit = 1 << 20
		default:
			unit = 1 << 10
		}
		tolerance := unit / 100
		diff := int64(got) - int64(n)
		if diff < 0 {
			diff = -diff
		}
		if uint64(diff) > tolerance {
			t.Errorf("Parse(Format(%d)) = %d, off by %d (> %d)", n, got, diff, tolerance)
		}
	}
}
