package formatting_test

import (
	"testing"

	"github.com/acrewise/acrewise/pkg/formatting"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{512, 0, "512 B"},
		{1024, 0, "1 KB"},
		{1536, 1, "1.5 KB"},
		{52428800, 0, "50 MB"},
		{1073741824, 2, "1.00 GB"},
	}

	for _, tc := range cases {
		if got := formatting.FormatBytes(tc.n, tc.precision); got != tc.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tc.n, tc.precision, got, tc.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"512", 512},
		{"1KB", 1024},
		{"50MB", 52428800},
		{"50 MB", 52428800},
		{"50mb", 52428800},
		{"1.5 KB", 1536},
		{"2GB", 2147483648},
	}

	for _, tc := range cases {
		got, err := formatting.ParseBytes(tc.input)
		if err != nil {
			t.Errorf("ParseBytes(%q) error = %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestParseBytesRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "fifty", "50XB", "-1KB"} {
		if _, err := formatting.ParseBytes(input); err == nil {
			t.Errorf("ParseBytes(%q) should fail", input)
		}
	}
}
